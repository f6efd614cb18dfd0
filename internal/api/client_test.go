package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(WithBaseURL(server.URL), WithRateLimit(0))
}

func TestLogin_FormEncoded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret!!", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok123","token_type":"bearer"}`))
	})

	token, err := client.Login(context.Background(), "alice", "s3cret!!")
	require.NoError(t, err)
	assert.Equal(t, "tok123", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
}

func TestLogin_StringDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	})

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", apperrors.UserMessage(err))
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestRegister_ListDetail_FirstMessageWins(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob", body["username"])
		assert.Equal(t, "bob@example.com", body["email"])

		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[
			{"msg":"value is not a valid email address","type":"value_error","loc":["body","email"]},
			{"msg":"ensure this value has at least 8 characters","type":"value_error","loc":["body","password"]}
		]}`))
	})

	_, err := client.Register(context.Background(), "bob", "bob@example.com", "pw")
	require.Error(t, err)

	appErr := apperrors.As(err)
	assert.Equal(t, "value is not a valid email address", appErr.Message)
	require.Len(t, appErr.Details, 2)
	assert.Equal(t, []any{"body", "password"}, appErr.Details[1].Loc)
}

func TestListHoldings_EmptyErrorBodyUsesFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListHoldings(context.Background(), "tok", 7)
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch holdings.", apperrors.UserMessage(err))
	assert.True(t, apperrors.IsAPI(err))
}

func TestBearerAuth_OnProtectedEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		switch r.URL.Path {
		case "/users/me":
			_, _ = w.Write([]byte(`{"user_id":1,"username":"alice","email":"a@example.com","created_at":"2024-01-02T03:04:05"}`))
		case "/portfolios":
			_, _ = w.Write([]byte(`[{"portfolio_id":3,"user_id":1,"portfolio_name":"Main","cash_balance":"1000.00","created_at":"2024-01-02T03:04:05"}]`))
		case "/portfolios/3/trades":
			_, _ = w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()
	user, err := client.CurrentUser(ctx, "tok123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	portfolios, err := client.ListPortfolios(ctx, "tok123")
	require.NoError(t, err)
	require.Len(t, portfolios, 1)
	assert.Equal(t, "Main", portfolios[0].Name)
	require.NotNil(t, portfolios[0].CashBalance)
	assert.True(t, decimal.NewFromInt(1000).Equal(*portfolios[0].CashBalance))

	trades, err := client.ListTrades(ctx, "tok123", 3)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestGetPrice_NoAuthAndUppercased(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/AAPL", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"ticker_symbol":"AAPL","price":"150.00","source":"mock"}`))
	})

	quote, err := client.GetPrice(context.Background(), " aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.TickerSymbol)
	assert.Equal(t, "mock", quote.Source)
	assert.True(t, decimal.NewFromInt(150).Equal(*quote.Price))
}

func TestGetPrice_EmptyTickerNoRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.GetPrice(context.Background(), "  ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetPrice_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Ticker symbol ZZZZ not found"}`))
	})

	_, err := client.GetPrice(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Ticker symbol ZZZZ not found", apperrors.UserMessage(err))
}

func TestExecuteTrade_Body(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/9/trades", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"ticker_symbol":"AAPL","quantity":5,"trade_type":"BUY"}`, string(raw))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"trade_id":11,"portfolio_id":9,"ticker_symbol":"AAPL","trade_type":"BUY","quantity":5,"price":"150.00","timestamp":"2024-05-06T07:08:09.123456"}`))
	})

	trade, err := client.ExecuteTrade(context.Background(), "tok", 9, models.TradeRequest{
		TickerSymbol: "AAPL",
		Quantity:     5,
		TradeType:    models.TradeBuy,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), trade.ID)
	assert.True(t, decimal.NewFromInt(750).Equal(trade.Total()))
	assert.Equal(t, 2024, trade.Timestamp.Year())
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(WithBaseURL(url), WithTimeout(time.Second))
	_, err := client.ListPortfolios(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, apperrors.TransportMessage, apperrors.UserMessage(err))
}

func TestWithTimeout_LeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: 30 * time.Second}

	client := NewClient(WithHTTPClient(shared), WithTimeout(2*time.Second))

	assert.Equal(t, 30*time.Second, shared.Timeout)
	assert.Equal(t, 2*time.Second, client.httpClient.Timeout)
	assert.NotSame(t, shared, client.httpClient)

	// Option order does not matter.
	client = NewClient(WithTimeout(2*time.Second), WithHTTPClient(shared))
	assert.Equal(t, 30*time.Second, shared.Timeout)
	assert.Equal(t, 2*time.Second, client.httpClient.Timeout)
}

func TestWithHTTPClient(t *testing.T) {
	shared := &http.Client{Timeout: 30 * time.Second}
	assert.Same(t, shared, NewClient(WithHTTPClient(shared)).httpClient)

	assert.NotPanics(t, func() {
		client := NewClient(WithHTTPClient(nil), WithTimeout(time.Second))
		assert.Equal(t, time.Second, client.httpClient.Timeout)
	})

	assert.Equal(t, DefaultTimeout, NewClient().httpClient.Timeout)
}

func TestMalformedSuccessBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := client.ListPortfolios(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, errorsIsUnexpected(err))
	assert.Equal(t, "Failed to fetch portfolios.", apperrors.UserMessage(err))
}

func errorsIsUnexpected(err error) bool {
	return apperrors.As(err).Type == apperrors.ErrUnexpected
}
