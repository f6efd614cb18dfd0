package api

import (
	"context"
	"fmt"
	"net/url"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/models"
)

// Messages used when the API reports an error without a detail.
const (
	msgRegister         = "Registration failed. Please try again."
	msgLogin            = "Login failed. Please check your credentials."
	msgCurrentUser      = "Failed to fetch user details."
	msgListPortfolios   = "Failed to fetch portfolios."
	msgCreatePortfolio  = "Failed to create portfolio."
	msgListHoldings     = "Failed to fetch holdings."
	msgGetPrice         = "Failed to fetch market price."
	msgExecuteTrade     = "Failed to execute trade."
	msgListTrades       = "Failed to fetch trades."
	msgEmptyTickerPrice = "Ticker symbol cannot be empty."
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var user models.User
	payload := registerRequest{Username: username, Email: email, Password: password}
	if err := c.postJSON(ctx, "/users/register", "", msgRegister, payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var token models.Token
	if err := c.postForm(ctx, "/users/login", msgLogin, form, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrUnexpected, msgLogin)
	}
	return &token, nil
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/users/me", token, msgCurrentUser, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListPortfolios returns the caller's portfolios.
func (c *Client) ListPortfolios(ctx context.Context, token string) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := c.getJSON(ctx, "/portfolios", token, msgListPortfolios, &portfolios); err != nil {
		return nil, err
	}
	return portfolios, nil
}

type createPortfolioRequest struct {
	Name string `json:"portfolio_name"`
}

// CreatePortfolio creates a portfolio with the given name.
func (c *Client) CreatePortfolio(ctx context.Context, token, name string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := c.postJSON(ctx, "/portfolios", token, msgCreatePortfolio, createPortfolioRequest{Name: name}, &portfolio); err != nil {
		return nil, err
	}
	return &portfolio, nil
}

// ListHoldings returns the holdings of a portfolio in API order.
func (c *Client) ListHoldings(ctx context.Context, token string, portfolioID int64) ([]models.Holding, error) {
	var holdings []models.Holding
	path := fmt.Sprintf("/portfolios/%d/holdings", portfolioID)
	if err := c.getJSON(ctx, path, token, msgListHoldings, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetPrice returns the current market price of a ticker. The market data
// endpoint is public, so no token is sent.
func (c *Client) GetPrice(ctx context.Context, ticker string) (*models.PriceQuote, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, apperrors.ValidationField("ticker_symbol", msgEmptyTickerPrice)
	}

	var quote models.PriceQuote
	path := "/marketdata/" + url.PathEscape(ticker)
	if err := c.getJSON(ctx, path, "", msgGetPrice, &quote); err != nil {
		return nil, err
	}
	if quote.Price == nil {
		return nil, apperrors.New(apperrors.ErrUnexpected, msgGetPrice)
	}
	if quote.TickerSymbol == "" {
		quote.TickerSymbol = ticker
	}
	return &quote, nil
}

// ExecuteTrade submits a trade. The request is sent once; callers must not
// retry blindly since the API offers no idempotency key.
func (c *Client) ExecuteTrade(ctx context.Context, token string, portfolioID int64, trade models.TradeRequest) (*models.Trade, error) {
	var result models.Trade
	path := fmt.Sprintf("/portfolios/%d/trades", portfolioID)
	if err := c.postJSON(ctx, path, token, msgExecuteTrade, trade, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTrades returns the trade history of a portfolio.
func (c *Client) ListTrades(ctx context.Context, token string, portfolioID int64) ([]models.Trade, error) {
	var trades []models.Trade
	path := fmt.Sprintf("/portfolios/%d/trades", portfolioID)
	if err := c.getJSON(ctx, path, token, msgListTrades, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}
