// Package api provides a client for the trading API.
//
// Every method returns either a decoded value or an *errors.AppError; raw
// error bodies never leave this package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
)

const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 20 // requests per second

	// RequestIDHeader is forwarded to the trading API for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Client talks to the trading API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration // applied to a copy of httpClient; 0 keeps its own
	logger     *logger.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client. nil keeps the default.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRateLimit sets the outbound rate limit. Zero or less disables it.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout. It never modifies a client passed to
// WithHTTPClient.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a new trading API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  logger.NewSilent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call to the trading API.
type request struct {
	method      string
	path        string
	token       string // empty means no Authorization header
	body        io.Reader
	contentType string
	fallback    string // message used when the error body carries none
}

// errorBody is the error envelope of the trading API. detail is either a
// string or a list of structured items.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// do performs a rate-limited request and decodes a 2xx body into result.
func (c *Client) do(ctx context.Context, r request, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Transport(fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return apperrors.Unexpected(fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID(ctx))
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", r.method).Str("path", r.path).Msg("trading API unreachable")
		return apperrors.Transport(err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("trading API request")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transport(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, body, r.fallback)
	}

	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return apperrors.Wrap(apperrors.ErrUnexpected, r.fallback, fmt.Errorf("decoding %s %s: %w", r.method, r.path, err))
	}
	return nil
}

// parseError converts an error response into an *AppError.
func parseError(status int, body []byte, fallback string) *apperrors.AppError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return apperrors.FromAPI(status, "", nil, fallback)
	}

	var message string
	if err := json.Unmarshal(eb.Detail, &message); err == nil {
		return apperrors.FromAPI(status, message, nil, fallback)
	}

	var details []apperrors.ErrorDetail
	if err := json.Unmarshal(eb.Detail, &details); err == nil {
		return apperrors.FromAPI(status, "", details, fallback)
	}

	return apperrors.FromAPI(status, "", nil, fallback)
}

// requestID returns the id of the inbound request, or a fresh one.
func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *Client) getJSON(ctx context.Context, path, token, fallback string, result any) error {
	return c.do(ctx, request{
		method:   http.MethodGet,
		path:     path,
		token:    token,
		fallback: fallback,
	}, result)
}

func (c *Client) postJSON(ctx context.Context, path, token, fallback string, payload, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Unexpected(fmt.Errorf("encoding request: %w", err))
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		token:       token,
		body:        bytes.NewReader(data),
		contentType: "application/json",
		fallback:    fallback,
	}, result)
}

func (c *Client) postForm(ctx context.Context, path, fallback string, form url.Values, result any) error {
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		fallback:    fallback,
	}, result)
}
