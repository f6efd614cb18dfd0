// Package models contains the domain models for the trading dashboard.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User represents an account on the trading API.
type User struct {
	ID        int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt Timestamp `json:"created_at"`
}

// Token is the credential returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Portfolio represents a named collection of holdings owned by one user.
type Portfolio struct {
	ID          int64            `json:"portfolio_id"`
	OwnerUserID int64            `json:"user_id"`
	Name        string           `json:"portfolio_name"`
	CashBalance *decimal.Decimal `json:"cash_balance,omitempty"` // Not every API version reports cash
	CreatedAt   Timestamp        `json:"created_at"`
}

// Holding represents a position in one ticker within a portfolio.
type Holding struct {
	ID              int64           `json:"holding_id"`
	PortfolioID     int64           `json:"portfolio_id"`
	TickerSymbol    string          `json:"ticker_symbol"`
	Quantity        int64           `json:"quantity"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
}

// CostBasis returns AverageBuyPrice × Quantity.
func (h *Holding) CostBasis() decimal.Decimal {
	return h.AverageBuyPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// NormalizeTicker returns the canonical lookup key for a ticker symbol.
func NormalizeTicker(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// PriceQuote is a point-in-time price observation. Price is nil when the
// lookup failed, in which case Source carries the failure reason.
type PriceQuote struct {
	TickerSymbol string           `json:"ticker_symbol"`
	Price        *decimal.Decimal `json:"price"`
	Source       string           `json:"source"`
}

// Resolved reports whether the quote carries a price.
func (q PriceQuote) Resolved() bool {
	return q.Price != nil
}

// EnrichedHolding is a holding joined with its quote.
// MarketValue and UnrealizedPnL are set if and only if CurrentPrice is.
type EnrichedHolding struct {
	Holding
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	MarketValue   *decimal.Decimal `json:"market_value"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
	PriceSource   string           `json:"price_source"`
}

// Priced reports whether a price was resolved for this holding.
func (h *EnrichedHolding) Priced() bool {
	return h.CurrentPrice != nil
}

// PortfolioViewTotals aggregates the priced holdings of a view.
type PortfolioViewTotals struct {
	TotalMarketValue   decimal.Decimal  `json:"total_market_value"`
	TotalUnrealizedPnL decimal.Decimal  `json:"total_unrealized_pnl"`
	PricedHoldings     int              `json:"priced_holdings"`
	UnpricedHoldings   int              `json:"unpriced_holdings"`
	TotalValue         *decimal.Decimal `json:"total_value,omitempty"` // Market value plus cash, when cash is known
}

// PortfolioView is the assembled, renderable state of one portfolio.
type PortfolioView struct {
	Portfolio   Portfolio           `json:"portfolio"`
	Holdings    []EnrichedHolding   `json:"holdings"`
	Totals      PortfolioViewTotals `json:"totals"`
	AssembledAt time.Time           `json:"assembled_at"`
}

// TradeType is the side of a trade.
type TradeType string

// Trade sides accepted by the trading API.
const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// ParseTradeType parses a trade side case-insensitively. An empty string
// defaults to BUY.
func ParseTradeType(s string) (TradeType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(TradeBuy):
		return TradeBuy, true
	case string(TradeSell):
		return TradeSell, true
	default:
		return "", false
	}
}

// Trade is an executed trade as recorded by the trading API.
type Trade struct {
	ID           int64           `json:"trade_id"`
	PortfolioID  int64           `json:"portfolio_id"`
	TickerSymbol string          `json:"ticker_symbol"`
	TradeType    TradeType       `json:"trade_type"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Timestamp    Timestamp       `json:"timestamp"`
}

// Total returns Price × Quantity.
func (t *Trade) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// TradeRequest is the body of a trade submission. A nil Price lets the
// server fill in the market price.
type TradeRequest struct {
	TickerSymbol string           `json:"ticker_symbol"`
	Quantity     int64            `json:"quantity"`
	TradeType    TradeType        `json:"trade_type"`
	Price        *decimal.Decimal `json:"price,omitempty"`
}

// Session represents a browser session of the dashboard itself.
type Session struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
