package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/validation"
)

// Trade form validation messages.
const (
	MsgTickerRequired   = "Ticker symbol cannot be empty."
	MsgTickerInvalid    = "Ticker symbol contains invalid characters."
	MsgQuantityInvalid  = "Quantity must be a positive number."
	MsgTradeTypeInvalid = "Trade type must be BUY or SELL."
	MsgPriceInvalid     = "Price, if provided, must be a positive number."
)

// TradeForm is a trade as entered by the user, before validation.
type TradeForm struct {
	TickerSymbol string
	Quantity     string
	TradeType    string
	Price        string // empty means market price
}

// TradeExecutor submits trades to the trading API.
type TradeExecutor interface {
	ExecuteTrade(ctx context.Context, token string, portfolioID int64, trade models.TradeRequest) (*models.Trade, error)
}

// TradeService validates and submits trades.
type TradeService struct {
	api    TradeExecutor
	logger *logger.Logger
}

// NewTradeService creates a new TradeService.
func NewTradeService(api TradeExecutor, log *logger.Logger) *TradeService {
	if log == nil {
		log = logger.NewSilent()
	}
	return &TradeService{api: api, logger: log.Component("trade")}
}

// ValidateTrade turns a form into a request body. The ticker is trimmed and
// upper-cased and the trade type defaults to BUY.
func ValidateTrade(form TradeForm) (models.TradeRequest, error) {
	ticker := models.NormalizeTicker(form.TickerSymbol)
	if ticker == "" {
		return models.TradeRequest{}, apperrors.ValidationField("ticker_symbol", MsgTickerRequired)
	}
	if !validation.ValidateTicker(ticker) {
		return models.TradeRequest{}, apperrors.ValidationField("ticker_symbol", MsgTickerInvalid)
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(form.Quantity), 10, 64)
	if err != nil || quantity <= 0 {
		return models.TradeRequest{}, apperrors.ValidationField("quantity", MsgQuantityInvalid)
	}

	tradeType, ok := models.ParseTradeType(form.TradeType)
	if !ok {
		return models.TradeRequest{}, apperrors.ValidationField("trade_type", MsgTradeTypeInvalid)
	}

	req := models.TradeRequest{
		TickerSymbol: ticker,
		Quantity:     quantity,
		TradeType:    tradeType,
	}

	if raw := strings.TrimSpace(form.Price); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			return models.TradeRequest{}, apperrors.ValidationField("price", MsgPriceInvalid)
		}
		req.Price = &price
	}

	return req, nil
}

// Submit validates form and sends it once. Validation failures send
// nothing. API failures are returned with the server's message intact.
func (s *TradeService) Submit(ctx context.Context, token string, portfolioID int64, form TradeForm) (*models.Trade, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("You must be logged in to execute a trade.")
	}

	req, err := ValidateTrade(form)
	if err != nil {
		return nil, err
	}

	trade, err := s.api.ExecuteTrade(ctx, token, portfolioID, req)
	if err != nil {
		s.logger.Info().Err(err).
			Int64("portfolio_id", portfolioID).
			Str("ticker", req.TickerSymbol).
			Msg("trade rejected")
		return nil, err
	}

	s.logger.Info().
		Int64("portfolio_id", portfolioID).
		Int64("trade_id", trade.ID).
		Str("ticker", trade.TickerSymbol).
		Str("side", string(trade.TradeType)).
		Int64("quantity", trade.Quantity).
		Msg("trade executed")

	return trade, nil
}
