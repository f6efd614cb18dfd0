package services

import (
	"context"
	"sort"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/validation"
)

const (
	MsgPortfolioNameRequired = "Portfolio name cannot be empty."
	MsgPortfolioNameTooLong  = "Portfolio name must be at most 100 characters."
)

const maxPortfolioNameLength = 100

// PortfolioAPI is the subset of the trading API used for portfolio
// management.
type PortfolioAPI interface {
	ListPortfolios(ctx context.Context, token string) ([]models.Portfolio, error)
	CreatePortfolio(ctx context.Context, token, name string) (*models.Portfolio, error)
	ListTrades(ctx context.Context, token string, portfolioID int64) ([]models.Trade, error)
}

// PortfolioService lists and creates portfolios and loads trade history.
type PortfolioService struct {
	api    PortfolioAPI
	logger *logger.Logger
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(api PortfolioAPI, log *logger.Logger) *PortfolioService {
	if log == nil {
		log = logger.NewSilent()
	}
	return &PortfolioService{api: api, logger: log.Component("portfolio")}
}

// List returns the caller's portfolios in the order the API returned them.
func (s *PortfolioService) List(ctx context.Context, token string) ([]models.Portfolio, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("")
	}
	return s.api.ListPortfolios(ctx, token)
}

// Create sanitizes name and creates a portfolio with it.
func (s *PortfolioService) Create(ctx context.Context, token, name string) (*models.Portfolio, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("")
	}

	name = validation.SanitizeText(name)
	if !validation.ValidateRequired(name) {
		return nil, apperrors.ValidationField("portfolio_name", MsgPortfolioNameRequired)
	}
	if !validation.ValidateLength(name, 1, maxPortfolioNameLength) {
		return nil, apperrors.ValidationField("portfolio_name", MsgPortfolioNameTooLong)
	}

	portfolio, err := s.api.CreatePortfolio(ctx, token, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("portfolio_id", portfolio.ID).Msg("portfolio created")
	return portfolio, nil
}

// Trades returns the trade history of a portfolio, newest first.
func (s *PortfolioService) Trades(ctx context.Context, token string, portfolioID int64) ([]models.Trade, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("")
	}

	trades, err := s.api.ListTrades(ctx, token, portfolioID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp.Time)
	})
	return trades, nil
}
