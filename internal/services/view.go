// Package services contains the business logic of the trading dashboard.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/settle"
)

// MsgPortfolioNotFound is reported when the portfolio id is not among the
// caller's portfolios.
const MsgPortfolioNotFound = "Portfolio not found or you do not have access."

// SourceUnavailable is the price source of a holding that had no quote.
const SourceUnavailable = "unavailable"

// ViewAPI is the subset of the trading API needed to assemble a view.
type ViewAPI interface {
	ListPortfolios(ctx context.Context, token string) ([]models.Portfolio, error)
	ListHoldings(ctx context.Context, token string, portfolioID int64) ([]models.Holding, error)
	GetPrice(ctx context.Context, ticker string) (*models.PriceQuote, error)
}

// PortfolioViewService assembles portfolio views.
type PortfolioViewService struct {
	api    ViewAPI
	logger *logger.Logger
	now    func() time.Time
}

// NewPortfolioViewService creates a new PortfolioViewService.
func NewPortfolioViewService(api ViewAPI, log *logger.Logger) *PortfolioViewService {
	if log == nil {
		log = logger.NewSilent()
	}
	return &PortfolioViewService{
		api:    api,
		logger: log.Component("view"),
		now:    time.Now,
	}
}

// Assemble fetches the portfolio, then its holdings, then one quote per
// distinct ticker concurrently, and merges them. A failing portfolio or
// holdings fetch fails the assembly; failing quotes only leave the
// affected holdings unpriced.
func (s *PortfolioViewService) Assemble(ctx context.Context, token string, portfolioID int64) (*models.PortfolioView, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("")
	}

	portfolio, err := s.findPortfolio(ctx, token, portfolioID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.api.ListHoldings(ctx, token, portfolioID)
	if err != nil {
		return nil, err
	}

	quotes := s.fetchQuotes(ctx, holdings)

	view := BuildView(*portfolio, holdings, quotes)
	view.AssembledAt = s.now()

	s.logger.Debug().
		Int64("portfolio_id", portfolioID).
		Int("holdings", len(view.Holdings)).
		Int("unpriced", view.Totals.UnpricedHoldings).
		Msg("portfolio view assembled")

	return &view, nil
}

func (s *PortfolioViewService) findPortfolio(ctx context.Context, token string, portfolioID int64) (*models.Portfolio, error) {
	portfolios, err := s.api.ListPortfolios(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range portfolios {
		if portfolios[i].ID == portfolioID {
			return &portfolios[i], nil
		}
	}
	return nil, apperrors.NotFound(MsgPortfolioNotFound)
}

// fetchQuotes resolves one quote per distinct normalized ticker. Every
// fetch settles before it returns.
func (s *PortfolioViewService) fetchQuotes(ctx context.Context, holdings []models.Holding) map[string]models.PriceQuote {
	tickers := DistinctTickers(holdings)

	results := settle.All(ctx, tickers, func(ctx context.Context, ticker string) (*models.PriceQuote, error) {
		return s.api.GetPrice(ctx, ticker)
	})

	quotes := make(map[string]models.PriceQuote, len(results))
	for ticker, res := range results {
		if res.Err != nil || res.Value == nil || res.Value.Price == nil {
			reason := apperrors.UserMessage(res.Err)
			if reason == "" {
				reason = SourceUnavailable
			}
			s.logger.Warn().Str("ticker", ticker).Str("reason", reason).Msg("price unavailable")
			quotes[ticker] = models.PriceQuote{TickerSymbol: ticker, Source: reason}
			continue
		}
		quotes[ticker] = models.PriceQuote{
			TickerSymbol: ticker,
			Price:        res.Value.Price,
			Source:       res.Value.Source,
		}
	}
	return quotes
}

// DistinctTickers returns the normalized tickers of holdings in first-seen
// order, without duplicates or blanks.
func DistinctTickers(holdings []models.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		key := models.NormalizeTicker(h.TickerSymbol)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tickers = append(tickers, key)
	}
	return tickers
}

// BuildView merges a portfolio, its holdings and the quotes keyed by
// normalized ticker. It is a pure function: holdings keep their order,
// quotes are looked up by key, and AssembledAt is left zero.
func BuildView(portfolio models.Portfolio, holdings []models.Holding, quotes map[string]models.PriceQuote) models.PortfolioView {
	view := models.PortfolioView{
		Portfolio: portfolio,
		Holdings:  make([]models.EnrichedHolding, 0, len(holdings)),
		Totals: models.PortfolioViewTotals{
			TotalMarketValue:   decimal.Zero,
			TotalUnrealizedPnL: decimal.Zero,
		},
	}

	for _, h := range holdings {
		eh := models.EnrichedHolding{Holding: h, PriceSource: SourceUnavailable}

		quote, ok := quotes[models.NormalizeTicker(h.TickerSymbol)]
		if ok && quote.Source != "" {
			eh.PriceSource = quote.Source
		}

		if ok && quote.Price != nil {
			price := *quote.Price
			marketValue := price.Mul(decimal.NewFromInt(h.Quantity))
			pnl := marketValue.Sub(h.CostBasis())

			eh.CurrentPrice = &price
			eh.MarketValue = &marketValue
			eh.UnrealizedPnL = &pnl

			view.Totals.TotalMarketValue = view.Totals.TotalMarketValue.Add(marketValue)
			view.Totals.TotalUnrealizedPnL = view.Totals.TotalUnrealizedPnL.Add(pnl)
			view.Totals.PricedHoldings++
		} else {
			view.Totals.UnpricedHoldings++
		}

		view.Holdings = append(view.Holdings, eh)
	}

	if portfolio.CashBalance != nil {
		total := view.Totals.TotalMarketValue.Add(*portfolio.CashBalance)
		view.Totals.TotalValue = &total
	}

	return view
}
