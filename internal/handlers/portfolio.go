package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/format"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/middleware"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/services"
)

const qrSize = 256

// PortfolioHandler handles the portfolio detail page, trade submission and
// the machine-readable views of a portfolio.
type PortfolioHandler struct {
	pages
	views      *services.PortfolioViewService
	trades     *services.TradeService
	portfolios *services.PortfolioService
	publicURL  string
}

// NewPortfolioHandler creates a new PortfolioHandler. publicURL is the
// externally reachable base URL encoded in QR codes.
func NewPortfolioHandler(
	templates map[string]*template.Template,
	views *services.PortfolioViewService,
	trades *services.TradeService,
	portfolios *services.PortfolioService,
	flash Flasher,
	publicURL string,
	log *logger.Logger,
) *PortfolioHandler {
	return &PortfolioHandler{
		pages:      newPages(templates, flash, log, "portfolio"),
		views:      views,
		trades:     trades,
		portfolios: portfolios,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}
}

// Detail renders the assembled view of one portfolio with its trade form
// and trade history.
func (h *PortfolioHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderDetail(w, r, id, http.StatusOK, services.TradeForm{TradeType: string(models.TradeBuy)}, "")
}

// SubmitTrade validates and submits a trade. On success the client is
// redirected to the detail page, which assembles the view afresh. On
// failure the page is rendered again with the form as entered.
func (h *PortfolioHandler) SubmitTrade(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderDetail(w, r, id, http.StatusBadRequest, services.TradeForm{}, "Invalid form data")
		return
	}

	form := services.TradeForm{
		TickerSymbol: r.FormValue("ticker_symbol"),
		Quantity:     r.FormValue("quantity"),
		TradeType:    r.FormValue("trade_type"),
		Price:        r.FormValue("price"),
	}

	trade, err := h.trades.Submit(r.Context(), middleware.GetToken(r), id, form)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.renderDetail(w, r, id, apperrors.HTTPStatus(err), form, apperrors.UserMessage(err))
		return
	}

	h.setFlash(r, fmt.Sprintf("%s %s %s at %s executed.",
		trade.TradeType, format.Quantity(trade.Quantity), trade.TickerSymbol, format.Amount(trade.Price)))
	http.Redirect(w, r, fmt.Sprintf("/portfolios/%d", id), http.StatusSeeOther)
}

func (h *PortfolioHandler) renderDetail(w http.ResponseWriter, r *http.Request, id int64, status int, form services.TradeForm, tradeError string) {
	token := middleware.GetToken(r)

	view, err := h.views.Assemble(r.Context(), token, id)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.renderError(w, r, err)
		return
	}

	data := map[string]any{
		"View":        view,
		"TotalPnL":    &view.Totals.TotalUnrealizedPnL,
		"Form":        form,
		"TradeError":  tradeError,
		"TradesError": "",
	}

	trades, err := h.portfolios.Trades(r.Context(), token, id)
	if err != nil {
		h.logger.Warn().Err(err).Int64("portfolio_id", id).Msg("loading trade history")
		data["TradesError"] = apperrors.UserMessage(err)
	}
	data["Trades"] = trades

	h.render(w, r, status, "portfolio.html", data)
}

// QRCode serves a PNG QR code linking to the portfolio's detail page.
func (h *PortfolioHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	portfolios, err := h.portfolios.List(r.Context(), middleware.GetToken(r))
	if err != nil {
		http.Error(w, apperrors.UserMessage(err), apperrors.HTTPStatus(err))
		return
	}
	if !ownsPortfolio(portfolios, id) {
		http.NotFound(w, r)
		return
	}

	qr, err := qrcode.New(fmt.Sprintf("%s/portfolios/%d", h.publicURL, id), qrcode.Medium)
	if err != nil {
		h.logger.Error().Err(err).Msg("creating QR code")
		http.Error(w, "Error generating QR code", http.StatusInternalServerError)
		return
	}
	png, err := qr.PNG(qrSize)
	if err != nil {
		h.logger.Error().Err(err).Msg("encoding QR code")
		http.Error(w, "Error generating QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// ViewJSON returns the assembled portfolio view as JSON.
func (h *PortfolioHandler) ViewJSON(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	view, err := h.views.Assemble(r.Context(), middleware.GetToken(r), id)
	if err != nil {
		if apperrors.IsAPI(err) && apperrors.IsUnauthorized(err) {
			if state := middleware.GetSession(r); state != nil {
				state.Logout(r.Context())
			}
		}
		writeJSONError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func ownsPortfolio(portfolios []models.Portfolio, id int64) bool {
	for _, p := range portfolios {
		if p.ID == id {
			return true
		}
	}
	return false
}
