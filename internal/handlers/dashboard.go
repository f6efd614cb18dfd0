package handlers

import (
	"fmt"
	"html/template"
	"net/http"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/middleware"
	"trading_dashboard/internal/services"
)

// DashboardHandler handles the portfolio list.
type DashboardHandler struct {
	pages
	portfolios *services.PortfolioService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(
	templates map[string]*template.Template,
	portfolios *services.PortfolioService,
	flash Flasher,
	log *logger.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		pages:      newPages(templates, flash, log, "dashboard"),
		portfolios: portfolios,
	}
}

// Dashboard renders the caller's portfolios and the creation form.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, nil)
}

// CreatePortfolio handles the creation form.
func (h *DashboardHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderDashboard(w, r, http.StatusBadRequest, map[string]any{"Error": "Invalid form data"})
		return
	}

	name := r.FormValue("portfolio_name")
	portfolio, err := h.portfolios.Create(r.Context(), middleware.GetToken(r), name)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.renderDashboard(w, r, apperrors.HTTPStatus(err), map[string]any{
			"Error":         apperrors.UserMessage(err),
			"PortfolioName": name,
		})
		return
	}

	h.setFlash(r, fmt.Sprintf("Portfolio %q created.", portfolio.Name))
	http.Redirect(w, r, fmt.Sprintf("/portfolios/%d", portfolio.ID), http.StatusSeeOther)
}

// renderDashboard lists the portfolios and renders them with extra. A
// failing list is shown on the page rather than failing it.
func (h *DashboardHandler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, extra map[string]any) {
	data := map[string]any{
		"PortfolioName": "",
		"LoadError":     "",
	}
	for k, v := range extra {
		data[k] = v
	}

	portfolios, err := h.portfolios.List(r.Context(), middleware.GetToken(r))
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Warn().Err(err).Msg("listing portfolios")
		data["LoadError"] = apperrors.UserMessage(err)
	}
	data["Portfolios"] = portfolios

	h.render(w, r, status, "dashboard.html", data)
}
