package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"trading_dashboard/internal/format"
	"trading_dashboard/internal/models"
)

const wordWrap = 120

// PortfoliosMarkdown renders the portfolio list.
func PortfoliosMarkdown(portfolios []models.Portfolio) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolios\n\n")
	if len(portfolios) == 0 {
		fmt.Fprintln(&b, "No portfolios yet. Create one with `dashctl create-portfolio`.")
		return b.String()
	}

	fmt.Fprintln(&b, "| ID | Name | Cash | Created |")
	fmt.Fprintln(&b, "|---:|:---|---:|:---|")
	for _, p := range portfolios {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
			p.ID,
			escapeCell(p.Name),
			format.Currency(p.CashBalance),
			format.Timestamp(p.CreatedAt.Time),
		)
	}
	return b.String()
}

// ViewMarkdown renders an assembled portfolio view: one row per holding
// followed by the totals. Holdings without a price show N/A.
func ViewMarkdown(view *models.PortfolioView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeCell(view.Portfolio.Name))

	if len(view.Holdings) == 0 {
		fmt.Fprintln(&b, "This portfolio has no holdings.")
		fmt.Fprintln(&b)
	} else {
		fmt.Fprintln(&b, "| Ticker | Quantity | Avg. price | Current price | Market value | Unrealized P&L | Source |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|:---|")
		for _, h := range view.Holdings {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				escapeCell(h.TickerSymbol),
				format.Quantity(h.Quantity),
				format.Amount(h.AverageBuyPrice),
				format.Currency(h.CurrentPrice),
				format.Currency(h.MarketValue),
				format.SignedCurrency(h.UnrealizedPnL),
				escapeCell(h.PriceSource),
			)
		}
		fmt.Fprintln(&b)
	}

	t := view.Totals
	fmt.Fprintf(&b, "## Totals\n\n")
	fmt.Fprintf(&b, "- Market value: %s\n", format.Amount(t.TotalMarketValue))
	fmt.Fprintf(&b, "- Unrealized P&L: %s\n", format.SignedCurrency(&t.TotalUnrealizedPnL))
	if view.Portfolio.CashBalance != nil {
		fmt.Fprintf(&b, "- Cash: %s\n", format.Currency(view.Portfolio.CashBalance))
	}
	if t.TotalValue != nil {
		fmt.Fprintf(&b, "- Total value: %s\n", format.Currency(t.TotalValue))
	}
	if t.UnpricedHoldings > 0 {
		fmt.Fprintf(&b, "\n_%d of %d holdings have no current price._\n",
			t.UnpricedHoldings, t.PricedHoldings+t.UnpricedHoldings)
	}
	return b.String()
}

// TradesMarkdown renders a trade history, newest first as given.
func TradesMarkdown(trades []models.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Trades\n\n")
	if len(trades) == 0 {
		fmt.Fprintln(&b, "No trades yet.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Time | Type | Ticker | Quantity | Price | Total |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|")
	for i := range trades {
		tr := &trades[i]
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			format.Timestamp(tr.Timestamp.Time),
			tr.TradeType,
			escapeCell(tr.TickerSymbol),
			format.Quantity(tr.Quantity),
			format.Amount(tr.Price),
			format.Amount(tr.Total()),
		)
	}
	return b.String()
}

// printMarkdown writes md to w, rendered for the terminal unless plain is
// set. Rendering failures fall back to the raw markdown.
func printMarkdown(w io.Writer, md string, plain bool) {
	if plain {
		fmt.Fprint(w, md)
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprint(w, md)
}

// escapeCell keeps user-supplied text from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
