// Package format renders money, quantities and times for display.
package format

import (
	"html/template"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NotAvailable is shown in place of a missing amount.
const NotAvailable = "N/A"

// DisplayCurrency is the currency all amounts are shown in.
const DisplayCurrency = money.USD

// Currency formats an amount as "$1,234.56", or "N/A" when amount is nil.
func Currency(amount *decimal.Decimal) string {
	if amount == nil {
		return NotAvailable
	}
	return Amount(*amount)
}

// Amount formats a known amount in the display currency, rounded to cents.
func Amount(amount decimal.Decimal) string {
	cur := money.GetCurrency(DisplayCurrency)
	minor := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// SignedCurrency is Currency with an explicit "+" on gains.
func SignedCurrency(amount *decimal.Decimal) string {
	s := Currency(amount)
	if amount != nil && amount.Round(2).IsPositive() {
		return "+" + s
	}
	return s
}

// Quantity formats a share count with thousands separators.
func Quantity(n int64) string {
	return humanize.Comma(n)
}

// Ago formats t relative to now, e.g. "3 minutes ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return humanize.Time(t)
}

// Timestamp formats t as a short absolute UTC time.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// PnLClass returns the CSS class for a profit or loss amount.
func PnLClass(amount *decimal.Decimal) string {
	switch {
	case amount == nil:
		return "muted"
	case amount.IsPositive():
		return "gain"
	case amount.IsNegative():
		return "loss"
	default:
		return ""
	}
}

// FuncMap returns the template functions of this package.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"currency":       Currency,
		"amount":         Amount,
		"signedCurrency": SignedCurrency,
		"quantity":       Quantity,
		"ago":            Ago,
		"timestamp":      Timestamp,
		"pnlClass":       PnLClass,
		"upper":          strings.ToUpper,
	}
}
