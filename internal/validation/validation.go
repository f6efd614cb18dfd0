// Package validation provides input validation and sanitization helpers.
package validation

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Common validation patterns.
var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	tickerRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)
)

// Removes all HTML tags.
var strictHTMLPolicy = bluemonday.StrictPolicy()

// ValidateEmail validates an email address.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateTicker validates an upper-cased ticker symbol.
func ValidateTicker(symbol string) bool {
	return tickerRegex.MatchString(symbol)
}

// ValidateRequired checks if a string is non-empty.
func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ValidateLength checks if a string's character count is within bounds.
func ValidateLength(value string, min, max int) bool {
	l := utf8.RuneCountInString(value)
	return l >= min && l <= max
}

// SanitizeText drops unprintable characters, strips HTML tags and trims
// surrounding whitespace. The result is plain text; escaping is left to
// the templates.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' {
			return r
		}
		return -1
	}, s)
	s = html.UnescapeString(strictHTMLPolicy.Sanitize(s))
	return strings.TrimSpace(s)
}
