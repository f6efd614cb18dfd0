package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func headersOf(mw func(http.Handler) http.Handler, path string) http.Header {
	rec := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Header()
}

func TestSecurityHeaders_Common(t *testing.T) {
	common := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"X-XSS-Protection":       "1; mode=block",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}

	for name, mw := range map[string]func(http.Handler) http.Handler{
		"pages":  SecurityHeaders,
		"strict": SecureHeadersStrict,
	} {
		h := headersOf(mw, "/")
		for header, want := range common {
			if got := h.Get(header); got != want {
				t.Errorf("%s: %s = %q, want %q", name, header, got, want)
			}
		}
	}
}

func TestSecurityHeaders_PagePolicy(t *testing.T) {
	h := headersOf(SecurityHeaders, "/portfolios/1")

	if got := h.Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q", got)
	}

	csp := h.Get("Content-Security-Policy")
	for _, directive := range []string{
		"default-src 'self'",
		"script-src 'self'",
		"img-src 'self' data:",
		"frame-ancestors 'none'",
		"form-action 'self'",
		"base-uri 'self'",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing %q: %s", directive, csp)
		}
	}
	for _, forbidden := range []string{"unsafe-eval", "*"} {
		if strings.Contains(csp, forbidden) {
			t.Errorf("CSP must not contain %q: %s", forbidden, csp)
		}
	}
	if h.Get("Cache-Control") != "" {
		t.Errorf("pages should stay cacheable, got Cache-Control %q", h.Get("Cache-Control"))
	}
}

func TestSecureHeadersStrict(t *testing.T) {
	h := headersOf(SecureHeadersStrict, "/api/portfolios/1/view")

	want := map[string]string{
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
	}
	for header, v := range want {
		if got := h.Get(header); got != v {
			t.Errorf("%s = %q, want %q", header, got, v)
		}
	}
}

func TestSecureHeadersStrict_OverridesPagePolicy(t *testing.T) {
	h := headersOf(func(next http.Handler) http.Handler {
		return SecurityHeaders(SecureHeadersStrict(next))
	}, "/portfolios/1/qr.png")

	if got := h.Get("Content-Security-Policy"); got != "default-src 'none'; frame-ancestors 'none'" {
		t.Errorf("Content-Security-Policy = %q", got)
	}
}
