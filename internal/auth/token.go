package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the registered claims readable from an access token.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
}

// InspectToken reads the claims of a JWT access token without verifying
// its signature; the signing key belongs to the trading API. ok is false
// when the token is not a JWT.
func InspectToken(token string) (claims TokenClaims, ok bool) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return TokenClaims{}, false
	}
	claims.Subject = rc.Subject
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, true
}

// TokenExpired reports whether token is a JWT whose exp lies before now.
// Opaque tokens are never considered expired here; the API decides.
func TokenExpired(token string, now time.Time) bool {
	claims, ok := InspectToken(token)
	if !ok || claims.ExpiresAt.IsZero() {
		return false
	}
	return now.After(claims.ExpiresAt)
}
