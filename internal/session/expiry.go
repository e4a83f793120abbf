package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session lifetime assumed when the token carries no expiry.
const DefaultTTL = time.Hour

// tokenExpiry returns when token expires.
// A JWT with an exp claim is trusted for its expiry without verifying the
// signature, which only the backend can do. Anything else expires ttl after now.
func tokenExpiry(token string, now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return now.Add(ttl)
}
