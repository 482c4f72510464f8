package syncdriver

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckAPIKeyExpiry inspects a JWT-shaped API key's exp claim without
// verifying its signature (the sync endpoint is the authority on
// validity; this is an early, friendlier failure for an obviously-expired
// key before spending a round trip). A non-JWT key (opaque token) is
// accepted as-is.
func CheckAPIKeyExpiry(apiKey string) error {
	parser := jwt.NewParser()
	var claims jwt.RegisteredClaims
	_, _, err := parser.ParseUnverified(apiKey, &claims)
	if err != nil {
		// Not a JWT; nothing to check.
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("syncdriver: API key expired at %s", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return nil
}
