package secure

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims mirrors the claims the backend puts into access tokens.
type AccessTokenClaims struct {
	SID string `json:"sid"` // session_id
	jwt.RegisteredClaims
}

// SessionID returns the sid claim, or uuid.Nil when it is absent or malformed.
func (c AccessTokenClaims) SessionID() uuid.UUID {
	id, err := uuid.Parse(c.SID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Expiry returns the exp claim; zero when the token carries none.
func (c AccessTokenClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// DecodeClaims reads the claims of a JWT access token without verifying the signature.
// The claims only drive display and refresh scheduling; the backend stays the authority.
// ok is false for opaque tokens.
func DecodeClaims(token string) (claims AccessTokenClaims, ok bool) {
	if strings.Count(token, ".") != 2 {
		return AccessTokenClaims{}, false
	}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return AccessTokenClaims{}, false
	}

	return claims, true
}
