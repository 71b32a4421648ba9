package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"conti/internal/core"
)

// ErrMalformedToken is returned for anything that is not a three part JWT
// with a JSON header and payload.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the subset of the token payload the client cares about. The
// signature is never checked here; the backend does that.
type Claims struct {
	User      core.User
	ExpiresAt time.Time // zero when the token has no exp claim
}

// tokenClaims maps the backend's custom claims next to the registered ones.
type tokenClaims struct {
	PersonID int64  `json:"person_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

func DecodeClaims(token string) (Claims, error) {
	var tc tokenClaims
	// An unknown alg only means the token cannot be verified, which the
	// client never does anyway.
	if _, _, err := parser.ParseUnverified(token, &tc); err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return Claims{}, ErrMalformedToken
	}
	c := Claims{User: core.User{
		PersonID: tc.PersonID,
		Email:    tc.Email,
		Username: tc.Username,
		Role:     tc.Role,
		Provider: tc.Provider,
	}}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// Expired reports whether token is past its exp claim at now. Undecodable
// tokens count as expired; tokens without exp never expire.
func Expired(token string, now time.Time) bool {
	c, err := DecodeClaims(token)
	if err != nil {
		return true
	}
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
