package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	// DefaultAccessTokenTTL is the lifetime of a signed access token.
	DefaultAccessTokenTTL = 60 * time.Minute

	// DefaultRefreshTokenTTL is the horizon of an opaque refresh token.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims. The subject carries the username so
// downstream services can log it without a lookup; the stable identity lives
// in UserID.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the immutable user identity (ULID).
	UserID string `json:"uid,omitempty"`

	// Email of the user at issuance time.
	Email string `json:"email,omitempty"`

	// Roles granted to the user, zero or more.
	Roles []string `json:"roles,omitempty"`
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(
	username, userID, email string,
	roles []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID: userID,
		Email:  email,
		Roles:  roles,
	}
}

// NewJTI returns a fresh random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// HasRole reports whether role is among the granted roles.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf
// at the given instant.
func (c *Claims) ValidateExpiry(now time.Time) error {
	return c.ValidateExpiryWithLeeway(now, 0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	now = now.UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
