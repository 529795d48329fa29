package domain

import "time"

// TokenPair represents what the auth endpoints return: the short-lived
// access token (JWT) and, when requested, the opaque refresh token.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"` // always "Bearer"
	ExpiresIn    int64     `json:"expiresIn"` // seconds until expiry
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}
