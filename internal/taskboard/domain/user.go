package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2 encoded
	Role         Role   // empty when the user was never associated with a role

	RefreshTokenHash      *string    // deterministic fingerprint (base64url SHA-256)
	RefreshTokenExpiresAt *time.Time // nil when no refresh token is outstanding

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Roles returns the role claim values for the access token.
func (u User) Roles() []string {
	if u.Role == "" {
		return []string{}
	}
	return []string{string(u.Role)}
}
