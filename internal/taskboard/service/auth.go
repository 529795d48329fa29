package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

const (
	MinPasswordLen = 6
	MaxUsernameLen = 64
	MaxEmailLen    = 254
)

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string

	// Role defaults to user.
	Role string
}

// AuthService orchestrates registration and login.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	Now    func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func validateRegistration(in RegisterInput) (RegisterInput, domain.Role, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	switch {
	case in.Username == "":
		return in, "", validationf("username is required")
	case utf8.RuneCountInString(in.Username) > MaxUsernameLen:
		return in, "", validationf("username must be at most %d characters", MaxUsernameLen)
	case in.Email == "":
		return in, "", validationf("email is required")
	case len(in.Email) > MaxEmailLen:
		return in, "", validationf("email is too long")
	case in.Password == "":
		return in, "", validationf("password is required")
	case utf8.RuneCountInString(in.Password) < MinPasswordLen:
		return in, "", validationf("password must be at least %d characters", MinPasswordLen)
	case in.Password != in.ConfirmPassword:
		return in, "", validationf("passwords do not match")
	}

	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return in, "", validationf("email is malformed")
	}

	role := domain.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		r, ok := domain.ParseRole(in.Role)
		if !ok {
			return in, "", validationf("unknown role %q", in.Role)
		}
		role = r
	}
	return in, role, nil
}

// Register creates a user and associates the requested role in one
// transaction. Any failure leaves no partial user behind.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	in, role, err := validateRegistration(in)
	if err != nil {
		return domain.User{}, err
	}

	// Hash outside the transaction; argon2 is slow and sqlite has one connection.
	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByEmail(ctx, in.Email); err == nil {
			return validationf("email is already registered")
		} else if !errors.Is(err, store.ErrNotFound) {
			return storageErr(err)
		}
		if _, err := tx.Users().GetUserByUsername(ctx, in.Username); err == nil {
			return validationf("username is already taken")
		} else if !errors.Is(err, store.ErrNotFound) {
			return storageErr(err)
		}

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return validationf("username or email is already registered")
			}
			return storageErr(err)
		}
		if err := tx.Roles().CreateRole(ctx, role); err != nil {
			return storageErr(err)
		}
		if err := tx.Roles().AddUserToRole(ctx, user.ID, role); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrValidation) {
			l.Error("registration failed", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	user.Role = role
	l.Info("user registered", slog.String("user_id", user.ID), slog.String("role", string(role)))
	return user, nil
}

// Login checks the password and issues tokens. Unknown users and wrong
// passwords produce the same ErrUnauthorized, and unknown users still pay
// for one password verification.
func (s *AuthService) Login(ctx context.Context, username, password string, withRefresh bool) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		cryptox.BurnVerify(password)
		return nil, ErrUnauthorized
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnVerify(password)
			l.Info("login failed", slog.String("reason", "unknown_user"))
			return nil, ErrUnauthorized
		}
		return nil, storageErr(err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrInvalidHash) {
			l.Error("stored password hash is unusable", slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			l.Info("login failed", slog.String("reason", "bad_password"), slog.String("user_id", user.ID))
		}
		return nil, ErrUnauthorized
	}

	return s.Tokens.IssueTokenPair(ctx, user, withRefresh)
}
