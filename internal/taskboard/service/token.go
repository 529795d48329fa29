package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

const tokenTypeBearer = "Bearer"

// TokenOptions tune a TokenService. Zero values fall back to defaults.
type TokenOptions struct {
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	Now        func() time.Time
}

type TokenService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// NewTokenService builds an HS256 token service. An empty secret is a
// configuration error.
func NewTokenService(st store.Store, secret string, opts TokenOptions) (*TokenService, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	verifier, err := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{
		Issuer:   opts.Issuer,
		Audience: opts.Audience,
		Leeway:   opts.Leeway,
		Now:      opts.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return &TokenService{
		Store:      st,
		Signer:     signer,
		Verifier:   verifier,
		Issuer:     opts.Issuer,
		Audience:   opts.Audience,
		AccessTTL:  opts.AccessTTL,
		RefreshTTL: opts.RefreshTTL,
		Now:        opts.Now,
	}, nil
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// IssueAccessToken signs an access token for user and returns it with its
// expiry.
func (s *TokenService) IssueAccessToken(user domain.User) (string, time.Time, error) {
	if s.Signer == nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrConfiguration, jwtx.ErrMissingSecret)
	}

	claims := jwtx.NewAccessClaims(
		user.Username, user.ID, user.Email, user.Roles(),
		s.AccessTTL, s.Issuer, s.Audience, s.now(),
	)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign access token: %w", ErrConfiguration, err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken returns a fresh opaque refresh token. The caller
// persists its fingerprint.
func (s *TokenService) IssueRefreshToken() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}

// ValidateAccessToken verifies signature, algorithm, issuer, audience and
// expiry. Expired tokens fail with ErrExpiredCredential, everything else
// with ErrInvalidCredential.
func (s *TokenService) ValidateAccessToken(token string) (*jwtx.Claims, error) {
	if s.Verifier == nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, jwtx.ErrMissingSecret)
	}

	claims, err := s.Verifier.Verify(strings.TrimSpace(token))
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return nil, fmt.Errorf("%w: %w", ErrExpiredCredential, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	return &claims, nil
}

// IssueTokenPair issues an access token and, when withRefresh is set, a
// refresh token that replaces any refresh token the user already holds.
func (s *TokenService) IssueTokenPair(ctx context.Context, user domain.User, withRefresh bool) (*domain.TokenPair, error) {
	access, expiresAt, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	pair := s.pair(access, expiresAt)
	if !withRefresh {
		return pair, nil
	}

	refresh, err := s.IssueRefreshToken()
	if err != nil {
		return nil, err
	}
	fp := cryptox.FingerprintToken(refresh)
	refreshExp := s.now().Add(s.RefreshTTL)

	if err := s.Store.Users().SetRefreshToken(ctx, user.ID, &fp, &refreshExp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}

	pair.RefreshToken = refresh
	return pair, nil
}

// RotateRefreshToken exchanges a refresh token for a new access token and
// a new refresh token. The exchange is single use: the stored fingerprint
// is swapped only if it still matches, so a replay or a concurrent loser
// fails with ErrInvalidCredential.
func (s *TokenService) RotateRefreshToken(ctx context.Context, presented string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrInvalidCredential
	}
	fp := cryptox.FingerprintToken(presented)

	user, err := s.Store.Users().GetUserByRefreshHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh token not recognised")
			return nil, ErrInvalidCredential
		}
		return nil, storageErr(err)
	}

	if user.RefreshTokenExpiresAt == nil || !now.Before(*user.RefreshTokenExpiresAt) {
		l.Info("refresh token expired", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredential
	}

	access, expiresAt, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken()
	if err != nil {
		return nil, err
	}

	swapped, err := s.Store.Users().SwapRefreshToken(ctx, user.ID, fp, cryptox.FingerprintToken(refresh), now.Add(s.RefreshTTL))
	if err != nil {
		return nil, storageErr(err)
	}
	if !swapped {
		l.Warn("refresh token already rotated", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredential
	}

	pair := s.pair(access, expiresAt)
	pair.RefreshToken = refresh
	return pair, nil
}

// RevokeRefreshToken clears the user's stored refresh token.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, userID string) error {
	if err := s.Store.Users().SetRefreshToken(ctx, userID, nil, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storageErr(err)
	}
	return nil
}

func (s *TokenService) pair(access string, expiresAt time.Time) *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(expiresAt.Sub(s.now()).Seconds()),
		ExpiresAt:   expiresAt,
	}
}
