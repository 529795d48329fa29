package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	exampleIssuer = "taskboard"
	exampleSecret = "a-test-secret-that-is-long-enough"
)

func newPair(t *testing.T, opts jwtx.VerifyOptions) (jwtx.Signer, *jwtx.HS256Verifier) {
	t.Helper()

	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, opts)
	require.NoError(t, err)

	return signer, verifier
}

func TestHS256SignAndVerify(t *testing.T) {
	signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: exampleIssuer})
	require.Equal(t, "HS256", signer.Alg())

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"alice",                      // username
		"01HZY3Q7J6W2K5VQ0000000000", // user id
		"a@x.com",                    // email
		[]string{"user"},             // roles
		2*time.Minute,                // TTL
		exampleIssuer,                // issuer
		nil,                          // audience
		now,                          // issued at time
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3, "compact JWS has three parts")

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Subject)
	require.Equal(t, claims.UserID, got.UserID)
	require.Equal(t, claims.Email, got.Email)
	require.Equal(t, claims.Roles, got.Roles)
	require.Equal(t, claims.ID, got.ID)
}

func TestHS256MissingSecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256("")
	require.ErrorIs(t, err, jwtx.ErrMissingSecret)

	_, err = jwtx.NewVerifierHS256("", jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrMissingSecret)
}

func TestHS256VerifyFailures(t *testing.T) {
	now := time.Now().UTC()

	t.Run("expired", func(t *testing.T) {
		signer, verifier := newPair(t, jwtx.VerifyOptions{})
		claims := jwtx.NewAccessClaims("alice", "id", "", nil, time.Minute, "", nil, now.Add(-2*time.Hour))
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("expired relative to injected clock", func(t *testing.T) {
		signer, verifier := newPair(t, jwtx.VerifyOptions{
			Now: func() time.Time { return now.Add(61 * time.Minute) },
		})
		claims := jwtx.NewAccessClaims("alice", "id", "", nil, time.Hour, "", nil, now)
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewSignerHS256("some-other-secret")
		require.NoError(t, err)
		_, verifier := newPair(t, jwtx.VerifyOptions{})

		token, err := other.Sign(jwtx.NewAccessClaims("alice", "id", "", nil, time.Hour, "", nil, now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
		require.NotErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("tampered payload", func(t *testing.T) {
		signer, verifier := newPair(t, jwtx.VerifyOptions{})
		token, err := signer.Sign(jwtx.NewAccessClaims("alice", "id", "", nil, time.Hour, "", nil, now))
		require.NoError(t, err)

		forged, err := signer.Sign(jwtx.NewAccessClaims("mallory", "id", "", []string{"admin"}, time.Hour, "", nil, now))
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		forgedParts := strings.Split(forged, ".")
		mixed := parts[0] + "." + forgedParts[1] + "." + parts[2]

		_, err = verifier.Verify(mixed)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("malformed", func(t *testing.T) {
		_, verifier := newPair(t, jwtx.VerifyOptions{})
		_, err := verifier.Verify("not-a-token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("unsigned token rejected", func(t *testing.T) {
		_, verifier := newPair(t, jwtx.VerifyOptions{})
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone,
			jwtx.NewAccessClaims("alice", "id", "", []string{"admin"}, time.Hour, "", nil, now))
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
		require.NotErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("missing expiry", func(t *testing.T) {
		signer, verifier := newPair(t, jwtx.VerifyOptions{})
		claims := jwtx.NewAccessClaims("alice", "id", "", nil, time.Hour, "", nil, now)
		claims.ExpiresAt = nil
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: exampleIssuer})
		token, err := signer.Sign(jwtx.NewAccessClaims("alice", "id", "", nil, time.Hour, "elsewhere", nil, now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		signer, verifier := newPair(t, jwtx.VerifyOptions{Audience: []string{"tasks"}})
		token, err := signer.Sign(jwtx.NewAccessClaims("alice", "id", "", nil, time.Hour, "", []string{"billing"}, now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})
}
