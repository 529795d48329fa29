package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// TokenValidator checks a raw bearer token. Errors wrapping jwtx.ErrExpired
// are reported to the client as expired.
type TokenValidator func(raw string) (*jwtx.Claims, error)

// VerifyWith adapts a bare Verifier into a TokenValidator.
func VerifyWith(v jwtx.Verifier) TokenValidator {
	return func(raw string) (*jwtx.Claims, error) {
		claims, err := v.Verify(raw)
		if err != nil {
			return nil, err
		}
		return &claims, nil
	}
}

func AuthnMiddleware(validate TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := validate(raw)
			switch {
			case errors.Is(err, jwtx.ErrExpired):
				log.Info("access token expired", "path", r.URL.Path)
				writeBearerError(w, "token expired")
				return
			case err != nil:
				log.Warn("access token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			role := ""
			if len(claims.Roles) > 0 {
				role = claims.Roles[0]
			}
			ctx = slogx.WithUser(ctx, claims.UserID, role)
			ctx = contextWithAuth(ctx, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteFail(w, http.StatusUnauthorized, "unauthorized")
}
