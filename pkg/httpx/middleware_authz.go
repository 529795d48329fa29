package httpx

import (
	"net/http"
)

// RequireRole the caller must hold at least one of the provided roles.
func RequireRole(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, s := range required {
		want[s] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, have := range rolesFromCtx(r.Context()) {
				if _, ok := want[have]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteFail(w, http.StatusForbidden, "forbidden")
		})
	}
}
