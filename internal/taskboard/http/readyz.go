package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
)

// ReadyzHandler reports 503 while the database is unreachable or no
// verifier is configured.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	verifier jwtx.Verifier,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{
			Database: "ok",
			Verifier: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if verifier == nil {
			checks.Verifier = "error: no verifier configured"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		envStatus := httpx.StatusSuccess
		if statusCode != http.StatusOK {
			envStatus = httpx.StatusError
		}
		httpx.WriteJSON(w, statusCode, httpx.Envelope{
			Data: healthResponse{
				Status:  overallStatus,
				Uptime:  time.Since(startTime).String(),
				Version: version,
				Checks:  checks,
			},
			Status: envStatus,
			Code:   statusCode,
		})
	}
}
