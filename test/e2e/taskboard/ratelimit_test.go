package taskboard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// TestRateLimitLogin checks the strict credential limit (burst of 5 per IP).
func TestRateLimitLogin(t *testing.T) {
	client := setupTaskboardWithDefaultRateLimits(t)

	var lastErr error
	for i := range 6 {
		_, err := client.LoginTokens(t.Context(), "wronguser", "wrongpass", false)
		if i < 5 {
			require.True(t, tasksdk.IsUnauthorized(err), "request %d should be rejected, not limited: %v", i+1, err)
			continue
		}
		lastErr = err
	}

	require.True(t, tasksdk.IsRateLimited(lastErr), "sixth login should be rate limited, got %v", lastErr)
}
