package tasksdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// Status is the envelope status, "fail" for client errors and "error"
	// for server errors.
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("taskboard: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool     { return statusOf(err) == http.StatusNotFound }
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return statusOf(err) == http.StatusForbidden }
func IsBadRequest(err error) bool   { return statusOf(err) == http.StatusBadRequest }
func IsRateLimited(err error) bool  { return statusOf(err) == http.StatusTooManyRequests }

// parseErrorResponse turns an error body into an *APIError. Bodies that are
// not an envelope fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Status != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     env.Status,
			Message:    env.Message,
		}
	}

	status := "fail"
	if resp.StatusCode >= http.StatusInternalServerError {
		status = "error"
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     status,
		Message:    http.StatusText(resp.StatusCode),
	}
}
