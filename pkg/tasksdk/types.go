package tasksdk

import (
	"encoding/json"
	"time"
)

// envelope is the body shape of every API response.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int64     `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// UpdateTaskRequest changes only the non-nil fields. ClearDueDate sends an
// explicit null for the due date.
type UpdateTaskRequest struct {
	Title        *string
	Description  *string
	Status       *string
	DueDate      *time.Time
	ClearDueDate bool
}

func (r UpdateTaskRequest) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if r.Title != nil {
		body["title"] = *r.Title
	}
	if r.Description != nil {
		body["description"] = *r.Description
	}
	if r.Status != nil {
		body["status"] = *r.Status
	}
	switch {
	case r.ClearDueDate:
		body["dueDate"] = nil
	case r.DueDate != nil:
		body["dueDate"] = r.DueDate.UTC()
	}
	return json.Marshal(body)
}

// ListTasksOptions map onto the query string of GET /v1/tasks.
type ListTasksOptions struct {
	FilterField  string
	FilterValues []string
	Sort         string
	Descending   bool
	SearchTitle  string
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Verifier string `json:"verifier"`
}
