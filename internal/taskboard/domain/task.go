package domain

import "time"

// Task limits.
const (
	MaxTaskTitleLen       = 200
	MaxTaskDescriptionLen = 2000
	MaxTaskStatusLen      = 32

	DefaultTaskStatus = "to-do"
)

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	OwnerID     string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries the fields of an update; nil fields stay untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *string
	DueDate      *time.Time
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.DueDate == nil && !p.ClearDueDate
}
