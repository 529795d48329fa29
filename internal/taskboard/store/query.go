package store

import "time"

// OwnerScope restricts task access. When All is false only rows owned by
// OwnerID are visible, even when OwnerID is empty.
type OwnerScope struct {
	All     bool
	OwnerID string
}

// TaskField is a filterable task column. Drivers map each value to a fixed
// column name; client input never reaches SQL text.
type TaskField int

const (
	TaskFieldNone TaskField = iota
	TaskFieldStatus
	TaskFieldTitle
	TaskFieldDueDate
	TaskFieldOwner
)

// TaskFilter matches rows whose Field equals any of Values. For
// TaskFieldDueDate the values are UTC calendar days (YYYY-MM-DD).
type TaskFilter struct {
	Field  TaskField
	Values []string
}

type TaskSortKey int

const (
	TaskSortID TaskSortKey = iota
	TaskSortDueDate
)

type TaskQuery struct {
	Scope OwnerScope

	// Filter is ignored when Field is TaskFieldNone or Values is empty.
	Filter TaskFilter

	// SearchTitle is a case-insensitive substring match on the title.
	SearchTitle string

	SortBy     TaskSortKey
	Descending bool
}

// EscapeLike escapes LIKE wildcards so s matches literally. Pair it with
// ESCAPE '\'.
func EscapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// DayLayout is the calendar-day form of due-date filter values.
const DayLayout = "2006-01-02"

// DayRange returns the half-open UTC interval [start, end) covering day.
func DayRange(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}
