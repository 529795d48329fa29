package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

// filterSpec binds an allow-listed filter name to a typed column and the
// parser applied to each value.
type filterSpec struct {
	field store.TaskField
	parse func(string) (string, error)
}

func keepValue(v string) (string, error) { return v, nil }

// parseDueDay accepts YYYY-MM-DD or RFC 3339 and returns the UTC day.
func parseDueDay(v string) (string, error) {
	if t, err := time.Parse(store.DayLayout, v); err == nil {
		return t.Format(store.DayLayout), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return "", fmt.Errorf("%w: due date %q must be YYYY-MM-DD or RFC 3339", ErrInvalidQuery, v)
	}
	return t.UTC().Format(store.DayLayout), nil
}

// filterFields is keyed by the normalized name (lower case, no underscores).
var filterFields = map[string]filterSpec{
	"status":  {field: store.TaskFieldStatus, parse: keepValue},
	"title":   {field: store.TaskFieldTitle, parse: keepValue},
	"duedate": {field: store.TaskFieldDueDate, parse: parseDueDay},
	"owner":   {field: store.TaskFieldOwner, parse: keepValue},
	"userid":  {field: store.TaskFieldOwner, parse: keepValue},
}

var sortFields = map[string]store.TaskSortKey{
	"duedate": store.TaskSortDueDate,
}

func normalizeFieldName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
}

// resolveFilter maps a client filter onto a typed store filter. An unknown
// field is ErrInvalidQuery; nothing is returned that could reach storage.
func resolveFilter(field string, values []string) (store.TaskFilter, error) {
	if strings.TrimSpace(field) == "" {
		return store.TaskFilter{}, nil
	}
	fm, ok := filterFields[normalizeFieldName(field)]
	if !ok {
		return store.TaskFilter{}, fmt.Errorf("%w: unknown filter field %q", ErrInvalidQuery, field)
	}
	if len(values) == 0 {
		return store.TaskFilter{}, nil
	}

	parsed := make([]string, 0, len(values))
	for _, v := range values {
		p, err := fm.parse(v)
		if err != nil {
			return store.TaskFilter{}, err
		}
		parsed = append(parsed, p)
	}
	return store.TaskFilter{Field: fm.field, Values: parsed}, nil
}

// resolveSort returns the sort key and direction. Unknown keys fall back to
// the default id order.
func resolveSort(field, dir string) (store.TaskSortKey, bool) {
	key, ok := sortFields[normalizeFieldName(field)]
	if !ok {
		return store.TaskSortID, false
	}
	return key, strings.EqualFold(strings.TrimSpace(dir), "desc")
}

// ParseFilterValues decodes a comma separated, URL-encoded value list.
// Blank segments are dropped. An undecodable string is split as is.
func ParseFilterValues(raw string) []string {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}

	var values []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
