package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// TaskListParams are the untrusted listing parameters of a request.
type TaskListParams struct {
	FilterField  string
	FilterValues []string
	SortField    string
	SortDir      string
	SearchTitle  string
}

type TaskInput struct {
	Title       string
	Description string
	Status      string
	DueDate     *time.Time
}

type TaskService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *TaskService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// ListTasks applies the caller's scope, then the allow-listed filter, title
// search and sort.
func (s *TaskService) ListTasks(ctx context.Context, caller Caller, p TaskListParams) ([]domain.Task, error) {
	filter, err := resolveFilter(p.FilterField, p.FilterValues)
	if err != nil {
		slogx.FromContext(ctx).Info("rejected task query", slog.String("filter_field", p.FilterField), slog.Any("error", err))
		return nil, err
	}
	sortBy, desc := resolveSort(p.SortField, p.SortDir)

	tasks, err := s.Store.Tasks().ListTasks(ctx, store.TaskQuery{
		Scope:       ScopeFor(caller).owner(),
		Filter:      filter,
		SearchTitle: strings.TrimSpace(p.SearchTitle),
		SortBy:      sortBy,
		Descending:  desc,
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return tasks, nil
}

// GetTaskDetail returns the task if the caller may see it. Missing and
// foreign tasks are both ErrNotFound.
func (s *TaskService) GetTaskDetail(ctx context.Context, id int64, caller Caller) (domain.Task, error) {
	t, err := s.Store.Tasks().GetTask(ctx, id, ScopeFor(caller).owner())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, storageErr(err)
	}
	return t, nil
}

func validateTitle(title string) error {
	switch {
	case title == "":
		return validationf("title is required")
	case utf8.RuneCountInString(title) > domain.MaxTaskTitleLen:
		return validationf("title must be at most %d characters", domain.MaxTaskTitleLen)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > domain.MaxTaskDescriptionLen {
		return validationf("description must be at most %d characters", domain.MaxTaskDescriptionLen)
	}
	return nil
}

func validateStatus(status string) error {
	switch {
	case status == "":
		return validationf("status must not be empty")
	case utf8.RuneCountInString(status) > domain.MaxTaskStatusLen:
		return validationf("status must be at most %d characters", domain.MaxTaskStatusLen)
	}
	return nil
}

// CreateTask stores a new task owned by the caller.
func (s *TaskService) CreateTask(ctx context.Context, in TaskInput, caller Caller) (domain.Task, error) {
	if caller.ID == "" {
		return domain.Task{}, ErrUnauthorized
	}

	t := domain.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      strings.TrimSpace(in.Status),
		OwnerID:     caller.ID,
	}
	if t.Status == "" {
		t.Status = domain.DefaultTaskStatus
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		t.DueDate = &due
	}

	if err := validateTitle(t.Title); err != nil {
		return domain.Task{}, err
	}
	if err := validateDescription(t.Description); err != nil {
		return domain.Task{}, err
	}
	if err := validateStatus(t.Status); err != nil {
		return domain.Task{}, err
	}

	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	id, err := s.Store.Tasks().CreateTask(ctx, t)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// owner row vanished between authentication and insert
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, storageErr(err)
	}
	t.ID = id
	return t, nil
}

// UpdateTask applies patch to the task. Scope is checked by the caller.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if patch.Title != nil {
		v := strings.TrimSpace(*patch.Title)
		if err := validateTitle(v); err != nil {
			return domain.Task{}, err
		}
		patch.Title = &v
	}
	if patch.Description != nil {
		v := strings.TrimSpace(*patch.Description)
		if err := validateDescription(v); err != nil {
			return domain.Task{}, err
		}
		patch.Description = &v
	}
	if patch.Status != nil {
		v := strings.TrimSpace(*patch.Status)
		if err := validateStatus(v); err != nil {
			return domain.Task{}, err
		}
		patch.Status = &v
	}
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		patch.DueDate = &due
	}

	if err := s.Store.Tasks().UpdateTask(ctx, id, patch, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, storageErr(err)
	}

	t, err := s.Store.Tasks().GetTask(ctx, id, store.OwnerScope{All: true})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, storageErr(err)
	}
	return t, nil
}

// DeleteTask removes the task when it is inside the caller's scope and
// reports whether anything was deleted.
func (s *TaskService) DeleteTask(ctx context.Context, id int64, caller Caller) (bool, error) {
	deleted, err := s.Store.Tasks().DeleteTask(ctx, id, ScopeFor(caller).owner())
	if err != nil {
		return false, storageErr(err)
	}
	return deleted, nil
}
