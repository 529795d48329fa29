package tasksdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func (o ListTasksOptions) query() string {
	q := url.Values{}
	if o.FilterField != "" {
		q.Set("filterField", o.FilterField)
		q.Set("filterValues", strings.Join(o.FilterValues, ","))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
		if o.Descending {
			q.Set("az", "desc")
		} else {
			q.Set("az", "asc")
		}
	}
	if o.SearchTitle != "" {
		q.Set("searchTitle", o.SearchTitle)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func taskPath(id int64) string {
	return "/v1/tasks/" + strconv.FormatInt(id, 10)
}

// ListTasks returns the tasks visible to the session's user.
func (s *Session) ListTasks(ctx context.Context, opts ListTasksOptions) ([]Task, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/tasks"+opts.query(), nil)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if err := decodeEnvelope(resp, &tasks, http.StatusOK); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Session) GetTask(ctx context.Context, id int64) (*Task, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, taskPath(id), nil)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := decodeEnvelope(resp, &task, http.StatusOK); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Session) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/tasks", req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := decodeEnvelope(resp, &task, http.StatusCreated); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Session) UpdateTask(ctx context.Context, id int64, req UpdateTaskRequest) (*Task, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, taskPath(id), req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := decodeEnvelope(resp, &task, http.StatusOK); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Session) DeleteTask(ctx context.Context, id int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, taskPath(id), nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil, http.StatusOK)
}
