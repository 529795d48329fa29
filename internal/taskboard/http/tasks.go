package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

type TasksHandler struct {
	TaskService *service.TaskService
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

// optionalTime tells an absent field apart from an explicit null.
type optionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *optionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

type updateTaskRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	DueDate     optionalTime `json:"dueDate"`
}

func (req updateTaskRequest) patch() domain.TaskPatch {
	p := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.DueDate.Set {
		if req.DueDate.Value == nil {
			p.ClearDueDate = true
		} else {
			p.DueDate = req.DueDate.Value
		}
	}
	return p
}

func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// HandleList lists the caller's visible tasks.
//
// Query: filterField, filterValues (comma separated), sort, az (asc|desc),
// searchTitle.
func (h *TasksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	tasks, err := h.TaskService.ListTasks(r.Context(), caller, service.TaskListParams{
		FilterField:  q.Get("filterField"),
		FilterValues: service.ParseFilterValues(q.Get("filterValues")),
		SortField:    q.Get("sort"),
		SortDir:      q.Get("az"),
		SearchTitle:  q.Get("searchTitle"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	httpx.WriteSuccess(w, http.StatusOK, tasks, "Tasks retrieved successfully.")
}

func (h *TasksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := taskID(r)
	if !ok {
		httpx.WriteFail(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.TaskService.GetTaskDetail(r.Context(), id, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, task, "Task retrieved successfully.")
}

// HandleCreate stores a task owned by the caller, whatever the body says.
func (h *TasksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createTaskRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	task, err := h.TaskService.CreateTask(r.Context(), service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
	}, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, task, "Task created successfully.")
}

// HandleUpdate patches a task inside the caller's scope. Fields left out of
// the body are untouched; "dueDate": null clears the due date.
func (h *TasksHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := taskID(r)
	if !ok {
		httpx.WriteFail(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req updateTaskRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if _, err := h.TaskService.GetTaskDetail(r.Context(), id, caller); err != nil {
		writeServiceError(w, r, err)
		return
	}

	task, err := h.TaskService.UpdateTask(r.Context(), id, req.patch())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, task, "Task updated successfully.")
}

func (h *TasksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		httpx.WriteFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := taskID(r)
	if !ok {
		httpx.WriteFail(w, http.StatusBadRequest, "invalid task id")
		return
	}

	deleted, err := h.TaskService.DeleteTask(r.Context(), id, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, nil, "Task deleted successfully.")
}
