package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/flowtaskhq/flowtask/core/task"
)

// TaskResult is a task payload extended with the celebration flag reported
// by the server when a task just landed in the done column.
type TaskResult struct {
	task.Task
	Celebrate bool `json:"celebrate"`
}

// TaskListFilter narrows FetchTasks. Nil fields match everything.
type TaskListFilter struct {
	Status     *task.Status
	AssignedTo *int
}

func (f TaskListFilter) query() string {
	q := make(url.Values)
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.AssignedTo != nil {
		q.Set("assigned_to", strconv.Itoa(*f.AssignedTo))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// FetchTasks lists a project's tasks, optionally filtered.
func (c *Client) FetchTasks(ctx context.Context, projectID int, filter TaskListFilter) ([]task.Task, error) {
	var tasks []task.Task
	path := fmt.Sprintf("/api/projects/%d/tasks/list%s", projectID, filter.query())
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FetchBoard lists a project's tasks partitioned into board columns.
func (c *Client) FetchBoard(ctx context.Context, projectID int) (task.Board, error) {
	tasks, err := c.FetchTasks(ctx, projectID, TaskListFilter{})
	if err != nil {
		return task.Board{}, err
	}
	return task.NewBoard(tasks), nil
}

// CreateTask creates a task on a project. Project owner or admin only.
func (c *Client) CreateTask(ctx context.Context, projectID int, nt task.NewTask) (task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", projectID), nt, &t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// FetchTask retrieves a single task.
func (c *Client) FetchTask(ctx context.Context, id int) (task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, &t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// UpdateTask partially updates a task.
func (c *Client) UpdateTask(ctx context.Context, id int, ut task.UpdateTask) (TaskResult, error) {
	var res TaskResult
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id), ut, &res); err != nil {
		return TaskResult{}, err
	}
	return res, nil
}

// SetTaskStatus moves a task between board columns. The result carries the
// server's acknowledged task state and the celebration flag.
func (c *Client) SetTaskStatus(ctx context.Context, id int, next task.Status) (TaskResult, error) {
	return c.UpdateTask(ctx, id, task.UpdateTask{Status: &next})
}

// DeleteTask deletes a task. Project owner or admin only.
func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

// TaskStatistics returns the session user's task counts, optionally limited
// to one project: assigned tasks for students, owned projects' tasks for
// teachers and admins.
func (c *Client) TaskStatistics(ctx context.Context, projectID *int) (task.Statistics, error) {
	path := "/api/tasks/statistics"
	if projectID != nil {
		path += "?project_id=" + strconv.Itoa(*projectID)
	}
	var stats task.Statistics
	if err := c.do(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return task.Statistics{}, err
	}
	return stats, nil
}

// MoveTask moves a task to another board column, returning the updated
// board. The move is ack-gated: on error the input board is returned
// unchanged so callers never show a state the server refused.
func (c *Client) MoveTask(ctx context.Context, board task.Board, id int, next task.Status) (task.Board, bool, error) {
	res, err := c.SetTaskStatus(ctx, id, next)
	if err != nil {
		return board, false, err
	}

	tasks := make([]task.Task, 0, board.Size())
	for _, t := range board.All() {
		if t.ID == res.ID {
			t = res.Task
		}
		tasks = append(tasks, t)
	}
	return task.NewBoard(tasks), res.Celebrate, nil
}
