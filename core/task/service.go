package task

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/flowtaskhq/flowtask/core"
	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/user"
	"github.com/flowtaskhq/flowtask/services/events"
)

var (
	// errors
	ErrNotFound = errors.New("task not found")
)

type (
	// ListFilter narrows a project task listing. Nil fields match everything.
	ListFilter struct {
		Status     *Status
		AssignedTo *int
	}

	// Statistics are the per-status task counts shown on dashboards.
	Statistics struct {
		Todo       int `json:"todo"`
		InProgress int `json:"in_progress"`
		Done       int `json:"done"`
		Total      int `json:"total"`
		Urgent     int `json:"urgent"`
	}

	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		QueryTasksByProject(ctx context.Context, projectID int) ([]Task, error)
		QueryTasksByAssignee(ctx context.Context, userID int) ([]Task, error)
		// QueryTasksByProjectOwner returns every task belonging to a project
		// the given user owns.
		QueryTasksByProjectOwner(ctx context.Context, ownerID int) ([]Task, error)
		GetTaskByID(ctx context.Context, id int) (Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTask(ctx context.Context, id int) error
	}

	Service interface {
		Create(ctx context.Context, actor user.User, projectID int, nt NewTask) (Task, error)
		Get(ctx context.Context, actor user.User, id int) (Task, error)
		// GetForEdit returns the task and its project when the actor may edit
		// the task. Edit permission alone gates access here: an assignee keeps
		// editing rights even while the project is hidden from plain members.
		GetForEdit(ctx context.Context, actor user.User, id int) (Task, project.Project, error)
		ListByProject(ctx context.Context, actor user.User, projectID int, filter ListFilter) ([]Task, error)
		Update(ctx context.Context, actor user.User, id int, ut UpdateTask) (Task, error)
		// SetStatus moves a task between board columns. It is a no-op when the
		// status is unchanged, and reports celebrate=true exactly when the task
		// just transitioned into done.
		SetStatus(ctx context.Context, actor user.User, id int, next Status) (t Task, celebrate bool, err error)
		Delete(ctx context.Context, actor user.User, id int) error
		// Statistics counts tasks relevant to the actor: assigned tasks for
		// students, tasks of owned projects for teachers and admins.
		Statistics(ctx context.Context, actor user.User, projectID *int) (Statistics, error)
	}

	service struct {
		repo     Repository
		projects project.Repository
		events   events.Publisher
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, projects project.Repository, pub events.Publisher, logger core.Logger) Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &service{
		repo:     repo,
		projects: projects,
		events:   pub,
		logger:   logger,
	}
}

func (svc *service) getProject(ctx context.Context, id int) (project.Project, error) {
	proj, err := svc.projects.GetProjectByID(ctx, id)
	if err != nil {
		return project.Project{}, errors.Wrapf(err, "loading project %d", id)
	}
	return proj, nil
}

func (svc *service) Create(ctx context.Context, actor user.User, projectID int, nt NewTask) (Task, error) {
	proj, err := svc.getProject(ctx, projectID)
	if err != nil {
		return Task{}, err
	}
	if !project.CanCreateTask(actor, proj) {
		return Task{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	t := Task{
		Title:       nt.Title,
		Description: nt.Description,
		ProjectID:   proj.ID,
		AssignedTo:  null.IntFrom(nt.AssignedTo),
		Status:      nt.Status,
		DueDate:     null.TimeFrom(nt.Due()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateTask(ctx, t)
}

func (svc *service) Get(ctx context.Context, actor user.User, id int) (Task, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	proj, err := svc.getProject(ctx, t.ProjectID)
	if err != nil {
		return Task{}, err
	}
	if !project.CanView(actor, proj) && !t.IsAssignedTo(actor.ID) {
		return Task{}, core.ErrPermissionDenied
	}
	return t, nil
}

func (svc *service) GetForEdit(ctx context.Context, actor user.User, id int) (Task, project.Project, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, project.Project{}, err
	}
	proj, err := svc.getProject(ctx, t.ProjectID)
	if err != nil {
		return Task{}, project.Project{}, err
	}
	if !CanEdit(actor, t, proj) {
		return Task{}, project.Project{}, core.ErrPermissionDenied
	}
	return t, proj, nil
}

func (svc *service) ListByProject(ctx context.Context, actor user.User, projectID int, filter ListFilter) ([]Task, error) {
	proj, err := svc.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.CanView(actor, proj) {
		return nil, core.ErrPermissionDenied
	}

	tasks, err := svc.repo.QueryTasksByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	filtered := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil && !t.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

func (svc *service) Update(ctx context.Context, actor user.User, id int, ut UpdateTask) (Task, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	proj, err := svc.getProject(ctx, t.ProjectID)
	if err != nil {
		return Task{}, err
	}
	if !CanEdit(actor, t, proj) {
		return Task{}, core.ErrPermissionDenied
	}

	prev := t.Status
	if ut.Title != "" {
		t.Title = ut.Title
	}
	if ut.Description != "" {
		t.Description = ut.Description
	}
	if ut.AssignedTo != nil {
		t.AssignedTo = null.IntFrom(*ut.AssignedTo)
	}
	if ut.DueDate != nil {
		if *ut.DueDate == "" {
			t.DueDate = null.Time{}
		} else {
			t.DueDate = null.TimeFrom(ut.Due())
		}
	}
	if ut.Status != nil {
		t.Status = *ut.Status
	}
	t.UpdatedAt = time.Now().UTC()

	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, err
	}
	if t.Status != prev {
		svc.publishStatusChange(ctx, actor, prev, t)
	}
	return t, nil
}

func (svc *service) SetStatus(ctx context.Context, actor user.User, id int, next Status) (Task, bool, error) {
	if !next.Valid() {
		return Task{}, false, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}

	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, false, err
	}
	proj, err := svc.getProject(ctx, t.ProjectID)
	if err != nil {
		return Task{}, false, err
	}
	if !CanEdit(actor, t, proj) {
		return Task{}, false, core.ErrPermissionDenied
	}
	if t.Status == next {
		return t, false, nil
	}

	prev := t.Status
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, false, err
	}
	svc.publishStatusChange(ctx, actor, prev, t)

	celebrate := next == StatusDone && prev != StatusDone
	return t, celebrate, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, id int) error {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return err
	}
	proj, err := svc.getProject(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if !CanDelete(actor, t, proj) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteTask(ctx, id)
}

func (svc *service) Statistics(ctx context.Context, actor user.User, projectID *int) (Statistics, error) {
	var (
		tasks []Task
		err   error
	)
	if actor.Role() == user.RoleStudent {
		tasks, err = svc.repo.QueryTasksByAssignee(ctx, actor.ID)
	} else {
		tasks, err = svc.repo.QueryTasksByProjectOwner(ctx, actor.ID)
	}
	if err != nil {
		return Statistics{}, err
	}

	now := NowFunc()
	var stats Statistics
	for _, t := range tasks {
		if projectID != nil && t.ProjectID != *projectID {
			continue
		}
		switch t.Status {
		case StatusTodo:
			stats.Todo++
		case StatusInProgress:
			stats.InProgress++
		case StatusDone:
			stats.Done++
		}
		if t.IsUrgent(now) {
			stats.Urgent++
		}
		stats.Total++
	}
	return stats, nil
}

// publishStatusChange emits a broker event; failures are logged, never fatal.
func (svc *service) publishStatusChange(ctx context.Context, actor user.User, prev Status, t Task) {
	evt := events.TaskStatusChanged{
		TaskID:     t.ID,
		ProjectID:  t.ProjectID,
		FromStatus: string(prev),
		ToStatus:   string(t.Status),
		ChangedBy:  actor.ID,
		ChangedAt:  t.UpdatedAt,
	}
	if err := svc.events.PublishTaskStatusChanged(ctx, evt); err != nil && svc.logger != nil {
		svc.logger.Warn(fmt.Sprintf("publishing task status event: %v", err), err)
	}
}
