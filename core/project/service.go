package project

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core"
	"github.com/flowtaskhq/flowtask/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("project not found")

	errBadTransition = "project status can only move forward one step at a time"
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project) (Project, error)
		QueryAllProjects(ctx context.Context) ([]Project, error)
		// QueryProjectsByUser returns projects the user owns or belongs to,
		// before any visibility policy is applied.
		QueryProjectsByUser(ctx context.Context, userID int) ([]Project, error)
		GetProjectByID(ctx context.Context, id int) (Project, error)
		UpdateProject(ctx context.Context, p Project) (Project, error)
		DeleteProject(ctx context.Context, id int) error
	}

	Service interface {
		Create(ctx context.Context, actor user.User, np NewProject) (Project, error)
		// QueryVisible lists the projects the actor may see, policy-filtered.
		QueryVisible(ctx context.Context, actor user.User) ([]Project, error)
		Get(ctx context.Context, actor user.User, id int) (Project, error)
		Update(ctx context.Context, actor user.User, id int, up UpdateProject) (Project, error)
		Delete(ctx context.Context, actor user.User, id int) error
		Statistics(ctx context.Context, actor user.User) (Statistics, error)
	}

	service struct {
		repo  Repository
		users user.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Repository) Service {
	return &service{repo: repo, users: users}
}

// resolveMembers looks member IDs up, silently skipping unknown ones, and
// guarantees the owner's membership.
func (svc *service) resolveMembers(ctx context.Context, owner user.User, ids []int) ([]user.User, error) {
	members := []user.User{owner}
	seen := map[int]bool{owner.ID: true}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		usr, err := svc.users.GetUserByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "resolving member %d", id)
		}
		members = append(members, usr)
		seen[id] = true
	}
	return members, nil
}

func (svc *service) Create(ctx context.Context, actor user.User, np NewProject) (Project, error) {
	members, err := svc.resolveMembers(ctx, actor, np.MemberIDs)
	if err != nil {
		return Project{}, err
	}
	now := time.Now().UTC()
	proj := Project{
		Name:        np.Name,
		Description: np.Description,
		Owner:       actor,
		Members:     members,
		Status:      StatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateProject(ctx, proj)
}

func (svc *service) QueryVisible(ctx context.Context, actor user.User) ([]Project, error) {
	var (
		projects []Project
		err      error
	)
	if actor.Role() == user.RoleAdmin {
		projects, err = svc.repo.QueryAllProjects(ctx)
	} else {
		projects, err = svc.repo.QueryProjectsByUser(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}

	visible := make([]Project, 0, len(projects))
	for _, p := range projects {
		if CanView(actor, p) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

func (svc *service) Get(ctx context.Context, actor user.User, id int) (Project, error) {
	proj, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if !CanView(actor, proj) {
		return Project{}, core.ErrPermissionDenied
	}
	return proj, nil
}

func (svc *service) Update(ctx context.Context, actor user.User, id int, up UpdateProject) (Project, error) {
	proj, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if !CanEdit(actor, proj) {
		return Project{}, core.ErrPermissionDenied
	}

	if up.Status != nil && *up.Status != proj.Status {
		if !CanChangeStatus(actor, proj) {
			return Project{}, core.ErrPermissionDenied
		}
		if !proj.Status.CanAdvanceTo(*up.Status) {
			return Project{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: errBadTransition})
		}
		proj.Status = *up.Status
	}

	if up.Name != "" {
		proj.Name = up.Name
	}
	if up.Description != "" {
		proj.Description = up.Description
	}
	if up.MemberIDs != nil {
		members, err := svc.resolveMembers(ctx, proj.Owner, *up.MemberIDs)
		if err != nil {
			return Project{}, err
		}
		proj.Members = members
	}
	proj.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateProject(ctx, proj)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id int) error {
	proj, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(actor, proj) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteProject(ctx, id)
}

func (svc *service) Statistics(ctx context.Context, actor user.User) (Statistics, error) {
	projects, err := svc.QueryVisible(ctx, actor)
	if err != nil {
		return Statistics{}, err
	}
	var stats Statistics
	for _, p := range projects {
		switch p.Status {
		case StatusTodo:
			stats.Todo++
		case StatusInProgress:
			stats.InProgress++
		case StatusDone:
			stats.Done++
		}
	}
	stats.Total = len(projects)
	return stats, nil
}
