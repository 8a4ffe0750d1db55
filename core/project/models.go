package project

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flowtaskhq/flowtask/core"
	"github.com/flowtaskhq/flowtask/core/user"
)

// Status is a project's workflow state. Unlike task statuses, project
// statuses only ever move forward: todo -> in_progress -> done.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Next returns the only status reachable from s, if any.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusTodo:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusDone, true
	}
	return "", false
}

// CanAdvanceTo reports whether the workflow allows moving from s to next.
// Moves are single-step and forward-only; no state is ever re-entered.
func (s Status) CanAdvanceTo(next Status) bool {
	n, ok := s.Next()
	return ok && n == next
}

type Project struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Owner       user.User   `json:"owner"`
	Members     []user.User `json:"members"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

func (p Project) IsOwner(u user.User) bool {
	return p.Owner.ID == u.ID
}

// HasMember reports whether u belongs to the project. The owner is always
// an implicit member.
func (p Project) HasMember(u user.User) bool {
	if p.IsOwner(u) {
		return true
	}
	for _, m := range p.Members {
		if m.ID == u.ID {
			return true
		}
	}
	return false
}

// HasMemberID reports membership by user ID (owner included).
func (p Project) HasMemberID(id int) bool {
	if p.Owner.ID == id {
		return true
	}
	for _, m := range p.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Statistics are per-status project counts for dashboard display.
type Statistics struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Total      int `json:"total"`
}

// NewProject contains information needed to create a new Project.
type NewProject struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	MemberIDs   []int  `json:"members_ids"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

// UpdateProject defines what may be modified on an existing Project.
// Nil MemberIDs leaves the member set untouched; a non-nil value replaces it
// (the owner is always retained). Nil Status leaves the workflow alone.
type UpdateProject struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MemberIDs   *[]int  `json:"members_ids"`
	Status      *Status `json:"status"`
}

func (up *UpdateProject) Validate(origProj Project, validate *validator.Validate) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origProj.Name
	}
	if desc := core.CleanString(up.Description); desc != "" {
		up.Description = desc
	} else {
		up.Description = origProj.Description
	}
	if up.Status != nil && !up.Status.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}
	return validate.Struct(up)
}
