package task

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/flowtaskhq/flowtask/core"
	"github.com/flowtaskhq/flowtask/core/project"
)

// DateLayout is the wire format for due dates (date only, no time part).
const DateLayout = core.DateLayout

// urgentWindowDays is how close a due date must be for a task to count as urgent.
const urgentWindowDays = 3

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

// Status is a task's board column. Unlike project statuses, tasks move
// freely in both directions.
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

type Task struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ProjectID   int       `json:"project"`
	AssignedTo  null.Int  `json:"assigned_to"`
	Status      Status    `json:"status"`
	DueDate     null.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (t Task) IsDone() bool { return t.Status == StatusDone }

func (t Task) IsAssignedTo(userID int) bool {
	return t.AssignedTo.Valid && t.AssignedTo.Int == userID
}

// IsUrgent reports whether the task is incomplete and due within the next
// 3 days. Comparison is date-only; overdue tasks stay urgent until done.
func (t Task) IsUrgent(now time.Time) bool {
	if t.IsDone() || !t.DueDate.Valid {
		return false
	}
	deadline := core.Midnight(now).AddDate(0, 0, urgentWindowDays)
	return !core.Midnight(t.DueDate.Time).After(deadline)
}

// Progress is the percentage of done tasks, rounded; 0 for an empty set.
// Display only, never used to gate workflow transitions.
func Progress(tasks []Task) int {
	if len(tasks) == 0 {
		return 0
	}
	var done int
	for _, t := range tasks {
		if t.IsDone() {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(tasks))))
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	AssignedTo  int    `json:"assigned_to" validate:"required"`
	DueDate     string `json:"due_date" validate:"required,dateonly,todayorlater"`
	Status      Status `json:"status"`

	due time.Time // set by Validate
}

// Due returns the parsed due date; only valid after a successful Validate.
func (nt *NewTask) Due() time.Time { return nt.due }

func (nt *NewTask) Validate(validate *validator.Validate, proj project.Project) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	if nt.Status == "" {
		nt.Status = StatusTodo
	}

	if err := validate.Struct(nt); err != nil {
		return err
	}
	nt.due, _ = time.Parse(DateLayout, nt.DueDate) // passed dateonly

	var flds []core.FieldError
	if !nt.Status.Valid() {
		flds = append(flds, core.FieldError{Field: "status", Error: "invalid status"})
	}
	if !proj.HasMemberID(nt.AssignedTo) {
		flds = append(flds, core.FieldError{Field: "assigned_to", Error: "assignee must be a member of the project"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// UpdateTask defines what may be modified on an existing Task.
// Nil pointers and empty strings leave the current values untouched.
type UpdateTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AssignedTo  *int    `json:"assigned_to"`
	DueDate     *string `json:"due_date" validate:"omitempty,dateonly,todayorlater"`
	Status      *Status `json:"status"`

	due time.Time // set by Validate when DueDate is provided
}

func (ut *UpdateTask) Due() time.Time { return ut.due }

// StatusOnly reports whether the update is a plain board move: a status
// change with no other field touched.
func (ut *UpdateTask) StatusOnly() bool {
	return ut.Status != nil && ut.Title == "" && ut.Description == "" && ut.AssignedTo == nil && ut.DueDate == nil
}

func (ut *UpdateTask) Validate(validate *validator.Validate, proj project.Project) error {
	ut.Title = core.CleanString(ut.Title)
	ut.Description = core.CleanString(ut.Description)

	if err := validate.Struct(ut); err != nil {
		return err
	}
	if ut.DueDate != nil && *ut.DueDate != "" {
		ut.due, _ = time.Parse(DateLayout, *ut.DueDate) // passed dateonly
	}

	var flds []core.FieldError
	if ut.Status != nil && !ut.Status.Valid() {
		flds = append(flds, core.FieldError{Field: "status", Error: "invalid status"})
	}
	if ut.AssignedTo != nil && !proj.HasMemberID(*ut.AssignedTo) {
		flds = append(flds, core.FieldError{Field: "assigned_to", Error: "assignee must be a member of the project"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
