package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/flowtaskhq/flowtask/core/task"
)

type taskRow struct {
	ID          int         `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	ProjectID   int         `db:"project_id"`
	AssignedTo  null.Int    `db:"assigned_to"`
	Status      task.Status `db:"status"`
	DueDate     null.Time   `db:"due_date"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		ProjectID:   r.ProjectID,
		AssignedTo:  r.AssignedTo,
		Status:      r.Status,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) tasks(rows []taskRow) []task.Task {
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	query := `
		INSERT INTO task (title, description, project_id, assigned_to, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	err := repo.db.QueryRowContext(
		ctx, query,
		t.Title, t.Description, t.ProjectID, t.AssignedTo, t.Status, t.DueDate,
		t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "creating task")
	}
	return t, nil
}

func (repo taskRepository) QueryTasksByProject(ctx context.Context, projectID int) ([]task.Task, error) {
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM task WHERE project_id = $1 ORDER BY id`, projectID); err != nil {
		return nil, errors.Wrap(err, "querying tasks by project")
	}
	return repo.tasks(rows), nil
}

func (repo taskRepository) QueryTasksByAssignee(ctx context.Context, userID int) ([]task.Task, error) {
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM task WHERE assigned_to = $1 ORDER BY id`, userID); err != nil {
		return nil, errors.Wrap(err, "querying tasks by assignee")
	}
	return repo.tasks(rows), nil
}

func (repo taskRepository) QueryTasksByProjectOwner(ctx context.Context, userID int) ([]task.Task, error) {
	query := `
		SELECT t.* FROM task t
		JOIN project p ON p.id = t.project_id
		WHERE p.owner_id = $1
		ORDER BY t.id`
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying tasks by project owner")
	}
	return repo.tasks(rows), nil
}

func (repo taskRepository) GetTaskByID(ctx context.Context, id int) (task.Task, error) {
	var row taskRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM task WHERE id = $1`, id); err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "getting task")
	}
	return row.task(), nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	query := `
		UPDATE task
		SET title = $1, description = $2, assigned_to = $3, status = $4, due_date = $5, updated_at = $6
		WHERE id = $7
		RETURNING created_at`
	t.UpdatedAt = time.Now().UTC()
	err := repo.db.QueryRowContext(
		ctx, query,
		t.Title, t.Description, t.AssignedTo, t.Status, t.DueDate, t.UpdatedAt, t.ID,
	).Scan(&t.CreatedAt)
	if err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "updating task")
	}
	return t, nil
}

func (repo taskRepository) DeleteTask(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.ErrNotFound
	}
	return nil
}
