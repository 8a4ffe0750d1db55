package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core/project"
)

type projectRow struct {
	ID          int            `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	OwnerID     int            `db:"owner_id"`
	Status      project.Status `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type memberRow struct {
	ProjectID int `db:"project_id"`
	userRow
}

type projectRepository struct {
	db *sqlx.DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *sqlx.DB) *projectRepository {
	return &projectRepository{db: db}
}

func (repo projectRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return project.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// hydrate loads owners and members for the given project rows in two queries.
func (repo projectRepository) hydrate(ctx context.Context, rows []projectRow) ([]project.Project, error) {
	if len(rows) == 0 {
		return []project.Project{}, nil
	}

	ids := make([]int, 0, len(rows))
	ownerIDs := make([]int, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
		ownerIDs = append(ownerIDs, r.OwnerID)
	}

	query, args, err := sqlx.In(`SELECT * FROM "user" WHERE id IN (?)`, ownerIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building owners query")
	}
	var owners []userRow
	if err = repo.db.SelectContext(ctx, &owners, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying owners")
	}
	ownerByID := make(map[int]userRow, len(owners))
	for _, o := range owners {
		ownerByID[o.ID] = o
	}

	query, args, err = sqlx.In(`
		SELECT pm.project_id, u.*
		FROM project_member pm
		JOIN "user" u ON u.id = pm.user_id
		WHERE pm.project_id IN (?)
		ORDER BY u.id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building members query")
	}
	var members []memberRow
	if err = repo.db.SelectContext(ctx, &members, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	membersByProject := make(map[int][]memberRow, len(rows))
	for _, m := range members {
		membersByProject[m.ProjectID] = append(membersByProject[m.ProjectID], m)
	}

	projects := make([]project.Project, 0, len(rows))
	for _, r := range rows {
		p := project.Project{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Owner:       ownerByID[r.OwnerID].user(),
			Status:      r.Status,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
		for _, m := range membersByProject[r.ID] {
			p.Members = append(p.Members, m.user())
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (repo projectRepository) setMembers(ctx context.Context, tx *sqlx.Tx, p project.Project) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_member WHERE project_id = $1`, p.ID); err != nil {
		return errors.Wrap(err, "clearing members")
	}
	for _, m := range p.Members {
		query := `INSERT INTO project_member (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, p.ID, m.ID); err != nil {
			return errors.Wrap(err, "adding member")
		}
	}
	return nil
}

func (repo projectRepository) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO project (name, description, owner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	err = tx.QueryRowContext(ctx, query, p.Name, p.Description, p.Owner.ID, p.Status, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "creating project")
	}
	if err = repo.setMembers(ctx, tx, p); err != nil {
		return project.Project{}, err
	}
	if err = tx.Commit(); err != nil {
		return project.Project{}, errors.Wrap(err, "committing project")
	}
	return p, nil
}

func (repo projectRepository) QueryAllProjects(ctx context.Context) ([]project.Project, error) {
	var rows []projectRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM project ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	return repo.hydrate(ctx, rows)
}

func (repo projectRepository) QueryProjectsByUser(ctx context.Context, userID int) ([]project.Project, error) {
	query := `
		SELECT p.* FROM project p
		WHERE p.owner_id = $1
		   OR EXISTS (SELECT 1 FROM project_member pm WHERE pm.project_id = p.id AND pm.user_id = $1)
		ORDER BY p.id`
	var rows []projectRow
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying projects by user")
	}
	return repo.hydrate(ctx, rows)
}

func (repo projectRepository) GetProjectByID(ctx context.Context, id int) (project.Project, error) {
	var row projectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM project WHERE id = $1`, id); err != nil {
		return project.Project{}, repo.trapNoRowsErr(err, "getting project")
	}
	projects, err := repo.hydrate(ctx, []projectRow{row})
	if err != nil {
		return project.Project{}, err
	}
	return projects[0], nil
}

func (repo projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE project
		SET name = $1, description = $2, status = $3, updated_at = $4
		WHERE id = $5
		RETURNING created_at`
	p.UpdatedAt = time.Now().UTC()
	err = tx.QueryRowContext(ctx, query, p.Name, p.Description, p.Status, p.UpdatedAt, p.ID).Scan(&p.CreatedAt)
	if err != nil {
		return project.Project{}, repo.trapNoRowsErr(err, "updating project")
	}
	if err = repo.setMembers(ctx, tx, p); err != nil {
		return project.Project{}, err
	}
	if err = tx.Commit(); err != nil {
		return project.Project{}, errors.Wrap(err, "committing project")
	}
	return p, nil
}

func (repo projectRepository) DeleteProject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM project WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return project.ErrNotFound
	}
	return nil
}
