package inmemdb

import (
	"context"
	"sort"

	"github.com/flowtaskhq/flowtask/core/project"
)

type projectRepository struct {
	db *projectTable
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.projects}
}

// query returns all projects in insertion (ID) order. Callers must hold the lock.
func (repo *projectRepository) query() []project.Project {
	projects := make([]project.Project, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		projects = append(projects, *p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects
}

func (repo *projectRepository) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.lastID++
	p.ID = repo.db.lastID
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *projectRepository) QueryAllProjects(_ context.Context) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *projectRepository) QueryProjectsByUser(_ context.Context, userID int) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var projects []project.Project
	for _, p := range repo.query() {
		if p.HasMemberID(userID) {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

func (repo *projectRepository) GetProjectByID(_ context.Context, id int) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[p.ID]; !ok {
		return project.Project{}, project.ErrNotFound
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *projectRepository) DeleteProject(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return project.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
