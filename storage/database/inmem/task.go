package inmemdb

import (
	"context"
	"sort"

	"github.com/flowtaskhq/flowtask/core/task"
)

type taskRepository struct {
	db       *taskTable
	projects *projectTable
}

var _ task.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db.tasks, projects: db.projects}
}

// query returns all tasks in insertion (ID) order. Callers must hold the lock.
func (repo *taskRepository) query() []task.Task {
	tasks := make([]task.Task, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.lastID++
	t.ID = repo.db.lastID
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) QueryTasksByProject(_ context.Context, projectID int) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var tasks []task.Task
	for _, t := range repo.query() {
		if t.ProjectID == projectID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (repo *taskRepository) QueryTasksByAssignee(_ context.Context, userID int) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var tasks []task.Task
	for _, t := range repo.query() {
		if t.IsAssignedTo(userID) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (repo *taskRepository) QueryTasksByProjectOwner(_ context.Context, userID int) ([]task.Task, error) {
	repo.projects.RLock()
	owned := make(map[int]bool, len(repo.projects.table))
	for id, p := range repo.projects.table {
		if p.Owner.ID == userID {
			owned[id] = true
		}
	}
	repo.projects.RUnlock()

	repo.db.RLock()
	defer repo.db.RUnlock()

	var tasks []task.Task
	for _, t := range repo.query() {
		if owned[t.ProjectID] {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (repo *taskRepository) GetTaskByID(_ context.Context, id int) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return task.Task{}, task.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return task.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
