// Package inmemdb is a map-backed database used by tests and local dev.
package inmemdb

import (
	"sync"

	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/task"
	"github.com/flowtaskhq/flowtask/core/user"
)

type (
	DB struct {
		users    *userTable
		projects *projectTable
		tasks    *taskTable
	}

	userTable struct {
		sync.RWMutex
		table  map[int]*user.User
		lastID int
	}

	projectTable struct {
		sync.RWMutex
		table  map[int]*project.Project
		lastID int
	}

	taskTable struct {
		sync.RWMutex
		table  map[int]*task.Task
		lastID int
	}
)

func Open() (*DB, error) {
	db := &DB{
		users:    &userTable{table: make(map[int]*user.User)},
		projects: &projectTable{table: make(map[int]*project.Project)},
		tasks:    &taskTable{table: make(map[int]*task.Task)},
	}
	return db, nil
}
