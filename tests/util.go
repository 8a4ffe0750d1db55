package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/task"
	"github.com/flowtaskhq/flowtask/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	isStaff, isSuperuser bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:    uname,
		Email:       email,
		IsStaff:     isStaff,
		IsSuperuser: isSuperuser,
		IsActive:    true,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateProject(
	t *testing.T,
	repo project.Repository,
	name string,
	owner user.User,
	status project.Status,
	members ...user.User,
) project.Project {
	t.Helper()

	now := time.Now().UTC()
	proj := project.Project{
		Name:        name,
		Description: name + " description",
		Owner:       owner,
		Members:     append([]user.User{owner}, members...),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	proj, err := repo.CreateProject(context.Background(), proj)
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return proj
}

func CreateTask(
	t *testing.T,
	repo task.Repository,
	title string,
	proj project.Project,
	assignee user.User,
	status task.Status,
	dueDate ...time.Time,
) task.Task {
	t.Helper()

	now := time.Now().UTC()
	tsk := task.Task{
		Title:       title,
		Description: title + " description",
		ProjectID:   proj.ID,
		AssignedTo:  null.IntFrom(assignee.ID),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(dueDate) > 0 {
		tsk.DueDate = null.TimeFrom(dueDate[0].UTC())
	}
	tsk, err := repo.CreateTask(context.Background(), tsk)
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return tsk
}
