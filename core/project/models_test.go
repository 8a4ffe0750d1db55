package project

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowtaskhq/flowtask/core/user"
)

func TestStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "todo to in_progress", from: StatusTodo, to: StatusInProgress, want: true},
		{name: "in_progress to done", from: StatusInProgress, to: StatusDone, want: true},
		{name: "no skipping", from: StatusTodo, to: StatusDone, want: false},
		{name: "no going back", from: StatusInProgress, to: StatusTodo, want: false},
		{name: "no going back from done", from: StatusDone, to: StatusInProgress, want: false},
		{name: "done is terminal", from: StatusDone, to: StatusDone, want: false},
		{name: "no self loop", from: StatusTodo, to: StatusTodo, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestStatus_Next(t *testing.T) {
	next, ok := StatusTodo.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, next)

	next, ok = StatusInProgress.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusDone, next)

	_, ok = StatusDone.Next()
	assert.False(t, ok)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusTodo.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.True(t, StatusDone.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestProject_membership(t *testing.T) {
	owner := user.User{ID: 1}
	member := user.User{ID: 2}
	outsider := user.User{ID: 3}

	proj := Project{Owner: owner, Members: []user.User{member}}

	assert.True(t, proj.IsOwner(owner))
	assert.False(t, proj.IsOwner(member))

	// the owner is always an implicit member
	assert.True(t, proj.HasMember(owner))
	assert.True(t, proj.HasMember(member))
	assert.False(t, proj.HasMember(outsider))

	assert.True(t, proj.HasMemberID(1))
	assert.True(t, proj.HasMemberID(2))
	assert.False(t, proj.HasMemberID(3))
}
