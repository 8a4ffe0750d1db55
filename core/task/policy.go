package task

import (
	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/user"
)

// Policy predicates. Pure functions over (actor, task, project); evaluated
// fresh on every request, never cached.

// CanEdit reports whether actor may modify the task, including moving it
// between board columns: the assignee, the project owner, or an admin.
func CanEdit(actor user.User, t Task, p project.Project) bool {
	return t.IsAssignedTo(actor.ID) || p.IsOwner(actor) || actor.Role() == user.RoleAdmin
}

// CanDelete reports whether actor may delete the task. Assignees may not;
// only the project owner or an admin.
func CanDelete(actor user.User, t Task, p project.Project) bool {
	return p.IsOwner(actor) || actor.Role() == user.RoleAdmin
}
