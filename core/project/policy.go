package project

import "github.com/flowtaskhq/flowtask/core/user"

// Policy predicates. All of them are pure functions over (actor, project)
// and must be evaluated fresh on every request; results are never cached.

// CanView reports whether actor may see the project at all.
// The owner always sees it. Members only see it once it has left the todo
// state. Admins see everything.
func CanView(actor user.User, p Project) bool {
	if p.IsOwner(actor) || actor.Role() == user.RoleAdmin {
		return true
	}
	return p.HasMember(actor) && p.Status != StatusTodo
}

// CanEdit reports whether actor may modify the project's fields or members.
func CanEdit(actor user.User, p Project) bool {
	return p.IsOwner(actor) || actor.Role() == user.RoleAdmin
}

// CanChangeStatus reports whether actor may advance the project workflow.
func CanChangeStatus(actor user.User, p Project) bool {
	return p.IsOwner(actor) || actor.Role() == user.RoleAdmin
}

// CanDelete reports whether actor may delete the project.
func CanDelete(actor user.User, p Project) bool {
	return p.IsOwner(actor) || actor.Role() == user.RoleAdmin
}

// CanCreateTask reports whether actor may add tasks to the project.
func CanCreateTask(actor user.User, p Project) bool {
	return p.IsOwner(actor) || actor.Role() == user.RoleAdmin
}
