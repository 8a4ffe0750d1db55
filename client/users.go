package client

import (
	"context"
	"net/http"

	"github.com/flowtaskhq/flowtask/core/user"
)

// NewUser is the payload for student registration and teacher creation.
type NewUser struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password2"`
}

// UpdateUser is a partial update of the session user. Empty fields are left
// untouched.
type UpdateUser struct {
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Password        string `json:"password,omitempty"`
	PasswordConfirm string `json:"password2,omitempty"`
}

// FetchUsers lists the users visible to the caller: staff and admins see
// everyone, students only see other students.
func (c *Client) FetchUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RegisterStudent signs up a new student account. No session is required.
func (c *Client) RegisterStudent(ctx context.Context, nu NewUser) (user.User, error) {
	var usr user.User
	if err := c.do(ctx, http.MethodPost, "/api/users/register_student", nu, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// CreateTeacher creates a teacher account. Admin only.
func (c *Client) CreateTeacher(ctx context.Context, nu NewUser) (user.User, error) {
	var usr user.User
	if err := c.do(ctx, http.MethodPost, "/api/users/create_teacher", nu, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// UpdateMe partially updates the session user and refreshes the cached copy.
func (c *Client) UpdateMe(ctx context.Context, uu UpdateUser) (user.User, error) {
	var usr user.User
	if err := c.do(ctx, http.MethodPatch, "/api/users/me", uu, &usr); err != nil {
		return user.User{}, err
	}
	c.mu.Lock()
	c.current = &usr
	c.mu.Unlock()
	return usr, nil
}

// DeleteMe deletes the session user's account and clears the session.
func (c *Client) DeleteMe(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/users/me", nil, nil); err != nil {
		return err
	}
	return c.Logout(ctx)
}
