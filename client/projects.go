package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowtaskhq/flowtask/core/project"
)

// FetchProjects lists the projects visible to the session user.
func (c *Client) FetchProjects(ctx context.Context) ([]project.Project, error) {
	var projects []project.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FetchProject retrieves a single project.
func (c *Client) FetchProject(ctx context.Context, id int) (project.Project, error) {
	var proj project.Project
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil, &proj); err != nil {
		return project.Project{}, err
	}
	return proj, nil
}

// CreateProject creates a project owned by the session user.
func (c *Client) CreateProject(ctx context.Context, np project.NewProject) (project.Project, error) {
	var proj project.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", np, &proj); err != nil {
		return project.Project{}, err
	}
	return proj, nil
}

// UpdateProject partially updates a project. Member replacement always
// retains the owner; status changes are validated against the forward-only
// workflow server-side.
func (c *Client) UpdateProject(ctx context.Context, id int, up project.UpdateProject) (project.Project, error) {
	var proj project.Project
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/projects/%d", id), up, &proj); err != nil {
		return project.Project{}, err
	}
	return proj, nil
}

// AdvanceProjectStatus moves a project one step forward in its workflow.
// The server's acknowledged state is returned; on error the caller keeps its
// previous state (no optimistic mutation).
func (c *Client) AdvanceProjectStatus(ctx context.Context, id int, next project.Status) (project.Project, error) {
	return c.UpdateProject(ctx, id, project.UpdateProject{Status: &next})
}

// DeleteProject deletes a project. Owner or admin only.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d", id), nil, nil)
}

// ProjectStatistics returns visible-project counts by status.
func (c *Client) ProjectStatistics(ctx context.Context) (project.Statistics, error) {
	var stats project.Statistics
	if err := c.do(ctx, http.MethodGet, "/api/projects/statistics", nil, &stats); err != nil {
		return project.Statistics{}, err
	}
	return stats, nil
}
