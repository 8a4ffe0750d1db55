package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/task"
	"github.com/flowtaskhq/flowtask/core/user"
	"github.com/flowtaskhq/flowtask/storage/cache"
)

type taskApi struct {
	svc      task.Service
	projSvc  project.Service
	userSvc  user.Service
	stats    *cache.StatsCache
	validate *validator.Validate
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := taskApi{
		svc:      deps.TaskSvc,
		projSvc:  deps.ProjectSvc,
		userSvc:  deps.UserSvc,
		stats:    deps.StatsCache,
		validate: deps.Validate,
	}

	// project-nested task endpoints
	pg := g.Group("/projects/:id/tasks", jwt)
	pg.GET("/list", api.listByProject)
	pg.POST("", api.create)

	tg := g.Group("/tasks", jwt)
	tg.GET("/statistics", api.statistics)
	tg.GET("/:id", api.retrieve)
	tg.PATCH("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
}

// TaskResponse is a task payload extended with the celebration flag set when
// a task just moved into the done column.
type TaskResponse struct {
	task.Task
	Celebrate bool `json:"celebrate"`
}

// Handlers

func (api *taskApi) listByProject(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	projID, err := pathID(ctx)
	if err != nil {
		return err
	}

	var filter task.ListFilter
	if s := ctx.QueryParam("status"); s != "" {
		status := task.Status(s)
		filter.Status = &status
	}
	if a := ctx.QueryParam("assigned_to"); a != "" {
		id, err := strconv.Atoi(a)
		if err == nil {
			filter.AssignedTo = &id
		}
	}

	tasks, err := api.svc.ListByProject(ctx.Request().Context(), ctxUsr, projID, filter)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	projID, err := pathID(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	proj, err := api.projSvc.Get(reqCtx, ctxUsr, projID)
	if err != nil {
		return err
	}

	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate, proj); err != nil {
		return err
	}

	t, err := api.svc.Create(reqCtx, ctxUsr, projID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	t, err := api.svc.Get(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}

	reqCtx := ctx.Request().Context()

	// board moves (status-only patches) report whether the task just landed
	// in the done column
	if data.StatusOnly() {
		t, celebrate, err := api.svc.SetStatus(reqCtx, ctxUsr, id, *data.Status)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, TaskResponse{Task: t, Celebrate: celebrate})
	}

	// load the project through the edit policy, not the view policy: an
	// assignee may edit their task even while the project is hidden from
	// plain members
	_, proj, err := api.svc.GetForEdit(reqCtx, ctxUsr, id)
	if err != nil {
		return err
	}
	if err := data.Validate(api.validate, proj); err != nil {
		return err
	}

	t, err := api.svc.Update(reqCtx, ctxUsr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TaskResponse{Task: t})
}

func (api *taskApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) statistics(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var projectID *int
	cacheKey := fmt.Sprintf("stats:tasks:%d", ctxUsr.ID)
	if p := ctx.QueryParam("project_id"); p != "" {
		id, err := strconv.Atoi(p)
		if err != nil {
			return errHTTPNotFound
		}
		projectID = &id
		cacheKey = fmt.Sprintf("stats:tasks:%d:%d", ctxUsr.ID, id)
	}

	reqCtx := ctx.Request().Context()

	var stats task.Statistics
	if api.stats.Get(reqCtx, cacheKey, &stats) {
		return ctx.JSON(http.StatusOK, stats)
	}

	stats, err = api.svc.Statistics(reqCtx, ctxUsr, projectID)
	if err != nil {
		return errors.Wrap(err, "computing task statistics")
	}
	api.stats.Set(reqCtx, cacheKey, stats)
	return ctx.JSON(http.StatusOK, stats)
}
