package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/user"
)

type projectApi struct {
	svc      project.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := projectApi{
		svc:      deps.ProjectSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/statistics", api.statistics)

	dg := pg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
}

// pathID parses the :id path param.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHTTPNotFound
	}
	return id, nil
}

// Handlers

func (api *projectApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	projects, err := api.svc.QueryVisible(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	proj, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, proj)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	proj, err := api.svc.Get(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	proj, err := api.svc.Get(reqCtx, ctxUsr, id)
	if err != nil {
		return err
	}

	var data project.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	if err := data.Validate(proj, api.validate); err != nil {
		return err
	}

	proj, err = api.svc.Update(reqCtx, ctxUsr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) destroy(ctx echo.Context) error {
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

func (api *projectApi) statistics(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	stats, err := api.svc.Statistics(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "computing project statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}
