package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/navigation"
)

type navigationApi struct {
	deps ServerDeps
}

// registerNavigationAPI wires the navigation ops endpoints. The check
// endpoints serve the SPA router guard and take no auth middleware: an
// anonymous caller is a legitimate subject of a decision. The introspection
// and reset endpoints are platform-admin only.
func registerNavigationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := navigationApi{deps: deps}

	ng := g.Group("/navigation")
	ng.POST("/check", api.check)
	ng.POST("/can-access", api.canAccess)
	ng.GET("/allowed-paths", api.allowedPaths)

	ag := ng.Group("", jwt, platformAdminMiddleware())
	ag.GET("/stats", api.stats)
	ag.GET("/debug", api.debug)
	ag.DELETE("/cache", api.clearCache)
	ag.DELETE("/history", api.clearHistory)
}

type (
	CheckRequest struct {
		Path string `json:"path" validate:"required"`
	}

	CheckResponse struct {
		navigation.Result
		Context navigation.Context `json:"context"`
	}
)

func (cr *CheckRequest) Validate(validate *validator.Validate) error {
	cr.Path = core.CleanString(cr.Path)
	return validate.Struct(cr)
}

// check runs a full decision for the caller's current session, recording it
// like any other navigation. The context is resolved once and shared between
// the decision and the response body.
func (api *navigationApi) check(ctx echo.Context) error {
	var data CheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	navCtx := api.resolveContext(ctx)
	result := api.deps.NavCtl.CheckRedirectForClient(data.Path, navCtx)
	return ctx.JSON(http.StatusOK, CheckResponse{Result: result, Context: navCtx})
}

// canAccess is the pre-flight variant; it leaves no trace in the histories.
func (api *navigationApi) canAccess(ctx echo.Context) error {
	var data CheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	access := api.deps.NavCtl.CanAccessPath(data.Path, api.resolveContext(ctx))
	return ctx.JSON(http.StatusOK, access)
}

func (api *navigationApi) allowedPaths(ctx echo.Context) error {
	paths := api.deps.NavCtl.AllowedPathsForContext(api.resolveContext(ctx))
	if paths == nil {
		paths = []string{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"paths": paths})
}

func (api *navigationApi) stats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.deps.NavCtl.Stats())
}

func (api *navigationApi) debug(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.deps.NavCtl.DebugInfo())
}

func (api *navigationApi) clearCache(ctx echo.Context) error {
	api.deps.NavCtl.ClearCache()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *navigationApi) clearHistory(ctx echo.Context) error {
	api.deps.NavCtl.ClearHistory()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *navigationApi) resolveContext(ctx echo.Context) navigation.Context {
	return api.deps.NavCtl.ResolveRequestContext(ctx.Request().Context(), ctx.Request())
}
