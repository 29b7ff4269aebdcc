package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/stats"
)

type statsApi struct {
	opts *Options
	svc  *stats.Service
}

func registerStatsAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := statsApi{opts: opts, svc: opts.StatsSvc}

	g.GET("/stats", api.overview)
	g.POST("/ping", api.ping, jwt)
}

// Handlers

func (api *statsApi) overview(ctx echo.Context) error {
	ov, err := api.svc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading stats")
	}
	return ctx.JSON(http.StatusOK, ov)
}

// ping refreshes the caller's presence entry and last-login stamp;
// clients call it periodically while a tab stays open.
func (api *statsApi) ping(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Ping(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "recording presence")
	}
	if _, err := api.opts.UserSvc.SetLastLogin(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "stamping last login")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}
