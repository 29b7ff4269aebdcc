package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/schedule"
	"github.com/GrupoTcc462/StudyMate/storage/files"
)

type scheduleApi struct {
	opts *Options
	svc  *schedule.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := scheduleApi{opts: opts, svc: opts.ScheduleSvc}

	sg := g.Group("/schedule", jwt)
	sg.GET("", api.active)
	sg.GET("/download", api.downloadActive)

	// staff endpoints
	sg.POST("", api.upload, staffMiddleware())
	sg.GET("/history", api.history, staffMiddleware())
	sg.GET("/:id/download", api.downloadVersion, staffMiddleware())
}

// Handlers

func (api *scheduleApi) active(ctx echo.Context) error {
	s, err := api.svc.Active(ctx.Request().Context())
	if err != nil {
		return mapScheduleErr(err)
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) upload(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", "a file is required")
	}

	// reject unsupported kinds before writing anything to disk
	if _, err := schedule.DetectKind(fh.Filename); err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()

	stored, err := api.opts.Files.Store(files.CategorySchedules, fh.Filename, fh.Size, src)
	if err != nil {
		return mapFileErr(errors.Wrap(err, "storing schedule"), "file")
	}

	s, err := api.svc.Upload(ctx.Request().Context(), claims.Subject, stored, fh.Filename)
	if err != nil {
		return mapScheduleErr(errors.Wrap(err, "registering schedule"))
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scheduleApi) history(ctx echo.Context) error {
	scheds, err := api.svc.History(ctx.Request().Context())
	if err != nil {
		return mapScheduleErr(errors.Wrap(err, "listing schedule history"))
	}
	return ctx.JSON(http.StatusOK, scheds)
}

func (api *scheduleApi) downloadActive(ctx echo.Context) error {
	s, err := api.svc.Active(ctx.Request().Context())
	if err != nil {
		return mapScheduleErr(err)
	}
	return api.serve(ctx, s)
}

func (api *scheduleApi) downloadVersion(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapScheduleErr(err)
	}
	return api.serve(ctx, s)
}

func (api *scheduleApi) serve(ctx echo.Context, s schedule.Schedule) error {
	path, err := api.opts.Files.Path(files.CategorySchedules, s.File)
	if err != nil {
		return errHttpNotFound
	}
	return ctx.Attachment(path, s.FileName)
}

func mapScheduleErr(err error) error {
	switch errors.Cause(err) {
	case schedule.ErrNotFound, schedule.ErrNoActive, files.ErrNotFound:
		return errHttpNotFound
	case nil:
		return nil
	}
	return err
}
