package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/subject"
)

type subjectApi struct {
	opts *Options
	svc  *subject.Service
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := subjectApi{opts: opts, svc: opts.SubjectSvc}

	sg := g.Group("/subjects")

	// public endpoints
	sg.GET("", api.list)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/links", api.links)

	// admin endpoints
	sg.POST("", api.create, jwt, adminMiddleware())
	sg.PUT("/:id", api.update, jwt, adminMiddleware())
	sg.DELETE("/:id", api.destroy, jwt, adminMiddleware())

	// staff endpoints
	sg.POST("/:id/links", api.addLink, jwt, staffMiddleware())
	sg.DELETE("/:id/links/:linkID", api.removeLink, jwt, staffMiddleware())
}

// Handlers

func (api *subjectApi) list(ctx echo.Context) error {
	subjects, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

// retrieve accepts an ID or a slug; slugs are what the public pages link by.
func (api *subjectApi) retrieve(ctx echo.Context) error {
	id := ctx.Param("id")
	s, err := api.svc.Get(ctx.Request().Context(), id)
	if errors.Cause(err) == subject.ErrNotFound {
		s, err = api.svc.GetBySlug(ctx.Request().Context(), id)
	}
	if err != nil {
		return mapSubjectErr(err)
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return mapSubjectErr(errors.Wrap(err, "creating subject"))
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *subjectApi) update(ctx echo.Context) error {
	var data subject.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return mapSubjectErr(errors.Wrap(err, "updating subject"))
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return mapSubjectErr(errors.Wrap(err, "deleting subject"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *subjectApi) links(ctx echo.Context) error {
	links, err := api.svc.Links(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapSubjectErr(errors.Wrap(err, "listing links"))
	}
	if links == nil {
		links = []subject.ExternalLink{}
	}
	return ctx.JSON(http.StatusOK, links)
}

func (api *subjectApi) addLink(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	var data subject.NewExternalLink
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExternalLink")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	link, err := api.svc.AddLink(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return mapSubjectErr(errors.Wrap(err, "adding link"))
	}
	return ctx.JSON(http.StatusCreated, link)
}

func (api *subjectApi) removeLink(ctx echo.Context) error {
	if err := api.svc.RemoveLink(ctx.Request().Context(), ctx.Param("id"), ctx.Param("linkID")); err != nil {
		return mapSubjectErr(errors.Wrap(err, "removing link"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func mapSubjectErr(err error) error {
	switch errors.Cause(err) {
	case subject.ErrNotFound:
		return errHttpNotFound
	case subject.ErrSlugExists:
		return core.NewFieldError("name", subject.ErrSlugExists.Error())
	case subject.ErrTooManyLinks:
		return core.NewFieldError("url", subject.ErrTooManyLinks.Error())
	case nil:
		return nil
	}
	return err
}
