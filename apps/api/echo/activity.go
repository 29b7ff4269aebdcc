package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/activity"
	"github.com/GrupoTcc462/StudyMate/storage/files"
)

type activityApi struct {
	opts *Options
	svc  *activity.Service
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := activityApi{opts: opts, svc: opts.ActivitySvc}

	ag := g.Group("/activities", jwt)

	// student endpoints
	ag.GET("", api.list)
	ag.GET("/:id", api.retrieve)
	ag.GET("/:id/attachment", api.downloadAttachment)
	ag.GET("/:id/calendar.ics", api.exportICS)
	ag.POST("/:id/submit", api.submit, studentMiddleware())
	ag.POST("/:id/save", api.toggleSave, studentMiddleware())

	// staff endpoints
	ag.POST("", api.create, staffMiddleware())
	ag.GET("/panel", api.teacherPanel, staffMiddleware())
	ag.GET("/:id/submissions", api.submissions, staffMiddleware())
	ag.DELETE("/:id", api.destroy, staffMiddleware())

	sg := g.Group("/submissions", jwt)
	sg.POST("/:id/grade", api.grade, staffMiddleware())
	sg.GET("/:id/file", api.downloadSubmission)
}

// Handlers

func (api *activityApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(activity.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Clean(); err != nil {
		return err
	}

	items, err := api.svc.ListForStudent(ctx.Request().Context(), usr, *filter)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "listing activities"))
	}
	if items == nil {
		items = []activity.Annotated{}
	}
	return ctx.JSON(http.StatusOK, items)
}

// retrieve returns the activity and records the student's view.
func (api *activityApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapActivityErr(err)
	}
	if claims.IsStudent {
		if views, err := api.svc.RecordView(ctx.Request().Context(), a.ID, claims.Subject); err == nil {
			a.Views = views
		}
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *activityApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	na := activity.NewActivity{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		Kind:        activity.Kind(strings.ToUpper(ctx.FormValue("kind"))),
		Audience: activity.Audience{
			Year1: ctx.FormValue("year1") == "true",
			Year2: ctx.FormValue("year2") == "true",
			Year3: ctx.FormValue("year3") == "true",
			All:   ctx.FormValue("all") == "true",
		},
		AllowsSubmission: ctx.FormValue("allows_submission") == "true",
	}
	if raw := ctx.FormValue("deadline"); raw != "" {
		deadline, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return core.NewFieldError("deadline", "invalid deadline, use RFC 3339")
		}
		deadline = deadline.UTC()
		na.Deadline = &deadline
	}

	if fh, err := ctx.FormFile("file"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening upload")
		}
		defer func() { _ = src.Close() }()

		stored, err := api.opts.Files.Store(files.CategoryActivities, fh.Filename, fh.Size, src)
		if err != nil {
			return mapFileErr(errors.Wrap(err, "storing attachment"), "file")
		}
		na.Attachment = stored
		na.AttachmentName = fh.Filename
	}

	if err := na.Validate(api.opts.Validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), usr, na)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "creating activity"))
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *activityApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ns := activity.NewSubmission{Comment: ctx.FormValue("comment")}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", "a file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()

	stored, err := api.opts.Files.Store(files.CategorySubmissions, fh.Filename, fh.Size, src)
	if err != nil {
		return mapFileErr(errors.Wrap(err, "storing submission"), "file")
	}
	ns.File = stored
	ns.FileName = fh.Filename

	if err := ns.Validate(api.opts.Validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), usr, ns)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "submitting"))
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *activityApi) grade(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data activity.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"), usr, data)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "grading submission"))
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *activityApi) toggleSave(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	saved, err := api.svc.ToggleSave(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "toggling save"))
	}
	return ctx.JSON(http.StatusOK, SaveResponse{Success: true, Saved: saved})
}

func (api *activityApi) teacherPanel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	summaries, err := api.svc.TeacherPanel(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "loading teacher panel"))
	}
	if summaries == nil {
		summaries = []activity.TeacherSummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *activityApi) submissions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	subs, err := api.svc.Submissions(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return mapActivityErr(errors.Wrap(err, "listing submissions"))
	}
	if subs == nil {
		subs = []activity.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *activityApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), usr); err != nil {
		return mapActivityErr(errors.Wrap(err, "deleting activity"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *activityApi) downloadAttachment(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapActivityErr(err)
	}
	if a.Attachment == "" {
		return errHttpNotFound
	}

	path, err := api.opts.Files.Path(files.CategoryActivities, a.Attachment)
	if err != nil {
		return errHttpNotFound
	}
	return ctx.Attachment(path, a.AttachmentName)
}

// downloadSubmission serves a submitted file to the submitting student,
// the activity's author, or an admin.
func (api *activityApi) downloadSubmission(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return mapActivityErr(err)
	}

	path, err := api.opts.Files.Path(files.CategorySubmissions, sub.File)
	if err != nil {
		return errHttpNotFound
	}
	return ctx.Attachment(path, sub.FileName)
}

func (api *activityApi) exportICS(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapActivityErr(err)
	}

	ics, err := activity.ExportICS(a)
	if err != nil {
		return mapActivityErr(err)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="atividade.ics"`)
	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", ics)
}

func mapActivityErr(err error) error {
	switch errors.Cause(err) {
	case activity.ErrNotFound, activity.ErrSubmissionMissing, activity.ErrNoDeadline, files.ErrNotFound:
		return errHttpNotFound
	case activity.ErrNotAuthor:
		return errHttpForbidden
	case activity.ErrNoSubmissions, activity.ErrDeadlinePassed, activity.ErrAlreadySubmitted:
		return core.NewValidationError(errors.Cause(err))
	case nil:
		return nil
	}
	return err
}

type SaveResponse struct {
	Success bool `json:"success"`
	Saved   bool `json:"saved"`
}
