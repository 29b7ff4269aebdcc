package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/note"
	"github.com/GrupoTcc462/StudyMate/storage/files"
)

// anonViewCookie dedups anonymous note views client-side; a weaker
// fallback than the per-user view rows.
const (
	anonViewCookie    = "nviews"
	anonViewCookieCap = 50
)

type noteApi struct {
	opts *Options
	svc  *note.Service
}

func registerNoteAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := noteApi{opts: opts, svc: opts.NoteSvc}

	ng := g.Group("/notes")

	// public endpoints; the detail route counts views for visitors too
	ng.GET("", api.list)
	ng.GET("/:id", api.retrieve, optionalJWT())
	ng.GET("/:id/download", api.download)
	ng.GET("/:id/comments", api.comments)
	ng.GET("/:id/recommendations", api.recommendations)

	// authed endpoints
	ng.POST("", api.create, jwt)
	ng.POST("/:id/like", api.toggleLike, jwt)
	ng.POST("/:id/recommend", api.toggleRecommendation, jwt)
	ng.POST("/:id/comments", api.addComment, jwt)
}

// optionalJWT validates the token when one is presented and lets anonymous
// requests through untouched.
func optionalJWT() echo.MiddlewareFunc {
	config := appJWTConfig
	config.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(config)
}

// Handlers

func (api *noteApi) list(ctx echo.Context) error {
	filter := new(note.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Clean(); err != nil {
		return err
	}

	page, err := api.svc.List(ctx.Request().Context(), *filter)
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "listing notes"))
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *noteApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapNoteErr(err)
	}

	resp := NoteDetailResponse{Note: n}
	if claims, err := getContextClaims(ctx); err == nil {
		if views, _, err := api.svc.RecordView(ctx.Request().Context(), n.ID, claims.Subject); err == nil {
			resp.Note.Views = views
		}
		if liked, err := api.svc.HasLiked(ctx.Request().Context(), n.ID, claims.Subject); err == nil {
			resp.Liked = liked
		}
	} else if !api.seenByVisitor(ctx, n.ID) {
		if views, err := api.svc.RecordAnonymousView(ctx.Request().Context(), n.ID); err == nil {
			resp.Note.Views = views
		}
		api.markSeenByVisitor(ctx, n.ID)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *noteApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	nn := note.NewNote{
		Title:         ctx.FormValue("title"),
		Description:   ctx.FormValue("description"),
		FileType:      note.FileType(strings.ToUpper(ctx.FormValue("file_type"))),
		Link:          ctx.FormValue("link"),
		SubjectID:     ctx.FormValue("subject_id"),
		IsRecommended: ctx.FormValue("is_recommended") == "true",
	}

	if fh, err := ctx.FormFile("file"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening upload")
		}
		defer func() { _ = src.Close() }()

		stored, err := api.opts.Files.Store(files.CategoryNotes, fh.Filename, fh.Size, src)
		if err != nil {
			return mapFileErr(errors.Wrap(err, "storing note file"), "file")
		}
		nn.File = stored
		nn.FileName = fh.Filename
	}

	if err := nn.Validate(api.opts.Validate); err != nil {
		return err
	}

	isTeacher := claims.IsTeacher || claims.IsAdmin
	n, err := api.svc.Create(ctx.Request().Context(), claims.Subject, nn, isTeacher)
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "creating note"))
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noteApi) download(ctx echo.Context) error {
	n, err := api.svc.Download(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapNoteErr(err)
	}

	path, err := api.opts.Files.Path(files.CategoryNotes, n.File)
	if err != nil {
		return errHttpNotFound
	}
	return ctx.Attachment(path, n.FileName)
}

func (api *noteApi) toggleLike(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	likes, liked, err := api.svc.ToggleLike(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "toggling like"))
	}
	return ctx.JSON(http.StatusOK, LikeResponse{Success: true, Liked: liked, Likes: likes})
}

func (api *noteApi) toggleRecommendation(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	added, total, err := api.svc.ToggleRecommendation(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "toggling recommendation"))
	}
	return ctx.JSON(http.StatusOK, RecommendResponse{Success: true, Recommended: added, Total: total})
}

func (api *noteApi) recommendations(ctx echo.Context) error {
	recs, err := api.svc.Recommendations(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "listing recommendations"))
	}
	if recs == nil {
		recs = []note.Recommendation{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *noteApi) addComment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	var data note.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	c, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "adding comment"))
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *noteApi) comments(ctx echo.Context) error {
	comments, err := api.svc.Comments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapNoteErr(errors.Wrap(err, "listing comments"))
	}
	if comments == nil {
		comments = []note.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

// Anonymous view cookie

func (api *noteApi) seenByVisitor(ctx echo.Context, noteID string) bool {
	c, err := ctx.Cookie(anonViewCookie)
	if err != nil {
		return false
	}
	for _, id := range strings.Split(c.Value, "|") {
		if id == noteID {
			return true
		}
	}
	return false
}

func (api *noteApi) markSeenByVisitor(ctx echo.Context, noteID string) {
	ids := []string{}
	if c, err := ctx.Cookie(anonViewCookie); err == nil && c.Value != "" {
		ids = strings.Split(c.Value, "|")
	}
	ids = append(ids, noteID)
	if len(ids) > anonViewCookieCap {
		ids = ids[len(ids)-anonViewCookieCap:]
	}
	ctx.SetCookie(&http.Cookie{
		Name:     anonViewCookie,
		Value:    strings.Join(ids, "|"),
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HttpOnly: true,
	})
}

func mapNoteErr(err error) error {
	switch errors.Cause(err) {
	case note.ErrNotFound, note.ErrNoFile, files.ErrNotFound:
		return errHttpNotFound
	case note.ErrTeacherOnly:
		return errHttpForbidden
	case nil:
		return nil
	}
	return err
}

type (
	NoteDetailResponse struct {
		Note  note.Note `json:"note"`
		Liked bool      `json:"liked"`
	}

	LikeResponse struct {
		Success bool `json:"success"`
		Liked   bool `json:"liked"`
		Likes   int  `json:"likes"`
	}

	RecommendResponse struct {
		Success     bool `json:"success"`
		Recommended bool `json:"recommended"`
		Total       int  `json:"total"`
	}
)
