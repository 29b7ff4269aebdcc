package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/profile"
	"github.com/GrupoTcc462/StudyMate/core/user"
	"github.com/GrupoTcc462/StudyMate/storage/files"
)

type profileApi struct {
	opts *Options
	svc  *profile.Service
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := profileApi{opts: opts, svc: opts.ProfileSvc}

	pg := g.Group("/profile", jwt)
	pg.GET("", api.retrieve)
	pg.PUT("", api.update)
	pg.GET("/avatar", api.avatar)
}

// Handlers

func (api *profileApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Get(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{User: usr, Profile: p, CanChangeName: p.CanChangeName()})
}

// update handles both JSON and multipart bodies; the avatar only arrives
// via the latter.
func (api *profileApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data profile.UpdateProfile
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		data = profile.UpdateProfile{
			Name:  ctx.FormValue("name"),
			Phone: ctx.FormValue("phone"),
			Bio:   ctx.FormValue("bio"),
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	if fh, err := ctx.FormFile("avatar"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening upload")
		}
		defer func() { _ = src.Close() }()

		stored, err := api.opts.Files.Store(files.CategoryAvatars, fh.Filename, fh.Size, src)
		if err != nil {
			return mapFileErr(errors.Wrap(err, "storing avatar"), "avatar")
		}
		data.Avatar = stored
	}

	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	p, usr, err := api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{User: usr, Profile: p, CanChangeName: p.CanChangeName()})
}

func (api *profileApi) avatar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Get(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	if p.Avatar == "" {
		return errHttpNotFound
	}

	path, err := api.opts.Files.Path(files.CategoryAvatars, p.Avatar)
	if err != nil {
		return errHttpNotFound
	}
	return ctx.File(path)
}

type ProfileResponse struct {
	User          user.User       `json:"user"`
	Profile       profile.Profile `json:"profile"`
	CanChangeName bool            `json:"can_change_name"`
}
