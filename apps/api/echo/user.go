package echoapi

import (
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

var (
	errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")
	errNoPermsToSetRole = "not enough rights to set this role"
)

type userApi struct {
	opts *Options
	svc  user.ServiceInterface
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := userApi{opts: opts, svc: opts.UserSvc}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit the registration endpoints
	ug.POST("/login", api.login)
	ug.POST("/register/send-code", api.sendRegistrationCode)
	ug.POST("/register/verify-code", api.verifyRegistrationCode)
	ug.POST("/register", api.completeRegistration)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/search", api.search)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	claims, usr, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	firstLogin := usr.FirstLogin
	prof, err := api.opts.ProfileSvc.TouchLogin(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "updating login streak")
	}

	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:       token,
		FirstLogin:  firstLogin,
		LoginStreak: prof.LoginStreak,
	})
}

func (api *userApi) sendRegistrationCode(ctx echo.Context) error {
	var data user.RegistrationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegistrationRequest")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if err := api.svc.SendRegistrationCode(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Detail: "verification code sent"})
}

func (api *userApi) verifyRegistrationCode(ctx echo.Context) error {
	var data user.VerifyCode
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyCode")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if err := api.svc.VerifyRegistrationCode(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Detail: "code verified"})
}

func (api *userApi) completeRegistration(ctx echo.Context) error {
	var data user.CompleteRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteRegistration")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	usr, err := api.svc.CompleteRegistration(ctx.Request().Context(), data)
	if err != nil {
		return err
	}

	// log the new account in right away
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, RegistrationResponse{Success: true, User: usr, Token: token})
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.opts.Validate, api.svc); err != nil {
		return err
	}

	// ctxUser cannot grant a role above their own
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if data.Role.Priority() > ctxUsr.Role.Priority() {
		return core.NewFieldError("role", errNoPermsToSetRole)
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

// search finds chat partners by name or username; open to any authed user.
func (api *userApi) search(ctx echo.Context) error {
	q := core.CleanString(ctx.QueryParam("q"))
	if len([]rune(q)) < user.SearchMinLength {
		return ctx.JSON(http.StatusOK, []PublicUser{})
	}

	users, err := api.svc.Query(ctx.Request().Context(), &user.QueryFilter{Search: q, Limit: user.SearchMaxResults}, nil)
	if err != nil {
		return errors.Wrap(err, "searching users")
	}
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	results := make([]PublicUser, 0, len(users))
	for _, usr := range users {
		if usr.ID == ctxUsr.ID {
			continue
		}
		if usr.IsActive != nil && !*usr.IsActive {
			continue
		}
		results = append(results, PublicUser{ID: usr.ID, Name: usr.Name, Username: usr.Username, Role: usr.Role})
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		// `IsActive` and `Role` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.IsActive != nil || data.Role != "" || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	if err := data.Validate(usr, api.opts.Validate, api.svc); err != nil {
		return err
	}

	// ctxUser cannot grant a role above their own
	if data.Role != "" && data.Role.Priority() > ctxUsr.Role.Priority() {
		return core.NewFieldError("role", errNoPermsToSetRole)
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, ctxUsr.ID); i < len(query.IDs) {
		if match := query.IDs[i]; ctxUsr.ID == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func ctxUserOrAdminMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token       string `json:"token"`
		FirstLogin  bool   `json:"first_login,omitempty"`
		LoginStreak int    `json:"login_streak,omitempty"`
	}

	RegistrationResponse struct {
		Success bool      `json:"success"`
		User    user.User `json:"user"`
		Token   string    `json:"token"`
	}

	SuccessResponse struct {
		Success bool   `json:"success"`
		Detail  string `json:"detail,omitempty"`
	}

	PublicUser struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Username string    `json:"username"`
		Role     user.Role `json:"role"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
