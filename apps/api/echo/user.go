package echoapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	svc *user.Service
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/login` & `/register`
	ug.POST("/login", api.login)
	ug.POST("/register", api.register)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/password", api.resetPassword)
	dg.POST("/roles", api.assignRole, adminMiddleware())
	dg.DELETE("/roles/:role", api.removeRole, adminMiddleware())
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// register is the open self-registration endpoint; new accounts always start
// out as plain students.
func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

// create is the admin path: roles come from the payload.
func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "username", "email", "created_at")

	users, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
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

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		// `Status` and `Roles` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.Status != "" || data.Roles != nil || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	if err := data.Validate(usr); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if usr.ID == claims.Subject {
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
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, claims.Subject); i < len(query.IDs) {
		if match := query.IDs[i]; claims.Subject == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.AllRoles)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(usr); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), usr.ID, data.Password); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) assignRole(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data RoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoleRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.AssignRole(ctx.Request().Context(), usr.ID, data.Role); err != nil {
		return err
	}
	roles, err := api.svc.RolesOf(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user roles")
	}
	return ctx.JSON(http.StatusOK, RolesResponse{Roles: roles})
}

func (api *userApi) removeRole(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.RemoveRole(ctx.Request().Context(), usr.ID, ctx.Param("role")); err != nil {
		return err
	}
	roles, err := api.svc.RolesOf(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user roles")
	}
	return ctx.JSON(http.StatusOK, RolesResponse{Roles: roles})
}

// ctxUserOrAdminMiddleware resolves the :id user into the context. Plain users
// can only reach their own detail; a missing user reads as 404.
func ctxUserOrAdminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			if ctx.Param("id") == claims.Subject || claims.IsAdmin {
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
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	RoleRequest struct {
		Role string `json:"role" validate:"required"`
	}

	RolesResponse struct {
		Roles []string `json:"roles"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

func (rr *RoleRequest) Validate() error {
	rr.Role = core.CleanString(rr.Role, true /* lower */)
	return core.Validate.Struct(rr)
}
