package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses", jwt)

	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/mine", api.mine)

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/archive", api.archive)
	dg.POST("/restore", api.restore)

	// enrollment endpoints
	dg.GET("/enrollments", api.enrollments)
	dg.POST("/enrollments", api.enroll)
	dg.DELETE("/enrollments/:userID", api.unenroll)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "code", "name", "created_at")

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.Filter(ctx.Request().Context(), actor, *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// mine lists the courses the caller is actively enrolled in,
// optionally narrowed by "?type=teacher|student".
func (api *courseApi) mine(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.CoursesFor(ctx.Request().Context(), actor.ID, ctx.QueryParam("type"))
	if err != nil {
		return errors.Wrap(err, "querying user courses")
	}
	if courses == nil {
		courses = []course.UserCourse{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Retrieve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) archive(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Archive(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) restore(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Restore(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) enrollments(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	enrs, err := api.svc.Enrollments(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if enrs == nil {
		enrs = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	// empty user defaults to self-enrollment
	if data.UserID == "" {
		data.UserID = actor.ID
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), actor, ctx.Param("id"), data.UserID, data.Type)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Unenroll(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("userID")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type" validate:"omitempty,oneof=teacher student"`
}

func (er *EnrollRequest) Validate() error {
	er.Type = core.CleanString(er.Type, true /* lower */)
	if er.Type == "" {
		er.Type = course.EnrollmentStudent
	}
	return core.Validate.Struct(er)
}
