package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/coursework"
)

type courseworkApi struct {
	svc *coursework.Service
}

func registerCourseworkAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *coursework.Service) {
	api := courseworkApi{svc: svc}

	// course-scoped collections
	cg := g.Group("/courses/:id", jwt)
	cg.POST("/assignments", api.createAssignment)
	cg.GET("/assignments", api.assignmentsByCourse)
	cg.POST("/materials", api.createMaterial)
	cg.GET("/materials", api.materialsByCourse)
	cg.POST("/discussions", api.createDiscussion)
	cg.GET("/discussions", api.discussionsByCourse)

	// assignment detail + submissions
	ag := g.Group("/assignments/:id", jwt)
	ag.GET("", api.retrieveAssignment)
	ag.PUT("", api.updateAssignment)
	ag.DELETE("", api.destroyAssignment)
	ag.POST("/submissions", api.submit)
	ag.GET("/submissions", api.submissionsByAssignment)
	ag.GET("/submissions/mine", api.mySubmission)

	// submission detail
	sg := g.Group("/submissions/:id", jwt)
	sg.GET("", api.retrieveSubmission)
	sg.POST("/grade", api.grade)
	sg.POST("/return", api.returnSubmission)

	g.GET("/users/:id/submissions", api.submissionsByUser, jwt)

	// material detail
	mg := g.Group("/materials/:id", jwt)
	mg.GET("", api.retrieveMaterial)
	mg.PUT("", api.updateMaterial)
	mg.DELETE("", api.destroyMaterial)

	// discussion detail + comments
	dg := g.Group("/discussions/:id", jwt)
	dg.GET("", api.retrieveDiscussion)
	dg.PUT("", api.updateDiscussion)
	dg.DELETE("", api.destroyDiscussion)
	dg.POST("/comments", api.createComment)
	dg.GET("/comments", api.commentTree)

	// comment detail
	cmg := g.Group("/comments/:id", jwt)
	cmg.PUT("", api.updateComment)
	cmg.DELETE("", api.destroyComment)
}

// Assignment handlers

func (api *courseworkApi) createAssignment(ctx echo.Context) error {
	var data coursework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.CreateAssignment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *courseworkApi) assignmentsByCourse(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	assignments, err := api.svc.AssignmentsByCourse(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if assignments == nil {
		assignments = []coursework.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *courseworkApi) retrieveAssignment(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.GetAssignment(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseworkApi) updateAssignment(ctx echo.Context) error {
	var data coursework.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseworkApi) destroyAssignment(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submission handlers

func (api *courseworkApi) submit(ctx echo.Context) error {
	var data coursework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.Submit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *courseworkApi) submissionsByAssignment(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.SubmissionsByAssignment(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []coursework.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *courseworkApi) mySubmission(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.SubmissionFor(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *courseworkApi) retrieveSubmission(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetSubmission(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *courseworkApi) submissionsByUser(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.SubmissionsByUser(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []coursework.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *courseworkApi) grade(ctx echo.Context) error {
	var data coursework.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.Grade(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *courseworkApi) returnSubmission(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.Return(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

// Material handlers

func (api *courseworkApi) createMaterial(ctx echo.Context) error {
	var data coursework.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.CreateMaterial(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseworkApi) materialsByCourse(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	materials, err := api.svc.MaterialsByCourse(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if materials == nil {
		materials = []coursework.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *courseworkApi) retrieveMaterial(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.GetMaterial(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *courseworkApi) updateMaterial(ctx echo.Context) error {
	var data coursework.UpdateMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMaterial")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.UpdateMaterial(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *courseworkApi) destroyMaterial(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteMaterial(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Discussion handlers

func (api *courseworkApi) createDiscussion(ctx echo.Context) error {
	var data coursework.NewDiscussion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscussion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.CreateDiscussion(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *courseworkApi) discussionsByCourse(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	discussions, err := api.svc.DiscussionsByCourse(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if discussions == nil {
		discussions = []coursework.Discussion{}
	}
	return ctx.JSON(http.StatusOK, discussions)
}

func (api *courseworkApi) retrieveDiscussion(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.GetDiscussion(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *courseworkApi) updateDiscussion(ctx echo.Context) error {
	var data coursework.UpdateDiscussion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDiscussion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.UpdateDiscussion(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *courseworkApi) destroyDiscussion(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteDiscussion(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Comment handlers

func (api *courseworkApi) createComment(ctx echo.Context) error {
	var data coursework.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.CreateComment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseworkApi) commentTree(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	comments, err := api.svc.CommentTree(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []coursework.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *courseworkApi) updateComment(ctx echo.Context) error {
	var data coursework.UpdateComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.UpdateComment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseworkApi) destroyComment(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteComment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
