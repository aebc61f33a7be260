package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

type rosterApi struct {
	svc roster.Service
}

func registerRosterAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc roster.Service) {
	api := rosterApi{svc: svc}

	g.POST("/institutes", api.createInstitute, chain(authed, systemAdminMiddleware())...)

	staff := chain(authed, staffMiddleware(), instituteMemberMiddleware())
	admin := chain(authed, adminMiddleware(), instituteMemberMiddleware())

	ig := g.Group("/institutes/:iid")
	ig.GET("/classes", api.classes, staff...)
	ig.POST("/classes", api.createClass, admin...)
	ig.POST("/subjects", api.createSubject, admin...)
	ig.GET("/classes/:cid/subjects", api.classSubjects, staff...)
	ig.POST("/classes/:cid/subjects", api.addClassSubject, admin...)
	ig.GET("/classes/:cid/students", api.students, staff...)
	ig.POST("/classes/:cid/students", api.enroll, admin...)
	ig.PUT("/classes/:cid/subjects/:sid/teacher", api.assignTeacher, admin...)
	ig.DELETE("/classes/:cid/subjects/:sid/teacher", api.unassignTeacher, admin...)

	g.GET("/parents/me/children", api.children, chain(authed, parentMiddleware())...)
}

type (
	ClassSubjectRequest struct {
		SubjectID string `json:"subject_id" validate:"required,uuid"`
	}

	EnrollmentRequest struct {
		StudentID string `json:"student_id" validate:"required,uuid"`
	}
)

// Handlers

func (api *rosterApi) createInstitute(ctx echo.Context) error {
	var data roster.NewInstitute
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstitute")
	}
	inst, err := api.svc.CreateInstitute(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating institute")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *rosterApi) createClass(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	class, err := api.svc.CreateClass(ctx.Request().Context(), ctx.Param("iid"), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *rosterApi) createSubject(ctx echo.Context) error {
	var data roster.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	subj, err := api.svc.CreateSubject(ctx.Request().Context(), ctx.Param("iid"), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *rosterApi) addClassSubject(ctx echo.Context) error {
	var data ClassSubjectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassSubjectRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err := api.svc.AddClassSubject(reqCtx, ctx.Param("iid"), ctx.Param("cid"), data.SubjectID); err != nil {
		return errors.Wrap(err, "adding class subject")
	}
	subjects, err := api.svc.ClassSubjects(reqCtx, ctx.Param("iid"), ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "querying class subjects")
	}
	return ctx.JSON(http.StatusCreated, subjects)
}

func (api *rosterApi) enroll(ctx echo.Context) error {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err := api.svc.Enroll(reqCtx, ctx.Param("iid"), ctx.Param("cid"), data.StudentID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	students, err := api.svc.Students(reqCtx, ctx.Param("iid"), ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusCreated, students)
}

func (api *rosterApi) classes(ctx echo.Context) error {
	classes, err := api.svc.Classes(ctx.Request().Context(), ctx.Param("iid"))
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) classSubjects(ctx echo.Context) error {
	subjects, err := api.svc.ClassSubjects(ctx.Request().Context(), ctx.Param("iid"), ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "querying class subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *rosterApi) students(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context(), ctx.Param("iid"), ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) children(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	children, err := api.svc.Children(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *rosterApi) assignTeacher(ctx echo.Context) error {
	var data roster.TeacherAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeacherAssignment")
	}
	cs, err := api.svc.AssignTeacher(ctx.Request().Context(), ctx.Param("iid"), ctx.Param("cid"), ctx.Param("sid"), data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *rosterApi) unassignTeacher(ctx echo.Context) error {
	cs, err := api.svc.UnassignTeacher(ctx.Request().Context(), ctx.Param("iid"), ctx.Param("cid"), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "unassigning teacher")
	}
	return ctx.JSON(http.StatusOK, cs)
}
