package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/user"
)

type examApi struct {
	svc exam.Service
}

func registerExamAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc exam.Service, enrollments user.EnrollmentFinder) {
	api := examApi{svc: svc}

	staff := chain(authed, staffMiddleware())
	g.GET("/exams/:eid/results", api.examResults, staff...)
	g.POST("/exams/:eid/results", api.publish, staff...)

	student := chain(authed, studentViewerMiddleware(enrollments))
	g.GET("/students/:id/results", api.studentResults, student...)
	g.GET("/students/:id/results/report.pdf", api.report, student...)
}

func (api *examApi) examResults(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.ExamResults(ctx.Request().Context(), usr, ctx.Param("eid"))
	if err != nil {
		return errors.Wrap(err, "querying exam results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *examApi) publish(ctx echo.Context) error {
	var data exam.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Publish(ctx.Request().Context(), usr, ctx.Param("eid"), data)
	if err != nil {
		return errors.Wrap(err, "publishing result")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *examApi) studentResults(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.StudentResults(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying student results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *examApi) report(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}

	// render first: errors must not follow a partially written body
	var buf bytes.Buffer
	if err := api.svc.WriteReport(ctx.Request().Context(), &buf, usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "writing report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", "report-"+ctx.Param("id")+".pdf"))
	return ctx.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
