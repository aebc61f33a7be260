package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/view"
)

// childView names the per-student view in responses.
const childView = "child"

type attendanceApi struct {
	svc attendance.Service
}

func registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc attendance.Service, enrollments user.EnrollmentFinder) {
	api := attendanceApi{svc: svc}

	g.GET("/attendance", api.list, authed...)
	g.GET("/attendance/summary", api.summary, authed...)
	g.POST("/attendance", api.mark, chain(authed, staffMiddleware())...)

	student := chain(authed, studentViewerMiddleware(enrollments))
	g.GET("/students/:id/attendance", api.listStudent, student...)
	g.GET("/students/:id/attendance/summary", api.summarizeStudent, student...)
}

type (
	AttendanceListResponse struct {
		Success    bool                `json:"success"`
		Data       []attendance.Record `json:"data"`
		Pagination core.Pagination     `json:"pagination"`
		View       string              `json:"view"`
	}

	AttendanceSummaryResponse struct {
		Success    bool                              `json:"success"`
		View       string                            `json:"view"`
		WindowDays int                               `json:"window_days"`
		Daily      map[string]attendance.DailyBucket `json:"daily"`
		Window     attendance.WindowStats            `json:"window"`
		Breakdown  []attendance.Slice                `json:"breakdown"`
	}
)

func newSummaryResponse(v string, windowDays int, sum attendance.Summary) AttendanceSummaryResponse {
	return AttendanceSummaryResponse{
		Success:    true,
		View:       v,
		WindowDays: windowDays,
		Daily:      sum.Daily,
		Window:     sum.Window,
		Breakdown:  sum.Breakdown,
	}
}

// selectScope resolves the dashboard view of the context user for the query selection.
func (api *attendanceApi) selectScope(ctx echo.Context) (view.Variant, attendance.Scope, error) {
	usr, err := contextUser(ctx)
	if err != nil {
		return view.VariantNone, attendance.Scope{}, err
	}
	sel := bindSelection(ctx)

	dec := view.Select(usr.Role, sel)
	switch {
	case dec.Denied:
		return view.VariantNone, attendance.Scope{}, errHttpForbidden
	case !dec.Permitted && !sel.HasInstitute():
		return view.VariantNone, attendance.Scope{}, errSelectInstitute
	case !dec.Permitted:
		return view.VariantNone, attendance.Scope{}, errSelectClass
	}
	if !usr.BelongsTo(sel.InstituteID) {
		return view.VariantNone, attendance.Scope{}, errHttpForbidden
	}
	return dec.Variant, attendance.ScopeOf(dec.Variant, sel), nil
}

func (api *attendanceApi) list(ctx echo.Context) error {
	variant, scope, err := api.selectScope(ctx)
	if err != nil {
		return err
	}
	params, err := bindFilterParams(ctx)
	if err != nil {
		return err
	}

	page, err := api.svc.List(ctx.Request().Context(), scope, params)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return ctx.JSON(http.StatusOK, AttendanceListResponse{
		Success:    true,
		Data:       page.Records,
		Pagination: page.Pagination,
		View:       variant.String(),
	})
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	variant, scope, err := api.selectScope(ctx)
	if err != nil {
		return err
	}
	refDay, err := queryDate(ctx, "date")
	if err != nil {
		return err
	}

	sum, err := api.svc.Summarize(ctx.Request().Context(), scope, refDay, attendance.StaffWindowDays)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, newSummaryResponse(variant.String(), attendance.StaffWindowDays, sum))
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) listStudent(ctx echo.Context) error {
	params, err := bindFilterParams(ctx)
	if err != nil {
		return err
	}

	page, err := api.svc.ListStudent(ctx.Request().Context(), ctx.Param("id"), params)
	if err != nil {
		return errors.Wrap(err, "listing student attendance")
	}
	return ctx.JSON(http.StatusOK, AttendanceListResponse{
		Success:    true,
		Data:       page.Records,
		Pagination: page.Pagination,
		View:       childView,
	})
}

func (api *attendanceApi) summarizeStudent(ctx echo.Context) error {
	refDay, err := queryDate(ctx, "date")
	if err != nil {
		return err
	}

	sum, err := api.svc.SummarizeStudent(ctx.Request().Context(), ctx.Param("id"), refDay)
	if err != nil {
		return errors.Wrap(err, "summarizing student attendance")
	}
	return ctx.JSON(http.StatusOK, newSummaryResponse(childView, attendance.ChildWindowDays, sum))
}
