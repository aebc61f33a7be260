package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/view"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindFilterParams reads the startDate, endDate, page and limit query parameters.
func bindFilterParams(ctx echo.Context) (core.FilterParams, error) {
	var fp core.FilterParams
	var err error

	if fp.StartDate, err = queryDate(ctx, "startDate"); err != nil {
		return fp, err
	}
	if fp.EndDate, err = queryDate(ctx, "endDate"); err != nil {
		return fp, err
	}
	if fp.Page, err = queryInt(ctx, "page"); err != nil {
		return fp, err
	}
	if fp.Limit, err = queryInt(ctx, "limit"); err != nil {
		return fp, err
	}
	return fp, nil
}

// bindSelection reads the dashboard selection from the query parameters.
func bindSelection(ctx echo.Context) view.Selection {
	return view.Selection{
		InstituteID: core.CleanString(ctx.QueryParam("instituteId")),
		ClassID:     core.CleanString(ctx.QueryParam("classId")),
		SubjectID:   core.CleanString(ctx.QueryParam("subjectId")),
		ChildID:     core.CleanString(ctx.QueryParam("childId")),
	}
}

func queryDate(ctx echo.Context, name string) (core.Date, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(val)
	if err != nil {
		return core.Date{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: err.Error()})
	}
	return d, nil
}

func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return n, nil
}
