package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// ErrReadOnly is returned by sources that cannot record attendance.
var ErrReadOnly = errors.New("attendance source is read-only")

type (
	Repository interface {
		// QueryAttendance returns the page of records matching filter, ordered by date then student name,
		// along with the total number of matching records.
		QueryAttendance(ctx context.Context, filter QueryFilter) ([]Record, int, error)
		// SaveAttendance inserts rec or, when the student is already marked on that day
		// (for the same class and subject), updates the existing mark.
		SaveAttendance(ctx context.Context, rec Record) (Record, error)
	}

	Service interface {
		List(ctx context.Context, scope Scope, params core.FilterParams) (Page, error)
		// Summarize aggregates every record of the windowDays days ending on refDay.
		Summarize(ctx context.Context, scope Scope, refDay core.Date, windowDays int) (Summary, error)
		ListStudent(ctx context.Context, studentID string, params core.FilterParams) (Page, error)
		SummarizeStudent(ctx context.Context, studentID string, refDay core.Date) (Summary, error)
		Mark(ctx context.Context, marker user.User, nr NewRecord) (Record, error)
	}

	service struct {
		repo         Repository
		loc          *time.Location
		defaultLimit int
		maxLimit     int
	}
)

func NewService(repo Repository, loc *time.Location, conf core.AttendanceConfig) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(loc, "loc"),
	).CheckAndPanic()

	svc := &service{repo: repo, loc: loc, defaultLimit: conf.DefaultLimit, maxLimit: conf.MaxLimit}
	if svc.defaultLimit <= 0 {
		svc.defaultLimit = 25
	}
	return svc
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) core.Date {
	return core.DateOf(core.NowFunc(), loc)
}

func (svc *service) List(ctx context.Context, scope Scope, params core.FilterParams) (Page, error) {
	if err := params.Clean(svc.defaultLimit, svc.maxLimit); err != nil {
		return Page{}, err
	}

	records, total, err := svc.repo.QueryAttendance(ctx, QueryFilter{
		Scope:     scope,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Limit:     params.Limit,
		Offset:    params.Offset(),
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []Record{}
	}
	return Page{
		Records:    records,
		Pagination: core.Pagination{TotalRecords: total, Page: params.Page, Limit: params.Limit},
	}, nil
}

func (svc *service) Summarize(ctx context.Context, scope Scope, refDay core.Date, windowDays int) (Summary, error) {
	if windowDays <= 0 {
		windowDays = StaffWindowDays
	}
	if refDay.IsZero() {
		refDay = Today(svc.loc)
	}

	// the whole window, unpaginated
	records, _, err := svc.repo.QueryAttendance(ctx, QueryFilter{
		Scope:     scope,
		StartDate: refDay.AddDays(-(windowDays - 1)),
		EndDate:   refDay,
	})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance window")
	}
	return Aggregate(records, refDay, windowDays, svc.loc), nil
}

func (svc *service) ListStudent(ctx context.Context, studentID string, params core.FilterParams) (Page, error) {
	return svc.List(ctx, StudentScope(studentID), params)
}

func (svc *service) SummarizeStudent(ctx context.Context, studentID string, refDay core.Date) (Summary, error) {
	return svc.Summarize(ctx, StudentScope(studentID), refDay, ChildWindowDays)
}

// Mark records the attendance of a student. Only staff of the institute may mark.
func (svc *service) Mark(ctx context.Context, marker user.User, nr NewRecord) (Record, error) {
	if !marker.IsStaff() || !marker.BelongsTo(nr.InstituteID) {
		return Record{}, core.ErrForbidden
	}
	if err := nr.Validate(); err != nil {
		return Record{}, err
	}

	today := Today(svc.loc)
	if nr.Date.IsZero() {
		nr.Date = today
	} else if nr.Date.After(today) {
		return Record{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date cannot be in the future"})
	}

	rec, err := svc.repo.SaveAttendance(ctx, Record{
		ID:            uuid.New().String(),
		Date:          nr.Date,
		Status:        nr.Status,
		StudentID:     nr.StudentID,
		InstituteID:   nr.InstituteID,
		ClassID:       nr.ClassID,
		SubjectID:     nr.SubjectID,
		Location:      nr.Location,
		MarkingMethod: nr.MarkingMethod,
		MarkedBy:      marker.ID,
		MarkedAt:      core.NowFunc().UTC(),
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "saving attendance")
	}
	return rec, nil
}
