package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/view"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

type fixture struct {
	svc      attendance.Service
	school   testutil.School
	teacher  user.User
	students []user.User
}

func setup(t *testing.T) fixture {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	school := testutil.CreateSchool(t, inmemdb.NewRosterRepository(db))

	testutil.FreezeTime(t, time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC))

	return fixture{
		svc:     attendance.NewService(inmemdb.NewAttendanceRepository(db), time.UTC, core.AttendanceConfig{DefaultLimit: 2, MaxLimit: 3}),
		school:  school,
		teacher: testutil.CreateUser(t, usrRepo, "Mwalimu", "mwalimu", user.RoleTeacher, testutil.UserOpts{InstituteIDs: []string{school.Institute.ID}}),
		students: []user.User{
			testutil.CreateUser(t, usrRepo, "Amani", "amani", user.RoleStudent),
			testutil.CreateUser(t, usrRepo, "Baraka", "baraka", user.RoleStudent),
			testutil.CreateUser(t, usrRepo, "Chausiku", "chausiku", user.RoleStudent),
		},
	}
}

func (f fixture) mark(t *testing.T, student user.User, date string, status attendance.Status) attendance.Record {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	rec, err := f.svc.Mark(context.Background(), f.teacher, attendance.NewRecord{
		Date:        d,
		Status:      status,
		StudentID:   student.ID,
		InstituteID: f.school.Institute.ID,
		ClassID:     f.school.Class.ID,
		SubjectID:   f.school.Subject.ID,
	})
	require.NoError(t, err)
	return rec
}

func TestService_Mark(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec := f.mark(t, f.students[0], "2025-01-09", attendance.StatusAbsent)
	assert.Equal(t, "Amani", rec.StudentName)
	assert.Equal(t, f.teacher.ID, rec.MarkedBy)
	assert.Equal(t, "manual", rec.MarkingMethod)

	// re-marking updates the existing mark
	again := f.mark(t, f.students[0], "2025-01-09", attendance.StatusLate)
	assert.Equal(t, rec.ID, again.ID)
	page, err := f.svc.ListStudent(ctx, f.students[0].ID, core.FilterParams{})
	require.NoError(t, err)
	if assert.Len(t, page.Records, 1) {
		assert.Equal(t, attendance.StatusLate, page.Records[0].Status)
	}

	// date defaults to today
	rec, err = f.svc.Mark(ctx, f.teacher, attendance.NewRecord{
		Status:      "Present",
		StudentID:   f.students[1].ID,
		InstituteID: f.school.Institute.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", rec.Date.String())
	assert.Equal(t, attendance.StatusPresent, rec.Status)
}

func TestService_Mark_errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	valid := attendance.NewRecord{Status: attendance.StatusPresent, StudentID: f.students[0].ID, InstituteID: f.school.Institute.ID}

	t.Run("not staff", func(t *testing.T) {
		_, err := f.svc.Mark(ctx, f.students[1], valid)
		assert.Equal(t, core.ErrForbidden, err)
	})

	t.Run("other institute", func(t *testing.T) {
		other := f.teacher
		other.InstituteIDs = nil
		_, err := f.svc.Mark(ctx, other, valid)
		assert.Equal(t, core.ErrForbidden, err)
	})

	t.Run("future date", func(t *testing.T) {
		nr := valid
		nr.Date = core.NewDate(2025, time.January, 11)
		_, err := f.svc.Mark(ctx, f.teacher, nr)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "%T", err)
		assert.Equal(t, "date", verr.Fields[0].Field)
	})

	t.Run("unknown status", func(t *testing.T) {
		nr := valid
		nr.Status = "excused"
		_, err := f.svc.Mark(ctx, f.teacher, nr)
		verrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "%T", err)
		assert.Equal(t, "status", verrs[0].Field())
	})
}

func TestService_List(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, st := range f.students {
		f.mark(t, st, "2025-01-08", attendance.StatusPresent)
	}
	f.mark(t, f.students[0], "2025-01-09", attendance.StatusAbsent)

	scope := attendance.ScopeOf(view.VariantClass, view.Selection{InstituteID: f.school.Institute.ID, ClassID: f.school.Class.ID})

	tests := []struct {
		name      string
		params    core.FilterParams
		wantNames []string
		wantPage  core.Pagination
	}{
		{
			name:      "default limit",
			params:    core.FilterParams{},
			wantNames: []string{"Amani", "Baraka"},
			wantPage:  core.Pagination{TotalRecords: 4, Page: 1, Limit: 2},
		},
		{
			name:      "second page",
			params:    core.FilterParams{Page: 2},
			wantNames: []string{"Chausiku", "Amani"},
			wantPage:  core.Pagination{TotalRecords: 4, Page: 2, Limit: 2},
		},
		{
			name:      "limit capped",
			params:    core.FilterParams{Limit: 50},
			wantNames: []string{"Amani", "Baraka", "Chausiku"},
			wantPage:  core.Pagination{TotalRecords: 4, Page: 1, Limit: 3},
		},
		{
			name:      "date range",
			params:    core.FilterParams{StartDate: core.NewDate(2025, time.January, 9)},
			wantNames: []string{"Amani"},
			wantPage:  core.Pagination{TotalRecords: 1, Page: 1, Limit: 2},
		},
		{
			name:      "past page",
			params:    core.FilterParams{Page: 5},
			wantNames: []string{},
			wantPage:  core.Pagination{TotalRecords: 4, Page: 5, Limit: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.List(ctx, scope, tt.params)
			require.NoError(t, err)
			names := make([]string, 0, len(page.Records))
			for _, rec := range page.Records {
				names = append(names, rec.StudentName)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantPage, page.Pagination)
		})
	}

	t.Run("inverted range", func(t *testing.T) {
		_, err := f.svc.List(ctx, scope, core.FilterParams{
			StartDate: core.NewDate(2025, time.January, 9),
			EndDate:   core.NewDate(2025, time.January, 8),
		})
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "%T", err)
	})
}

func TestService_Summarize(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// more records than a page holds: the summary must still see all of them
	for _, st := range f.students {
		f.mark(t, st, "2025-01-10", attendance.StatusPresent)
		f.mark(t, st, "2025-01-06", attendance.StatusLate)
		f.mark(t, st, "2025-01-05", attendance.StatusAbsent) // outside the staff window
	}
	f.mark(t, f.students[0], "2025-01-09", attendance.StatusAbsent)

	scope := attendance.ScopeOf(view.VariantSubject, view.Selection{
		InstituteID: f.school.Institute.ID,
		ClassID:     f.school.Class.ID,
		SubjectID:   f.school.Subject.ID,
	})
	sum, err := f.svc.Summarize(ctx, scope, core.Date{}, attendance.StaffWindowDays)
	require.NoError(t, err)

	assert.Equal(t, attendance.WindowStats{Present: 3, Absent: 1, Late: 3}, sum.Window)
	assert.Len(t, sum.Daily, 3)
	assert.Equal(t, attendance.DailyBucket{Present: 3, Total: 3}, sum.Daily["2025-01-10"])
	assert.Equal(t, []attendance.Slice{
		{Status: attendance.StatusPresent, Value: 3, Percentage: 42.9},
		{Status: attendance.StatusAbsent, Value: 1, Percentage: 14.3},
		{Status: attendance.StatusLate, Value: 3, Percentage: 42.9},
	}, sum.Breakdown)

	t.Run("child window", func(t *testing.T) {
		sum, err := f.svc.SummarizeStudent(ctx, f.students[0].ID, core.Date{})
		require.NoError(t, err)
		assert.Equal(t, attendance.WindowStats{Present: 1, Absent: 2, Late: 1}, sum.Window)
		assert.Len(t, sum.Daily, 4)
	})

	t.Run("empty", func(t *testing.T) {
		sum, err := f.svc.SummarizeStudent(ctx, f.teacher.ID, core.Date{})
		require.NoError(t, err)
		assert.Equal(t, attendance.WindowStats{}, sum.Window)
		assert.NotNil(t, sum.Breakdown)
		assert.Empty(t, sum.Breakdown)
	})
}
