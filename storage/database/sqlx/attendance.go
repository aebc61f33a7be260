package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

type attendanceRow struct {
	ID            string      `db:"id"`
	Date          time.Time   `db:"date"`
	Status        string      `db:"status"`
	StudentID     string      `db:"student_id"`
	StudentName   string      `db:"student_name"`
	InstituteID   string      `db:"institute_id"`
	ClassID       null.String `db:"class_id"`
	SubjectID     null.String `db:"subject_id"`
	Location      null.String `db:"location"`
	MarkingMethod null.String `db:"marking_method"`
	MarkedBy      null.String `db:"marked_by"`
	MarkedAt      time.Time   `db:"marked_at"`
}

const attendanceColumns = `id, date, status, student_id, student_name, institute_id, class_id, subject_id,
	location, marking_method, marked_by, marked_at`

func optString(s string) null.String { return null.NewString(s, s != "") }

func (row attendanceRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:            row.ID,
		Date:          core.NewDate(row.Date.Year(), row.Date.Month(), row.Date.Day()),
		Status:        attendance.Status(row.Status),
		StudentID:     row.StudentID,
		StudentName:   row.StudentName,
		InstituteID:   row.InstituteID,
		ClassID:       row.ClassID.String,
		SubjectID:     row.SubjectID.String,
		Location:      row.Location.String,
		MarkingMethod: row.MarkingMethod.String,
		MarkedBy:      row.MarkedBy.String,
		MarkedAt:      row.MarkedAt.UTC(),
	}
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, int, error) {
	w := new(where)
	for _, cond := range []struct {
		col, val string
	}{
		{"student_id", filter.StudentID},
		{"institute_id", filter.InstituteID},
		{"class_id", filter.ClassID},
		{"subject_id", filter.SubjectID},
	} {
		if cond.val == "" {
			continue
		}
		if !isUUID(cond.val) {
			return []attendance.Record{}, 0, nil
		}
		w.add(cond.col+" = ?", cond.val)
	}
	if !filter.StartDate.IsZero() {
		w.add("date >= ?::date", filter.StartDate.String())
	}
	if !filter.EndDate.IsZero() {
		w.add("date <= ?::date", filter.EndDate.String())
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM attendance`+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting attendance")
	}

	q := `SELECT ` + attendanceColumns + ` FROM attendance` + w.String() + ` ORDER BY date, student_name, id`
	if filter.Limit > 0 {
		q += ` LIMIT ` + w.next(filter.Limit) + ` OFFSET ` + w.next(filter.Offset)
	}
	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying attendance")
	}

	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, total, nil
}

func (repo *attendanceRepository) SaveAttendance(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := `INSERT INTO attendance (` + attendanceColumns + `)
		VALUES ($1, $2::date, $3, $4, COALESCE((SELECT name FROM "user" WHERE id = $4), ''), $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (student_id, date, (COALESCE(class_id, '00000000-0000-0000-0000-000000000000')), (COALESCE(subject_id, '00000000-0000-0000-0000-000000000000')))
		DO UPDATE SET status = EXCLUDED.status, location = EXCLUDED.location, marking_method = EXCLUDED.marking_method,
			marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
		RETURNING ` + attendanceColumns

	var row attendanceRow
	err := repo.db.GetContext(ctx, &row, q,
		rec.ID, rec.Date.String(), rec.Status.String(), rec.StudentID, rec.InstituteID,
		optString(rec.ClassID), optString(rec.SubjectID), optString(rec.Location), optString(rec.MarkingMethod),
		optString(rec.MarkedBy), rec.MarkedAt.UTC(),
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance")
	}
	return row.toRecord(), nil
}
