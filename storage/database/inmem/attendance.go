package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// markKey identifies the mark of a student on a day, for a class and a subject.
func markKey(rec attendance.Record) string {
	return strings.Join([]string{rec.StudentID, rec.Date.String(), rec.ClassID, rec.SubjectID}, "|")
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.QueryFilter) ([]attendance.Record, int, error) {
	tbl := repo.db.attendance
	tbl.RLock()
	records := make([]attendance.Record, 0)
	for _, rec := range tbl.table {
		if filter.Matches(*rec) && filter.InRange(rec.Date) {
			records = append(records, *rec)
		}
	}
	tbl.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.ID < b.ID
	})

	total := len(records)
	if filter.Limit <= 0 {
		return records, total, nil
	}
	if filter.Offset >= total {
		return []attendance.Record{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return records[filter.Offset:end], total, nil
}

func (repo *attendanceRepository) SaveAttendance(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.StudentName = repo.db.userName(rec.StudentID)

	tbl := repo.db.attendance
	tbl.Lock()
	defer tbl.Unlock()

	key := markKey(rec)
	for _, existing := range tbl.table {
		if markKey(*existing) == key {
			rec.ID = existing.ID
			break
		}
	}
	tbl.table[rec.ID] = &rec
	return rec, nil
}
