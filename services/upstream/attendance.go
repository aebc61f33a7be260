package upstream

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

// pageSize is the page size used when a whole window is fetched.
const pageSize = 100

// AttendanceRepository is a read-only attendance.Repository backed by the upstream API.
type AttendanceRepository struct {
	client *Client
	loc    *time.Location
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

func NewAttendanceRepository(client *Client, loc *time.Location) *AttendanceRepository {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceRepository{client: client, loc: loc}
}

type (
	recordPayload struct {
		ID            string `json:"id"`
		Date          string `json:"date"`
		Status        string `json:"status"`
		StudentID     string `json:"studentId"`
		StudentName   string `json:"studentName"`
		InstituteID   string `json:"instituteId"`
		ClassID       string `json:"classId"`
		SubjectID     string `json:"subjectId"`
		Location      string `json:"location"`
		MarkingMethod string `json:"markingMethod"`
		MarkedBy      string `json:"markedBy"`
		MarkedAt      string `json:"markedAt"`
	}

	pagePayload struct {
		Success    bool            `json:"success"`
		Data       []recordPayload `json:"data"`
		Pagination struct {
			TotalRecords int `json:"totalRecords"`
		} `json:"pagination"`
	}
)

// record converts p; dates may come as "YYYY-MM-DD" or as full timestamps, which are truncated to their day in loc.
func (p recordPayload) record(loc *time.Location) attendance.Record {
	rec := attendance.Record{
		ID:            p.ID,
		Status:        attendance.ParseStatus(p.Status),
		StudentID:     p.StudentID,
		StudentName:   p.StudentName,
		InstituteID:   p.InstituteID,
		ClassID:       p.ClassID,
		SubjectID:     p.SubjectID,
		Location:      p.Location,
		MarkingMethod: p.MarkingMethod,
		MarkedBy:      p.MarkedBy,
	}
	if d := strings.TrimSpace(p.Date); d != "" {
		if t, err := time.Parse(time.RFC3339Nano, d); err == nil {
			rec.Date = core.DateOf(t, loc)
		} else if len(d) >= len(core.DateLayout) {
			if day, err := core.ParseDate(d[:len(core.DateLayout)]); err == nil {
				rec.Date = day
			}
		}
	}
	if p.MarkedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, p.MarkedAt); err == nil {
			rec.MarkedAt = t.UTC()
		}
	}
	return rec
}

func scopePath(sc attendance.Scope) (string, error) {
	if sc.StudentID != "" {
		return "/students/" + url.PathEscape(sc.StudentID) + "/attendance", nil
	}
	if sc.InstituteID == "" {
		return "", errors.New("upstream: attendance scope has no institute")
	}

	var b strings.Builder
	b.WriteString("/institutes/" + url.PathEscape(sc.InstituteID))
	if sc.ClassID != "" {
		b.WriteString("/classes/" + url.PathEscape(sc.ClassID))
		if sc.SubjectID != "" {
			b.WriteString("/subjects/" + url.PathEscape(sc.SubjectID))
		}
	}
	b.WriteString("/attendance")
	return b.String(), nil
}

func (repo *AttendanceRepository) fetchPage(ctx context.Context, path string, filter attendance.QueryFilter, page, limit int) (pagePayload, error) {
	params := url.Values{}
	if !filter.StartDate.IsZero() {
		params.Set("startDate", filter.StartDate.String())
	}
	if !filter.EndDate.IsZero() {
		params.Set("endDate", filter.EndDate.String())
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var res pagePayload
	err := repo.client.Get(ctx, path, params, &res)
	return res, err
}

func (repo *AttendanceRepository) QueryAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, int, error) {
	path, err := scopePath(filter.Scope)
	if err != nil {
		return nil, 0, err
	}

	convert := func(payloads []recordPayload, dst []attendance.Record) []attendance.Record {
		for _, p := range payloads {
			rec := p.record(repo.loc)
			if rec.StudentID == "" {
				rec.StudentID = filter.StudentID
			}
			dst = append(dst, rec)
		}
		return dst
	}

	if filter.Limit > 0 {
		page := filter.Offset/filter.Limit + 1
		res, err := repo.fetchPage(ctx, path, filter, page, filter.Limit)
		if err != nil {
			return nil, 0, err
		}
		return convert(res.Data, make([]attendance.Record, 0, len(res.Data))), res.Pagination.TotalRecords, nil
	}

	// every page of the window
	var (
		records []attendance.Record
		fetched int
	)
	for page := 1; ; page++ {
		res, err := repo.fetchPage(ctx, path, filter, page, pageSize)
		if err != nil {
			return nil, 0, err
		}
		records = convert(res.Data, records)
		fetched += len(res.Data)
		if len(res.Data) == 0 || fetched >= res.Pagination.TotalRecords {
			break
		}
	}

	// the upstream may ignore the date bounds
	kept := records[:0]
	for _, rec := range records {
		if day, ok := rec.Day(repo.loc); ok && filter.InRange(day) {
			kept = append(kept, rec)
		}
	}
	return kept, len(kept), nil
}

func (repo *AttendanceRepository) SaveAttendance(context.Context, attendance.Record) (attendance.Record, error) {
	return attendance.Record{}, attendance.ErrReadOnly
}
