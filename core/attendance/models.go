package attendance

import (
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/view"
)

// Status is the attendance status of a student on a given day.
// Unknown values are kept verbatim: they only count towards DailyBucket.Total.
type Status string

const (
	StatusPresent    Status = "present"
	StatusAbsent     Status = "absent"
	StatusLate       Status = "late"
	StatusLeft       Status = "left"
	StatusLeftEarly  Status = "left_early"
	StatusLeftLately Status = "left_lately"
)

// MarkableStatuses lists the statuses staff can record.
var MarkableStatuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusLeft, StatusLeftEarly, StatusLeftLately}

// ParseStatus normalizes s (trimmed, lower-cased).
func ParseStatus(s string) Status {
	return Status(core.CleanString(s, true /* lower */))
}

func (s Status) Valid() bool {
	for _, st := range MarkableStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Record is a single attendance mark.
type Record struct {
	ID            string    `json:"id"`
	Date          core.Date `json:"date"`
	Status        Status    `json:"status"`
	StudentID     string    `json:"studentId"`
	StudentName   string    `json:"studentName,omitempty"`
	InstituteID   string    `json:"instituteId"`
	ClassID       string    `json:"classId,omitempty"`
	SubjectID     string    `json:"subjectId,omitempty"`
	Location      string    `json:"location,omitempty"`
	MarkingMethod string    `json:"markingMethod,omitempty"`
	MarkedBy      string    `json:"markedBy,omitempty"`
	MarkedAt      time.Time `json:"markedAt"` // UTC
}

// Day returns the calendar date the record is bucketed on: its Date,
// or the date of MarkedAt in loc for records that only carry a timestamp.
// ok is false when the record has neither.
func (r Record) Day(loc *time.Location) (day core.Date, ok bool) {
	if !r.Date.IsZero() {
		return r.Date, true
	}
	if !r.MarkedAt.IsZero() {
		return core.DateOf(r.MarkedAt, loc), true
	}
	return core.Date{}, false
}

// NewRecord contains the information needed to mark attendance.
type NewRecord struct {
	Date          core.Date `json:"date"`
	Status        Status    `json:"status" validate:"required,attendance_status"`
	StudentID     string    `json:"studentId" validate:"required,uuid"`
	InstituteID   string    `json:"instituteId" validate:"required,uuid"`
	ClassID       string    `json:"classId" validate:"omitempty,uuid"`
	SubjectID     string    `json:"subjectId" validate:"omitempty,uuid"`
	Location      string    `json:"location" validate:"max=255"`
	MarkingMethod string    `json:"markingMethod" validate:"omitempty,oneof=manual qr face"`
}

func (nr *NewRecord) Validate() error {
	nr.Status = ParseStatus(string(nr.Status))
	nr.Location = core.CleanString(nr.Location)
	nr.MarkingMethod = core.CleanString(nr.MarkingMethod, true /* lower */)
	if nr.MarkingMethod == "" {
		nr.MarkingMethod = "manual"
	}
	return core.Validate.Struct(nr)
}

// Scope identifies which records a listing or a summary reads.
type Scope struct {
	Variant     view.Variant
	InstituteID string
	ClassID     string
	SubjectID   string
	StudentID   string // child view
}

// ScopeOf builds the Scope of a permitted view decision.
func ScopeOf(variant view.Variant, sel view.Selection) Scope {
	sc := Scope{Variant: variant, InstituteID: sel.InstituteID}
	switch variant {
	case view.VariantSubject:
		sc.ClassID, sc.SubjectID = sel.ClassID, sel.SubjectID
	case view.VariantClass:
		sc.ClassID = sel.ClassID
	}
	return sc
}

// StudentScope is the scope of the child view.
func StudentScope(studentID string) Scope {
	return Scope{StudentID: studentID}
}

// Matches reports whether rec falls inside the scope.
func (sc Scope) Matches(rec Record) bool {
	if sc.StudentID != "" && rec.StudentID != sc.StudentID {
		return false
	}
	if sc.InstituteID != "" && rec.InstituteID != sc.InstituteID {
		return false
	}
	if sc.ClassID != "" && rec.ClassID != sc.ClassID {
		return false
	}
	if sc.SubjectID != "" && rec.SubjectID != sc.SubjectID {
		return false
	}
	return true
}

// QueryFilter is what repositories filter records with.
// A zero Limit returns every matching record.
type QueryFilter struct {
	Scope
	StartDate core.Date
	EndDate   core.Date
	Limit     int
	Offset    int
}

// InRange reports whether day lies in [StartDate, EndDate]; zero bounds are open.
func (qf QueryFilter) InRange(day core.Date) bool {
	if !qf.StartDate.IsZero() && day.Before(qf.StartDate) {
		return false
	}
	if !qf.EndDate.IsZero() && day.After(qf.EndDate) {
		return false
	}
	return true
}

// Page is a page of records.
type Page struct {
	Records    []Record        `json:"data"`
	Pagination core.Pagination `json:"pagination"`
}
