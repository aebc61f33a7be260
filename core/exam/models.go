package exam

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core"
)

var hundred = decimal.NewFromInt(100)

// grade boundaries, in percent, highest first
var gradeScale = []struct {
	min   decimal.Decimal
	grade string
}{
	{decimal.NewFromInt(75), "A"},
	{decimal.NewFromInt(65), "B"},
	{decimal.NewFromInt(55), "C"},
	{decimal.NewFromInt(35), "S"},
}

type Result struct {
	ID          string          `json:"id"`
	ExamID      string          `json:"exam_id"`
	ExamName    string          `json:"exam_name"`
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name,omitempty"`
	SubjectID   string          `json:"subject_id,omitempty"`
	SubjectName string          `json:"subject_name,omitempty"`
	Marks       decimal.Decimal `json:"marks"`
	MaxMarks    decimal.Decimal `json:"max_marks"`
	Percentage  decimal.Decimal `json:"percentage"`
	Grade       string          `json:"grade"`
	PublishedAt time.Time       `json:"published_at"` // UTC
}

// Compute fills the Percentage (one decimal) and the letter Grade of r.
func (r *Result) Compute() {
	r.Percentage = Percentage(r.Marks, r.MaxMarks)
	r.Grade = Grade(r.Percentage)
}

// Percentage returns marks/max*100 rounded to one decimal; zero when max is not positive.
func Percentage(marks, max decimal.Decimal) decimal.Decimal {
	if !max.IsPositive() {
		return decimal.Zero
	}
	return marks.Mul(hundred).Div(max).Round(1)
}

// Grade maps a percentage to its letter grade: A >= 75, B >= 65, C >= 55, S >= 35, else F.
func Grade(pct decimal.Decimal) string {
	for _, g := range gradeScale {
		if pct.GreaterThanOrEqual(g.min) {
			return g.grade
		}
	}
	return "F"
}

// NewResult contains the information needed to publish a student's result.
type NewResult struct {
	ExamName    string          `json:"exam_name" validate:"required,max=255"`
	StudentID   string          `json:"student_id" validate:"required,uuid"`
	SubjectID   string          `json:"subject_id" validate:"omitempty,uuid"`
	SubjectName string          `json:"subject_name" validate:"max=255"`
	Marks       decimal.Decimal `json:"marks"`
	MaxMarks    decimal.Decimal `json:"max_marks"`
}

func (nr *NewResult) Validate() error {
	nr.ExamName = core.CleanString(nr.ExamName)
	nr.SubjectName = core.CleanString(nr.SubjectName)
	if err := core.Validate.Struct(nr); err != nil {
		return err
	}
	if !nr.MaxMarks.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "max_marks", Error: "must be greater than 0"})
	}
	if nr.Marks.IsNegative() || nr.Marks.GreaterThan(nr.MaxMarks) {
		return core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "must be between 0 and max_marks"})
	}
	return nil
}
