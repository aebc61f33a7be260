package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the ISO calendar date layout used on the wire and as bucket keys.
const DateLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Date is a calendar date (no time of day), encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, errInvalidDate
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (d *Date) UnmarshalParam(param string) error {
	parsed, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FilterParams is the user controlled date window and page of a listing.
type FilterParams struct {
	StartDate Date
	EndDate   Date
	Page      int
	Limit     int
}

// Clean applies defaults and checks the invariants: startDate <= endDate, page >= 1, 1 <= limit <= maxLimit.
func (fp *FilterParams) Clean(defaultLimit, maxLimit int) error {
	if fp.Page <= 0 {
		fp.Page = 1
	}
	if fp.Limit <= 0 {
		fp.Limit = defaultLimit
	}
	if maxLimit > 0 && fp.Limit > maxLimit {
		fp.Limit = maxLimit
	}
	if !fp.StartDate.IsZero() && !fp.EndDate.IsZero() && fp.EndDate.Before(fp.StartDate) {
		return NewValidationError(nil, FieldError{Field: "endDate", Error: "endDate must not be before startDate"})
	}
	return nil
}

func (fp FilterParams) Offset() int {
	if fp.Page <= 1 {
		return 0
	}
	return (fp.Page - 1) * fp.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	TotalRecords int `json:"totalRecords"`
	Page         int `json:"page"`
	Limit        int `json:"limit"`
}
