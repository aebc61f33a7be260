package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core"
)

// Window sizes of the dashboards, in days.
const (
	StaffWindowDays = 5
	ChildWindowDays = 30
)

var hundred = decimal.NewFromInt(100)

// DailyBucket holds the status counts of a single calendar date.
// Total also counts the statuses that have no counter of their own.
type DailyBucket struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

// WindowStats holds the status counts of the trailing window.
type WindowStats struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func (w WindowStats) Sum() int { return w.Present + w.Absent + w.Late }

// Slice is one entry of the percentage breakdown.
type Slice struct {
	Status     Status  `json:"status"`
	Value      int     `json:"value"`
	Percentage float64 `json:"percentage"`
}

type Summary struct {
	Daily     map[string]DailyBucket `json:"daily"` // {YYYY-MM-DD: bucket}
	Window    WindowStats            `json:"window"`
	Breakdown []Slice                `json:"breakdown"`
}

// Aggregate buckets records by calendar date, counts the statuses of the trailing
// windowDays days ending on refDay (inclusive), and derives the percentage breakdown.
// Records without a date are skipped. It is a pure function of its arguments.
func Aggregate(records []Record, refDay core.Date, windowDays int, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	// first pass: calendar buckets
	daily := make(map[string]DailyBucket)
	marks := make([]dayMark, 0, len(records))
	for _, rec := range records {
		day, ok := rec.Day(loc)
		if !ok {
			continue
		}
		mark := dayMark{key: day.String(), status: ParseStatus(string(rec.Status))}
		marks = append(marks, mark)

		bucket := daily[mark.key]
		switch mark.status {
		case StatusPresent:
			bucket.Present++
		case StatusAbsent:
			bucket.Absent++
		case StatusLate:
			bucket.Late++
		}
		bucket.Total++
		daily[mark.key] = bucket
	}

	// second pass: trailing window
	window := windowSet(refDay, windowDays)
	var stats WindowStats
	for _, mark := range marks {
		if _, ok := window[mark.key]; !ok {
			continue
		}
		switch mark.status {
		case StatusPresent:
			stats.Present++
		case StatusAbsent:
			stats.Absent++
		case StatusLate:
			stats.Late++
		}
	}

	return Summary{
		Daily:     daily,
		Window:    stats,
		Breakdown: Breakdown(stats),
	}
}

type dayMark struct {
	key    string
	status Status
}

// windowSet returns the set of the last n date keys, refDay included.
func windowSet(refDay core.Date, n int) map[string]struct{} {
	set := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		set[refDay.AddDays(-i).String()] = struct{}{}
	}
	return set
}

// Breakdown returns the share of each non-zero status of stats, in the order
// present, absent, late, rounded to one decimal. It is empty when stats has no records.
func Breakdown(stats WindowStats) []Slice {
	slices := make([]Slice, 0, 3)
	sum := stats.Sum()
	if sum == 0 {
		return slices
	}

	total := decimal.NewFromInt(int64(sum))
	for _, s := range []struct {
		status Status
		value  int
	}{
		{StatusPresent, stats.Present},
		{StatusAbsent, stats.Absent},
		{StatusLate, stats.Late},
	} {
		if s.value == 0 {
			continue
		}
		pct, _ := decimal.NewFromInt(int64(s.value)).Mul(hundred).Div(total).Round(1).Float64()
		slices = append(slices, Slice{Status: s.status, Value: s.value, Percentage: pct})
	}
	return slices
}
