package sensor

import (
	"strings"
	"time"
)

// Reading is one immutable sample from a sensor node. ID is supplied by
// the node and must be unique.
type Reading struct {
	ID           string    `json:"id"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	LdrValue     float64   `json:"ldrValue"`
	TimeRecorded time.Time `json:"timeRecorded"`
}

// Period is the bucket granularity for aggregation.
type Period string

// Aggregation periods.
const (
	PeriodHour  Period = "hour"
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps s to a Period. Anything unrecognised, including the
// empty string, is treated as PeriodDay.
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodHour, PeriodMonth:
		return p
	default:
		return PeriodDay
	}
}

// Range bounds a query on timeRecorded. Both ends are inclusive; a nil end
// is unbounded on that side.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// BucketKey identifies a bucket. Day is set for hour and day buckets,
// Hour only for hour buckets.
type BucketKey struct {
	Year  int  `json:"year"`
	Month int  `json:"month"`
	Day   *int `json:"day,omitempty"`
	Hour  *int `json:"hour,omitempty"`
}

// Bucket summarises the readings that fall into one period.
type Bucket struct {
	Key       BucketKey `json:"_id"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`

	AvgTemperature float64 `json:"avgTemperature"`
	MinTemperature float64 `json:"minTemperature"`
	MaxTemperature float64 `json:"maxTemperature"`

	AvgHumidity float64 `json:"avgHumidity"`
	MinHumidity float64 `json:"minHumidity"`
	MaxHumidity float64 `json:"maxHumidity"`

	AvgLdrValue float64 `json:"avgLdrValue"`
}

// ListQuery selects one page of readings, newest first.
type ListQuery struct {
	Page  int
	Limit int
	Range Range
}

// Paging defaults.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Normalize applies defaults and clamps Limit to MaxPageLimit.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

// ImportResult reports the outcome of a CSV import. Failed lines do not
// abort the import.
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
