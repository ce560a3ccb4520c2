// Package core defines the reporting domain.
//
// This file implements the Strategy Pattern for default report periods.
// Each period kind has its own strategy that derives calendar bounds from
// the current date, and new kinds can be registered without touching the
// callers.

package core

import (
	"fmt"
	"time"
)

type PeriodKind string

const (
	Quarterly  PeriodKind = "quarterly"
	HalfYearly PeriodKind = "half-yearly"
	Annually   PeriodKind = "annually"
	// FinancialYear is the Australian July to June year. It is never a
	// default and is only used when asked for by name.
	FinancialYear PeriodKind = "financial-year"
)

// DefaultPeriodKind is used when a report request names no period.
const DefaultPeriodKind = Quarterly

// FinancialYearStartMonth is the first month of the financial year.
const FinancialYearStartMonth = time.July

// DateRange is an inclusive range of whole days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both ends to midnight and rejects an end before
// the start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: midnight(start), End: midnight(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange,
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return r, nil
}

// From is the first instant inside the range.
func (r DateRange) From() time.Time {
	return midnight(r.Start)
}

// Until is the last instant inside the range.
func (r DateRange) Until() time.Time {
	return midnight(r.End).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Contains reports whether t falls on any day of the range, both ends included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From()) && !t.After(r.Until())
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + " to " + r.End.Format(time.DateOnly)
}

// Period is a named default range.
type Period struct {
	Kind PeriodKind
	DateRange
}

// PeriodStrategy derives the period containing today.
type PeriodStrategy interface {
	Bounds(today time.Time) DateRange
}

// QuarterStrategy covers Jan-Mar, Apr-Jun, Jul-Sep and Oct-Dec.
type QuarterStrategy struct{}

func (QuarterStrategy) Bounds(today time.Time) DateRange {
	first := time.Month((int(today.Month())-1)/3*3 + 1)
	start := time.Date(today.Year(), first, 1, 0, 0, 0, 0, today.Location())
	return DateRange{Start: start, End: start.AddDate(0, 3, -1)}
}

// HalfYearStrategy covers Jan-Jun and Jul-Dec.
type HalfYearStrategy struct{}

func (HalfYearStrategy) Bounds(today time.Time) DateRange {
	first := time.January
	if today.Month() >= time.July {
		first = time.July
	}
	start := time.Date(today.Year(), first, 1, 0, 0, 0, 0, today.Location())
	return DateRange{Start: start, End: start.AddDate(0, 6, -1)}
}

// YearStrategy covers the calendar year.
type YearStrategy struct{}

func (YearStrategy) Bounds(today time.Time) DateRange {
	start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	return DateRange{Start: start, End: start.AddDate(1, 0, -1)}
}

// FinancialYearStrategy covers the twelve months from StartMonth.
type FinancialYearStrategy struct {
	StartMonth time.Month
}

func (s FinancialYearStrategy) Bounds(today time.Time) DateRange {
	year := today.Year()
	if today.Month() < s.StartMonth {
		year--
	}
	start := time.Date(year, s.StartMonth, 1, 0, 0, 0, 0, today.Location())
	return DateRange{Start: start, End: start.AddDate(1, 0, -1)}
}

var periodStrategies = map[PeriodKind]PeriodStrategy{
	Quarterly:     QuarterStrategy{},
	HalfYearly:    HalfYearStrategy{},
	Annually:      YearStrategy{},
	FinancialYear: FinancialYearStrategy{StartMonth: FinancialYearStartMonth},
}

// GetPeriodStrategy returns the strategy registered for kind.
func GetPeriodStrategy(kind PeriodKind) (PeriodStrategy, error) {
	s, ok := periodStrategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, kind)
	}
	return s, nil
}

// RegisterPeriodStrategy adds or replaces the strategy for kind.
func RegisterPeriodStrategy(kind PeriodKind, s PeriodStrategy) {
	periodStrategies[kind] = s
}

// PeriodFor returns the kind's period containing today. An empty kind
// selects DefaultPeriodKind.
func PeriodFor(kind PeriodKind, today time.Time) (Period, error) {
	if kind == "" {
		kind = DefaultPeriodKind
	}
	s, err := GetPeriodStrategy(kind)
	if err != nil {
		return Period{}, err
	}
	return Period{Kind: kind, DateRange: s.Bounds(today)}, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
