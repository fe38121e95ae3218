// Package biorhythm provides the biorhythm cycle calculations.
//
// The three classic cycles are modeled as sinusoids of the number of
// whole days a person has been alive:
//
//	amplitude = sin(2π · daysAlive / period)
//
// with fixed periods of 23 (physical), 28 (emotional) and 33
// (intellectual) days. All functions here are pure: no I/O, no state,
// same inputs always produce the same outputs.
package biorhythm

import (
	"math"
	"time"
)

// Version identifies the calculation engine. Stored on every
// calculation so results can be traced back to the formula that
// produced them.
const Version = "1.0.0"

// Cycle periods in days.
const (
	PhysicalPeriod     = 23
	EmotionalPeriod    = 28
	IntellectualPeriod = 33
)

// zeroEpsilon guards against floating point noise around exact
// multiples of a period, where sin(2πk) evaluates to ±1e-16 rather
// than zero.
const zeroEpsilon = 1e-9

// Point holds one calendar day's derived values.
type Point struct {
	Date      time.Time `json:"date"`
	DaysAlive int       `json:"days_alive"`

	Physical     float64 `json:"physical"`
	Emotional    float64 `json:"emotional"`
	Intellectual float64 `json:"intellectual"`

	PhysicalCritical     bool `json:"is_physical_critical"`
	EmotionalCritical    bool `json:"is_emotional_critical"`
	IntellectualCritical bool `json:"is_intellectual_critical"`
}

// Amplitude returns the cycle value for a given day count and period,
// always within [-1.0, 1.0]. Day 0 (the birthdate) is the phase start,
// so the amplitude there is exactly zero.
func Amplitude(daysAlive, period int) float64 {
	return math.Sin(2 * math.Pi * float64(daysAlive) / float64(period))
}

// IsCritical reports whether the cycle crosses zero during the
// calendar day at daysAlive. The zero-referenced convention is used: a
// day is critical when the sinusoid's sign changes between the start
// of that day and the start of the next, or when the value at the day
// itself is zero.
func IsCritical(daysAlive, period int) bool {
	cur := Amplitude(daysAlive, period)
	if math.Abs(cur) < zeroEpsilon {
		return true
	}
	next := Amplitude(daysAlive+1, period)
	if math.Abs(next) < zeroEpsilon {
		// The crossing lands exactly on the next day boundary;
		// it belongs to the next day, not this one.
		return false
	}
	return math.Signbit(cur) != math.Signbit(next)
}

// DaysAlive returns the number of whole days from birthdate to date.
// Negative when date precedes the birthdate; the cycles are well
// defined there too (negative phase).
func DaysAlive(birthdate, date time.Time) int {
	b := truncateToDay(birthdate)
	d := truncateToDay(date)
	return int(d.Sub(b).Hours() / 24)
}

// Compute derives the full set of cycle values for one date.
func Compute(birthdate, date time.Time) Point {
	days := DaysAlive(birthdate, date)
	return Point{
		Date:                 truncateToDay(date),
		DaysAlive:            days,
		Physical:             Amplitude(days, PhysicalPeriod),
		Emotional:            Amplitude(days, EmotionalPeriod),
		Intellectual:         Amplitude(days, IntellectualPeriod),
		PhysicalCritical:     IsCritical(days, PhysicalPeriod),
		EmotionalCritical:    IsCritical(days, EmotionalPeriod),
		IntellectualCritical: IsCritical(days, IntellectualPeriod),
	}
}

// ComputeRange derives points for the inclusive range
// [start, start+days-1], one per calendar day in order. days must be
// positive; callers validate before reaching here, but a non-positive
// count simply yields an empty slice.
func ComputeRange(birthdate, start time.Time, days int) []Point {
	if days <= 0 {
		return nil
	}

	points := make([]Point, 0, days)
	current := truncateToDay(start)
	for i := 0; i < days; i++ {
		points = append(points, Compute(birthdate, current))
		current = current.AddDate(0, 0, 1)
	}
	return points
}

// truncateToDay normalizes a time to midnight UTC so day arithmetic is
// immune to time-of-day and timezone drift.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
