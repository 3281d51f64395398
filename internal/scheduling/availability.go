package scheduling

import (
	"errors"
	"time"
)

// Interval is a half-open [Start, End) range of time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that merely touch do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Slot is one template block on a concrete date.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Availability lays the template over the calendar day of date and marks each
// block unavailable when it overlaps any of the booked intervals. Booked must
// already exclude cancelled appointments. The result is ordered by start and
// is empty on days the template does not cover.
func Availability(t Template, date time.Time, booked []Interval) []Slot {
	intervals := t.Intervals(date)
	slots := make([]Slot, 0, len(intervals))
	for _, iv := range intervals {
		free := true
		for _, b := range booked {
			if iv.Overlaps(b) {
				free = false
				break
			}
		}
		slots = append(slots, Slot{Start: iv.Start, End: iv.End, Available: free})
	}
	return slots
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return ClockFunc(time.Now) }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

var (
	ErrEmptyInterval   = errors.New("end must be after start")
	ErrIntervalInPast  = errors.New("appointment must start in the future")
	ErrSpansDays       = errors.New("appointment must start and end on the same day")
	ErrDayNotScheduled = errors.New("no appointments are offered on that day")
)

// CheckBookable validates a requested interval against the template and the
// current time. It does not look at existing appointments.
func CheckBookable(t Template, now time.Time, iv Interval) error {
	if !iv.Start.Before(iv.End) {
		return ErrEmptyInterval
	}
	if iv.Start.Before(now) {
		return ErrIntervalInPast
	}
	day := t.Day(iv.Start.In(t.Location()))
	if iv.End.After(day.End) {
		return ErrSpansDays
	}
	if !t.Covers(day.Start) {
		return ErrDayNotScheduled
	}
	return nil
}
