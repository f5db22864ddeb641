// Package recurrence turns one recurring event into the concrete dated
// instances the store actually keeps. Expansion is pure: it touches no
// storage and is deterministic for a fixed "now".
package recurrence

import (
	"fmt"
	"time"

	"github.com/mikecinchan/calendar/internal/domain"
)

const (
	annualInstances  = 5
	monthlyInstances = 12
)

// Expand produces the concrete instances for a recurring base event.
// Annual cadence yields exactly 5 instances, one per year starting from
// the current year; monthly yields exactly 12 consecutive months starting
// from the base month. Any other cadence yields nil and the caller stores
// the base event as a single record.
//
// Every instance gets a fresh id and a parentEventId pointing at the base
// event; instances after the first carry a year (or month-year) suffix on
// the title so grouped deletions can be recognized by eye.
func Expand(base domain.Event, now time.Time) []domain.Event {
	switch base.Recurrence {
	case domain.RecurrenceAnnual:
		return expandAnnual(base, now)
	case domain.RecurrenceMonthly:
		return expandMonthly(base, now)
	default:
		return nil
	}
}

func expandAnnual(base domain.Event, now time.Time) []domain.Event {
	day, err := base.Day()
	if err != nil {
		return nil
	}

	// The first instance is re-anchored to the current calendar year,
	// not the year the user typed.
	startYear := now.Year()

	out := make([]domain.Event, 0, annualInstances)
	for offset := 0; offset < annualInstances; offset++ {
		year := startYear + offset
		// time.Date normalizes Feb 29 to Mar 1 in non-leap years.
		date := time.Date(year, day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

		title := base.Title
		if offset > 0 {
			title = fmt.Sprintf("%s (%d)", base.Title, year)
		}

		out = append(out, instance(base, title, date, now))
	}
	return out
}

func expandMonthly(base domain.Event, now time.Time) []domain.Event {
	day, err := base.Day()
	if err != nil {
		return nil
	}

	out := make([]domain.Event, 0, monthlyInstances)
	for offset := 0; offset < monthlyInstances; offset++ {
		anchor := time.Date(day.Year(), day.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)

		// Clamp to the last day of the target month when the base
		// day-of-month does not exist there (e.g. Jan 31 -> Feb 28).
		dom := day.Day()
		if last := daysInMonth(anchor); dom > last {
			dom = last
		}
		date := time.Date(anchor.Year(), anchor.Month(), dom, 0, 0, 0, 0, time.UTC)

		title := base.Title
		if offset > 0 {
			title = fmt.Sprintf("%s (%s)", base.Title, date.Format("Jan 2006"))
		}

		out = append(out, instance(base, title, date, now))
	}
	return out
}

func instance(base domain.Event, title string, date time.Time, now time.Time) domain.Event {
	return domain.Event{
		ID:            domain.NewID(),
		Title:         title,
		Date:          date.Format(domain.DateLayout),
		Time:          base.Time,
		Category:      base.Category,
		Description:   base.Description,
		Recurrence:    base.Recurrence,
		ParentEventID: base.ID,
		CreatedAt:     domain.Timestamp(now),
		UpdatedAt:     domain.Timestamp(now),
	}
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
