// Package query derives the visible subset of events from the full set.
// It never mutates events; it only computes views.
package query

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mikecinchan/calendar/internal/domain"
)

// DefaultDayIndexTTL bounds how stale a memoized per-day lookup may be.
// Anything the cache serves is at most this old; every event-set or
// filter change purges it outright.
const DefaultDayIndexTTL = 30 * time.Second

// DefaultDayIndexSize caps the number of memoized day buckets.
const DefaultDayIndexSize = 512

// DateRange is an inclusive date window. A nil bound leaves that side
// unbounded.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Filters is the active filter configuration. All predicates are ANDed.
type Filters struct {
	Category  domain.Category
	DateRange DateRange
	Search    string
}

func (f Filters) fingerprint() string {
	var b strings.Builder
	b.WriteString(string(f.Category))
	b.WriteByte('|')
	if f.DateRange.Start != nil {
		b.WriteString(f.DateRange.Start.Format(domain.DateLayout))
	}
	b.WriteByte('|')
	if f.DateRange.End != nil {
		b.WriteString(f.DateRange.End.Format(domain.DateLayout))
	}
	b.WriteByte('|')
	b.WriteString(strings.ToLower(f.Search))
	return b.String()
}

// Apply returns the events matching every active predicate: exact
// category match, inclusive date range, and case-insensitive substring
// search over title and description.
func Apply(events []domain.Event, f Filters) []domain.Event {
	filtered := make([]domain.Event, 0, len(events))
	search := strings.ToLower(f.Search)

	for _, ev := range events {
		if f.Category != "" && ev.Category != f.Category {
			continue
		}

		if f.DateRange.Start != nil || f.DateRange.End != nil {
			day, err := ev.Day()
			if err != nil {
				continue
			}
			if f.DateRange.Start != nil && day.Before(*f.DateRange.Start) {
				continue
			}
			if f.DateRange.End != nil && day.After(*f.DateRange.End) {
				continue
			}
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(ev.Title), search) &&
			!strings.Contains(strings.ToLower(ev.Description), search) {
			continue
		}

		filtered = append(filtered, ev)
	}

	return filtered
}

// PresetRange resolves a named date-range preset relative to now.
func PresetRange(preset string, now time.Time) (DateRange, bool) {
	year, month := now.Year(), now.Month()
	span := func(start, end time.Time) DateRange {
		return DateRange{Start: &start, End: &end}
	}

	switch preset {
	case "thisMonth":
		return span(
			time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)), true
	case "nextMonth":
		return span(
			time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, month+2, 0, 0, 0, 0, 0, time.UTC)), true
	case "thisYear":
		return span(
			time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)), true
	case "next3Months":
		return span(
			time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, month+3, 0, 0, 0, 0, 0, time.UTC)), true
	default:
		return DateRange{}, false
	}
}

// Engine adds a short-lived memoized per-day index on top of Apply. The
// cache serves stale entries for at most the TTL; Invalidate must be
// called whenever the underlying event set changes, and a filter change
// is detected and purges implicitly.
type Engine struct {
	mu          sync.Mutex
	cache       *expirable.LRU[string, []domain.Event]
	lastFilters string
}

// NewEngine creates an engine with the given day-index capacity and TTL.
// Zero values fall back to the defaults.
func NewEngine(size int, ttl time.Duration) *Engine {
	if size <= 0 {
		size = DefaultDayIndexSize
	}
	if ttl <= 0 {
		ttl = DefaultDayIndexTTL
	}
	return &Engine{
		cache: expirable.NewLRU[string, []domain.Event](size, nil, ttl),
	}
}

// EventsForDay returns the filtered events on one calendar day,
// memoized per (year, month, day) bucket within the TTL window.
func (e *Engine) EventsForDay(events []domain.Event, f Filters, year int, month time.Month, day int) []domain.Event {
	key := fmt.Sprintf("%04d-%02d-%02d", year, month, day)

	e.mu.Lock()
	if fp := f.fingerprint(); fp != e.lastFilters {
		e.cache.Purge()
		e.lastFilters = fp
	}
	if cached, ok := e.cache.Get(key); ok {
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	matched := make([]domain.Event, 0, 4)
	for _, ev := range Apply(events, f) {
		if ev.Date == key {
			matched = append(matched, ev)
		}
	}

	e.mu.Lock()
	e.cache.Add(key, matched)
	e.mu.Unlock()

	return matched
}

// Invalidate drops every memoized day bucket. Call on any event-set
// mutation.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.cache.Purge()
	e.mu.Unlock()
}
