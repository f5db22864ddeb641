package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mikecinchan/calendar/internal/domain"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestExpand_NonRecurring(t *testing.T) {
	base := domain.Event{
		ID:       "evt_base",
		Title:    "Dentist",
		Date:     "2025-04-01",
		Category: domain.CategoryPersonal,
	}

	assert.Nil(t, Expand(base, testNow))
}

func TestExpand_InvalidDate(t *testing.T) {
	base := domain.Event{
		ID:         "evt_base",
		Title:      "Broken",
		Date:       "not-a-date",
		Category:   domain.CategoryPersonal,
		Recurrence: domain.RecurrenceAnnual,
	}

	assert.Nil(t, Expand(base, testNow))
}

func TestExpand_Annual(t *testing.T) {
	base := domain.Event{
		ID:         "evt_base",
		Title:      "Anniversary",
		Date:       "2025-06-01",
		Time:       "18:00",
		Category:   domain.CategoryPersonal,
		Recurrence: domain.RecurrenceAnnual,
	}

	instances := Expand(base, testNow)

	assert.Len(t, instances, 5)
	assert.Equal(t, "Anniversary", instances[0].Title)
	assert.Equal(t, "2025-06-01", instances[0].Date)
	assert.Equal(t, "Anniversary (2026)", instances[1].Title)
	assert.Equal(t, "2026-06-01", instances[1].Date)
	assert.Equal(t, "Anniversary (2029)", instances[4].Title)
	assert.Equal(t, "2029-06-01", instances[4].Date)

	ids := make(map[string]struct{})
	for _, inst := range instances {
		assert.Equal(t, "evt_base", inst.ParentEventID)
		assert.Equal(t, domain.RecurrenceAnnual, inst.Recurrence)
		assert.Equal(t, "18:00", inst.Time)
		assert.NotEqual(t, "evt_base", inst.ID)
		ids[inst.ID] = struct{}{}
	}
	assert.Len(t, ids, 5, "every instance gets a fresh id")
}

func TestExpand_Annual_ReanchorsToCurrentYear(t *testing.T) {
	base := domain.Event{
		ID:         "evt_base",
		Title:      "Founding day",
		Date:       "2019-06-01",
		Category:   domain.CategoryHoliday,
		Recurrence: domain.RecurrenceAnnual,
	}

	instances := Expand(base, testNow)

	assert.Len(t, instances, 5)
	assert.Equal(t, "2025-06-01", instances[0].Date)
	assert.Equal(t, "2029-06-01", instances[4].Date)
}

func TestExpand_Annual_LeapDayNormalizes(t *testing.T) {
	base := domain.Event{
		ID:         "evt_base",
		Title:      "Leap day",
		Date:       "2024-02-29",
		Category:   domain.CategoryHoliday,
		Recurrence: domain.RecurrenceAnnual,
	}

	now := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	instances := Expand(base, now)

	assert.Len(t, instances, 5)
	assert.Equal(t, "2024-02-29", instances[0].Date)
	// 2025 has no Feb 29; the date rolls over to Mar 1.
	assert.Equal(t, "2025-03-01", instances[1].Date)
	assert.Equal(t, "2028-02-29", instances[4].Date)
}

func TestExpand_Monthly(t *testing.T) {
	base := domain.Event{
		ID:         "evt_base",
		Title:      "Rent",
		Date:       "2025-03-15",
		Category:   domain.CategoryExpense,
		Recurrence: domain.RecurrenceMonthly,
	}

	instances := Expand(base, testNow)

	assert.Len(t, instances, 12)
	assert.Equal(t, "Rent", instances[0].Title)
	assert.Equal(t, "2025-03-15", instances[0].Date)
	assert.Equal(t, "Rent (Apr 2025)", instances[1].Title)
	assert.Equal(t, "2025-04-15", instances[1].Date)
	assert.Equal(t, "Rent (Feb 2026)", instances[11].Title)
	assert.Equal(t, "2026-02-15", instances[11].Date)

	for _, inst := range instances {
		assert.Equal(t, "evt_base", inst.ParentEventID)
		assert.Equal(t, domain.RecurrenceMonthly, inst.Recurrence)
	}
}

func TestExpand_Monthly_ClampsToMonthEnd(t *testing.T) {
	base := domain.Event{
		ID:         "evt_base",
		Title:      "Payday",
		Date:       "2025-01-31",
		Category:   domain.CategoryExpense,
		Recurrence: domain.RecurrenceMonthly,
	}

	now := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	instances := Expand(base, now)

	assert.Len(t, instances, 12)
	assert.Equal(t, "2025-01-31", instances[0].Date)
	assert.Equal(t, "2025-02-28", instances[1].Date)
	assert.Equal(t, "2025-03-31", instances[2].Date)
	assert.Equal(t, "2025-04-30", instances[3].Date)
	assert.Equal(t, "2025-12-31", instances[11].Date)
	assert.Equal(t, "Payday (Feb 2025)", instances[1].Title)
}
