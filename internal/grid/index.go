package grid

import (
	"sort"

	"teamcal/internal/model"
)

// IndexByDate groups events by calendar date. Within one date the order is
// total and deterministic: all-day events first, then by time-of-day
// ascending, ties broken by ID. Dates with no events have no entry; callers
// treat a missing key as zero events.
func IndexByDate(events []model.Event) map[model.Date][]model.Event {
	byDate := make(map[model.Date][]model.Event)
	for _, ev := range events {
		byDate[ev.Date] = append(byDate[ev.Date], ev)
	}
	for date := range byDate {
		day := byDate[date]
		sort.SliceStable(day, func(i, j int) bool {
			return lessInDay(day[i], day[j])
		})
		byDate[date] = day
	}
	return byDate
}

// lessInDay orders two same-day events. "HH:MM" compares correctly as a
// string, and the empty time sorts first, which is exactly the all-day-first
// rule.
func lessInDay(a, b model.Event) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.ID < b.ID
}
