// Package ics exports the schedule document as an iCalendar feed so the
// month view can be subscribed to from ordinary calendar clients.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"teamcal/internal/model"
)

// prodID identifies this exporter in the generated calendar.
const prodID = "-//teamcal//scheduler//EN"

// defaultDuration is applied to timed events; the document stores only a
// start time-of-day.
const defaultDuration = time.Hour

// BuildCalendar converts the document's events into a VCALENDAR.
//
//   - All-day events become VALUE=DATE entries spanning one day.
//   - Timed events start at their HH:MM in loc and run for defaultDuration.
//   - Writers are exported as ATTENDEE properties with CN set to the name.
//   - The category ID is carried in CATEGORIES.
//
// now is used for DTSTAMP; passing a fixed value makes output reproducible.
func BuildCalendar(doc model.Document, loc *time.Location, now time.Time) *ical.Calendar {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, ev := range doc.Events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(ev.Title)
		if ev.Desc != "" {
			ve.SetDescription(ev.Desc)
		}
		if ev.CategoryID != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, ev.CategoryID)
		}
		for _, name := range ev.Writers {
			ve.AddAttendee(name, ical.WithCN(name))
		}

		day := time.Date(ev.Date.Year, ev.Date.Month, ev.Date.Day, 0, 0, 0, 0, loc)
		if ev.AllDay() {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}

		// Time is validated as "HH:MM" before it ever reaches the document.
		t, err := time.Parse("15:04", ev.Time)
		if err != nil {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		start := day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		ve.SetStartAt(start)
		ve.SetEndAt(start.Add(defaultDuration))
	}

	return cal
}

// Serialize renders the document as iCalendar text.
func Serialize(doc model.Document, loc *time.Location, now time.Time) string {
	return BuildCalendar(doc, loc, now).Serialize()
}
