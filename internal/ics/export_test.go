package ics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamcal/internal/ics"
	"teamcal/internal/model"
)

var fixedNow = time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)

func exportDoc() model.Document {
	return model.Document{
		Users: []string{"Ann", "Bob"},
		Events: []model.Event{
			{
				ID:         "evt-timed",
				Date:       model.Date{Year: 2026, Month: time.February, Day: 10},
				Time:       "10:00",
				Title:      "Standup",
				Desc:       "Daily sync",
				Writers:    []string{"Ann", "Bob"},
				CategoryID: "cat_work",
			},
			{
				ID:    "evt-allday",
				Date:  model.Date{Year: 2026, Month: time.February, Day: 12},
				Title: "Offsite",
			},
		},
	}
}

func TestSerializeCalendarShape(t *testing.T) {
	out := ics.Serialize(exportDoc(), time.UTC, fixedNow)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "END:VCALENDAR")
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "PRODID:-//teamcal//scheduler//EN")
	// One VEVENT per document event.
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:evt-timed")
	assert.Contains(t, out, "UID:evt-allday")
}

func TestSerializeTimedEvent(t *testing.T) {
	out := ics.Serialize(exportDoc(), time.UTC, fixedNow)

	assert.Contains(t, out, "SUMMARY:Standup")
	assert.Contains(t, out, "DESCRIPTION:Daily sync")
	assert.Contains(t, out, "DTSTART:20260210T100000Z")
	// One hour default duration.
	assert.Contains(t, out, "DTEND:20260210T110000Z")
	assert.Contains(t, out, "CATEGORIES:cat_work")
	assert.Contains(t, out, "CN=Ann")
	assert.Contains(t, out, "CN=Bob")
}

func TestSerializeAllDayEvent(t *testing.T) {
	out := ics.Serialize(exportDoc(), time.UTC, fixedNow)

	assert.Contains(t, out, "SUMMARY:Offsite")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20260212")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20260213")
}

func TestSerializeEmptyDocument(t *testing.T) {
	out := ics.Serialize(model.Document{}, time.UTC, fixedNow)
	require.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestSerializeDeterministic(t *testing.T) {
	a := ics.Serialize(exportDoc(), time.UTC, fixedNow)
	b := ics.Serialize(exportDoc(), time.UTC, fixedNow)
	assert.Equal(t, a, b)
}
