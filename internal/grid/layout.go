// Package grid computes the monthly calendar view: pure date math for the
// Sunday-first cell layout, per-date event grouping, and chip/tooltip
// formatting. Nothing in this package has side effects or hidden state, so a
// view can be recomputed from the document on every render.
package grid

import (
	"time"

	"teamcal/internal/model"
)

// Cell is one day slot of the month grid. InMonth is false for the leading
// and trailing overflow days borrowed from the neighboring months.
type Cell struct {
	Date    model.Date
	InMonth bool
}

// LayoutMonth returns the ordered cells of the Sunday-first grid for the
// given month: backfill from the most recent Sunday before (or on) the 1st,
// every day of the month, then forward-fill to complete the last week.
//
// The cell count is always 7×4, 7×5, or 7×6, derived from the weekday of the
// 1st and the month length; it is never configured. month must be in
// [January, December]; any year is accepted (proleptic Gregorian, so leap
// days fall out of time.Date).
func LayoutMonth(year int, month time.Month) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(first.Weekday()) // Sunday = 0
	days := daysInMonth(year, month)

	weeks := (offset + days + 6) / 7
	total := weeks * 7

	cells := make([]Cell, 0, total)
	cur := first.AddDate(0, 0, -offset)
	for i := 0; i < total; i++ {
		cells = append(cells, Cell{
			Date:    model.Date{Year: cur.Year(), Month: cur.Month(), Day: cur.Day()},
			InMonth: cur.Month() == month && cur.Year() == year,
		})
		cur = cur.AddDate(0, 0, 1)
	}
	return cells
}

// Rows returns the derived week-row count for a month: 4, 5, or 6.
func Rows(year int, month time.Month) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(first.Weekday())
	return (offset + daysInMonth(year, month) + 6) / 7
}

// daysInMonth uses day-zero normalization: day 0 of the next month is the
// last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayCell is a layout cell joined with the events falling on its date, in
// display order.
type DayCell struct {
	Date    model.Date
	InMonth bool
	Events  []model.Event
}

// BuildMonth assembles the full month view for a document: layout cells with
// each cell's events attached. Calling it twice on the same document yields
// identical output.
func BuildMonth(doc model.Document, year int, month time.Month) []DayCell {
	cells := LayoutMonth(year, month)
	byDate := IndexByDate(doc.Events)

	out := make([]DayCell, 0, len(cells))
	for _, c := range cells {
		out = append(out, DayCell{
			Date:    c.Date,
			InMonth: c.InMonth,
			Events:  byDate[c.Date],
		})
	}
	return out
}
