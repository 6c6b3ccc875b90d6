package web

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"teamcal/internal/grid"
	appLog "teamcal/internal/log"
)

// monthTemplate is the server-rendered month grid. The row template is
// derived from the computed week count, never hard-coded; overflow days get
// the other-month class; each chip carries its full tooltip in the title
// attribute and lets CSS do the visual truncation.
var monthTemplate = template.Must(template.New("month").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.MonthName}} {{.Year}} — teamcal</title>
<style>
  body { font-family: sans-serif; margin: 16px; color: #222; }
  .toolbar { display: flex; align-items: center; gap: 12px; margin-bottom: 12px; }
  .toolbar a { text-decoration: none; color: #015; }
  #calendarGrid {
    display: grid;
    grid-template-columns: repeat(7, 1fr);
    {{.RowTemplate}}
    border: 1px solid #ccc;
  }
  .weekday { font-weight: bold; text-align: center; padding: 8px 0; background: #f4f4f4; }
  .day-cell { border: 1px solid #eee; padding: 4px; overflow: hidden; }
  .day-cell.other-month { background: #fafafa; color: #aaa; }
  .day-num { font-size: 0.85em; margin-bottom: 2px; }
  .event-chip {
    display: block; font-size: 0.8em; margin: 1px 0; padding: 1px 4px;
    border-radius: 3px; color: #fff; cursor: pointer;
  }
  .event-chip span {
    display: block; white-space: nowrap; overflow: hidden; text-overflow: ellipsis;
  }
</style>
</head>
<body>
<div class="toolbar">
  <a href="/?year={{.PrevYear}}&amp;month={{.PrevMonth}}">&laquo;</a>
  <h1>{{.MonthName}} {{.Year}}</h1>
  <a href="/?year={{.NextYear}}&amp;month={{.NextMonth}}">&raquo;</a>
  <a href="/calendar.ics">ICS</a>
</div>
<div id="calendarGrid" data-ready="true">
  {{range .Weekdays}}<div class="weekday">{{.}}</div>{{end}}
  {{range .Cells}}<div class="day-cell{{if not .InMonth}} other-month{{end}}" data-date="{{.Date}}">
    <div class="day-num">{{.Day}}</div>
    {{range .Events}}<a class="event-chip" style="{{.Style}}" title="{{.Tooltip}}"><span>{{if .Time}}{{.Time}} {{end}}{{.Label}}</span></a>
    {{end}}</div>
  {{end}}
</div>
</body>
</html>
`))

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type viewEvent struct {
	Label   string
	Tooltip string
	Time    string
	Style   template.CSS
}

type viewCell struct {
	Date    string
	Day     int
	InMonth bool
	Events  []viewEvent
}

type viewData struct {
	Year        int
	Month       int
	MonthName   string
	RowTemplate template.CSS
	Weekdays    []string
	Cells       []viewCell
	PrevYear    int
	PrevMonth   int
	NextYear    int
	NextMonth   int
}

// handleMonthView renders the HTML month grid.
//
// GET /?year=2026&month=2 — both default to the current month.
func (s *Server) handleMonthView(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc := s.store.Snapshot()
	cells := grid.BuildMonth(doc, year, month)
	rows := grid.Rows(year, month)

	colors := make(map[string]string, len(s.cfg.Categories))
	for _, c := range s.cfg.Categories {
		colors[c.ID] = c.Color
	}

	data := viewData{
		Year:      year,
		Month:     int(month),
		MonthName: month.String(),
		// Leading 40px row holds the weekday header.
		RowTemplate: template.CSS(fmt.Sprintf("grid-template-rows: 40px repeat(%d, minmax(120px, auto));", rows)),
		Weekdays:    weekdayNames,
		Cells:       make([]viewCell, 0, len(cells)),
	}

	prev := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	data.PrevYear, data.PrevMonth = prev.Year(), int(prev.Month())
	data.NextYear, data.NextMonth = next.Year(), int(next.Month())

	for _, c := range cells {
		vc := viewCell{
			Date:    c.Date.String(),
			Day:     c.Date.Day,
			InMonth: c.InMonth,
			Events:  make([]viewEvent, 0, len(c.Events)),
		}
		for _, ev := range c.Events {
			chip := grid.FormatChip(ev)
			color := colors[ev.CategoryID]
			if color == "" {
				color = "#777777"
			}
			vc.Events = append(vc.Events, viewEvent{
				Label:   chip.Label,
				Tooltip: chip.Tooltip,
				Time:    ev.Time,
				Style:   template.CSS("background:" + color + ";"),
			})
		}
		data.Cells = append(data.Cells, vc)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := monthTemplate.Execute(w, data); err != nil {
		appLog.Error("month view render failed", err, "year", year, "month", int(month))
	}
}
