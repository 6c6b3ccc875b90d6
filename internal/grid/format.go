package grid

import (
	"strings"

	"teamcal/internal/model"
)

// writersLabel prefixes the assignee line of a tooltip.
const writersLabel = "担当: "

// Chip is the presentation form of one event inside a day cell.
//
// Label is the full, untruncated title: visual shortening (ellipsis) is the
// renderer's job, and the renderer needs the complete string for the title
// attribute. No escaping happens here either; the formatter must hand the
// text through unmodified and let the target markup layer escape it.
type Chip struct {
	Label   string
	Tooltip string
}

// FormatChip renders an event into its chip label and multi-line tooltip.
//
// Tooltip lines, in fixed order, with absent fields skipped entirely:
//
//	[HH:MM] <title>   (just <title> for all-day events)
//	担当: <name>, <name>
//	<description>
func FormatChip(ev model.Event) Chip {
	lines := make([]string, 0, 3)

	if ev.Time != "" {
		lines = append(lines, "["+ev.Time+"] "+ev.Title)
	} else {
		lines = append(lines, ev.Title)
	}
	if len(ev.Writers) > 0 {
		lines = append(lines, writersLabel+strings.Join(ev.Writers, ", "))
	}
	if ev.Desc != "" {
		lines = append(lines, ev.Desc)
	}

	return Chip{
		Label:   ev.Title,
		Tooltip: strings.Join(lines, "\n"),
	}
}
