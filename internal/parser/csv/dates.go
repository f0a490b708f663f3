package csv

import (
	"strings"
	"time"

	"salesload/internal/table"
)

// StrictDateLayout is the day-month-year layout tried first for the whole
// date column.
const StrictDateLayout = "02-01-2006"

// lenientDateLayouts are tried in order for each cell once the strict layout
// has failed for the column. Day-first layouts come before month-name and ISO
// forms so that "01-03-2024" is always the 1st of March.
var lenientDateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2-1-06",
	"2/1/06",
	"2-1-2006 15:04:05",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04",
	"2/1/2006 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDates converts raw date cells into time.Time values.
//
// Every present cell is first parsed with StrictDateLayout. If any present
// cell does not match, the whole column is re-parsed leniently: each cell is
// tried against the day-first layouts and cells that match none become nil.
// strict reports which path produced the result.
func ParseDates(raw []string) (vals []any, strict bool) {
	vals = make([]any, len(raw))
	strict = true
	for i, s := range raw {
		if table.IsMissing(s) {
			continue
		}
		t, err := time.Parse(StrictDateLayout, s)
		if err != nil {
			strict = false
			break
		}
		vals[i] = t
	}
	if strict {
		return vals, true
	}

	for i, s := range raw {
		vals[i] = nil
		if table.IsMissing(s) {
			continue
		}
		if t, ok := parseLenient(strings.TrimSpace(s)); ok {
			vals[i] = t
		}
	}
	return vals, false
}

func parseLenient(s string) (time.Time, bool) {
	for _, layout := range lenientDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
