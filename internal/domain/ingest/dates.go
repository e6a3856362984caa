package ingest

import (
	"strings"
	"time"
)

// Accepted date layouts, tried in order; the first successful parse wins.
// ISO first, then the day-first and US forms seen in real record files.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"02/01/2006",
	"02.01.2006",
}

// ParseDate parses a source cell into a date. Empty or unparseable input
// yields nil; a bad date never fails a row.
func ParseDate(val string) *time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return &t
		}
	}
	return nil
}
