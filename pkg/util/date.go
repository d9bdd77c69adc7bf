package util

import (
	"errors"
	"strings"
	"time"
)

// DateTemplates are the layouts ParseDateTpl tries by default, most specific
// first.
var DateTemplates = []string{
	"YYYY-MM-DD hh:mm:ss",
	"YYYY-MM-DD hh:mm",
	"YYYY-MM-DD",
	"YYYY/MM/DD hh:mm",
	"YYYY/MM/DD",
	"DD.MM.YYYY hh:mm",
	"DD.MM.YYYY",
	"DD/MM/YYYY hh:mm",
	"DD/MM/YYYY",
}

// ErrNoDateMatch is returned when no template fits the input.
var ErrNoDateMatch = errors.New("date matches no known layout")

// placeholders are replaced in order so YYYY wins over YY.
var placeholders = []struct{ tpl, layout string }{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"hh", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// DateLayout turns a template into a time layout.
//
// Supported placeholders:
// - YYYY: 4-digit year
// - YY: 2-digit year
// - MM: 2-digit month (01-12)
// - DD: 2-digit day (01-31)
// - hh: 2-digit hour (00-23)
// - mm: 2-digit minute (00-59)
// - ss: 2-digit second (00-59)
func DateLayout(tpl string) string {
	layout := tpl
	for _, p := range placeholders {
		layout = strings.ReplaceAll(layout, p.tpl, p.layout)
	}
	return layout
}

// FormatDateTpl formats t using a template with placeholders.
//
// Example:
//
//	FormatDateTpl(t, "YYYY.MM.DD")       // "2023.11.10"
//	FormatDateTpl(t, "YYYY-MM-DD hh:mm") // "2023-11-10 00:00"
func FormatDateTpl(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout(tpl))
}

// ParseDateTpl parses value with the first matching template, falling back
// to RFC 3339. With no templates given DateTemplates are used. Values without
// a zone are read in loc.
func ParseDateTpl(value string, loc *time.Location, tpls ...string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(tpls) == 0 {
		tpls = DateTemplates
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, tpl := range tpls {
		if t, err := time.ParseInLocation(DateLayout(tpl), value, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, ErrNoDateMatch
}
