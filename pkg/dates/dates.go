// Package dates turns relative, human-typed date expressions into
// absolute times.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Result is a parsed date. HasTime is false when the expression named a
// day without a time of day.
type Result struct {
	Time    time.Time
	HasTime bool
}

// Parser converts an expression such as "tomorrow" or "next friday 5pm"
// into an absolute time relative to now.
type Parser interface {
	Parse(expr string, now time.Time) (Result, error)
}

// ParseError is returned for expressions no parser understands.
type ParseError struct {
	Expr string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse date %q", e.Expr)
}

var fixedLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
	{"2006/01/02", false},
}

var timeOfDay = regexp.MustCompile(`(?i)\d{1,2}(:\d{2})?\s*(am|pm)|\d{1,2}:\d{2}|\bnoon\b|\bmidnight\b`)

// NaturalParser understands keywords, ISO-like layouts and English
// natural-language expressions.
type NaturalParser struct {
	w *when.Parser
}

// NewNaturalParser returns a parser with the English and common rule sets.
func NewNaturalParser() *NaturalParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &NaturalParser{w: w}
}

// Parse implements Parser. Results are expressed in now's location.
func (p *NaturalParser) Parse(expr string, now time.Time) (Result, error) {
	raw := strings.TrimSpace(expr)
	text := strings.ToLower(raw)
	if text == "" {
		return Result{}, &ParseError{Expr: expr}
	}
	loc := now.Location()
	today := StartOfDay(now)

	switch text {
	case "now":
		return Result{Time: now, HasTime: true}, nil
	case "today":
		return Result{Time: today}, nil
	case "tomorrow":
		return Result{Time: today.AddDate(0, 0, 1)}, nil
	case "yesterday":
		return Result{Time: today.AddDate(0, 0, -1)}, nil
	}

	for _, l := range fixedLayouts {
		if t, err := time.ParseInLocation(l.layout, raw, loc); err == nil {
			return Result{Time: t.In(loc), HasTime: l.hasTime}, nil
		}
	}

	r, err := p.w.Parse(text, now)
	if err != nil {
		return Result{}, fmt.Errorf("parsing date %q: %w", expr, err)
	}
	if r == nil {
		return Result{}, &ParseError{Expr: expr}
	}
	hasTime := timeOfDay.MatchString(r.Text)
	t := r.Time.In(loc)
	if !hasTime {
		t = StartOfDay(t)
	}
	return Result{Time: t, HasTime: hasTime}, nil
}

// StartOfDay returns midnight at the start of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// DateString formats a result the way the remote due-date API expects:
// a bare date for all-day results, a floating date-time otherwise.
func DateString(r Result) string {
	if r.HasTime {
		return r.Time.Format("2006-01-02T15:04:05")
	}
	return r.Time.Format("2006-01-02")
}
