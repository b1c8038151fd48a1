package datetime

import (
	"strings"
	"time"
)

// Strategy is one way of reading ambiguous date text. Parse must be pure.
type Strategy struct {
	Name  string
	Parse func(s string) (time.Time, bool)
}

// Layout groups. Single-digit month/day layouts ("1", "2") also accept the
// zero-padded spelling, so one layout covers both.
var (
	isoLayouts = []string{
		time.RFC3339Nano,
		"2006-1-2T15:04:05.999999999",
		"2006-1-2T15:04:05",
		"2006-1-2T15:04",
		"2006-1-2 15:04:05.999999999Z07:00",
		"2006-1-2 15:04:05.999999999",
		"2006-1-2 15:04:05",
		"2006-1-2 15:04",
		"2006-1-2",
		"2006/1/2T15:04:05Z",
		"2006/1/2 15:04:05",
		"2006/1/2 15:04",
		"2006/1/2",
		"2006.1.2 15:04:05",
		"2006.1.2",
		"20060102T150405",
	}

	textLayouts = []string{
		time.RFC1123,
		time.RFC1123Z,
		time.RFC850,
		time.ANSIC,
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 2 2006",
		"2 Jan 2006",
		"2 January 2006",
		"2-Jan-2006",
		"2006-Jan-2",
		"Jan 2, 2006 15:04:05",
		"2 Jan 2006 15:04:05",
		"Mon Jan 2 2006",
	}

	monthFirstLayouts = []string{
		"1/2/2006",
		"1/2/2006 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 3:04 PM",
		"1-2-2006",
		"1-2-2006 15:04",
		"1-2-2006 15:04:05",
		"1.2.2006",
		"1/2/06",
	}

	dayFirstLayouts = []string{
		"2/1/2006",
		"2/1/2006 15:04",
		"2/1/2006 15:04:05",
		"2/1/2006 3:04 PM",
		"2-1-2006",
		"2-1-2006 15:04",
		"2-1-2006 15:04:05",
		"2.1.2006",
		"2/1/06",
	}

	// Two-digit-year-first spellings: YY/MM/DD and, with day-first, YY/DD/MM.
	yearMonthDayLayouts = []string{"06/1/2", "06-1-2", "06.1.2"}
	yearDayMonthLayouts = []string{"06/2/1", "06-2-1", "06.2.1"}
)

// Strategies are tried in this order; on equal scores the earlier one wins.
var Strategies = []Strategy{
	{Name: "mixed", Parse: layoutParser(isoLayouts, textLayouts, monthFirstLayouts, dayFirstLayouts)},
	{Name: "default", Parse: layoutParser(isoLayouts, textLayouts, monthFirstLayouts)},
	{Name: "dayfirst", Parse: layoutParser(isoLayouts, textLayouts, dayFirstLayouts)},
	{Name: "yearfirst", Parse: layoutParser(isoLayouts, textLayouts, yearMonthDayLayouts, monthFirstLayouts)},
	{Name: "dayfirst_yearfirst", Parse: layoutParser(isoLayouts, textLayouts, yearDayMonthLayouts, dayFirstLayouts)},
}

// layoutParser returns a parser that tries each layout in order and returns
// the first successful parse converted to UTC. Text without a zone is read
// as UTC.
func layoutParser(groups ...[]string) func(string) (time.Time, bool) {
	var layouts []string
	for _, g := range groups {
		layouts = append(layouts, g...)
	}
	return func(s string) (time.Time, bool) {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
}

// score applies p to every sample and returns the parsed times (zero value
// where parsing failed) and the success fraction over total rows, so rows
// that were never sampled count as failures.
func score(p func(string) (time.Time, bool), samples []string, total int) ([]time.Time, []bool, float64) {
	times := make([]time.Time, len(samples))
	ok := make([]bool, len(samples))
	if len(samples) == 0 || total <= 0 {
		return times, ok, 0
	}
	n := 0
	for i, s := range samples {
		if t, good := p(s); good {
			times[i], ok[i] = t, true
			n++
		}
	}
	return times, ok, float64(n) / float64(total)
}
