// Package daterange resolves named reporting periods into concrete calendar windows.
package daterange

import (
	"fmt"
	"strings"
	"time"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Period names accepted by Resolve.
const (
	Today       = "today"
	Yesterday   = "yesterday"
	ThisWeek    = "this-week"
	LastWeek    = "last-week"
	ThisMonth   = "this-month"
	LastMonth   = "last-month"
	ThisQuarter = "this-quarter"
	ThisYear    = "this-year"
)

// Periods lists every supported period in display order.
var Periods = []string{Today, Yesterday, ThisWeek, LastWeek, ThisMonth, LastMonth, ThisQuarter, ThisYear}

// Policy decides what happens to unknown period names.
type Policy int

const (
	// Strict rejects unknown names with an invalid-argument error.
	Strict Policy = iota
	// FallbackThisMonth resolves unknown names to this-month, as the legacy portal did.
	FallbackThisMonth
)

// ParsePolicy maps a config value ("strict", "fallback") to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return Strict, nil
	case "fallback", "this-month", "fallback-this-month":
		return FallbackThisMonth, nil
	}
	return Strict, fmt.Errorf("unknown date range policy %q", value)
}

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Resolver resolves period names under a Policy.
type Resolver struct {
	Policy Policy
}

// Resolve computes the window for period relative to now, in now's location.
func (r Resolver) Resolve(period string, now time.Time) (DateRange, string, error) {
	name := Normalize(period)
	rng, ok := resolveKnown(name, now)
	if ok {
		return rng, name, nil
	}
	if r.Policy == FallbackThisMonth {
		rng, _ = resolveKnown(ThisMonth, now)
		return rng, ThisMonth, nil
	}
	return DateRange{}, "", utils.InvalidArgument("daterange.resolve", fmt.Sprintf("unknown period %q", period))
}

// Resolve resolves period with the Strict policy.
func Resolve(period string, now time.Time) (DateRange, error) {
	rng, _, err := Resolver{Policy: Strict}.Resolve(period, now)
	return rng, err
}

// Previous names the period a report compares against, or "" when there is none.
func Previous(period string) string {
	switch Normalize(period) {
	case Today:
		return Yesterday
	case ThisWeek:
		return LastWeek
	case ThisMonth:
		return LastMonth
	}
	return ""
}

// Normalize lower-cases a period name and converts camelCase or snake_case aliases
// ("thisMonth", "this_month") to the canonical dashed form.
func Normalize(period string) string {
	period = strings.TrimSpace(period)
	var b strings.Builder
	var prev rune
	for _, r := range period {
		switch {
		case r == '_' || r == ' ':
			b.WriteByte('-')
		case r >= 'A' && r <= 'Z':
			if prev >= 'a' && prev <= 'z' {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

func resolveKnown(name string, now time.Time) (DateRange, bool) {
	loc := now.Location()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	weekStart := midnight.AddDate(0, 0, -int(now.Weekday()))

	switch name {
	case Today:
		return DateRange{Start: midnight, End: endOfDay(midnight)}, true
	case Yesterday:
		start := midnight.AddDate(0, 0, -1)
		return DateRange{Start: start, End: endOfDay(start)}, true
	case ThisWeek:
		return DateRange{Start: weekStart, End: now}, true
	case LastWeek:
		start := weekStart.AddDate(0, 0, -7)
		return DateRange{Start: start, End: weekStart.Add(-time.Nanosecond)}, true
	case ThisMonth:
		return DateRange{Start: time.Date(y, m, 1, 0, 0, 0, 0, loc), End: now}, true
	case LastMonth:
		thisMonth := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return DateRange{Start: thisMonth.AddDate(0, -1, 0), End: thisMonth.Add(-time.Nanosecond)}, true
	case ThisQuarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		return DateRange{Start: time.Date(y, first, 1, 0, 0, 0, 0, loc), End: now}, true
	case ThisYear:
		return DateRange{Start: time.Date(y, time.January, 1, 0, 0, 0, 0, loc), End: now}, true
	}
	return DateRange{}, false
}

func endOfDay(midnight time.Time) time.Time {
	return midnight.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
