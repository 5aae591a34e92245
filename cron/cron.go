// Package cron implements the 5-field cron expression grammar from §4.2:
// parsing and matching, nothing else. It is hand-written rather than
// built on github.com/robfig/cron (present only transitively in the
// example corpus, pulled in by Temporal's SDK) because cron evaluation is
// explicitly in-scope engineering for this spec (§1), not an ambient
// concern to delegate — see DESIGN.md.
package cron

import (
	"strconv"
	"strings"
	"time"
)

// fieldRange bounds one of the five fields.
type fieldRange struct{ min, max int }

var ranges = [5]fieldRange{
	{0, 59}, // minute
	{0, 23}, // hour
	{1, 31}, // day of month
	{1, 12}, // month
	{0, 6},  // day of week, 0 = Sunday
}

// Matches evaluates expr against t in t's own location (the spec calls
// for "local time of the process"; callers that want a specific zone
// should pass a time already converted to it). Malformed expressions
// never panic or return an error — they simply never match, per §4.2.
func Matches(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	components := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		ok, matched := matchField(f, components[i], ranges[i])
		if !ok {
			return false
		}
		if !matched {
			return false
		}
	}
	return true
}

// Valid reports whether expr parses as a syntactically well-formed
// 5-field cron expression (used by validate/import tooling; Matches
// itself never needs this since it degrades to false on its own).
func Valid(expr string) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	for i, f := range fields {
		if _, err := parseField(f, ranges[i]); err != nil {
			return false
		}
	}
	return true
}

// matchField parses one field and reports (parsedOK, valueMatches).
func matchField(field string, value int, r fieldRange) (bool, bool) {
	allowed, err := parseField(field, r)
	if err != nil {
		return false, false
	}
	return true, allowed[value]
}

// parseField expands a single cron field into a bitset (map) of the
// values it allows, validating every literal against r.
func parseField(field string, r fieldRange) (map[int]bool, error) {
	allowed := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return nil, errBadField
		}
		if err := expandPart(part, r, allowed); err != nil {
			return nil, err
		}
	}
	return allowed, nil
}

var errBadField = &parseError{"malformed cron field"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// expandPart handles one comma-separated segment: "*", "*/n", "a-b",
// "a-b/n", or a bare integer.
func expandPart(part string, r fieldRange, allowed map[int]bool) error {
	base, step, hasStep := strings.Cut(part, "/")
	var stepN int
	if hasStep {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return errBadField
		}
		stepN = n
	} else {
		stepN = 1
	}

	var lo, hi int
	switch {
	case base == "*":
		lo, hi = r.min, r.max
	default:
		from, to, isRange := strings.Cut(base, "-")
		loV, err := strconv.Atoi(from)
		if err != nil {
			return errBadField
		}
		if isRange {
			hiV, err := strconv.Atoi(to)
			if err != nil {
				return errBadField
			}
			lo, hi = loV, hiV
		} else {
			if hasStep {
				// "a/n" means "a-max/n" per common cron convention.
				lo, hi = loV, r.max
			} else {
				lo, hi = loV, loV
			}
		}
	}
	if lo < r.min || hi > r.max || lo > hi {
		return errBadField
	}
	for v := lo; v <= hi; v += stepN {
		allowed[v] = true
	}
	return nil
}
