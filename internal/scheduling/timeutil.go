// Package scheduling holds the synchronous conflict-resolution engine:
// interval arithmetic, conflict detection, constraint validation, room
// availability and scoring, and the greedy timetable generator. Nothing in
// this package performs I/O.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPauseMinutes is the mandatory gap between two occupations of the
// same resource.
const DefaultPauseMinutes = 10

// ToMinutes parses an HH:MM time of day into minutes since midnight. The
// boolean is false for malformed input or out-of-range fields.
func ToMinutes(value string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found || hh == "" || mm == "" || len(hh) > 2 || len(mm) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}

// FormatMinutes renders minutes since midnight as HH:MM.
func FormatMinutes(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// IsValidRange reports whether both ends parse and start is before end.
func IsValidRange(start, end string) bool {
	s, ok := ToMinutes(start)
	if !ok {
		return false
	}
	e, ok := ToMinutes(end)
	if !ok {
		return false
	}
	return s < e
}

// Duration returns the minutes between start and end, never negative.
func Duration(start, end string) int {
	s, ok1 := ToMinutes(start)
	e, ok2 := ToMinutes(end)
	if !ok1 || !ok2 || e < s {
		return 0
	}
	return e - s
}

// OverlapsWithPause reports whether two intervals collide once each is
// widened by pause minutes at its end. Unparseable input never overlaps.
func OverlapsWithPause(start1, end1, start2, end2 string, pause int) bool {
	s1, ok1 := ToMinutes(start1)
	e1, ok2 := ToMinutes(end1)
	s2, ok3 := ToMinutes(start2)
	e2, ok4 := ToMinutes(end2)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return s1 < e2+pause && s2 < e1+pause
}

// Contains reports whether the inner interval lies within the outer one.
func Contains(outerStart, outerEnd, innerStart, innerEnd string) bool {
	os, ok1 := ToMinutes(outerStart)
	oe, ok2 := ToMinutes(outerEnd)
	is, ok3 := ToMinutes(innerStart)
	ie, ok4 := ToMinutes(innerEnd)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return is >= os && ie <= oe
}

// AddMinutes shifts an HH:MM value. The result is false when the input does
// not parse or the shifted value leaves the day.
func AddMinutes(value string, delta int) (string, bool) {
	m, ok := ToMinutes(value)
	if !ok {
		return "", false
	}
	m += delta
	if m < 0 || m >= 24*60 {
		return "", false
	}
	return FormatMinutes(m), true
}

// Interval is a time-of-day range on a single day.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes returns the interval length.
func (i Interval) Minutes() int {
	return Duration(i.Start, i.End)
}
