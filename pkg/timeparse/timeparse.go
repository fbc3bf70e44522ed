// Package timeparse parses user-entered event start times.
//
// Accepted layouts are "DD-MM-YYYY HH:MM", "DD/MM/YYYY HH:MM", "DD-MM HH:MM",
// "DD/MM HH:MM" and "HH:MM". Missing date parts are filled from the current
// time. Input is interpreted in the supplied IANA timezone and returned in
// UTC.
package timeparse

import (
	"fmt"
	"time"
)

const (
	layoutFull       = "02-01-2006 15:04"
	layoutFullSlash  = "02/01/2006 15:04"
	layoutShort      = "02-01 15:04"
	layoutShortSlash = "02/01 15:04"
	layoutTime       = "15:04"
)

// ErrFormat is returned for input matching no accepted layout.
var ErrFormat = fmt.Errorf("invalid time format, use (DD-MM[-YYYY] HH:MM)")

// Valid reports whether the input matches an accepted layout.
func Valid(input string) bool {
	for _, layout := range []string{layoutFull, layoutFullSlash, layoutShort, layoutShortSlash, layoutTime} {
		if _, err := time.Parse(layout, input); err == nil {
			return true
		}
	}
	return false
}

// UTCStart parses input in the named timezone and converts it to UTC.
// An empty or unknown timezone name falls back to UTC.
func UTCStart(input, timezone string, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}

	for _, layout := range []string{layoutFull, layoutFullSlash} {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t.UTC(), nil
		}
	}
	// The partial layouts parse into year 0; rebuild the date in the target
	// location so the filled-in parts carry the correct zone offset.
	for _, layout := range []string{layoutShort, layoutShortSlash} {
		if t, err := time.Parse(layout, input); err == nil {
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse(layoutTime, input); err == nil {
		t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		return t.UTC(), nil
	}
	return time.Time{}, ErrFormat
}

// ValidTimezone reports whether name resolves to an IANA timezone.
func ValidTimezone(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
