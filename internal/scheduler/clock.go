package scheduler

import (
	"errors"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical calendar date representation.
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical time-of-day representation.
	ClockLayout = "15:04:05"
)

var (
	// ErrInvalidDate indicates a value that is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidClock indicates a value that is not an HH:MM or HH:MM:SS time.
	ErrInvalidClock = errors.New("scheduler: invalid time of day")
)

// ParseDate validates a calendar date and returns it in DateLayout.
func ParseDate(value string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(DateLayout), nil
}

// ParseClock accepts HH:MM or HH:MM:SS and returns the value in ClockLayout.
func ParseClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", ErrInvalidClock
}

// Instant combines a canonical date and clock time into a time in loc.
func Instant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
}
