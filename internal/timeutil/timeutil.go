// Package timeutil implements the wall-clock arithmetic used by the
// scheduling engine. Timestamps exchanged with collaborators are ISO-8601
// strings truncated to seconds precision and are always interpreted in the
// owning entity's IANA timezone, never in UTC.
package timeutil

import (
	"fmt"
	"time"
)

// WallClockLayout is the seconds-precision layout shared with the data
// backend and the solver.
const WallClockLayout = "2006-01-02T15:04:05"

// DateLayout formats a calendar date in the host timezone.
const DateLayout = "2006-01-02"

// ClockLayout formats an "HH:mm" boundary time.
const ClockLayout = "15:04"

// ParseInZone truncates s to seconds precision and interprets the remaining
// wall clock in the named IANA timezone.
func ParseInZone(s, tz string) (time.Time, error) {
	if len(s) > 19 {
		s = s[:19]
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	t, err := time.ParseInLocation(WallClockLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return t, nil
}

// FormatWallClock renders t as the shared seconds-precision wall clock.
func FormatWallClock(t time.Time) string {
	return t.Format(WallClockLayout)
}

// InZone re-expresses t in the named timezone, keeping the instant.
func InZone(t time.Time, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return t.In(loc), nil
}

// SetClock returns t with its hour and minute replaced, seconds zeroed, in
// t's own location.
func SetClock(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

// FloorToQuarter rounds a start-boundary minute down to the nearest
// quarter-hour.
func FloorToQuarter(minute int) int {
	return (minute / 15) * 15
}

// FloorToHalf rounds a minute down to the nearest half-hour.
func FloorToHalf(minute int) int {
	return (minute / 30) * 30
}

// CeilEndToQuarter rounds an end-boundary clock up to the next quarter-hour.
// A minute already on a quarter advances a full quarter; rolling past :45
// zeroes the minute and bumps the hour unless the hour is already 23.
func CeilEndToQuarter(hour, minute int) (int, int) {
	m := ((minute / 15) + 1) * 15
	if m == 60 {
		if hour < 23 {
			hour++
		}
		m = 0
	}
	return hour, m
}

// MinutesBetween reports end − start in whole minutes.
func MinutesBetween(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// HoursBetween reports end − start in fractional hours.
func HoursBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}

// ISOWeekday maps t's weekday onto ISO numbering (Monday=1..Sunday=7).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// MonthDay renders t's month and day as the cross-timezone disambiguator
// used on time slots, e.g. "--03-07".
func MonthDay(t time.Time) string {
	return fmt.Sprintf("--%02d-%02d", int(t.Month()), t.Day())
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
