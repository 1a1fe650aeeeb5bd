package scheduling

import (
	"errors"
	"fmt"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// Validation failures for events entering part generation.
var (
	ErrMissingTimezone    = errors.New("event has no timezone")
	ErrZeroDuration       = errors.New("event duration is zero")
	ErrNegativeDuration   = errors.New("event ends before it starts")
	ErrSpansDays          = errors.New("event spans a day boundary")
	ErrTooLong            = errors.New("event exceeds 23 hours")
	ErrOutsideWorkWindow  = errors.New("event starts outside the day's work window")
)

// ValidateEventDates rejects events the splitter cannot represent. For
// internal users the event must also start inside the declared work window
// for its weekday; external attendees have no declared window, so pass nil.
func ValidateEventDates(event store.Event, pref *store.UserPreference) error {
	if event.Timezone == "" {
		return fmt.Errorf("event %s: %w", event.ID, ErrMissingTimezone)
	}
	start, err := timeutil.ParseInZone(event.StartDate, event.Timezone)
	if err != nil {
		return fmt.Errorf("event %s start: %w", event.ID, err)
	}
	end, err := timeutil.ParseInZone(event.EndDate, event.Timezone)
	if err != nil {
		return fmt.Errorf("event %s end: %w", event.ID, err)
	}

	minutes := timeutil.MinutesBetween(start, end)
	switch {
	case minutes == 0:
		return fmt.Errorf("event %s: %w", event.ID, ErrZeroDuration)
	case minutes < 0:
		return fmt.Errorf("event %s: %w", event.ID, ErrNegativeDuration)
	}
	if !timeutil.SameDay(start, end) {
		return fmt.Errorf("event %s: %w", event.ID, ErrSpansDays)
	}
	if timeutil.HoursBetween(start, end) > 23 {
		return fmt.Errorf("event %s: %w", event.ID, ErrTooLong)
	}

	if pref != nil {
		day := timeutil.ISOWeekday(start)
		ws, okStart := dailyTimeFor(pref.StartTimes, day)
		we, okEnd := dailyTimeFor(pref.EndTimes, day)
		if okStart && okEnd {
			workStart := timeutil.SetClock(start, ws.Hour, ws.Minutes)
			workEnd := timeutil.SetClock(start, we.Hour, we.Minutes)
			if start.After(workEnd) || start.Before(workStart) {
				return fmt.Errorf("event %s: %w", event.ID, ErrOutsideWorkWindow)
			}
		}
	}
	return nil
}

// PinUnmodifiableParts pins event parts that the solver must not move: a
// part with modifiable=false and no preferred day or time gets its actual
// start as the preferred day-of-week and time.
func PinUnmodifiableParts(parts []EventPart) ([]EventPart, error) {
	for i, p := range parts {
		if p.Modifiable || p.PreferredDayOfWeek != 0 || p.PreferredTime != "" {
			continue
		}
		start, err := timeutil.ParseInZone(p.StartDate, p.Timezone)
		if err != nil {
			return nil, fmt.Errorf("event %s start: %w", p.ID, err)
		}
		parts[i].PreferredDayOfWeek = timeutil.ISOWeekday(start)
		parts[i].PreferredTime = start.Format("15:04:05")
	}
	return parts, nil
}
