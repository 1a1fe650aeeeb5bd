package scheduling

import (
	"time"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// DayWindow is a work window materialized onto one concrete day in the host
// timezone.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// WindowForDay builds the concrete work window for date from the user's
// declared weekday times. The second return is false when the weekday has no
// declared bounds.
func WindowForDay(pref *store.UserPreference, date time.Time) (DayWindow, bool) {
	day := timeutil.ISOWeekday(date)
	start, okStart := dailyTimeFor(pref.StartTimes, day)
	end, okEnd := dailyTimeFor(pref.EndTimes, day)
	if !okStart || !okEnd {
		return DayWindow{}, false
	}
	return DayWindow{
		Start: timeutil.SetClock(date, start.Hour, start.Minutes),
		End:   timeutil.SetClock(date, end.Hour, end.Minutes),
	}, true
}

// TimeSlotsForDay generates granularity-wide slots covering the window. On
// the first day of a planning window, now is honored: a day already past its
// work end yields nothing, a day not yet begun yields the whole window, and
// a day in progress yields slots from now rounded down to the granularity
// boundary. Slots are never generated past the window end.
func TimeSlotsForDay(window DayWindow, now time.Time, hostID string, isFirstDay bool, granularity int) []TimeSlot {
	start := window.Start
	if isFirstDay {
		if now.After(window.End) {
			return nil
		}
		if now.After(window.Start) {
			minute := timeutil.FloorToQuarter(now.Minute())
			if granularity == GranularityLite {
				minute = timeutil.FloorToHalf(now.Minute())
			}
			start = timeutil.SetClock(now, now.Hour(), minute)
		}
	}

	totalMinutes := timeutil.MinutesBetween(start, window.End)
	var slots []TimeSlot
	for i := 0; i < totalMinutes; i += granularity {
		slotStart := start.Add(time.Duration(i) * time.Minute)
		slotEnd := slotStart.Add(time.Duration(granularity) * time.Minute)
		slots = append(slots, TimeSlot{
			DayOfWeek: WeekdayName(timeutil.ISOWeekday(slotStart)),
			StartTime: slotStart.Format(timeutil.ClockLayout),
			EndTime:   slotEnd.Format(timeutil.ClockLayout),
			HostID:    hostID,
			MonthDay:  timeutil.MonthDay(slotStart),
		})
	}
	return slots
}
