package scheduling

import (
	"fmt"
	"time"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// InternalWorkTimes builds one work window per weekday from the user's
// declared start and end times.
func InternalWorkTimes(pref *store.UserPreference, hostID string) []WorkTime {
	var workTimes []WorkTime
	for day := 1; day <= 7; day++ {
		start, okStart := dailyTimeFor(pref.StartTimes, day)
		end, okEnd := dailyTimeFor(pref.EndTimes, day)
		if !okStart || !okEnd {
			continue
		}
		workTimes = append(workTimes, WorkTime{
			DayOfWeek: WeekdayName(day),
			StartTime: fmt.Sprintf("%02d:%02d", start.Hour, start.Minutes),
			EndTime:   fmt.Sprintf("%02d:%02d", end.Hour, end.Minutes),
			HostID:    hostID,
			UserID:    pref.UserID,
		})
	}
	return workTimes
}

// WorkingHoursForDay returns the declared span of one weekday as a float
// hour count. A weekday without declared bounds yields 0.
func WorkingHoursForDay(pref *store.UserPreference, day int) float64 {
	start, okStart := dailyTimeFor(pref.StartTimes, day)
	end, okEnd := dailyTimeFor(pref.EndTimes, day)
	if !okStart || !okEnd {
		return 0
	}
	startMinutes := start.Hour*60 + start.Minutes
	endMinutes := end.Hour*60 + end.Minutes
	return float64(endMinutes-startMinutes) / 60
}

func dailyTimeFor(times []store.DailyTime, day int) (store.DailyTime, bool) {
	for _, t := range times {
		if t.Day == day {
			return t, true
		}
	}
	return store.DailyTime{}, false
}

// externalBounds is the observed earliest-start/latest-end span of one
// weekday, in the host timezone.
type externalBounds struct {
	start time.Time
	end   time.Time
}

func externalBoundsByDay(events []store.Event, hostTimezone string) (map[int]*externalBounds, error) {
	byDay := make(map[int]*externalBounds)
	for _, ev := range events {
		start, err := timeutil.ParseInZone(ev.StartDate, ev.Timezone)
		if err != nil {
			return nil, fmt.Errorf("event %s start: %w", ev.ID, err)
		}
		end, err := timeutil.ParseInZone(ev.EndDate, ev.Timezone)
		if err != nil {
			return nil, fmt.Errorf("event %s end: %w", ev.ID, err)
		}
		hostStart, err := timeutil.InZone(start, hostTimezone)
		if err != nil {
			return nil, err
		}
		hostEnd, err := timeutil.InZone(end, hostTimezone)
		if err != nil {
			return nil, err
		}
		day := timeutil.ISOWeekday(hostStart)
		b, ok := byDay[day]
		if !ok {
			byDay[day] = &externalBounds{start: hostStart, end: hostEnd}
			continue
		}
		if hostStart.Before(b.start) {
			b.start = hostStart
		}
		if hostEnd.After(b.end) {
			b.end = hostEnd
		}
	}
	return byDay, nil
}

// ExternalWorkTimes infers one work window per weekday from a participant's
// observed events, expressed in the host timezone. The start of the earliest
// event is floored to a quarter hour and the end of the latest event is
// rounded up to the next quarter. Weekdays without events are skipped:
// absence means no constraint, not an error.
func ExternalWorkTimes(events []store.Event, userID, hostID, hostTimezone string) ([]WorkTime, error) {
	byDay, err := externalBoundsByDay(events, hostTimezone)
	if err != nil {
		return nil, err
	}

	var workTimes []WorkTime
	for day := 1; day <= 7; day++ {
		b, ok := byDay[day]
		if !ok {
			continue
		}
		startMinute := timeutil.FloorToQuarter(b.start.Minute())
		endHour, endMinute := timeutil.CeilEndToQuarter(b.end.Hour(), b.end.Minute())
		workTimes = append(workTimes, WorkTime{
			DayOfWeek: WeekdayName(day),
			StartTime: fmt.Sprintf("%02d:%02d", b.start.Hour(), startMinute),
			EndTime:   fmt.Sprintf("%02d:%02d", endHour, endMinute),
			HostID:    hostID,
			UserID:    userID,
		})
	}
	return workTimes, nil
}

// ExternalWindowForDay materializes a participant's inferred weekday window
// onto the concrete date, with the same rounding as ExternalWorkTimes. The
// second return is false when no event was observed on that weekday.
func ExternalWindowForDay(events []store.Event, hostTimezone string, date time.Time) (DayWindow, bool, error) {
	byDay, err := externalBoundsByDay(events, hostTimezone)
	if err != nil {
		return DayWindow{}, false, err
	}
	b, ok := byDay[timeutil.ISOWeekday(date)]
	if !ok {
		return DayWindow{}, false, nil
	}
	startMinute := timeutil.FloorToQuarter(b.start.Minute())
	endHour, endMinute := timeutil.CeilEndToQuarter(b.end.Hour(), b.end.Minute())
	return DayWindow{
		Start: timeutil.SetClock(date, b.start.Hour(), startMinute),
		End:   timeutil.SetClock(date, endHour, endMinute),
	}, true, nil
}

// ExternalWorkingHoursForDay measures the inferred window span for the
// weekday of hostDate, using the same rounding as ExternalWorkTimes.
func ExternalWorkingHoursForDay(events []store.Event, hostTimezone string, hostDate time.Time) (float64, error) {
	workTimes, err := ExternalWorkTimes(events, "", "", hostTimezone)
	if err != nil {
		return 0, err
	}
	name := WeekdayName(timeutil.ISOWeekday(hostDate))
	for _, wt := range workTimes {
		if wt.DayOfWeek != name {
			continue
		}
		var sh, sm, eh, em int
		if _, err := fmt.Sscanf(wt.StartTime, "%d:%d", &sh, &sm); err != nil {
			return 0, fmt.Errorf("parse start %q: %w", wt.StartTime, err)
		}
		if _, err := fmt.Sscanf(wt.EndTime, "%d:%d", &eh, &em); err != nil {
			return 0, fmt.Errorf("parse end %q: %w", wt.EndTime, err)
		}
		return float64((eh*60+em)-(sh*60+sm)) / 60, nil
	}
	return 0, nil
}
