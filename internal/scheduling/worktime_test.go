package scheduling

import (
	"testing"
	"time"

	"github.com/plannerhq/schedassist/internal/store"
)

func weekdayPref(userID string) *store.UserPreference {
	pref := &store.UserPreference{UserID: userID}
	for day := 1; day <= 5; day++ {
		pref.StartTimes = append(pref.StartTimes, store.DailyTime{Day: day, Hour: 9, Minutes: 0})
		pref.EndTimes = append(pref.EndTimes, store.DailyTime{Day: day, Hour: 17, Minutes: 30})
	}
	return pref
}

func TestInternalWorkTimes(t *testing.T) {
	pref := weekdayPref("user-1")
	workTimes := InternalWorkTimes(pref, "host-1")

	if len(workTimes) != 5 {
		t.Fatalf("work times = %d, want 5", len(workTimes))
	}
	first := workTimes[0]
	if first.DayOfWeek != "MONDAY" {
		t.Errorf("day = %q, want MONDAY", first.DayOfWeek)
	}
	if first.StartTime != "09:00" || first.EndTime != "17:30" {
		t.Errorf("window = %s-%s, want 09:00-17:30", first.StartTime, first.EndTime)
	}
	if first.HostID != "host-1" || first.UserID != "user-1" {
		t.Errorf("ids = %s/%s", first.HostID, first.UserID)
	}
	if workTimes[4].DayOfWeek != "FRIDAY" {
		t.Errorf("last day = %q, want FRIDAY", workTimes[4].DayOfWeek)
	}
}

func TestInternalWorkTimesSkipsUndeclaredDays(t *testing.T) {
	pref := &store.UserPreference{
		UserID:     "user-1",
		StartTimes: []store.DailyTime{{Day: 3, Hour: 10}},
		EndTimes:   []store.DailyTime{{Day: 3, Hour: 16}, {Day: 4, Hour: 18}},
	}
	workTimes := InternalWorkTimes(pref, "host-1")
	if len(workTimes) != 1 {
		t.Fatalf("work times = %d, want 1", len(workTimes))
	}
	if workTimes[0].DayOfWeek != "WEDNESDAY" {
		t.Errorf("day = %q, want WEDNESDAY", workTimes[0].DayOfWeek)
	}
}

func TestWorkingHoursForDay(t *testing.T) {
	pref := weekdayPref("user-1")
	if got := WorkingHoursForDay(pref, 1); got != 8.5 {
		t.Errorf("monday hours = %v, want 8.5", got)
	}
	if got := WorkingHoursForDay(pref, 6); got != 0 {
		t.Errorf("saturday hours = %v, want 0", got)
	}
}

func TestExternalWorkTimesInfersBounds(t *testing.T) {
	// 2025-03-03 is a Monday, 2025-03-04 a Tuesday.
	events := []store.Event{
		{ID: "a", StartDate: "2025-03-03T09:10:00", EndDate: "2025-03-03T10:00:00", Timezone: "UTC"},
		{ID: "b", StartDate: "2025-03-03T14:00:00", EndDate: "2025-03-03T16:50:00", Timezone: "UTC"},
		{ID: "c", StartDate: "2025-03-04T11:00:00", EndDate: "2025-03-04T12:00:00", Timezone: "UTC"},
	}

	workTimes, err := ExternalWorkTimes(events, "ext-1", "host-1", "UTC")
	if err != nil {
		t.Fatalf("ExternalWorkTimes: %v", err)
	}
	if len(workTimes) != 2 {
		t.Fatalf("work times = %d, want 2", len(workTimes))
	}

	monday := workTimes[0]
	if monday.DayOfWeek != "MONDAY" {
		t.Fatalf("day = %q, want MONDAY", monday.DayOfWeek)
	}
	// 09:10 floors to the quarter, 16:50 rounds up to the next one.
	if monday.StartTime != "09:00" {
		t.Errorf("start = %q, want 09:00", monday.StartTime)
	}
	if monday.EndTime != "17:00" {
		t.Errorf("end = %q, want 17:00", monday.EndTime)
	}

	tuesday := workTimes[1]
	if tuesday.DayOfWeek != "TUESDAY" {
		t.Fatalf("day = %q, want TUESDAY", tuesday.DayOfWeek)
	}
	// an exact-hour end still advances to the next quarter
	if tuesday.EndTime != "12:15" {
		t.Errorf("end = %q, want 12:15", tuesday.EndTime)
	}
	if tuesday.UserID != "ext-1" || tuesday.HostID != "host-1" {
		t.Errorf("ids = %s/%s", tuesday.UserID, tuesday.HostID)
	}
}

func TestExternalWindowForDay(t *testing.T) {
	events := []store.Event{
		{ID: "a", StartDate: "2025-03-03T09:10:00", EndDate: "2025-03-03T16:50:00", Timezone: "UTC"},
	}

	window, ok, err := ExternalWindowForDay(events, "UTC", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExternalWindowForDay: %v", err)
	}
	if !ok {
		t.Fatal("expected a Monday window")
	}
	if window.Start.Hour() != 9 || window.Start.Minute() != 0 {
		t.Errorf("start = %v, want 09:00", window.Start)
	}
	if window.End.Hour() != 17 || window.End.Minute() != 0 {
		t.Errorf("end = %v, want 17:00", window.End)
	}

	// no observed event on the following Sunday
	_, ok, err = ExternalWindowForDay(events, "UTC", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExternalWindowForDay: %v", err)
	}
	if ok {
		t.Error("expected no window for an unobserved weekday")
	}
}

func TestExternalWorkTimesSkipsEmptyWeekdays(t *testing.T) {
	workTimes, err := ExternalWorkTimes(nil, "ext-1", "host-1", "UTC")
	if err != nil {
		t.Fatalf("ExternalWorkTimes: %v", err)
	}
	if len(workTimes) != 0 {
		t.Errorf("work times = %d, want 0", len(workTimes))
	}
}

func TestExternalWorkingHoursForDay(t *testing.T) {
	events := []store.Event{
		{ID: "a", StartDate: "2025-03-03T09:10:00", EndDate: "2025-03-03T16:50:00", Timezone: "UTC"},
	}
	monday := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

	hours, err := ExternalWorkingHoursForDay(events, "UTC", monday)
	if err != nil {
		t.Fatalf("ExternalWorkingHoursForDay: %v", err)
	}
	// inferred window is 09:00-17:00
	if hours != 8 {
		t.Errorf("hours = %v, want 8", hours)
	}

	sunday := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	hours, err = ExternalWorkingHoursForDay(events, "UTC", sunday)
	if err != nil {
		t.Fatalf("ExternalWorkingHoursForDay: %v", err)
	}
	if hours != 0 {
		t.Errorf("hours = %v, want 0 for a day without events", hours)
	}
}
