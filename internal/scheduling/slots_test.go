package scheduling

import (
	"testing"
	"time"
)

func mustWindow(t *testing.T, year int, month time.Month, day int) DayWindow {
	t.Helper()
	pref := weekdayPref("user-1")
	window, ok := WindowForDay(pref, time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("no declared window for %d-%02d-%02d", year, month, day)
	}
	return window
}

func TestWindowForDayUndeclaredWeekday(t *testing.T) {
	pref := weekdayPref("user-1")
	// 2025-03-02 is a Sunday, outside the Monday-Friday declaration.
	if _, ok := WindowForDay(pref, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatal("expected no window for an undeclared weekday")
	}
}

func TestTimeSlotsForDayFullWindow(t *testing.T) {
	window := mustWindow(t, 2025, 3, 3)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	slots := TimeSlotsForDay(window, now, "host-1", false, GranularityFull)
	// 09:00-17:30 at 15 minutes is 34 slots
	if len(slots) != 34 {
		t.Fatalf("slots = %d, want 34", len(slots))
	}
	first := slots[0]
	if first.StartTime != "09:00" || first.EndTime != "09:15" {
		t.Errorf("first slot = %s-%s, want 09:00-09:15", first.StartTime, first.EndTime)
	}
	if first.DayOfWeek != "MONDAY" {
		t.Errorf("day = %q, want MONDAY", first.DayOfWeek)
	}
	if first.MonthDay != "--03-03" {
		t.Errorf("monthDay = %q, want --03-03", first.MonthDay)
	}
	last := slots[len(slots)-1]
	if last.StartTime != "17:15" || last.EndTime != "17:30" {
		t.Errorf("last slot = %s-%s, want 17:15-17:30", last.StartTime, last.EndTime)
	}
}

func TestTimeSlotsForDayFirstDayInProgress(t *testing.T) {
	window := mustWindow(t, 2025, 3, 3)
	now := time.Date(2025, 3, 3, 10, 40, 0, 0, time.UTC)

	slots := TimeSlotsForDay(window, now, "host-1", true, GranularityFull)
	if len(slots) == 0 {
		t.Fatal("expected slots for a day in progress")
	}
	// 10:40 floors to the quarter boundary
	if slots[0].StartTime != "10:30" {
		t.Errorf("first slot start = %q, want 10:30", slots[0].StartTime)
	}
	last := slots[len(slots)-1]
	if last.EndTime != "17:30" {
		t.Errorf("last slot end = %q, want 17:30", last.EndTime)
	}
}

func TestTimeSlotsForDayFirstDayLiteFloorsToHalf(t *testing.T) {
	window := mustWindow(t, 2025, 3, 3)
	now := time.Date(2025, 3, 3, 10, 40, 0, 0, time.UTC)

	slots := TimeSlotsForDay(window, now, "host-1", true, GranularityLite)
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	if slots[0].StartTime != "10:30" || slots[0].EndTime != "11:00" {
		t.Errorf("first slot = %s-%s, want 10:30-11:00", slots[0].StartTime, slots[0].EndTime)
	}
}

func TestTimeSlotsForDayFirstDayBeforeWindow(t *testing.T) {
	window := mustWindow(t, 2025, 3, 3)
	now := time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC)

	slots := TimeSlotsForDay(window, now, "host-1", true, GranularityFull)
	if len(slots) != 34 {
		t.Fatalf("slots = %d, want the whole window (34)", len(slots))
	}
}

func TestTimeSlotsForDayFirstDayAfterWindow(t *testing.T) {
	window := mustWindow(t, 2025, 3, 3)
	now := time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC)

	if slots := TimeSlotsForDay(window, now, "host-1", true, GranularityFull); slots != nil {
		t.Fatalf("slots = %d, want none after work end", len(slots))
	}
}
