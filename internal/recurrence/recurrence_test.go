package recurrence

import (
	"testing"
	"time"

	"github.com/plannerhq/schedassist/internal/store"
)

func dailyMaster(rule string) store.Event {
	return store.Event{
		ID:             "master1",
		UserID:         "user-1",
		CalendarID:     "cal-1",
		Summary:        "Standup",
		StartDate:      "2025-03-03T09:00:00",
		EndDate:        "2025-03-03T09:30:00",
		Timezone:       "UTC",
		RecurrenceRule: rule,
	}
}

func TestExpandMasterDaily(t *testing.T) {
	master := dailyMaster("FREQ=DAILY;COUNT=5")
	windowStart := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC)

	instances, err := ExpandMaster(master, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("ExpandMaster: %v", err)
	}
	// five occurrences, minus the master's own start
	if len(instances) != 4 {
		t.Fatalf("instances = %d, want 4", len(instances))
	}

	first := instances[0]
	if first.StartDate != "2025-03-04T09:00:00" || first.EndDate != "2025-03-04T09:30:00" {
		t.Errorf("first instance = %s-%s", first.StartDate, first.EndDate)
	}
	if first.ID != "master1_20250304T090000" {
		t.Errorf("id = %q", first.ID)
	}
	if first.RecurringEventID != "master1" {
		t.Errorf("recurringEventId = %q, want master1", first.RecurringEventID)
	}
	if first.RecurrenceRule != "" {
		t.Errorf("instance kept the rule %q", first.RecurrenceRule)
	}
	if first.Method != "create" {
		t.Errorf("method = %q, want create", first.Method)
	}
	if first.Summary != "Standup" || first.Timezone != "UTC" {
		t.Errorf("master fields not carried: %q/%q", first.Summary, first.Timezone)
	}

	last := instances[3]
	if last.StartDate != "2025-03-07T09:00:00" {
		t.Errorf("last instance start = %q", last.StartDate)
	}
}

func TestExpandMasterWindowClipsOccurrences(t *testing.T) {
	master := dailyMaster("FREQ=DAILY;COUNT=10")
	windowStart := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 3, 6, 23, 59, 59, 0, time.UTC)

	instances, err := ExpandMaster(master, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("ExpandMaster: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("instances = %d, want 2 inside the window", len(instances))
	}
	if instances[0].StartDate != "2025-03-05T09:00:00" {
		t.Errorf("first = %q", instances[0].StartDate)
	}
}

func TestExpandMasterPrefixedRule(t *testing.T) {
	master := dailyMaster("RRULE:FREQ=WEEKLY;COUNT=3")
	windowStart := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	instances, err := ExpandMaster(master, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("ExpandMaster: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("instances = %d, want 2 weekly repeats", len(instances))
	}
	if instances[0].StartDate != "2025-03-10T09:00:00" {
		t.Errorf("first = %q", instances[0].StartDate)
	}
}

func TestExpandMasterNoRule(t *testing.T) {
	instances, err := ExpandMaster(dailyMaster(""), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ExpandMaster: %v", err)
	}
	if instances != nil {
		t.Fatalf("instances = %v, want none", instances)
	}
}

func TestExpandMasterBadRule(t *testing.T) {
	if _, err := ExpandMaster(dailyMaster("FREQ=NOPE"), time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected an error for a malformed rule")
	}
}

func TestExpandAll(t *testing.T) {
	a := dailyMaster("FREQ=DAILY;COUNT=3")
	b := dailyMaster("FREQ=DAILY;COUNT=2")
	b.ID = "master2"
	plain := dailyMaster("")
	plain.ID = "plain"

	windowStart := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	instances, err := ExpandAll([]store.Event{a, b, plain}, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	// 2 from the first master, 1 from the second, none from the plain event
	if len(instances) != 3 {
		t.Fatalf("instances = %d, want 3", len(instances))
	}
}
