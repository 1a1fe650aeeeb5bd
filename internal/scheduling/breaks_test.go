package scheduling

import (
	"strings"
	"testing"
	"time"

	"github.com/plannerhq/schedassist/internal/store"
)

func breakPref() *store.UserPreference {
	return &store.UserPreference{
		UserID:             "user-1",
		MaxWorkLoadPercent: 80,
		MinNumberOfBreaks:  2,
		BreakLength:        15,
	}
}

func meeting(id, start, end string) store.Event {
	return store.Event{
		ID:        id,
		UserID:    "user-1",
		StartDate: start,
		EndDate:   end,
		Timezone:  "UTC",
	}
}

func TestPlanBreaksForDay(t *testing.T) {
	// An 8-hour Monday with one 09:00-15:00 meeting leaves a 1.6-hour
	// workload remainder, which beats the declared minimum of two breaks
	// and yields six 15-minute breaks.
	pref := breakPref()
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T09:00:00", "2025-03-03T15:00:00"),
	}

	n, err := PlanBreaksForDay(pref, 8, dayEvents)
	if err != nil {
		t.Fatalf("PlanBreaksForDay: %v", err)
	}
	if n != 6 {
		t.Fatalf("breaks = %d, want 6", n)
	}
}

func TestPlanBreaksForDaySkipsWhenBreaksCovered(t *testing.T) {
	pref := breakPref()
	existing := meeting("b1", "2025-03-03T12:00:00", "2025-03-03T14:00:00")
	existing.IsBreak = true
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T09:00:00", "2025-03-03T11:00:00"),
		existing,
	}

	n, err := PlanBreaksForDay(pref, 8, dayEvents)
	if err != nil {
		t.Fatalf("PlanBreaksForDay: %v", err)
	}
	if n != 0 {
		t.Fatalf("breaks = %d, want 0 when existing breaks cover the budget", n)
	}
}

func TestPlanBreaksForDayEmptyDay(t *testing.T) {
	n, err := PlanBreaksForDay(breakPref(), 8, nil)
	if err != nil {
		t.Fatalf("PlanBreaksForDay: %v", err)
	}
	if n != 0 {
		t.Fatalf("breaks = %d, want 0 for a day without events", n)
	}
}

func TestPlanBreaksForDayCapsExcessiveBudget(t *testing.T) {
	// 0% max workload over a 16-hour day asks for 16 break hours, past the
	// 6-hour policy cap.
	pref := breakPref()
	pref.MaxWorkLoadPercent = 0
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T09:00:00", "2025-03-03T10:00:00"),
	}

	n, err := PlanBreaksForDay(pref, 16, dayEvents)
	if err != nil {
		t.Fatalf("PlanBreaksForDay: %v", err)
	}
	if n != 0 {
		t.Fatalf("breaks = %d, want 0 past the policy cap", n)
	}
}

func TestGenerateBreakTemplates(t *testing.T) {
	pref := breakPref()
	pref.BreakColor = "#112233"
	mirror := meeting("m1", "2025-03-03T09:00:00", "2025-03-03T15:00:00")
	mirror.CalendarID = "cal-1"

	breaks, err := GenerateBreakTemplates(pref, 3, mirror, "global-cal")
	if err != nil {
		t.Fatalf("GenerateBreakTemplates: %v", err)
	}
	if len(breaks) != 3 {
		t.Fatalf("templates = %d, want 3", len(breaks))
	}
	for _, b := range breaks {
		if !strings.HasSuffix(b.ID, "#global-cal") {
			t.Errorf("id %q not scoped to the global calendar", b.ID)
		}
		if b.CalendarID != "global-cal" {
			t.Errorf("calendar = %q, want global-cal", b.CalendarID)
		}
		if b.Summary != "Break" || b.Notes != "Break" {
			t.Errorf("summary/notes = %q/%q, want Break", b.Summary, b.Notes)
		}
		if !b.IsBreak || !b.Modifiable || b.Priority != 1 {
			t.Errorf("flags: isBreak=%v modifiable=%v priority=%d", b.IsBreak, b.Modifiable, b.Priority)
		}
		if b.StartDate != "2025-03-03T09:00:00" || b.EndDate != "2025-03-03T09:15:00" {
			t.Errorf("window = %s-%s", b.StartDate, b.EndDate)
		}
		if b.Duration != 15 {
			t.Errorf("duration = %d, want 15", b.Duration)
		}
		if b.BackgroundColor != "#112233" {
			t.Errorf("color = %q, want the preference color", b.BackgroundColor)
		}
		if !b.UserModified.Duration || !b.UserModified.Color {
			t.Errorf("userModified flags not pinned: %+v", b.UserModified)
		}
		if b.Method != "create" {
			t.Errorf("method = %q, want create", b.Method)
		}
	}
}

func TestGenerateBreakTemplatesDefaultColor(t *testing.T) {
	mirror := meeting("m1", "2025-03-03T09:00:00", "2025-03-03T15:00:00")
	breaks, err := GenerateBreakTemplates(breakPref(), 1, mirror, "")
	if err != nil {
		t.Fatalf("GenerateBreakTemplates: %v", err)
	}
	if breaks[0].BackgroundColor != "#F7EBF7" {
		t.Errorf("color = %q, want #F7EBF7", breaks[0].BackgroundColor)
	}
}

func breakWindow(t *testing.T) DayWindow {
	t.Helper()
	return DayWindow{
		Start: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
	}
}

func TestPlaceBreaksFillsTrailingGap(t *testing.T) {
	pref := breakPref()
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T09:00:00", "2025-03-03T15:00:00"),
	}
	templates, err := GenerateBreakTemplates(pref, 6, dayEvents[0], "")
	if err != nil {
		t.Fatalf("GenerateBreakTemplates: %v", err)
	}

	placed, dropped, err := PlaceBreaks(dayEvents, templates, breakWindow(t))
	if err != nil {
		t.Fatalf("PlaceBreaks: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if len(placed) != 6 {
		t.Fatalf("placed = %d, want 6", len(placed))
	}
	// breaks pack forward from the meeting's end
	if placed[0].StartDate != "2025-03-03T15:00:00" || placed[0].EndDate != "2025-03-03T15:15:00" {
		t.Errorf("first break = %s-%s", placed[0].StartDate, placed[0].EndDate)
	}
	if placed[5].StartDate != "2025-03-03T16:15:00" || placed[5].EndDate != "2025-03-03T16:30:00" {
		t.Errorf("last break = %s-%s", placed[5].StartDate, placed[5].EndDate)
	}
}

func TestPlaceBreaksPrefersSlotBeforeEvent(t *testing.T) {
	pref := breakPref()
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T11:00:00", "2025-03-03T12:00:00"),
	}
	templates, err := GenerateBreakTemplates(pref, 1, dayEvents[0], "")
	if err != nil {
		t.Fatalf("GenerateBreakTemplates: %v", err)
	}

	placed, dropped, err := PlaceBreaks(dayEvents, templates, breakWindow(t))
	if err != nil {
		t.Fatalf("PlaceBreaks: %v", err)
	}
	if dropped != 0 || len(placed) != 1 {
		t.Fatalf("placed = %d dropped = %d", len(placed), dropped)
	}
	if placed[0].StartDate != "2025-03-03T10:45:00" || placed[0].EndDate != "2025-03-03T11:00:00" {
		t.Errorf("break = %s-%s, want 10:45-11:00", placed[0].StartDate, placed[0].EndDate)
	}
}

func TestPlaceBreaksDropsWhenDayIsFull(t *testing.T) {
	pref := breakPref()
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T09:00:00", "2025-03-03T17:00:00"),
	}
	templates, err := GenerateBreakTemplates(pref, 2, dayEvents[0], "")
	if err != nil {
		t.Fatalf("GenerateBreakTemplates: %v", err)
	}

	placed, dropped, err := PlaceBreaks(dayEvents, templates, breakWindow(t))
	if err != nil {
		t.Fatalf("PlaceBreaks: %v", err)
	}
	if len(placed) != 0 {
		t.Fatalf("placed = %d, want 0", len(placed))
	}
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
}

func TestPlaceBreaksIgnoresExistingBreakAnchors(t *testing.T) {
	existing := meeting("b1", "2025-03-03T12:00:00", "2025-03-03T12:15:00")
	existing.IsBreak = true
	dayEvents := []store.Event{
		meeting("m1", "2025-03-03T11:00:00", "2025-03-03T12:00:00"),
		existing,
	}
	templates, err := GenerateBreakTemplates(breakPref(), 1, dayEvents[0], "")
	if err != nil {
		t.Fatalf("GenerateBreakTemplates: %v", err)
	}

	placed, dropped, err := PlaceBreaks(dayEvents, templates, breakWindow(t))
	if err != nil {
		t.Fatalf("PlaceBreaks: %v", err)
	}
	if dropped != 0 || len(placed) != 1 {
		t.Fatalf("placed = %d dropped = %d", len(placed), dropped)
	}
	// only the non-break meeting anchors a candidate slot
	if placed[0].StartDate != "2025-03-03T10:45:00" {
		t.Errorf("break start = %s, want 10:45", placed[0].StartDate)
	}
}
