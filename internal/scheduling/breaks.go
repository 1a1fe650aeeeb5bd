package scheduling

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

const defaultBreakColor = "#F7EBF7"

// PlanBreaksForDay decides how many break events to generate for one day.
// The break budget is the larger of the declared minimum
// (breakLength/60 x minNumberOfBreaks) and the workload remainder
// (workingHours x (1 - maxWorkLoadPercent/100)). Hours already covered by
// existing breaks are subtracted, and a day whose total break budget exceeds
// 6 hours generates nothing (policy cap). Returns 0 when no breaks are
// warranted.
func PlanBreaksForDay(pref *store.UserPreference, workingHours float64, dayEvents []store.Event) (int, error) {
	if pref == nil || pref.BreakLength <= 0 || len(dayEvents) == 0 {
		return 0, nil
	}

	breakLengthHours := float64(pref.BreakLength) / 60
	minBreakHours := breakLengthHours * float64(pref.MinNumberOfBreaks)
	hoursMustBeBreak := workingHours * (1 - float64(pref.MaxWorkLoadPercent)/100)

	breakHoursAvailable := hoursMustBeBreak
	if minBreakHours > hoursMustBeBreak {
		breakHoursAvailable = minBreakHours
	}

	var breakHoursUsed, hoursUsed float64
	for _, ev := range dayEvents {
		hours, err := eventHours(ev)
		if err != nil {
			return 0, err
		}
		hoursUsed += hours
		if ev.IsBreak {
			breakHoursUsed += hours
		}
	}
	if breakHoursUsed >= breakHoursAvailable {
		return 0, nil
	}

	hoursAvailable := workingHours - hoursUsed
	if hoursAvailable < hoursMustBeBreak {
		hoursAvailable = hoursMustBeBreak
	}
	if hoursAvailable <= 0 {
		return 0, nil
	}

	breakHoursToGenerate := breakHoursAvailable
	if breakHoursToGenerate > hoursAvailable {
		breakHoursToGenerate = hoursAvailable
	}

	actual := breakHoursToGenerate - breakHoursUsed
	if actual > hoursAvailable {
		return 0, nil
	}

	n := int(math.Floor(actual / breakLengthHours))
	if n < 1 {
		return 0, nil
	}
	if breakHoursToGenerate > 6 {
		return 0, nil
	}
	return n, nil
}

func eventHours(ev store.Event) (float64, error) {
	start, err := timeutil.ParseInZone(ev.StartDate, ev.Timezone)
	if err != nil {
		return 0, fmt.Errorf("event %s start: %w", ev.ID, err)
	}
	end, err := timeutil.ParseInZone(ev.EndDate, ev.Timezone)
	if err != nil {
		return 0, fmt.Errorf("event %s end: %w", ev.ID, err)
	}
	return timeutil.HoursBetween(start, end), nil
}

// GenerateBreakTemplates synthesizes n break events mirroring the day's
// first real event. The templates all share the mirror's start; placement
// assigns the final times. Generated breaks land on the global-primary
// calendar when one is given.
func GenerateBreakTemplates(pref *store.UserPreference, n int, mirror store.Event, globalCalendarID string) ([]store.Event, error) {
	if pref == nil || pref.BreakLength <= 0 || n <= 0 {
		return nil, nil
	}
	start, err := timeutil.ParseInZone(mirror.StartDate, mirror.Timezone)
	if err != nil {
		return nil, fmt.Errorf("mirror event %s: %w", mirror.ID, err)
	}
	calendarID := mirror.CalendarID
	if globalCalendarID != "" {
		calendarID = globalCalendarID
	}
	color := pref.BreakColor
	if color == "" {
		color = defaultBreakColor
	}

	breaks := make([]store.Event, 0, n)
	for i := 0; i < n; i++ {
		breaks = append(breaks, store.Event{
			ID:              fmt.Sprintf("%s#%s", uuid.New().String(), calendarID),
			UserID:          pref.UserID,
			CalendarID:      calendarID,
			Summary:         "Break",
			Notes:           "Break",
			StartDate:       timeutil.FormatWallClock(start),
			EndDate:         timeutil.FormatWallClock(start.Add(time.Duration(pref.BreakLength) * time.Minute)),
			Timezone:        mirror.Timezone,
			Duration:        pref.BreakLength,
			Priority:        1,
			Modifiable:      true,
			IsBreak:         true,
			BackgroundColor: color,
			UserModified: store.UserModifiedFlags{
				Duration: true,
				Color:    true,
			},
			Method: "create",
		})
	}
	return breaks, nil
}

type interval struct {
	start time.Time
	end   time.Time
}

// inStartHalfOpen reports t in [start, end).
func (iv interval) inStartHalfOpen(t time.Time) bool {
	return !t.Before(iv.start) && t.Before(iv.end)
}

// inEndHalfOpen reports t in (start, end].
func (iv interval) inEndHalfOpen(t time.Time) bool {
	return t.After(iv.start) && !t.After(iv.end)
}

// PlaceBreaks searches for an overlap-free position for each break template.
// Candidate slots end where a real event starts, so breaks pack against the
// meetings they precede; when none of those fit, the scan falls back to
// slots starting where a real event or an already-placed break ends, which
// fills the free tail of the day. A proposal is accepted only if it overlaps
// no real event, stays inside the working day, and clears every break placed
// earlier. Templates with no valid position are dropped and counted, never
// reported as an error.
func PlaceBreaks(dayEvents, templates []store.Event, window DayWindow) (placed []store.Event, dropped int, err error) {
	var real []interval
	for _, ev := range dayEvents {
		if ev.IsBreak {
			continue
		}
		start, perr := timeutil.ParseInZone(ev.StartDate, ev.Timezone)
		if perr != nil {
			return nil, 0, fmt.Errorf("event %s start: %w", ev.ID, perr)
		}
		end, perr := timeutil.ParseInZone(ev.EndDate, ev.Timezone)
		if perr != nil {
			return nil, 0, fmt.Errorf("event %s end: %w", ev.ID, perr)
		}
		real = append(real, interval{start: start, end: end})
	}

	day := interval{start: window.Start, end: window.End}
	var occupied []interval

	for _, tmpl := range templates {
		length := time.Duration(tmpl.Duration) * time.Minute

		var candidates []time.Time
		for _, ev := range real {
			candidates = append(candidates, ev.start.Add(-length))
		}
		for _, ev := range real {
			candidates = append(candidates, ev.end)
		}
		for _, iv := range occupied {
			candidates = append(candidates, iv.end)
		}

		found := false
		for _, possibleStart := range candidates {
			possibleEnd := possibleStart.Add(length)
			if !fitsBreak(possibleStart, possibleEnd, real, occupied, day) {
				continue
			}
			tmpl.StartDate = timeutil.FormatWallClock(possibleStart)
			tmpl.EndDate = timeutil.FormatWallClock(possibleEnd)
			placed = append(placed, tmpl)
			occupied = append(occupied, interval{start: possibleStart, end: possibleEnd})
			found = true
			break
		}
		if !found {
			dropped++
		}
	}
	return placed, dropped, nil
}

func fitsBreak(start, end time.Time, real, occupied []interval, day interval) bool {
	for _, iv := range real {
		if iv.inStartHalfOpen(start) || iv.inEndHalfOpen(end) {
			return false
		}
	}
	if !day.inStartHalfOpen(start) || !day.inEndHalfOpen(end) {
		return false
	}
	for _, iv := range occupied {
		if iv.inStartHalfOpen(start) || iv.inEndHalfOpen(end) {
			return false
		}
	}
	return true
}
