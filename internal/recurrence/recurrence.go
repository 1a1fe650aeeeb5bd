// Package recurrence materializes recurring-event instances across a
// planning window so the engine can treat them as ordinary events.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// instanceIDLayout stamps the occurrence start onto the generated id, the
// calendar-provider convention for recurring instances.
const instanceIDLayout = "20060102T150405"

// ExpandMaster materializes the master's occurrences inside
// [windowStart, windowEnd] as concrete events. The master's wall-clock start
// anchors the rule in its own timezone; each instance keeps the master's
// duration and carries recurringEventId back to it. A master without a rule
// yields nothing.
func ExpandMaster(master store.Event, windowStart, windowEnd time.Time) ([]store.Event, error) {
	if master.RecurrenceRule == "" {
		return nil, nil
	}

	start, err := timeutil.ParseInZone(master.StartDate, master.Timezone)
	if err != nil {
		return nil, fmt.Errorf("master %s start: %w", master.ID, err)
	}
	end, err := timeutil.ParseInZone(master.EndDate, master.Timezone)
	if err != nil {
		return nil, fmt.Errorf("master %s end: %w", master.ID, err)
	}
	duration := end.Sub(start)

	rule, err := parseRule(master.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("master %s rule: %w", master.ID, err)
	}
	rule.DTStart(start)

	var instances []store.Event
	for _, occurrence := range rule.Between(windowStart, windowEnd, true) {
		// the master itself is already stored; only future occurrences
		// materialize
		if occurrence.Equal(start) {
			continue
		}
		instance := master
		instance.ID = fmt.Sprintf("%s_%s", master.ID, occurrence.Format(instanceIDLayout))
		instance.StartDate = timeutil.FormatWallClock(occurrence)
		instance.EndDate = timeutil.FormatWallClock(occurrence.Add(duration))
		instance.RecurringEventID = master.ID
		instance.RecurrenceRule = ""
		instance.Method = "create"
		instances = append(instances, instance)
	}
	return instances, nil
}

// ExpandAll expands every rule-bearing master, concatenating the instances.
func ExpandAll(masters []store.Event, windowStart, windowEnd time.Time) ([]store.Event, error) {
	var instances []store.Event
	for _, master := range masters {
		expanded, err := ExpandMaster(master, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		instances = append(instances, expanded...)
	}
	return instances, nil
}

// parseRule accepts both a bare rule ("FREQ=DAILY;COUNT=3") and the
// prefixed iCalendar property form ("RRULE:FREQ=DAILY;COUNT=3").
func parseRule(s string) (*rrule.RRule, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "RRULE:")
	return rrule.StrToRRule(s)
}
