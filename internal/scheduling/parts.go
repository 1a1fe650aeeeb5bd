package scheduling

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// SplitEvent decomposes an event into granularity-sized parts. The part
// count is floor(minutes/granularity) plus one trailing part when a
// remainder exists; meeting numbering mirrors part numbering until buffers
// are spliced in.
func SplitEvent(event store.Event, hostID string, granularity int) ([]EventPart, error) {
	start, err := timeutil.ParseInZone(event.StartDate, event.Timezone)
	if err != nil {
		return nil, fmt.Errorf("event %s start: %w", event.ID, err)
	}
	end, err := timeutil.ParseInZone(event.EndDate, event.Timezone)
	if err != nil {
		return nil, fmt.Errorf("event %s end: %w", event.ID, err)
	}

	minutes := timeutil.MinutesBetween(start, end)
	parts := minutes / granularity
	remainder := minutes % granularity
	lastPart := parts
	if remainder > 0 {
		lastPart = parts + 1
	}

	eventParts := make([]EventPart, 0, lastPart)
	for i := 1; i <= lastPart; i++ {
		eventParts = append(eventParts, EventPart{
			Event:           event,
			GroupID:         event.ID,
			EventID:         event.ID,
			Part:            i,
			LastPart:        lastPart,
			MeetingPart:     i,
			MeetingLastPart: lastPart,
			HostID:          hostID,
		})
	}
	return eventParts, nil
}

// SplicePreBuffers merges each pre-event's parts in front of the parts of
// the event it buffers. The merged group is renumbered 1..N with a fresh
// shared group id; untouched parts pass through.
func SplicePreBuffers(parts []EventPart) []EventPart {
	ids := uniqueBufferTargets(parts, func(p EventPart) bool { return p.IsPreEvent })
	if len(ids) == 0 {
		return parts
	}

	var regrouped []EventPart
	touched := make(map[string]bool)
	for _, id := range ids {
		group := splicePreGroup(parts, id)
		for _, p := range group {
			touched[p.ID] = true
		}
		regrouped = append(regrouped, group...)
	}
	return mergeSplice(parts, regrouped, touched)
}

func splicePreGroup(parts []EventPart, forEventID string) []EventPart {
	groupID := uuid.New().String()

	var pre, actual []EventPart
	for _, p := range parts {
		switch {
		case p.ForEventID == forEventID && p.IsPreEvent:
			p.GroupID = groupID
			pre = append(pre, p)
		case p.ID == forEventID:
			p.GroupID = groupID
			actual = append(actual, p)
		}
	}
	sortByPart(pre)
	sortByPart(actual)

	combined := append(pre, actual...)
	for i := range combined {
		combined[i].Part = i + 1
		combined[i].LastPart = len(combined)
	}
	return combined
}

// SplicePostBuffers appends each post-event's parts after the parts of the
// event it buffers. When the event already carries a pre-event segment, the
// numbering continues from the previously renumbered total instead of
// restarting, and the pre-event parts are pulled into the same group with
// the extended last-part count. The downstream solver depends on this
// continuation rule across chained buffer operations.
func SplicePostBuffers(parts []EventPart) []EventPart {
	ids := uniqueBufferTargets(parts, func(p EventPart) bool { return p.IsPostEvent })
	if len(ids) == 0 {
		return parts
	}

	var regrouped []EventPart
	touched := make(map[string]bool)
	for _, id := range ids {
		group := splicePostGroup(parts, id)
		for _, p := range group {
			touched[p.ID] = true
		}
		regrouped = append(regrouped, group...)
	}
	return mergeSplice(parts, regrouped, touched)
}

func splicePostGroup(parts []EventPart, forEventID string) []EventPart {
	groupID := uuid.New().String()

	var actual, post []EventPart
	for _, p := range parts {
		switch {
		case p.ID == forEventID:
			p.GroupID = groupID
			actual = append(actual, p)
		case p.ForEventID == forEventID && p.IsPostEvent:
			p.GroupID = groupID
			post = append(post, p)
		}
	}
	sortByPart(actual)
	sortByPart(post)

	combined := append(actual, post...)
	if len(combined) == 0 {
		return nil
	}

	preEventID := combined[0].PreEventID
	previousLastPart := combined[0].LastPart

	if preEventID != "" {
		for i := range combined {
			combined[i].LastPart = previousLastPart + len(post)
		}
	} else {
		for i := range combined {
			combined[i].Part = i + 1
			combined[i].LastPart = len(combined)
		}
	}
	for i := range post {
		combined[len(actual)+i].Part = previousLastPart + i + 1
	}

	if preEventID == "" {
		return combined
	}

	// pull the already-spliced pre-event parts into the extended group
	var pre []EventPart
	for _, p := range parts {
		if p.EventID == preEventID {
			p.GroupID = groupID
			p.LastPart = previousLastPart + len(post)
			pre = append(pre, p)
		}
	}
	return append(pre, combined...)
}

func uniqueBufferTargets(parts []EventPart, isBuffer func(EventPart) bool) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range parts {
		if p.ForEventID == "" || !isBuffer(p) || seen[p.ForEventID] {
			continue
		}
		seen[p.ForEventID] = true
		ids = append(ids, p.ForEventID)
	}
	return ids
}

// mergeSplice replaces all parts belonging to regrouped events with the
// regrouped versions, keeping everything else as-is.
func mergeSplice(parts, regrouped []EventPart, touched map[string]bool) []EventPart {
	var out []EventPart
	for _, p := range parts {
		if !touched[p.ID] {
			out = append(out, p)
		}
	}
	return append(out, regrouped...)
}

func sortByPart(parts []EventPart) {
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Part < parts[j].Part })
}

// TagRecurringParts copies the daily/weekly task-list flags from recurring
// master events onto every part materialized from them.
func TagRecurringParts(parts []EventPart, masters []store.Event) []EventPart {
	byID := make(map[string]store.Event, len(masters))
	for _, m := range masters {
		byID[m.ID] = m
	}
	for i, p := range parts {
		if p.RecurringEventID == "" {
			continue
		}
		master, ok := byID[p.RecurringEventID]
		if !ok {
			continue
		}
		parts[i].DailyTaskList = master.DailyTaskList
		parts[i].WeeklyTaskList = master.WeeklyTaskList
	}
	return parts
}

// RecurringMasterIDs collects the distinct recurring-master ids referenced
// by the given parts, for a batched store fetch.
func RecurringMasterIDs(parts []EventPart) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range parts {
		if p.RecurringEventID == "" || seen[p.RecurringEventID] {
			continue
		}
		seen[p.RecurringEventID] = true
		ids = append(ids, p.RecurringEventID)
	}
	return ids
}
