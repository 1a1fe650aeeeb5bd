package planner

import (
	"encoding/json"

	"github.com/plannerhq/schedassist/internal/scheduling"
)

// Concurrent per-day generation can produce structurally identical slots
// and work times for overlapping ranges; the solver payload must carry each
// exactly once.

func dedupTimeSlots(slots []scheduling.TimeSlot) []scheduling.TimeSlot {
	seen := make(map[scheduling.TimeSlot]bool, len(slots))
	out := make([]scheduling.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dedupWorkTimes(workTimes []scheduling.WorkTime) []scheduling.WorkTime {
	seen := make(map[scheduling.WorkTime]bool, len(workTimes))
	out := make([]scheduling.WorkTime, 0, len(workTimes))
	for _, wt := range workTimes {
		if seen[wt] {
			continue
		}
		seen[wt] = true
		out = append(out, wt)
	}
	return out
}

// dedupParts keys on the full serialized part, the structural-equality
// contract for the payload.
func dedupParts(parts []scheduling.EventPart) []scheduling.EventPart {
	seen := make(map[string]bool, len(parts))
	out := make([]scheduling.EventPart, 0, len(parts))
	for _, p := range parts {
		key, err := json.Marshal(p)
		if err != nil {
			out = append(out, p)
			continue
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, p)
	}
	return out
}
