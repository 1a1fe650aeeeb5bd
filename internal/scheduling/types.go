// Package scheduling implements the preparation engine: work-time
// resolution, slot generation, break placement, buffer synthesis, event-part
// splitting, and attribute-default resolution.
package scheduling

import "github.com/plannerhq/schedassist/internal/store"

// Slot granularities in minutes.
const (
	GranularityFull = 15
	GranularityLite = 30
)

var weekdayNames = [8]string{"", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// WeekdayName maps an ISO weekday (1-7) to its solver-facing name.
func WeekdayName(day int) string {
	if day < 1 || day > 7 {
		return ""
	}
	return weekdayNames[day]
}

// WorkTime is a participant's declared or inferred working window for one
// weekday, in the host timezone. Times are "HH:mm".
type WorkTime struct {
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	HostID    string `json:"hostId"`
	UserID    string `json:"userId"`
}

// TimeSlot is one bookable interval in the host timezone. MonthDay
// disambiguates the day across timezone boundaries.
type TimeSlot struct {
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	HostID    string `json:"hostId"`
	MonthDay  string `json:"monthDay"`
}

// EventPart is one fixed-size slice of an event prepared for the solver.
// All parts of one buffered unit (pre-event + event + post-event) share a
// GroupID after splicing; Part runs 1..LastPart within the group.
// MeetingPart/MeetingLastPart keep the numbering scoped to the meeting
// proper, excluding buffer parts.
type EventPart struct {
	store.Event

	GroupID         string `json:"groupId"`
	EventID         string `json:"eventId"`
	Part            int    `json:"part"`
	LastPart        int    `json:"lastPart"`
	MeetingPart     int    `json:"meetingPart"`
	MeetingLastPart int    `json:"meetingLastPart"`
	HostID          string `json:"hostId"`
}

// BufferResult carries the synthesized buffer events plus the parent event
// with its linkage fields updated.
type BufferResult struct {
	PreEvent  *store.Event
	PostEvent *store.Event
	Event     store.Event
}
