package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// ResolveBufferSource picks the before/after buffer durations for an event:
// the event's own user-modified time blocking wins, then a linked previous
// event that permits copying, then the matched category's defaults. A nil
// result means no buffers apply.
func ResolveBufferSource(event store.Event, previous *store.Event, category *store.Category) *store.BufferMinutes {
	if event.UserModified.TimeBlocking {
		return event.TimeBlocking
	}
	if previous != nil && !event.Unlink && previous.Copy.TimeBlocking && previous.TimeBlocking != nil {
		return previous.TimeBlocking
	}
	// a linked previous event that routes copying through the category
	// suppresses the category defaults
	if previous != nil && category != nil && category.Copy.TimeBlocking {
		return nil
	}
	if category != nil && category.DefaultTimeBlocking != nil {
		return category.DefaultTimeBlocking
	}
	return nil
}

// SynthesizeBuffers creates the pre and post buffer events for the given
// durations and threads their identifiers back onto the parent. Existing
// preEventId/postEventId values are reused so re-runs update the same
// records instead of duplicating them.
func SynthesizeBuffers(event store.Event, buf store.BufferMinutes) (BufferResult, error) {
	result := BufferResult{Event: event}
	if buf.BeforeEvent <= 0 && buf.AfterEvent <= 0 {
		return result, nil
	}

	start, err := timeutil.ParseInZone(event.StartDate, event.Timezone)
	if err != nil {
		return result, fmt.Errorf("event %s start: %w", event.ID, err)
	}
	end, err := timeutil.ParseInZone(event.EndDate, event.Timezone)
	if err != nil {
		return result, fmt.Errorf("event %s end: %w", event.ID, err)
	}

	if buf.AfterEvent > 0 {
		postEventID := event.PostEventID
		method := "update"
		if postEventID == "" {
			postEventID = fmt.Sprintf("%s#%s", uuid.New().String(), event.CalendarID)
			method = "create"
		}
		post := bufferEvent(event, postEventID, method)
		post.IsPostEvent = true
		post.StartDate = timeutil.FormatWallClock(end)
		post.EndDate = timeutil.FormatWallClock(end.Add(time.Duration(buf.AfterEvent) * time.Minute))
		result.PostEvent = &post

		result.Event.PostEventID = postEventID
		tb := cloneBuffer(result.Event.TimeBlocking)
		tb.AfterEvent = buf.AfterEvent
		result.Event.TimeBlocking = tb
	}

	if buf.BeforeEvent > 0 {
		preEventID := event.PreEventID
		method := "update"
		if preEventID == "" {
			preEventID = fmt.Sprintf("%s#%s", uuid.New().String(), event.CalendarID)
			method = "create"
		}
		pre := bufferEvent(event, preEventID, method)
		pre.IsPreEvent = true
		pre.StartDate = timeutil.FormatWallClock(start.Add(-time.Duration(buf.BeforeEvent) * time.Minute))
		pre.EndDate = timeutil.FormatWallClock(start)
		result.PreEvent = &pre

		result.Event.PreEventID = preEventID
		tb := cloneBuffer(result.Event.TimeBlocking)
		tb.BeforeEvent = buf.BeforeEvent
		result.Event.TimeBlocking = tb
	}

	return result, nil
}

func bufferEvent(parent store.Event, id, method string) store.Event {
	return store.Event{
		ID:         id,
		UserID:     parent.UserID,
		CalendarID: parent.CalendarID,
		Summary:    "Buffer time",
		Notes:      "Buffer time",
		Timezone:   parent.Timezone,
		Priority:   1,
		Modifiable: true,
		ForEventID: parent.ID,
		Method:     method,
	}
}

func cloneBuffer(tb *store.BufferMinutes) *store.BufferMinutes {
	if tb == nil {
		return &store.BufferMinutes{}
	}
	clone := *tb
	return &clone
}
