package scheduling

import (
	"strings"
	"testing"

	"github.com/plannerhq/schedassist/internal/store"
)

func TestResolveBufferSource(t *testing.T) {
	own := &store.BufferMinutes{BeforeEvent: 10, AfterEvent: 5}
	prevBuf := &store.BufferMinutes{BeforeEvent: 20}
	catBuf := &store.BufferMinutes{AfterEvent: 30}

	tests := []struct {
		name     string
		event    store.Event
		previous *store.Event
		category *store.Category
		want     *store.BufferMinutes
	}{
		{
			name:  "user modified wins",
			event: store.Event{TimeBlocking: own, UserModified: store.UserModifiedFlags{TimeBlocking: true}},
			previous: &store.Event{
				TimeBlocking: prevBuf,
				Copy:         store.CopyFlags{TimeBlocking: true},
			},
			want: own,
		},
		{
			name:  "previous copies when linked",
			event: store.Event{},
			previous: &store.Event{
				TimeBlocking: prevBuf,
				Copy:         store.CopyFlags{TimeBlocking: true},
			},
			want: prevBuf,
		},
		{
			name:  "unlink severs the previous event",
			event: store.Event{Unlink: true},
			previous: &store.Event{
				TimeBlocking: prevBuf,
				Copy:         store.CopyFlags{TimeBlocking: true},
			},
			want: nil,
		},
		{
			name:     "category default applies without a previous event",
			event:    store.Event{},
			category: &store.Category{DefaultTimeBlocking: catBuf},
			want:     catBuf,
		},
		{
			name:     "category copy routing suppresses the default when linked",
			event:    store.Event{},
			previous: &store.Event{},
			category: &store.Category{Copy: store.CopyFlags{TimeBlocking: true}, DefaultTimeBlocking: catBuf},
			want:     nil,
		},
		{
			name:  "nothing applies",
			event: store.Event{},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBufferSource(tt.event, tt.previous, tt.category)
			if got != tt.want {
				t.Errorf("source = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSynthesizeBuffers(t *testing.T) {
	event := meeting("ev1", "2025-03-03T10:00:00", "2025-03-03T11:00:00")
	event.CalendarID = "cal-1"

	result, err := SynthesizeBuffers(event, store.BufferMinutes{BeforeEvent: 15, AfterEvent: 10})
	if err != nil {
		t.Fatalf("SynthesizeBuffers: %v", err)
	}

	pre := result.PreEvent
	if pre == nil {
		t.Fatal("no pre event")
	}
	if pre.StartDate != "2025-03-03T09:45:00" || pre.EndDate != "2025-03-03T10:00:00" {
		t.Errorf("pre window = %s-%s", pre.StartDate, pre.EndDate)
	}
	if !pre.IsPreEvent || pre.ForEventID != "ev1" {
		t.Errorf("pre linkage: isPreEvent=%v forEventId=%q", pre.IsPreEvent, pre.ForEventID)
	}
	if pre.Summary != "Buffer time" || pre.Method != "create" {
		t.Errorf("pre summary/method = %q/%q", pre.Summary, pre.Method)
	}
	if !strings.HasSuffix(pre.ID, "#cal-1") {
		t.Errorf("pre id %q not calendar scoped", pre.ID)
	}

	post := result.PostEvent
	if post == nil {
		t.Fatal("no post event")
	}
	if post.StartDate != "2025-03-03T11:00:00" || post.EndDate != "2025-03-03T11:10:00" {
		t.Errorf("post window = %s-%s", post.StartDate, post.EndDate)
	}
	if !post.IsPostEvent {
		t.Error("post event not flagged")
	}

	if result.Event.PreEventID != pre.ID || result.Event.PostEventID != post.ID {
		t.Errorf("parent linkage = %q/%q", result.Event.PreEventID, result.Event.PostEventID)
	}
	tb := result.Event.TimeBlocking
	if tb == nil || tb.BeforeEvent != 15 || tb.AfterEvent != 10 {
		t.Errorf("parent timeBlocking = %+v", tb)
	}
}

func TestSynthesizeBuffersReusesExistingIDs(t *testing.T) {
	event := meeting("ev1", "2025-03-03T10:00:00", "2025-03-03T11:00:00")
	event.PreEventID = "pre-old#cal-1"
	event.PostEventID = "post-old#cal-1"

	result, err := SynthesizeBuffers(event, store.BufferMinutes{BeforeEvent: 5, AfterEvent: 5})
	if err != nil {
		t.Fatalf("SynthesizeBuffers: %v", err)
	}
	if result.PreEvent.ID != "pre-old#cal-1" || result.PreEvent.Method != "update" {
		t.Errorf("pre = %q/%q, want reuse via update", result.PreEvent.ID, result.PreEvent.Method)
	}
	if result.PostEvent.ID != "post-old#cal-1" || result.PostEvent.Method != "update" {
		t.Errorf("post = %q/%q, want reuse via update", result.PostEvent.ID, result.PostEvent.Method)
	}
}

func TestSynthesizeBuffersNoDurations(t *testing.T) {
	event := meeting("ev1", "2025-03-03T10:00:00", "2025-03-03T11:00:00")
	result, err := SynthesizeBuffers(event, store.BufferMinutes{})
	if err != nil {
		t.Fatalf("SynthesizeBuffers: %v", err)
	}
	if result.PreEvent != nil || result.PostEvent != nil {
		t.Error("expected no buffer events for zero durations")
	}
	if result.Event.PreEventID != "" || result.Event.PostEventID != "" {
		t.Error("parent linkage should stay empty")
	}
}

func TestSynthesizeBuffersPostOnly(t *testing.T) {
	event := meeting("ev1", "2025-03-03T10:00:00", "2025-03-03T11:00:00")
	result, err := SynthesizeBuffers(event, store.BufferMinutes{AfterEvent: 30})
	if err != nil {
		t.Fatalf("SynthesizeBuffers: %v", err)
	}
	if result.PreEvent != nil {
		t.Error("unexpected pre event")
	}
	if result.PostEvent == nil || result.PostEvent.EndDate != "2025-03-03T11:30:00" {
		t.Fatalf("post = %+v", result.PostEvent)
	}
	if result.Event.TimeBlocking.BeforeEvent != 0 {
		t.Errorf("beforeEvent = %d, want 0", result.Event.TimeBlocking.BeforeEvent)
	}
}
