package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// Transparency values.
const (
	TransparencyOpaque      = "opaque"
	TransparencyTransparent = "transparent"
)

// Built-in category names that force the meeting flags when matched.
const (
	DefaultMeetingLabel         = "Meeting"
	DefaultExternalMeetingLabel = "External Meeting"
)

// CascadeInput bundles the sources consulted when resolving an event's
// scheduling attributes. Previous is the linked previous event (nil when
// none), Category the best-match category, Preference the user's global
// configuration.
type CascadeInput struct {
	Event      store.Event
	Previous   *store.Event
	Category   *store.Category
	Preference *store.UserPreference
}

// linked reports whether attribute values may be pulled from the previous
// event at all. unlink permanently severs the inheritance.
func (in CascadeInput) linked() bool {
	return in.Previous != nil && !in.Event.Unlink
}

// fromPrevious resolves one step of the shared precedence: previous event's
// own permission first, then the category's, then (after category defaults
// have had their chance) the user preference's. The two booleans distinguish
// "pull from previous now" at the high-priority stage from the
// preference-gated fallback stage.
func (in CascadeInput) fromPrevious(sel func(store.CopyFlags) bool) (beforeDefaults, afterDefaults bool) {
	if !in.linked() {
		return false, false
	}
	if sel(in.Previous.Copy) {
		return true, false
	}
	if in.Category != nil && sel(in.Category.Copy) {
		return true, false
	}
	if in.Preference != nil && sel(in.Preference.Copy) {
		return false, true
	}
	return false, false
}

// ResolveEventAttributes runs the attribute cascade: explicit user edits win,
// then the linked previous event when copying is permitted, then the matched
// category's defaults, then the preference-gated previous-event fallback,
// then the event's existing value. Resolving an event whose userModified
// flags are all set returns it unchanged.
func ResolveEventAttributes(in CascadeInput) (store.Event, error) {
	event := in.Event

	resolvers := []func(*store.Event, CascadeInput) error{
		resolveTransparency,
		resolvePriority,
		resolveIsBreak,
		resolveModifiable,
		resolveIsMeeting,
		resolveIsExternalMeeting,
		resolveMeetingModifiable,
		resolveTimePreference,
		resolveDuration,
		resolveColor,
		resolveImpactFields,
		propagateCopyFlags,
	}
	for _, resolve := range resolvers {
		if err := resolve(&event, in); err != nil {
			return store.Event{}, err
		}
	}
	return event, nil
}

func resolveTransparency(event *store.Event, in CascadeInput) error {
	if event.UserModified.Availability {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.Availability })
	if before {
		event.Transparency = in.Previous.Transparency
		return nil
	}
	if in.Category != nil && in.Category.DefaultAvailability {
		event.Transparency = TransparencyTransparent
		return nil
	}
	if after {
		event.Transparency = in.Previous.Transparency
	}
	return nil
}

func resolvePriority(event *store.Event, in CascadeInput) error {
	if event.UserModified.PriorityLevel {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.PriorityLevel })
	if before {
		event.Priority = in.Previous.Priority
		return nil
	}
	if in.Category != nil && in.Category.DefaultPriorityLevel > 0 {
		event.Priority = in.Category.DefaultPriorityLevel
		return nil
	}
	if after {
		event.Priority = in.Previous.Priority
	}
	return nil
}

func resolveIsBreak(event *store.Event, in CascadeInput) error {
	if event.UserModified.IsBreak {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.IsBreak })
	if before {
		event.IsBreak = in.Previous.IsBreak
		return nil
	}
	if in.Category != nil && in.Category.DefaultIsBreak {
		event.IsBreak = true
		return nil
	}
	if after {
		event.IsBreak = in.Previous.IsBreak
	}
	return nil
}

func resolveModifiable(event *store.Event, in CascadeInput) error {
	if event.UserModified.Modifiable {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.Modifiable })
	if before {
		event.Modifiable = in.Previous.Modifiable
		return nil
	}
	if in.Category != nil {
		event.Modifiable = in.Category.DefaultModifiable
		return nil
	}
	if after {
		event.Modifiable = in.Previous.Modifiable
	}
	return nil
}

func resolveIsMeeting(event *store.Event, in CascadeInput) error {
	if event.UserModified.IsMeeting {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.IsMeeting })
	if before {
		event.IsMeeting = in.Previous.IsMeeting
		return nil
	}
	if in.Category != nil && in.Category.DefaultIsMeeting {
		event.IsMeeting = true
		return nil
	}
	if after {
		event.IsMeeting = in.Previous.IsMeeting
	}
	return nil
}

func resolveIsExternalMeeting(event *store.Event, in CascadeInput) error {
	if event.UserModified.IsExternalMeeting {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.IsExternalMeeting })
	if before {
		event.IsExternalMeeting = in.Previous.IsExternalMeeting
		return nil
	}
	if in.Category != nil && in.Category.DefaultIsExternalMeeting {
		event.IsExternalMeeting = true
		return nil
	}
	if after {
		event.IsExternalMeeting = in.Previous.IsExternalMeeting
	}
	return nil
}

func resolveMeetingModifiable(event *store.Event, in CascadeInput) error {
	if event.UserModified.Modifiable {
		return nil
	}
	if in.Category == nil {
		return nil
	}
	if in.Category.DefaultIsMeeting {
		event.IsMeetingModifiable = in.Category.DefaultMeetingModifiable
	}
	if in.Category.DefaultIsExternalMeeting {
		event.IsExternalMeetingModifiable = in.Category.DefaultExternalMeetingModifiable
	}
	return nil
}

// resolveTimePreference departs from the shared order: the preference-gated
// previous-event copy outranks the category's default time ranges here.
func resolveTimePreference(event *store.Event, in CascadeInput) error {
	if event.UserModified.TimePreference {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.TimePreference })
	if before || after {
		copyTimePreferenceFrom(event, in.Previous)
		return nil
	}
	if in.Category != nil && len(in.Category.DefaultTimePreference) > 0 {
		event.PreferredTimeRanges = repointTimeRanges(in.Category.DefaultTimePreference, event.ID, event.UserID)
	}
	return nil
}

func copyTimePreferenceFrom(event *store.Event, previous *store.Event) {
	event.PreferredDayOfWeek = previous.PreferredDayOfWeek
	event.PreferredTime = previous.PreferredTime
	event.PreferredStartTimeRange = previous.PreferredStartTimeRange
	event.PreferredEndTimeRange = previous.PreferredEndTimeRange
	if len(previous.PreferredTimeRanges) > 0 {
		event.PreferredTimeRanges = repointTimeRanges(previous.PreferredTimeRanges, event.ID, event.UserID)
	}
}

// repointTimeRanges clones ranges onto the target event with fresh ids so a
// copied preference never aliases its source.
func repointTimeRanges(ranges []store.PreferredTimeRange, eventID, userID string) []store.PreferredTimeRange {
	out := make([]store.PreferredTimeRange, 0, len(ranges))
	for _, r := range ranges {
		r.ID = uuid.New().String()
		r.EventID = eventID
		r.UserID = userID
		out = append(out, r)
	}
	return out
}

// resolveDuration overwrites duration and end date only as a pair: the end
// date is recomputed from the event's own start in its own timezone.
func resolveDuration(event *store.Event, in CascadeInput) error {
	if event.UserModified.Duration {
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.Duration })
	if !before && !after {
		return nil
	}
	minutes := in.Previous.Duration
	if minutes <= 0 {
		// fall back to the previous event's own span when its duration
		// field was never set
		prevStart, err := timeutil.ParseInZone(in.Previous.StartDate, in.Previous.Timezone)
		if err != nil {
			return fmt.Errorf("previous event %s start: %w", in.Previous.ID, err)
		}
		prevEnd, err := timeutil.ParseInZone(in.Previous.EndDate, in.Previous.Timezone)
		if err != nil {
			return fmt.Errorf("previous event %s end: %w", in.Previous.ID, err)
		}
		minutes = timeutil.MinutesBetween(prevStart, prevEnd)
	}
	if minutes <= 0 {
		return nil
	}
	start, err := timeutil.ParseInZone(event.StartDate, event.Timezone)
	if err != nil {
		return fmt.Errorf("event %s start: %w", event.ID, err)
	}
	event.Duration = minutes
	event.EndDate = timeutil.FormatWallClock(start.Add(time.Duration(minutes) * time.Minute))
	return nil
}

func resolveColor(event *store.Event, in CascadeInput) error {
	if event.UserModified.Color {
		return nil
	}
	// colorId bypasses the normal layering when the previous event both
	// permits color copying and carries one
	if in.linked() && in.Previous.Copy.Color && in.Previous.ColorID != "" {
		event.ColorID = in.Previous.ColorID
		return nil
	}
	before, after := in.fromPrevious(func(c store.CopyFlags) bool { return c.Color })
	if before {
		event.BackgroundColor = in.Previous.BackgroundColor
		return nil
	}
	if in.Category != nil && in.Category.Color != "" {
		event.BackgroundColor = in.Category.Color
		return nil
	}
	if after {
		event.BackgroundColor = in.Previous.BackgroundColor
	}
	return nil
}

func resolveImpactFields(event *store.Event, in CascadeInput) error {
	if !in.linked() {
		return nil
	}
	event.PositiveImpactScore = in.Previous.PositiveImpactScore
	event.NegativeImpactScore = in.Previous.NegativeImpactScore
	event.PositiveImpactDayOfWeek = in.Previous.PositiveImpactDayOfWeek
	event.NegativeImpactDayOfWeek = in.Previous.NegativeImpactDayOfWeek
	event.PositiveImpactTime = in.Previous.PositiveImpactTime
	event.NegativeImpactTime = in.Previous.NegativeImpactTime
	return nil
}

// propagateCopyFlags carries the previous event's copy permissions forward
// so future cascades keep the same behavior; unlink clears them all.
func propagateCopyFlags(event *store.Event, in CascadeInput) error {
	if in.Previous == nil {
		return nil
	}
	if in.Event.Unlink {
		event.Copy = store.CopyFlags{}
		return nil
	}
	event.Copy = in.Previous.Copy
	return nil
}

// ApplyMeetingCategoryLayer applies the built-in meeting/external-meeting
// category defaults on top of an already resolved event. This runs after
// category matching: the built-in labels force the corresponding flag as a
// final override layer rather than fusing with generic resolution.
func ApplyMeetingCategoryLayer(event store.Event, category store.Category) store.Event {
	switch category.Name {
	case DefaultMeetingLabel:
		event.IsMeeting = true
		if category.DefaultIsMeeting {
			event.IsMeetingModifiable = category.DefaultMeetingModifiable
		}
	case DefaultExternalMeetingLabel:
		event.IsExternalMeeting = true
		if category.DefaultIsExternalMeeting {
			event.IsExternalMeetingModifiable = category.DefaultExternalMeetingModifiable
		}
	default:
		return event
	}
	if !event.UserModified.PriorityLevel && category.DefaultPriorityLevel > 0 {
		event.Priority = category.DefaultPriorityLevel
	}
	if !event.UserModified.Modifiable {
		event.Modifiable = category.DefaultModifiable
	}
	if !event.UserModified.Color && category.Color != "" {
		event.BackgroundColor = category.Color
	}
	return event
}

// ResolveReminders materializes reminders for an event from its previous
// event (when copying is permitted) and the matched category's default
// minute offsets, deduplicated by minutes. An explicit user edit keeps the
// event's own reminders untouched.
func ResolveReminders(event store.Event, in CascadeInput, previousReminders []store.Reminder) []store.Reminder {
	if event.UserModified.Reminders {
		return nil
	}

	var out []store.Reminder
	seen := make(map[int]bool)

	add := func(minutes int, useDefault bool) {
		if seen[minutes] {
			return
		}
		seen[minutes] = true
		out = append(out, store.Reminder{
			ID:         uuid.New().String(),
			UserID:     event.UserID,
			EventID:    event.ID,
			Minutes:    minutes,
			Timezone:   event.Timezone,
			UseDefault: useDefault,
		})
	}

	if in.linked() && in.Previous.Copy.Reminders {
		for _, r := range previousReminders {
			add(r.Minutes, r.UseDefault)
		}
		return out
	}

	if in.Category != nil {
		for _, minutes := range in.Category.DefaultReminders {
			add(minutes, false)
		}
	}
	return out
}
