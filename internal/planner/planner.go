// Package planner orchestrates a planning run: it loads the host's
// preferences and events, resolves every event through the attribute
// cascade, synthesizes breaks and buffers, decomposes events into solver
// parts, and submits the assembled day plan to the external solver.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/plannerhq/schedassist/internal/classifier"
	"github.com/plannerhq/schedassist/internal/metrics"
	"github.com/plannerhq/schedassist/internal/recurrence"
	"github.com/plannerhq/schedassist/internal/scheduling"
	"github.com/plannerhq/schedassist/internal/solver"
	"github.com/plannerhq/schedassist/internal/store"
	"github.com/plannerhq/schedassist/internal/timeutil"
)

// SolverAPI submits prepared day plans.
type SolverAPI interface {
	SolveDay(ctx context.Context, req solver.Request) error
}

// ClassifierAPI scores event text against category names.
type ClassifierAPI interface {
	ClassifyEvent(ctx context.Context, summary, notes string, labels []string) (classifier.Result, error)
}

// Stores collects the repositories a run touches.
type Stores struct {
	Events         store.EventRepository
	Categories     store.CategoryRepository
	CategoryEvents store.CategoryEventRepository
	Preferences    store.UserPreferenceRepository
	Reminders      store.ReminderRepository
	Calendars      store.CalendarRepository
	Runs           store.PlanningRunRepository
}

// StoresFrom adapts the aggregate store.
func StoresFrom(s *store.Store) Stores {
	return Stores{
		Events:         s.Events,
		Categories:     s.Categories,
		CategoryEvents: s.CategoryEvents,
		Preferences:    s.UserPreferences,
		Reminders:      s.Reminders,
		Calendars:      s.Calendars,
		Runs:           s.PlanningRuns,
	}
}

// Config tunes a planner instance.
type Config struct {
	CallbackURL    string
	DelayMillis    int64
	ScoreThreshold float64
	Granularity    int
	MaxConcurrency int
}

func (c Config) withDefaults() Config {
	if c.DelayMillis == 0 {
		c.DelayMillis = 5000
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = 0.6
	}
	if c.Granularity == 0 {
		c.Granularity = scheduling.GranularityFull
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 4
	}
	return c
}

// Planner runs the preparation pipeline.
type Planner struct {
	stores     Stores
	solver     SolverAPI
	classifier ClassifierAPI
	cfg        Config
	now        func() time.Time
}

func New(stores Stores, sol SolverAPI, cls ClassifierAPI, cfg Config) *Planner {
	return &Planner{
		stores:     stores,
		solver:     sol,
		classifier: cls,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
}

// RunRequest describes one planning run.
type RunRequest struct {
	HostID    string
	Attendees []string
	Timezone  string
	// WindowStart is the first day to plan, interpreted in Timezone.
	WindowStart time.Time
	Days        int
}

// RunReport is the partial-failure account of a run: dropped breaks and
// per-event problems are reported, not fatal.
type RunReport struct {
	RunID           string   `json:"runId"`
	HostID          string   `json:"hostId"`
	Days            int      `json:"days"`
	Events          int      `json:"events"`
	EventParts      int      `json:"eventParts"`
	TimeSlots       int      `json:"timeSlots"`
	WorkTimes       int      `json:"workTimes"`
	GeneratedBreaks int      `json:"generatedBreaks"`
	DroppedBreaks   int      `json:"droppedBreaks"`
	BufferEvents    int      `json:"bufferEvents"`
	Submitted       bool     `json:"submitted"`
	Errors          []string `json:"errors,omitempty"`
}

// PlanRun executes the pipeline for one host window. Per-event failures are
// recorded on the report and skip only the offending event; a solver
// rejection marks the stored run failed without losing the report.
func (p *Planner) PlanRun(ctx context.Context, req RunRequest) (*RunReport, error) {
	if req.HostID == "" {
		return nil, errors.New("host id is required")
	}
	if req.Days <= 0 {
		req.Days = 1
	}
	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", req.Timezone, err)
	}

	runID := uuid.New().String()
	report := &RunReport{RunID: runID, HostID: req.HostID, Days: req.Days}

	windowStart := time.Date(req.WindowStart.Year(), req.WindowStart.Month(), req.WindowStart.Day(), 0, 0, 0, 0, loc)
	windowEnd := windowStart.AddDate(0, 0, req.Days)

	pref, err := p.stores.Preferences.GetForUser(ctx, req.HostID)
	if err != nil {
		return nil, fmt.Errorf("load preference for host %s: %w", req.HostID, err)
	}

	globalCalendarID := ""
	if cal, err := p.stores.Calendars.GetGlobalPrimary(ctx, req.HostID); err == nil {
		globalCalendarID = cal.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load primary calendar: %w", err)
	}

	events, err := p.stores.Events.ListForUserWindow(ctx, req.HostID,
		timeutil.FormatWallClock(windowStart), timeutil.FormatWallClock(windowEnd))
	if err != nil {
		return nil, fmt.Errorf("load events for host %s: %w", req.HostID, err)
	}

	// materialize recurring instances inside the window
	var masters []store.Event
	for _, ev := range events {
		if ev.RecurrenceRule != "" {
			masters = append(masters, ev)
		}
	}
	instances, err := recurrence.ExpandAll(masters, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	events = append(events, instances...)

	categories, err := p.stores.Categories.ListByUser(ctx, req.HostID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	labels := scheduling.CategoryNames(categories)

	planEvents, bufferEvents := p.resolveEvents(ctx, req.HostID, events, categories, labels, pref, report)
	report.BufferEvents = len(bufferEvents)
	planEvents = append(planEvents, bufferEvents...)

	planEvents, generated, dropped := p.planBreaks(ctx, pref, planEvents, globalCalendarID, windowStart, req.Days, report)
	report.GeneratedBreaks = generated
	report.DroppedBreaks = dropped

	parts, err := p.buildParts(ctx, req.HostID, planEvents, masters)
	if err != nil {
		return nil, err
	}
	report.Events = len(planEvents)

	timeSlots, workTimes, attendeeParts, err := p.resolveParticipants(ctx, req, pref, loc, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	parts = append(parts, attendeeParts...)
	report.EventParts = len(parts)
	metrics.ObserveEventParts(len(parts))
	timeSlots = dedupTimeSlots(timeSlots)
	workTimes = dedupWorkTimes(workTimes)
	report.TimeSlots = len(timeSlots)
	report.WorkTimes = len(workTimes)

	users := p.solverUsers(req, pref, workTimes)
	solverParts := p.decorateParts(dedupParts(parts), users, pref)

	run := store.PlanningRun{
		ID:      runID,
		HostID:  req.HostID,
		FileKey: fmt.Sprintf("%s/%s.json", req.HostID, runID),
		Status:  store.RunStatusSubmitted,
	}
	if _, err := p.stores.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record planning run: %w", err)
	}

	solverReq := solver.Request{
		SingletonID: runID,
		HostID:      req.HostID,
		TimeSlots:   timeSlots,
		UserList:    users,
		EventParts:  solverParts,
		FileKey:     run.FileKey,
		Delay:       p.cfg.DelayMillis,
		CallBackURL: p.cfg.CallbackURL,
	}
	if err := p.solver.SolveDay(ctx, solverReq); err != nil {
		log.Printf("[ERROR] planning run %s: solver submission failed: %v", runID, err)
		if serr := p.stores.Runs.SetStatus(ctx, runID, store.RunStatusFailed, err.Error()); serr != nil {
			log.Printf("[ERROR] planning run %s: record failure: %v", runID, serr)
		}
		metrics.CountPlanningRun("failed")
		report.Errors = append(report.Errors, fmt.Sprintf("solver submission: %v", err))
		return report, nil
	}

	metrics.CountPlanningRun("submitted")
	report.Submitted = true
	return report, nil
}

// resolveEvents runs classification, the attribute cascade, reminder and
// category-link upkeep, and buffer synthesis for every host event.
func (p *Planner) resolveEvents(ctx context.Context, hostID string, events []store.Event,
	categories []store.Category, labels []string, pref *store.UserPreference, report *RunReport) (planEvents, bufferEvents []store.Event) {

	byID := make(map[string]store.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	for _, ev := range events {
		if ev.Deleted || ev.IsPreEvent || ev.IsPostEvent || ev.RecurrenceRule != "" {
			continue
		}
		if err := scheduling.ValidateEventDates(ev, pref); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}

		var result classifier.Result
		if p.classifier != nil && len(labels) > 0 && !ev.IsBreak {
			var err error
			result, err = p.classifier.ClassifyEvent(ctx, ev.Summary, ev.Notes, labels)
			if err != nil {
				log.Printf("[WARN] classify event %s: %v", ev.ID, err)
				report.Errors = append(report.Errors, fmt.Sprintf("classify event %s: %v", ev.ID, err))
			}
		}
		var category *store.Category
		if name, ok := scheduling.BestLabel(result.Labels, result.Scores, p.cfg.ScoreThreshold); ok {
			category = scheduling.CategoryByName(categories, name)
		}

		previous := p.previousEvent(ctx, ev, byID)

		in := scheduling.CascadeInput{Event: ev, Previous: previous, Category: category, Preference: pref}
		resolved, err := scheduling.ResolveEventAttributes(in)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}

		matched := scheduling.MeetingLayerCategories(resolved, categories, result.Labels, result.Scores, p.cfg.ScoreThreshold)
		for _, layer := range matched {
			resolved = scheduling.ApplyMeetingCategoryLayer(resolved, layer)
		}

		p.persistReminders(ctx, resolved, in, previous, report)
		if category != nil {
			matched = append(matched, *category)
		}
		p.persistCategoryLinks(ctx, resolved, matched, report)

		buf := scheduling.ResolveBufferSource(resolved, previous, category)
		if buf != nil {
			br, err := scheduling.SynthesizeBuffers(resolved, *buf)
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			resolved = br.Event
			if br.PreEvent != nil {
				bufferEvents = append(bufferEvents, *br.PreEvent)
			}
			if br.PostEvent != nil {
				bufferEvents = append(bufferEvents, *br.PostEvent)
			}
		}

		if _, err := p.stores.Events.Upsert(ctx, resolved); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("persist event %s: %v", resolved.ID, err))
		}
		planEvents = append(planEvents, resolved)
	}

	for _, buffer := range bufferEvents {
		if _, err := p.stores.Events.Upsert(ctx, buffer); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("persist buffer %s: %v", buffer.ID, err))
		}
	}
	return planEvents, bufferEvents
}

// previousEvent finds the cascade source: a recurring instance inherits
// from its master.
func (p *Planner) previousEvent(ctx context.Context, ev store.Event, byID map[string]store.Event) *store.Event {
	if ev.RecurringEventID == "" {
		return nil
	}
	if master, ok := byID[ev.RecurringEventID]; ok {
		return &master
	}
	master, err := p.stores.Events.GetByID(ctx, ev.RecurringEventID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[WARN] load previous event %s: %v", ev.RecurringEventID, err)
		}
		return nil
	}
	return master
}

func (p *Planner) persistReminders(ctx context.Context, resolved store.Event, in scheduling.CascadeInput,
	previous *store.Event, report *RunReport) {

	var previousReminders []store.Reminder
	if previous != nil {
		var err error
		previousReminders, err = p.stores.Reminders.ListForEvent(ctx, previous.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("load reminders for %s: %v", previous.ID, err))
			return
		}
	}
	reminders := scheduling.ResolveReminders(resolved, in, previousReminders)
	if len(reminders) == 0 {
		return
	}
	if err := p.stores.Reminders.ReplaceForEvent(ctx, resolved.ID, reminders); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("persist reminders for %s: %v", resolved.ID, err))
	}
}

func (p *Planner) persistCategoryLinks(ctx context.Context, resolved store.Event, matched []store.Category, report *RunReport) {
	if len(matched) == 0 {
		return
	}
	existing, err := p.stores.CategoryEvents.ListForEvent(ctx, resolved.ID)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("load category links for %s: %v", resolved.ID, err))
		return
	}
	for _, link := range scheduling.CategoryLinksToWrite(resolved, matched, existing) {
		if err := p.stores.CategoryEvents.Link(ctx, link); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("link category %s: %v", link.CategoryID, err))
		}
	}
}

// planBreaks runs the per-day break decision and placement. Placement is
// sequential within a day; un-placeable templates count as dropped.
func (p *Planner) planBreaks(ctx context.Context, pref *store.UserPreference, planEvents []store.Event,
	globalCalendarID string, windowStart time.Time, days int, report *RunReport) ([]store.Event, int, int) {

	var generated, dropped int
	for i := 0; i < days; i++ {
		day := windowStart.AddDate(0, 0, i)
		window, ok := scheduling.WindowForDay(pref, day)
		if !ok {
			continue
		}
		// bucket by host-local calendar day: an event stored in another
		// timezone can belong to a different day than its wall clock says
		dayKey := day.Format(timeutil.DateLayout)
		var dayEvents []store.Event
		for _, ev := range planEvents {
			start, err := timeutil.ParseInZone(ev.StartDate, ev.Timezone)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("event %s start: %v", ev.ID, err))
				continue
			}
			if start.In(windowStart.Location()).Format(timeutil.DateLayout) == dayKey {
				dayEvents = append(dayEvents, ev)
			}
		}
		if len(dayEvents) == 0 {
			continue
		}

		workingHours := scheduling.WorkingHoursForDay(pref, timeutil.ISOWeekday(day))
		n, err := scheduling.PlanBreaksForDay(pref, workingHours, dayEvents)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		if n == 0 {
			continue
		}
		templates, err := scheduling.GenerateBreakTemplates(pref, n, dayEvents[0], globalCalendarID)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		placed, droppedToday, err := scheduling.PlaceBreaks(dayEvents, templates, window)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		metrics.CountDroppedBreaks(droppedToday)
		dropped += droppedToday
		generated += len(placed)

		for _, b := range placed {
			if _, err := p.stores.Events.Upsert(ctx, b); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("persist break %s: %v", b.ID, err))
			}
		}
		planEvents = append(planEvents, placed...)
	}
	return planEvents, generated, dropped
}

// buildParts splits every plan event and splices the buffer groups. Masters
// referenced by a part but starting outside the window are fetched by id so
// their task-list flags still propagate.
func (p *Planner) buildParts(ctx context.Context, hostID string, planEvents []store.Event,
	masters []store.Event) ([]scheduling.EventPart, error) {

	var parts []scheduling.EventPart
	for _, ev := range planEvents {
		split, err := scheduling.SplitEvent(ev, hostID, p.cfg.Granularity)
		if err != nil {
			return nil, err
		}
		parts = append(parts, split...)
	}
	parts = scheduling.SplicePreBuffers(parts)
	parts = scheduling.SplicePostBuffers(parts)

	known := make(map[string]bool, len(masters))
	for _, m := range masters {
		known[m.ID] = true
	}
	var missing []string
	for _, id := range scheduling.RecurringMasterIDs(parts) {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		fetched, err := p.stores.Events.ListByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("load recurring masters: %w", err)
		}
		masters = append(masters, fetched...)
	}

	parts = scheduling.TagRecurringParts(parts, masters)
	return scheduling.PinUnmodifiableParts(parts)
}

// resolveParticipants fans out the per-(day,participant) slot generation and
// the per-attendee work-time inference under a bounded errgroup. Attendee
// events also become solver parts so their busy time constrains the day; no
// cascade or buffers apply to them.
func (p *Planner) resolveParticipants(ctx context.Context, req RunRequest, pref *store.UserPreference,
	loc *time.Location, windowStart, windowEnd time.Time) ([]scheduling.TimeSlot, []scheduling.WorkTime, []scheduling.EventPart, error) {

	var mu sync.Mutex
	var timeSlots []scheduling.TimeSlot
	var attendeeParts []scheduling.EventPart
	workTimes := scheduling.InternalWorkTimes(pref, req.HostID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)

	now := p.now().In(loc)
	for i := 0; i < req.Days; i++ {
		day := windowStart.AddDate(0, 0, i)
		isFirstDay := i == 0
		g.Go(func() error {
			window, ok := scheduling.WindowForDay(pref, day)
			if !ok {
				return nil
			}
			slots := scheduling.TimeSlotsForDay(window, now, req.HostID, isFirstDay, p.cfg.Granularity)
			mu.Lock()
			timeSlots = append(timeSlots, slots...)
			mu.Unlock()
			return nil
		})
	}

	for _, attendee := range req.Attendees {
		attendee := attendee
		g.Go(func() error {
			events, err := p.stores.Events.ListForUserWindow(gctx, attendee,
				timeutil.FormatWallClock(windowStart), timeutil.FormatWallClock(windowEnd))
			if err != nil {
				return fmt.Errorf("load events for attendee %s: %w", attendee, err)
			}
			inferred, err := scheduling.ExternalWorkTimes(events, attendee, req.HostID, req.Timezone)
			if err != nil {
				return err
			}

			// slots from the attendee's inferred windows: their hours may
			// lie outside the host's declared day
			var slots []scheduling.TimeSlot
			for i := 0; i < req.Days; i++ {
				day := windowStart.AddDate(0, 0, i)
				window, ok, err := scheduling.ExternalWindowForDay(events, req.Timezone, day)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				slots = append(slots,
					scheduling.TimeSlotsForDay(window, now, req.HostID, i == 0, p.cfg.Granularity)...)
			}

			parts := p.attendeeParts(req.HostID, events)

			mu.Lock()
			workTimes = append(workTimes, inferred...)
			timeSlots = append(timeSlots, slots...)
			attendeeParts = append(attendeeParts, parts...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return timeSlots, workTimes, attendeeParts, nil
}

// attendeeParts splits an external attendee's events into solver parts.
// Events the splitter cannot represent are skipped: an attendee's malformed
// event is no constraint, not a failed run.
func (p *Planner) attendeeParts(hostID string, events []store.Event) []scheduling.EventPart {
	var parts []scheduling.EventPart
	for _, ev := range events {
		if ev.Deleted {
			continue
		}
		if err := scheduling.ValidateEventDates(ev, nil); err != nil {
			continue
		}
		split, err := scheduling.SplitEvent(ev, hostID, p.cfg.Granularity)
		if err != nil {
			continue
		}
		parts = append(parts, split...)
	}
	return parts
}

// solverUsers builds the per-participant records. External attendees get a
// permissive profile: full workload, back-to-back allowed, effectively
// unlimited meetings, no breaks.
func (p *Planner) solverUsers(req RunRequest, pref *store.UserPreference, workTimes []scheduling.WorkTime) []solver.User {
	perUser := make(map[string][]scheduling.WorkTime)
	for _, wt := range workTimes {
		perUser[wt.UserID] = append(perUser[wt.UserID], wt)
	}

	users := []solver.User{{
		ID:                  req.HostID,
		HostID:              req.HostID,
		MaxWorkLoadPercent:  pref.MaxWorkLoadPercent,
		BackToBackMeetings:  pref.BackToBackMeetings,
		MaxNumberOfMeetings: pref.MaxNumberOfMeetings,
		MinNumberOfBreaks:   pref.MinNumberOfBreaks,
		WorkTimes:           perUser[req.HostID],
	}}
	for _, attendee := range req.Attendees {
		users = append(users, solver.User{
			ID:                  attendee,
			HostID:              req.HostID,
			MaxWorkLoadPercent:  100,
			BackToBackMeetings:  true,
			MaxNumberOfMeetings: 99,
			MinNumberOfBreaks:   0,
			WorkTimes:           perUser[attendee],
		})
	}
	return users
}

// decorateParts attaches the owning user record, the day's working-hours
// total, and the gap flag to each part.
func (p *Planner) decorateParts(parts []scheduling.EventPart, users []solver.User, pref *store.UserPreference) []solver.EventPart {
	byUser := make(map[string]solver.User, len(users))
	for _, u := range users {
		byUser[u.ID] = u
	}

	out := make([]solver.EventPart, 0, len(parts))
	for _, part := range parts {
		user := byUser[part.UserID]
		hours := 0.0
		if start, err := timeutil.ParseInZone(part.StartDate, part.Timezone); err == nil {
			hours = scheduling.WorkingHoursForDay(pref, timeutil.ISOWeekday(start))
		}
		out = append(out, solver.EventPart{
			EventPart:         part,
			User:              user,
			TotalWorkingHours: hours,
			Gap:               part.IsBreak || part.IsPreEvent || part.IsPostEvent,
		})
	}
	return out
}
