package store

import "context"

// EventRepository handles event storage.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByIDs(ctx context.Context, ids []string) ([]Event, error)
	// ListForUserWindow returns non-deleted events whose start falls inside
	// [windowStart, windowEnd), both wall-clock strings in the host zone.
	ListForUserWindow(ctx context.Context, userID, windowStart, windowEnd string) ([]Event, error)
	Upsert(ctx context.Context, event Event) (*Event, error)
}

// CategoryRepository fetches classification categories. Categories are
// read-only from the engine's point of view.
type CategoryRepository interface {
	ListByUser(ctx context.Context, userID string) ([]Category, error)
	ListForEvent(ctx context.Context, eventID string) ([]Category, error)
}

// CategoryEventRepository maintains category-event associations.
type CategoryEventRepository interface {
	ListForEvent(ctx context.Context, eventID string) ([]CategoryEvent, error)
	// Link inserts the association unless it already exists.
	Link(ctx context.Context, link CategoryEvent) error
	UnlinkForEvent(ctx context.Context, eventID string) error
}

// UserPreferenceRepository fetches per-user scheduling configuration.
type UserPreferenceRepository interface {
	GetForUser(ctx context.Context, userID string) (*UserPreference, error)
}

// ReminderRepository handles minutes-before notifications.
type ReminderRepository interface {
	ListForEvent(ctx context.Context, eventID string) ([]Reminder, error)
	ReplaceForEvent(ctx context.Context, eventID string, reminders []Reminder) error
}

// CalendarRepository locates calendars; generated events land on the user's
// global-primary calendar.
type CalendarRepository interface {
	GetGlobalPrimary(ctx context.Context, userID string) (*Calendar, error)
}

// APITokenRepository handles Basic Auth token storage.
type APITokenRepository interface {
	Create(ctx context.Context, token APIToken) (*APIToken, error)
	ListActive(ctx context.Context) ([]APIToken, error)
	Revoke(ctx context.Context, id int64) error
	TouchLastUsed(ctx context.Context, id int64) error
}

// PlanningRunRepository persists solver-submission snapshots.
type PlanningRunRepository interface {
	Create(ctx context.Context, run PlanningRun) (*PlanningRun, error)
	GetByID(ctx context.Context, id string) (*PlanningRun, error)
	SetStatus(ctx context.Context, id, status, submitError string) error
}
