package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Events, categories, and preferences are stored as jsonb documents with the
// handful of columns the queries filter on extracted alongside. The document
// is authoritative; the columns are derived on write.

// eventRepo implements EventRepository.
type eventRepo struct {
	pool *pgxpool.Pool
}

func scanEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*Event, error) {
	defer observeDB(ctx, "db.event.get")()
	const q = `SELECT data FROM events WHERE id=$1 AND NOT deleted`
	var data []byte
	if err := r.pool.QueryRow(ctx, q, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return scanEvent(data)
}

func (r *eventRepo) ListByIDs(ctx context.Context, ids []string) ([]Event, error) {
	defer observeDB(ctx, "db.event.list_by_ids")()
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT data FROM events WHERE id = ANY($1) AND NOT deleted`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("list events by ids: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *eventRepo) ListForUserWindow(ctx context.Context, userID, windowStart, windowEnd string) ([]Event, error) {
	defer observeDB(ctx, "db.event.list_window")()
	// Wall-clock strings sort lexicographically, so text comparison is a
	// correct range filter.
	const q = `SELECT data FROM events
WHERE user_id=$1 AND start_date >= $2 AND start_date < $3 AND NOT deleted
ORDER BY start_date`
	rows, err := r.pool.Query(ctx, q, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list events for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := scanEvent(data)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (r *eventRepo) Upsert(ctx context.Context, event Event) (*Event, error) {
	defer observeDB(ctx, "db.event.upsert")()
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	const q = `INSERT INTO events (id, user_id, calendar_id, start_date, end_date, deleted, data)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
        user_id=EXCLUDED.user_id,
        calendar_id=EXCLUDED.calendar_id,
        start_date=EXCLUDED.start_date,
        end_date=EXCLUDED.end_date,
        deleted=EXCLUDED.deleted,
        data=EXCLUDED.data`
	if _, err := r.pool.Exec(ctx, q, event.ID, event.UserID, event.CalendarID,
		event.StartDate, event.EndDate, event.Deleted, data); err != nil {
		return nil, fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	return &event, nil
}

// categoryRepo implements CategoryRepository.
type categoryRepo struct {
	pool *pgxpool.Pool
}

func (r *categoryRepo) ListByUser(ctx context.Context, userID string) ([]Category, error) {
	defer observeDB(ctx, "db.category.list_by_user")()
	const q = `SELECT data FROM categories WHERE user_id=$1 AND NOT deleted ORDER BY name`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *categoryRepo) ListForEvent(ctx context.Context, eventID string) ([]Category, error) {
	defer observeDB(ctx, "db.category.list_for_event")()
	const q = `SELECT c.data FROM categories c
JOIN category_events ce ON ce.category_id = c.id
WHERE ce.event_id=$1 AND NOT c.deleted`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list categories for event %s: %w", eventID, err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func collectCategories(rows pgx.Rows) ([]Category, error) {
	var categories []Category
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		var cat Category
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// categoryEventRepo implements CategoryEventRepository.
type categoryEventRepo struct {
	pool *pgxpool.Pool
}

func (r *categoryEventRepo) ListForEvent(ctx context.Context, eventID string) ([]CategoryEvent, error) {
	defer observeDB(ctx, "db.category_event.list")()
	const q = `SELECT id, category_id, event_id, user_id FROM category_events WHERE event_id=$1`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list category links for event %s: %w", eventID, err)
	}
	defer rows.Close()
	var links []CategoryEvent
	for rows.Next() {
		var link CategoryEvent
		if err := rows.Scan(&link.ID, &link.CategoryID, &link.EventID, &link.UserID); err != nil {
			return nil, fmt.Errorf("scan category link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *categoryEventRepo) Link(ctx context.Context, link CategoryEvent) error {
	defer observeDB(ctx, "db.category_event.link")()
	const q = `INSERT INTO category_events (id, category_id, event_id, user_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (category_id, event_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, link.ID, link.CategoryID, link.EventID, link.UserID); err != nil {
		return fmt.Errorf("link category %s to event %s: %w", link.CategoryID, link.EventID, err)
	}
	return nil
}

func (r *categoryEventRepo) UnlinkForEvent(ctx context.Context, eventID string) error {
	defer observeDB(ctx, "db.category_event.unlink")()
	const q = `DELETE FROM category_events WHERE event_id=$1`
	if _, err := r.pool.Exec(ctx, q, eventID); err != nil {
		return fmt.Errorf("unlink categories for event %s: %w", eventID, err)
	}
	return nil
}

// userPreferenceRepo implements UserPreferenceRepository.
type userPreferenceRepo struct {
	pool *pgxpool.Pool
}

func (r *userPreferenceRepo) GetForUser(ctx context.Context, userID string) (*UserPreference, error) {
	defer observeDB(ctx, "db.preference.get")()
	const q = `SELECT data FROM user_preferences WHERE user_id=$1 AND NOT deleted`
	var data []byte
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preference for user %s: %w", userID, err)
	}
	var pref UserPreference
	if err := json.Unmarshal(data, &pref); err != nil {
		return nil, fmt.Errorf("decode preference: %w", err)
	}
	return &pref, nil
}

// reminderRepo implements ReminderRepository.
type reminderRepo struct {
	pool *pgxpool.Pool
}

func (r *reminderRepo) ListForEvent(ctx context.Context, eventID string) ([]Reminder, error) {
	defer observeDB(ctx, "db.reminder.list")()
	const q = `SELECT id, user_id, event_id, minutes, timezone, use_default
FROM reminders WHERE event_id=$1 AND NOT deleted`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list reminders for event %s: %w", eventID, err)
	}
	defer rows.Close()
	var reminders []Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.UserID, &rem.EventID, &rem.Minutes, &rem.Timezone, &rem.UseDefault); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// ReplaceForEvent swaps the event's reminder set atomically: a cascade
// re-run replaces the materialized reminders rather than accumulating them.
func (r *reminderRepo) ReplaceForEvent(ctx context.Context, eventID string, reminders []Reminder) error {
	defer observeDB(ctx, "db.reminder.replace")()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reminder replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reminders WHERE event_id=$1`, eventID); err != nil {
		return fmt.Errorf("clear reminders for event %s: %w", eventID, err)
	}
	const q = `INSERT INTO reminders (id, user_id, event_id, minutes, timezone, use_default, deleted)
VALUES ($1, $2, $3, $4, $5, $6, false)`
	for _, rem := range reminders {
		if _, err := tx.Exec(ctx, q, rem.ID, rem.UserID, rem.EventID, rem.Minutes, rem.Timezone, rem.UseDefault); err != nil {
			return fmt.Errorf("insert reminder %s: %w", rem.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// calendarRepo implements CalendarRepository.
type calendarRepo struct {
	pool *pgxpool.Pool
}

func (r *calendarRepo) GetGlobalPrimary(ctx context.Context, userID string) (*Calendar, error) {
	defer observeDB(ctx, "db.calendar.get_primary")()
	const q = `SELECT id, user_id, title, background_color, color_id, global_primary
FROM calendars WHERE user_id=$1 AND global_primary LIMIT 1`
	var cal Calendar
	err := r.pool.QueryRow(ctx, q, userID).Scan(&cal.ID, &cal.UserID, &cal.Title,
		&cal.BackgroundColor, &cal.ColorID, &cal.GlobalPrimary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get primary calendar for user %s: %w", userID, err)
	}
	return &cal, nil
}

// apiTokenRepo implements APITokenRepository.
type apiTokenRepo struct {
	pool *pgxpool.Pool
}

func (r *apiTokenRepo) Create(ctx context.Context, token APIToken) (*APIToken, error) {
	defer observeDB(ctx, "db.api_token.create")()
	const q = `INSERT INTO api_tokens (label, token_hash) VALUES ($1, $2)
RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, q, token.Label, token.TokenHash).
		Scan(&token.ID, &token.CreatedAt); err != nil {
		return nil, fmt.Errorf("create api token: %w", err)
	}
	return &token, nil
}

func (r *apiTokenRepo) ListActive(ctx context.Context) ([]APIToken, error) {
	defer observeDB(ctx, "db.api_token.list_active")()
	const q = `SELECT id, label, token_hash, created_at, revoked_at, last_used_at
FROM api_tokens WHERE revoked_at IS NULL`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active api tokens: %w", err)
	}
	defer rows.Close()
	var tokens []APIToken
	for rows.Next() {
		var t APIToken
		if err := rows.Scan(&t.ID, &t.Label, &t.TokenHash, &t.CreatedAt, &t.RevokedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *apiTokenRepo) Revoke(ctx context.Context, id int64) error {
	defer observeDB(ctx, "db.api_token.revoke")()
	const q = `UPDATE api_tokens SET revoked_at=NOW() WHERE id=$1 AND revoked_at IS NULL`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("revoke api token %d: %w", id, err)
	}
	return nil
}

func (r *apiTokenRepo) TouchLastUsed(ctx context.Context, id int64) error {
	defer observeDB(ctx, "db.api_token.touch")()
	const q = `UPDATE api_tokens SET last_used_at=NOW() WHERE id=$1`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("touch api token %d: %w", id, err)
	}
	return nil
}

// planningRunRepo implements PlanningRunRepository.
type planningRunRepo struct {
	pool *pgxpool.Pool
}

func (r *planningRunRepo) Create(ctx context.Context, run PlanningRun) (*PlanningRun, error) {
	defer observeDB(ctx, "db.planning_run.create")()
	const q = `INSERT INTO planning_runs (id, host_id, file_key, status, submit_error)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	if err := r.pool.QueryRow(ctx, q, run.ID, run.HostID, run.FileKey, run.Status, run.SubmitError).
		Scan(&run.CreatedAt); err != nil {
		return nil, fmt.Errorf("create planning run %s: %w", run.ID, err)
	}
	return &run, nil
}

func (r *planningRunRepo) GetByID(ctx context.Context, id string) (*PlanningRun, error) {
	defer observeDB(ctx, "db.planning_run.get")()
	const q = `SELECT id, host_id, file_key, status, submit_error, created_at
FROM planning_runs WHERE id=$1`
	var run PlanningRun
	err := r.pool.QueryRow(ctx, q, id).Scan(&run.ID, &run.HostID, &run.FileKey,
		&run.Status, &run.SubmitError, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get planning run %s: %w", id, err)
	}
	return &run, nil
}

func (r *planningRunRepo) SetStatus(ctx context.Context, id, status, submitError string) error {
	defer observeDB(ctx, "db.planning_run.set_status")()
	const q = `UPDATE planning_runs SET status=$2, submit_error=$3 WHERE id=$1`
	if _, err := r.pool.Exec(ctx, q, id, status, submitError); err != nil {
		return fmt.Errorf("update planning run %s: %w", id, err)
	}
	return nil
}
