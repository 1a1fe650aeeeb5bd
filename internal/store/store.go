package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store aggregates repositories backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool

	Events          EventRepository
	Categories      CategoryRepository
	CategoryEvents  CategoryEventRepository
	UserPreferences UserPreferenceRepository
	Reminders       ReminderRepository
	Calendars       CalendarRepository
	APITokens       APITokenRepository
	PlanningRuns    PlanningRunRepository
}

// New wires concrete repository implementations with a shared connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:            pool,
		Events:          &eventRepo{pool: pool},
		Categories:      &categoryRepo{pool: pool},
		CategoryEvents:  &categoryEventRepo{pool: pool},
		UserPreferences: &userPreferenceRepo{pool: pool},
		Reminders:       &reminderRepo{pool: pool},
		Calendars:       &calendarRepo{pool: pool},
		APITokens:       &apiTokenRepo{pool: pool},
		PlanningRuns:    &planningRunRepo{pool: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}
