package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/plannerhq/schedassist/internal/auth"
	"github.com/plannerhq/schedassist/internal/classifier"
	"github.com/plannerhq/schedassist/internal/config"
	httpserver "github.com/plannerhq/schedassist/internal/http"
	"github.com/plannerhq/schedassist/internal/http/api"
	"github.com/plannerhq/schedassist/internal/planner"
	"github.com/plannerhq/schedassist/internal/scheduling"
	"github.com/plannerhq/schedassist/internal/solver"
	"github.com/plannerhq/schedassist/internal/store"
)

func main() {
	log.Println("Starting SchedAssist server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to create db pool: %v", err)
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	stor := store.New(pool)
	authService := auth.NewService(stor.APITokens)

	sol := solver.NewClient(cfg.Solver.URL, cfg.Solver.Username, cfg.Solver.Password)
	var cls planner.ClassifierAPI
	if cfg.Classifier.URL != "" {
		cls = classifier.NewClient(cfg.Classifier.URL, cfg.Classifier.Username, cfg.Classifier.Password)
	}

	pl := planner.New(planner.StoresFrom(stor), sol, cls, planner.Config{
		CallbackURL:    cfg.Planner.CallbackURL,
		DelayMillis:    cfg.Planner.DelayMillis,
		ScoreThreshold: cfg.Planner.ScoreThreshold,
		Granularity:    granularity(cfg.Planner.Granularity),
		MaxConcurrency: cfg.Planner.MaxConcurrency,
	})

	scheduler, err := startCron(cfg, pl)
	if err != nil {
		log.Fatalf("failed to start planning cron: %v", err)
	}

	r := httpserver.NewRouter(cfg, stor, authService, api.NewHandler(pl, stor.PlanningRuns))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// startCron schedules recurring planning runs for the configured host.
// Returns nil when no cron expression is set.
func startCron(cfg *config.Config, pl *planner.Planner) (*cron.Cron, error) {
	if cfg.Planner.Cron == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Planner.Cron, func() {
		loc, err := time.LoadLocation(cfg.Planner.CronTimezone)
		if err != nil {
			log.Printf("[ERROR] scheduled run: bad timezone %q: %v", cfg.Planner.CronTimezone, err)
			return
		}
		now := time.Now().In(loc)
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		report, err := pl.PlanRun(runCtx, planner.RunRequest{
			HostID:      cfg.Planner.CronHostID,
			Timezone:    cfg.Planner.CronTimezone,
			WindowStart: start,
			Days:        cfg.Planner.CronDays,
		})
		if err != nil {
			log.Printf("[ERROR] scheduled run for host %s: %v", cfg.Planner.CronHostID, err)
			return
		}
		log.Printf("[INFO] scheduled run %s: %d parts, %d slots, submitted=%t",
			report.RunID, report.EventParts, report.TimeSlots, report.Submitted)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Printf("planning cron %q active for host %s", cfg.Planner.Cron, cfg.Planner.CronHostID)
	return c, nil
}

func granularity(name string) int {
	if name == "lite" {
		return scheduling.GranularityLite
	}
	return scheduling.GranularityFull
}
