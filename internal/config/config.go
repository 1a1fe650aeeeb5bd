package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	DB struct {
		DSN string
	}

	Solver struct {
		URL      string
		Username string
		Password string
	}

	Classifier struct {
		URL      string
		Username string
		Password string
	}

	Planner struct {
		CallbackURL    string
		DelayMillis    int64
		ScoreThreshold float64
		Granularity    string
		MaxConcurrency int
		// Cron fires scheduled runs for CronHostID when non-empty.
		Cron         string
		CronHostID   string
		CronTimezone string
		CronDays     int
	}

	PrometheusEnabled bool
	TrustedProxies    []string
}

// fileConfig is the optional YAML overlay (APP_CONFIG_FILE). Environment
// variables win over file values.
type fileConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	BaseURL    string `yaml:"base_url"`
	DB         struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Solver struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"solver"`
	Classifier struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"classifier"`
	Planner struct {
		CallbackURL    string  `yaml:"callback_url"`
		DelayMillis    int64   `yaml:"delay_millis"`
		ScoreThreshold float64 `yaml:"score_threshold"`
		Granularity    string  `yaml:"granularity"`
		MaxConcurrency int     `yaml:"max_concurrency"`
		Cron           string  `yaml:"cron"`
		CronHostID     string  `yaml:"cron_host_id"`
		CronTimezone   string  `yaml:"cron_timezone"`
		CronDays       int     `yaml:"cron_days"`
	} `yaml:"planner"`
}

func Load() (*Config, error) {
	// .env is a developer convenience; absence is not an error
	_ = godotenv.Load()

	var file fileConfig
	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", firstOf(file.ListenAddr, ":8080"))
	cfg.BaseURL = getenvDefault("APP_BASE_URL", firstOf(file.BaseURL, "http://localhost:8080"))
	cfg.DB.DSN = getenvDefault("APP_DB_DSN", file.DB.DSN)

	if cfg.DB.DSN == "" {
		host := os.Getenv("APP_DB_HOST")
		name := os.Getenv("APP_DB_NAME")
		user := os.Getenv("APP_DB_USER")
		password := os.Getenv("APP_DB_PASSWORD")
		port := getenvDefault("APP_DB_PORT", "5432")
		sslmode := getenvDefault("APP_DB_SSLMODE", "disable")

		if host != "" && name != "" && user != "" && password != "" {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
		}
	}

	cfg.Solver.URL = getenvDefault("APP_SOLVER_URL", file.Solver.URL)
	cfg.Solver.Username = getenvDefault("APP_SOLVER_USERNAME", file.Solver.Username)
	cfg.Solver.Password = getenvDefault("APP_SOLVER_PASSWORD", file.Solver.Password)

	cfg.Classifier.URL = getenvDefault("APP_CLASSIFIER_URL", file.Classifier.URL)
	cfg.Classifier.Username = getenvDefault("APP_CLASSIFIER_USERNAME", file.Classifier.Username)
	cfg.Classifier.Password = getenvDefault("APP_CLASSIFIER_PASSWORD", file.Classifier.Password)

	cfg.Planner.CallbackURL = getenvDefault("APP_PLAN_CALLBACK_URL", firstOf(file.Planner.CallbackURL, cfg.BaseURL+"/api/v1/plan-callback"))
	cfg.Planner.DelayMillis = getenvInt64("APP_PLAN_DELAY_MILLIS", firstOfInt64(file.Planner.DelayMillis, 5000))
	cfg.Planner.ScoreThreshold = getenvFloat("APP_PLAN_SCORE_THRESHOLD", firstOfFloat(file.Planner.ScoreThreshold, 0.6))
	cfg.Planner.Granularity = getenvDefault("APP_PLAN_GRANULARITY", firstOf(file.Planner.Granularity, "full"))
	cfg.Planner.MaxConcurrency = getenvInt("APP_PLAN_MAX_CONCURRENCY", firstOfInt(file.Planner.MaxConcurrency, 4))
	cfg.Planner.Cron = getenvDefault("APP_PLAN_CRON", file.Planner.Cron)
	cfg.Planner.CronHostID = getenvDefault("APP_PLAN_CRON_HOST_ID", file.Planner.CronHostID)
	cfg.Planner.CronTimezone = getenvDefault("APP_PLAN_CRON_TIMEZONE", firstOf(file.Planner.CronTimezone, "UTC"))
	cfg.Planner.CronDays = getenvInt("APP_PLAN_CRON_DAYS", firstOfInt(file.Planner.CronDays, 7))

	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	if cfg.DB.DSN == "" {
		return nil, errors.New("APP_DB_DSN is required (or set APP_DB_HOST, APP_DB_NAME, APP_DB_USER, and APP_DB_PASSWORD)")
	}
	if cfg.Solver.URL == "" {
		return nil, errors.New("APP_SOLVER_URL is required")
	}
	if cfg.Planner.Granularity != "full" && cfg.Planner.Granularity != "lite" {
		return nil, fmt.Errorf("APP_PLAN_GRANULARITY must be full or lite (got %q)", cfg.Planner.Granularity)
	}
	if cfg.Planner.Cron != "" && cfg.Planner.CronHostID == "" {
		return nil, errors.New("APP_PLAN_CRON_HOST_ID is required when APP_PLAN_CRON is set")
	}

	if len(cfg.TrustedProxies) == 0 {
		fmt.Println("WARNING: No APP_TRUSTED_PROXIES configured. All proxies will be trusted - not recommended for public environments.")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}

func firstOf(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func firstOfInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func firstOfInt64(v, def int64) int64 {
	if v != 0 {
		return v
	}
	return def
}

func firstOfFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}
