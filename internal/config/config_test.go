package config

import (
	"strings"
	"testing"
	"time"
)

var managedEnv = []string{
	"PORT", "DB_DRIVER", "DB_DSN", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"FRED_API_KEY", "TRADING_ECONOMICS_API_KEY", "HTTP_TIMEOUT", "SCHEDULER_ENABLED",
	"FETCH_INTERVAL", "FETCH_WINDOW_DAYS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"LATEST_DATE_POLICY", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range managedEnv {
		t.Setenv(e, "")
	}
}

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port: got %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver: got %q, want %q", cfg.Database.Driver, "mysql")
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port: got %d, want 3306", cfg.Database.Port)
	}
	if cfg.Providers.HTTPTimeout != 15*time.Second {
		t.Errorf("Providers.HTTPTimeout: got %v, want 15s", cfg.Providers.HTTPTimeout)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Errorf("Scheduler.Interval: got %v, want 24h", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.WindowDays != 180 {
		t.Errorf("Scheduler.WindowDays: got %d, want 180", cfg.Scheduler.WindowDays)
	}
	if cfg.Macro.LatestDatePolicy != "fetch_time" {
		t.Errorf("Macro.LatestDatePolicy: got %q, want %q", cfg.Macro.LatestDatePolicy, "fetch_time")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("FRED_API_KEY", "fred-key")
	t.Setenv("TRADING_ECONOMICS_API_KEY", "te-key")
	t.Setenv("FETCH_INTERVAL", "6h")
	t.Setenv("LATEST_DATE_POLICY", "observation")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port: got %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Port != 5432 {
		t.Errorf("Database: got %s:%d", cfg.Database.Driver, cfg.Database.Port)
	}
	if cfg.Providers.FredAPIKey != "fred-key" {
		t.Errorf("Providers.FredAPIKey: got %q", cfg.Providers.FredAPIKey)
	}
	if cfg.Providers.TradingEconomicsAPIKey != "te-key" {
		t.Errorf("Providers.TradingEconomicsAPIKey: got %q", cfg.Providers.TradingEconomicsAPIKey)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Errorf("Scheduler.Interval: got %v, want 6h", cfg.Scheduler.Interval)
	}
	if cfg.Macro.LatestDatePolicy != "observation" {
		t.Errorf("Macro.LatestDatePolicy: got %q", cfg.Macro.LatestDatePolicy)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":          "oracle",
		"LATEST_DATE_POLICY": "whenever",
		"FETCH_INTERVAL":     "10s",
	}
	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env, value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", env, value)
			}
			if !strings.Contains(err.Error(), "invalid configuration") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "macro"}
	if got, want := db.ConnectionString(), "u:p@tcp(db:3306)/macro?charset=utf8mb4&parseTime=True&loc=UTC"; got != want {
		t.Errorf("mysql: got %q, want %q", got, want)
	}

	db.Driver = "sqlite"
	if got := db.ConnectionString(); got != "macro.db" {
		t.Errorf("sqlite: got %q", got)
	}

	db.DSN = "file::memory:"
	if got := db.ConnectionString(); got != "file::memory:" {
		t.Errorf("explicit dsn: got %q", got)
	}
}
