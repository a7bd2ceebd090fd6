package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Macro     MacroConfig     `mapstructure:"macro"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=mysql postgres sqlite memory"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`

	MaxIdle     int `mapstructure:"max_idle" validate:"min=0"`
	MaxOpen     int `mapstructure:"max_open" validate:"min=0"`
	MaxLifetime int `mapstructure:"max_lifetime"` // minutes
}

type ProvidersConfig struct {
	FredAPIKey             string        `mapstructure:"fred_api_key"`
	TradingEconomicsAPIKey string        `mapstructure:"trading_economics_api_key"`
	HTTPTimeout            time.Duration `mapstructure:"http_timeout" validate:"min=1s"`
	MaxRetries             int           `mapstructure:"max_retries" validate:"min=0,max=10"`
}

type SchedulerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval" validate:"min=1m"`
	WindowDays int           `mapstructure:"window_days" validate:"min=1"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type MacroConfig struct {
	LatestDatePolicy string        `mapstructure:"latest_date_policy" validate:"oneof=fetch_time observation"`
	LookbackDays     int           `mapstructure:"lookback_days" validate:"min=1"`
	FetchLockTTL     time.Duration `mapstructure:"fetch_lock_ttl" validate:"min=1m"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// envBindings keeps the plain variable names used in deployments working
// next to the SECTION_KEY names viper derives automatically.
var envBindings = map[string]string{
	"server.port":                         "PORT",
	"database.driver":                     "DB_DRIVER",
	"database.dsn":                        "DB_DSN",
	"database.host":                       "DB_HOST",
	"database.port":                       "DB_PORT",
	"database.user":                       "DB_USER",
	"database.password":                   "DB_PASSWORD",
	"database.name":                       "DB_NAME",
	"providers.fred_api_key":              "FRED_API_KEY",
	"providers.trading_economics_api_key": "TRADING_ECONOMICS_API_KEY",
	"providers.http_timeout":              "HTTP_TIMEOUT",
	"scheduler.enabled":                   "SCHEDULER_ENABLED",
	"scheduler.interval":                  "FETCH_INTERVAL",
	"scheduler.window_days":               "FETCH_WINDOW_DAYS",
	"redis.addr":                          "REDIS_ADDR",
	"redis.password":                      "REDIS_PASSWORD",
	"redis.db":                            "REDIS_DB",
	"macro.latest_date_policy":            "LATEST_DATE_POLICY",
	"logging.level":                       "LOG_LEVEL",
	"logging.format":                      "LOG_FORMAT",
}

var validate = validator.New()

// Load reads configuration from .env, an optional configs/config.yaml and
// the environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "investment")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "investment_dashboard")
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.max_open", 20)
	v.SetDefault("database.max_lifetime", 60)

	v.SetDefault("providers.http_timeout", "15s")
	v.SetDefault("providers.max_retries", 3)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.window_days", 180)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("macro.latest_date_policy", "fetch_time")
	v.SetDefault("macro.lookback_days", 180)
	v.SetDefault("macro.fetch_lock_ttl", "30m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// ConnectionString returns the driver-specific DSN, preferring an explicit one.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.Port)
	case "sqlite":
		return d.Name + ".db"
	}
	return ""
}
