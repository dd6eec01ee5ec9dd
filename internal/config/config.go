package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Payment rails
const (
	RailNoop    = "noop"
	RailProfile = "profile"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type SchedulerConfig struct {
	DefaultCheckSpec    string        `mapstructure:"default_check_spec"`
	InterestSpec        string        `mapstructure:"interest_spec"`
	AutoRepaymentSpec   string        `mapstructure:"auto_repayment_spec"`
	AutoRepaymentEnable bool          `mapstructure:"auto_repayment_enable"`
	Timezone            string        `mapstructure:"timezone"`
	JobTimeout          time.Duration `mapstructure:"job_timeout"`
	// ServerURL is the ledger server whose sweep endpoints the scheduler triggers.
	ServerURL string `mapstructure:"server_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BusinessConfig struct {
	RateBasis          int64  `mapstructure:"rate_basis"`
	StrictRegistration bool   `mapstructure:"strict_registration"`
	PaymentRail        string `mapstructure:"payment_rail"`
	// SystemIdentity is the caller the scheduler triggers sweeps as.
	SystemIdentity string `mapstructure:"system_identity"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"server.port":                     "8080",
	"server.host":                     "0.0.0.0",
	"server.env":                      "development",
	"server.read_timeout":             "15s",
	"server.write_timeout":            "15s",
	"store.backend":                   StoreMemory,
	"database.url":                    "",
	"database.max_open_conns":         25,
	"database.max_idle_conns":         5,
	"database.conn_max_lifetime":      "30m",
	"redis.host":                      "localhost",
	"redis.port":                      "6379",
	"redis.password":                  "",
	"redis.db":                        0,
	"redis.key_prefix":                "ledger",
	"sqlite.path":                     "ledger.db",
	"scheduler.default_check_spec":    "0 */5 * * * *",
	"scheduler.interest_spec":         "0 0 * * * *",
	"scheduler.auto_repayment_spec":   "0 0 0 * * *",
	"scheduler.auto_repayment_enable": false,
	"scheduler.timezone":              "UTC",
	"scheduler.job_timeout":           "5m",
	"scheduler.server_url":            "http://localhost:8080",
	"logging.level":                   "info",
	"logging.format":                  "json",
	"business.rate_basis":             100,
	"business.strict_registration":    false,
	"business.payment_rail":           RailProfile,
	"business.system_identity":        "ledger-scheduler",
	"health.timeout":                  "5s",
}

// Load reads configuration from environment variables and an optional .env file.
// Nested keys map to upper-case env names, e.g. store.backend -> STORE_BACKEND.
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.Redis.Host == "" || c.Redis.Port == "" {
			return fmt.Errorf("REDIS_HOST and REDIS_PORT are required for the redis store")
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, postgres, redis, sqlite; got %q", c.Store.Backend)
	}

	if c.Business.RateBasis <= 0 {
		return fmt.Errorf("BUSINESS_RATE_BASIS must be greater than 0")
	}

	if c.Business.PaymentRail != RailNoop && c.Business.PaymentRail != RailProfile {
		return fmt.Errorf("BUSINESS_PAYMENT_RAIL must be noop or profile; got %q", c.Business.PaymentRail)
	}

	if c.IsProduction() && (c.Store.Backend == StoreMemory || c.Business.PaymentRail == RailNoop) {
		return fmt.Errorf("production requires a persistent STORE_BACKEND and the profile BUSINESS_PAYMENT_RAIL")
	}

	if strings.TrimSpace(c.Business.SystemIdentity) == "" {
		return fmt.Errorf("BUSINESS_SYSTEM_IDENTITY is required")
	}

	if u, err := url.Parse(c.Scheduler.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SCHEDULER_SERVER_URL must be an http(s) URL; got %q", c.Scheduler.ServerURL)
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_TIMEOUT must be a positive duration")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"SCHEDULER_DEFAULT_CHECK_SPEC":  c.Scheduler.DefaultCheckSpec,
		"SCHEDULER_INTEREST_SPEC":       c.Scheduler.InterestSpec,
		"SCHEDULER_AUTO_REPAYMENT_SPEC": c.Scheduler.AutoRepaymentSpec,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s must be a valid cron spec: %w", name, err)
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RedisAddr returns host:port of the redis server.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// Location returns the scheduler timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
