package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Scheduler    SchedulerConfig
	Redis        RedisConfig
	Notification NotificationConfig
	Payroll      PayrollConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN builds the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Store          string // postgres | memory
	SeedFile       string
	AllowedOrigins []string
}

type SchedulerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	ScanTimeout  time.Duration
	MaxAttempts  int
	SendTimeout  time.Duration
	ClockSkew    time.Duration
}

// RedisConfig is optional. Without an address the scan lock is process-local.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type NotificationConfig struct {
	GatewayURL string
	APIKey     string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

type PayrollConfig struct {
	DailyOvertimeHours  int
	WeeklyOvertimeHours int
	OvertimeMultiplier  decimal.Decimal
	MinManualBreak      time.Duration
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

func Load() (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	var errs []error
	intEnv := func(key string, fallback int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	durationEnv := func(key, fallback string) time.Duration {
		v, err := time.ParseDuration(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	// Database configuration
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     intEnv("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "timecard"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: intEnv("DB_MAX_CONNS", 25),
		MinConns: intEnv("DB_MIN_CONNS", 5),
	}

	// Application configuration
	config.App = AppConfig{
		Port:           intEnv("APP_PORT", 8080),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Store:          strings.ToLower(getEnv("STORE", StorePostgres)),
		SeedFile:       getEnv("SCHEDULE_SEED_FILE", ""),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "12h"),
	}

	// Scheduler configuration
	config.Scheduler = SchedulerConfig{
		Enabled:      getEnvBool("SCHEDULER_ENABLED", true),
		PollInterval: durationEnv("SCHEDULER_POLL_INTERVAL", "1m"),
		ScanTimeout:  durationEnv("SCHEDULER_SCAN_TIMEOUT", "5m"),
		MaxAttempts:  intEnv("REMINDER_MAX_ATTEMPTS", 3),
		SendTimeout:  durationEnv("REMINDER_SEND_TIMEOUT", "10s"),
		ClockSkew:    durationEnv("PUNCH_CLOCK_SKEW", "2m"),
	}

	// Redis configuration
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       intEnv("REDIS_DB", 0),
	}

	// Notification gateway
	ratePerSec, err := strconv.ParseFloat(getEnv("NOTIFY_RATE_PER_SEC", "10"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_RATE_PER_SEC: %w", err))
	}
	config.Notification = NotificationConfig{
		GatewayURL: getEnv("NOTIFY_GATEWAY_URL", ""),
		APIKey:     getEnv("NOTIFY_API_KEY", ""),
		RatePerSec: ratePerSec,
		Burst:      intEnv("NOTIFY_BURST", 5),
		Timeout:    durationEnv("NOTIFY_TIMEOUT", "5s"),
	}

	// Payroll rules
	multiplier, err := decimal.NewFromString(getEnv("OVERTIME_MULTIPLIER", "1.5"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid OVERTIME_MULTIPLIER: %w", err))
	}
	config.Payroll = PayrollConfig{
		DailyOvertimeHours:  intEnv("DAILY_OVERTIME_HOURS", 8),
		WeeklyOvertimeHours: intEnv("WEEKLY_OVERTIME_HOURS", 0),
		OvertimeMultiplier:  multiplier,
		MinManualBreak:      durationEnv("MIN_MANUAL_BREAK", "30m"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.App.Store {
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.App.Store)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive")
	}
	if c.Scheduler.MaxAttempts < 1 {
		return fmt.Errorf("REMINDER_MAX_ATTEMPTS must be at least 1")
	}
	if c.Payroll.DailyOvertimeHours <= 0 {
		return fmt.Errorf("DAILY_OVERTIME_HOURS must be positive")
	}
	if c.Payroll.WeeklyOvertimeHours < 0 {
		return fmt.Errorf("WEEKLY_OVERTIME_HOURS must not be negative")
	}
	if c.Payroll.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("OVERTIME_MULTIPLIER must be at least 1")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (a AppConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvSlice splits a comma separated variable, dropping empty items.
func getEnvSlice(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
