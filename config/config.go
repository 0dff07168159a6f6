// Package config loads runtime configuration from the environment. An
// optional .env file in the working directory is read first; variables
// already set in the process environment win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig
	Line          LineConfig
	Store         StoreConfig
	HTTP          HTTPConfig
	Attendance    AttendanceConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Version     string

	// Timezone for date keys and the digest schedule (default: Asia/Taipei).
	Timezone string
	Location *time.Location

	// CollationLocale orders display names (default: zh-Hant).
	CollationLocale string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// LineConfig holds Messaging API settings.
type LineConfig struct {
	ChannelSecret string
	AccessToken   string

	BaseURL           string
	RequestTimeout    time.Duration
	RetryAttempts     int
	RequestsPerSecond float64
}

// StoreConfig selects and tunes the attendance backend.
type StoreConfig struct {
	// Backend is redis, postgres or memory.
	Backend string

	// MemoryFallback serves calls from process memory when the remote
	// backend is missing or failing.
	MemoryFallback bool

	RedisURL          string
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration

	DatabaseURL   string
	DBMaxConns    int
	AutoMigrate   bool
	DBConnTimeout time.Duration
}

// HTTPConfig holds the webhook server settings.
type HTTPConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RateLimitPerMinute int
	MaxBodyBytes       int64
	BatchTimeout       time.Duration
	APIKeys            []string
}

// AttendanceConfig holds bot behaviour settings.
type AttendanceConfig struct {
	ChunkLimit    int
	RemoveOnLeave bool
	MaxStatsDays  int
	Concurrency   int
	EventTimeout  time.Duration
}

// SchedulerConfig holds the daily digest settings.
type SchedulerConfig struct {
	Enabled    bool
	DigestCron string
	ChatIDs    []string
	SkipEmpty  bool
	JobTimeout time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel      string // debug, info, warn, error
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFiles is Load with explicit .env files. Missing files are an error.
func LoadFiles(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Line:          loadLineConfig(),
		Store:         loadStoreConfig(),
		HTTP:          loadHTTPConfig(),
		Attendance:    loadAttendanceConfig(),
		Scheduler:     loadSchedulerConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAppConfig() AppConfig {
	timezone := getEnv("APP_TIMEZONE", "Asia/Taipei")
	// nil location is reported by Validate
	loc, _ := timeutil.LoadLocation(timezone)

	return AppConfig{
		Name:            getEnv("APP_NAME", "attendance-hub"),
		Environment:     Environment(getEnv("APP_ENV", "development")),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		Timezone:        timezone,
		Location:        loc,
		CollationLocale: getEnv("APP_COLLATION_LOCALE", "zh-Hant"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadLineConfig() LineConfig {
	return LineConfig{
		ChannelSecret:     getEnv("LINE_CHANNEL_SECRET", ""),
		AccessToken:       getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		BaseURL:           getEnv("LINE_API_BASE_URL", "https://api.line.me"),
		RequestTimeout:    getEnvDuration("LINE_REQUEST_TIMEOUT", 10*time.Second),
		RetryAttempts:     getEnvInt("LINE_RETRY_ATTEMPTS", 3),
		RequestsPerSecond: getEnvFloat("LINE_REQUESTS_PER_SECOND", 20),
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:           strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		MemoryFallback:    getEnvBool("STORE_MEMORY_FALLBACK", true),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisPoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		RedisMinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		RedisDialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		AutoMigrate:       getEnvBool("DB_AUTO_MIGRATE", true),
		DBConnTimeout:     getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:               getEnv("HTTP_HOST", "0.0.0.0"),
		Port:               getEnvInt("PORT", getEnvInt("HTTP_PORT", 8080)),
		ReadTimeout:        getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:        getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		RateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 600),
		MaxBodyBytes:       int64(getEnvInt("HTTP_MAX_BODY_BYTES", 1<<20)),
		BatchTimeout:       getEnvDuration("HTTP_BATCH_TIMEOUT", 25*time.Second),
		APIKeys:            getEnvSlice("ADMIN_API_KEYS", nil),
	}
}

func loadAttendanceConfig() AttendanceConfig {
	return AttendanceConfig{
		ChunkLimit:    getEnvInt("ATTENDANCE_CHUNK_LIMIT", 4500),
		RemoveOnLeave: getEnvBool("ATTENDANCE_REMOVE_ON_LEAVE", false),
		MaxStatsDays:  getEnvInt("ATTENDANCE_MAX_STATS_DAYS", 90),
		Concurrency:   getEnvInt("ATTENDANCE_CONCURRENCY", 8),
		EventTimeout:  getEnvDuration("ATTENDANCE_EVENT_TIMEOUT", 20*time.Second),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    getEnvBool("DIGEST_ENABLED", false),
		DigestCron: getEnv("DIGEST_CRON", "0 21 * * *"),
		ChatIDs:    getEnvSlice("DIGEST_CHAT_IDS", nil),
		SkipEmpty:  getEnvBool("DIGEST_SKIP_EMPTY", true),
		JobTimeout: getEnvDuration("DIGEST_JOB_TIMEOUT", 2*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	// Validate required fields
	if c.Line.ChannelSecret == "" {
		errs = append(errs, "LINE_CHANNEL_SECRET is required")
	}
	if c.Line.AccessToken == "" {
		errs = append(errs, "LINE_CHANNEL_ACCESS_TOKEN is required")
	}
	if c.App.Location == nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a known time zone", c.App.Timezone))
	}

	// A remote backend without a URL is allowed: the bot then runs on the
	// memory fallback, or answers every command with the unavailable notice.
	switch c.Store.Backend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be redis, postgres or memory, got %q", c.Store.Backend))
	}

	// Validate ranges
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "PORT must be 1-65535")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, "HTTP_MAX_BODY_BYTES must be positive")
	}
	if c.Attendance.ChunkLimit < 100 || c.Attendance.ChunkLimit > 5000 {
		errs = append(errs, "ATTENDANCE_CHUNK_LIMIT must be 100-5000")
	}
	if c.Attendance.MaxStatsDays < 1 {
		errs = append(errs, "ATTENDANCE_MAX_STATS_DAYS must be positive")
	}

	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.DigestCron); err != nil {
			errs = append(errs, fmt.Sprintf("DIGEST_CRON %q: %v", c.Scheduler.DigestCron, err))
		}
		if len(c.Scheduler.ChatIDs) == 0 {
			errs = append(errs, "DIGEST_CHAT_IDS is required when DIGEST_ENABLED is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RemoteURL returns the connection URL of the selected remote backend.
func (s StoreConfig) RemoteURL() string {
	switch s.Backend {
	case BackendRedis:
		return s.RedisURL
	case BackendPostgres:
		return s.DatabaseURL
	}
	return ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
