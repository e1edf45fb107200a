package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Matchmaking
	WavePeriodSeconds int

	// Match lifecycle
	ConfirmTimerSeconds   int
	AbortTimerSeconds     int
	ReminderFractionDenom int
	MaxAborts             int
	RankedWindowDays      int

	// Rating engine
	KFactor int

	// Write queue
	WriteQueueDepth    int
	WriteRetryBackoffs []time.Duration
	DeadLetterPath     string

	// Rate limiter
	RateLimitMinDelayMS int
	RateLimitQueue      int

	// Replay storage
	ReplayDir string

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/scevo?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Matchmaking
		WavePeriodSeconds: getEnvInt("WAVE_PERIOD_SECONDS", 45),

		// Match lifecycle
		ConfirmTimerSeconds:   getEnvInt("CONFIRM_TIMER_SECONDS", 60),
		AbortTimerSeconds:     getEnvInt("ABORT_TIMER_SECONDS", 180),
		ReminderFractionDenom: getEnvInt("REMINDER_FRACTION_DENOM", 3),
		MaxAborts:             getEnvInt("MAX_ABORTS", 3),
		RankedWindowDays:      getEnvInt("RANKED_WINDOW_DAYS", 14),

		// Rating engine
		KFactor: getEnvInt("K_FACTOR", 32),

		// Write queue
		WriteQueueDepth:    getEnvInt("WRITE_QUEUE_DEPTH", 10000),
		WriteRetryBackoffs: getEnvDurationsMS("WRITE_RETRY_BACKOFFS_MS", []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}),
		DeadLetterPath:     getEnv("DEAD_LETTER_PATH", "deadletter.jsonl"),

		// Rate limiter
		RateLimitMinDelayMS: getEnvInt("RATE_LIMIT_MIN_DELAY_MS", 200),
		RateLimitQueue:      getEnvInt("RATE_LIMIT_QUEUE", 1000),

		// Replay storage
		ReplayDir: getEnv("REPLAY_DIR", "replays"),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

// WavePeriod returns the matchmaker wave interval.
func (c *Config) WavePeriod() time.Duration {
	return time.Duration(c.WavePeriodSeconds) * time.Second
}

// ConfirmTimer returns the match confirmation window.
func (c *Config) ConfirmTimer() time.Duration {
	return time.Duration(c.ConfirmTimerSeconds) * time.Second
}

// AbortTimer returns the overall match abort window.
func (c *Config) AbortTimer() time.Duration {
	return time.Duration(c.AbortTimerSeconds) * time.Second
}

// ReminderDelay returns the unconfirmed-player reminder offset,
// a fraction of the abort timer.
func (c *Config) ReminderDelay() time.Duration {
	d := c.ReminderFractionDenom
	if d <= 0 {
		d = 3
	}
	return c.AbortTimer() / time.Duration(d)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDurationsMS parses a comma-separated list of millisecond values.
func getEnvDurationsMS(key string, defaultValue []time.Duration) []time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		ms, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
