package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port string
	Env  string // "development", "production"

	// Database
	DatabaseURL string

	// Auth
	JWTSecret string
	// CronSecret guards the external batch trigger endpoint.
	CronSecret string

	// CORS
	AllowedOrigins []string

	// Email delivery
	ResendAPIKey string
	FromEmail    string

	// Reminder batch
	ReminderEnabled   bool
	ReminderSchedule  string        // Cron expression (e.g., "* * * * *" for every minute)
	ReminderTimeout   time.Duration // Timeout for one complete batch run
	ReminderBatchSize int           // Cap on due notifications per run
	SendTimeout       time.Duration // Per-email send timeout within a run
}

func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/loanserve?sslmode=disable"),

		// Auth
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		CronSecret: os.Getenv("CRON_SECRET"),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),

		// Email delivery
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromEmail:    getEnv("FROM_EMAIL", "reminders@loanserve.app"),

		// Reminder batch
		ReminderEnabled:   getBoolEnv("REMINDER_ENABLED", true),
		ReminderSchedule:  getEnv("REMINDER_SCHEDULE", "* * * * *"), // Default: every minute
		ReminderTimeout:   getDurationEnv("REMINDER_TIMEOUT", 5*time.Minute),
		ReminderBatchSize: getIntEnv("REMINDER_BATCH_SIZE", 100),
		SendTimeout:       getDurationEnv("SEND_TIMEOUT", 15*time.Second),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
