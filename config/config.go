package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// SQLite fallback store
	SQLitePath string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Backend ticket lookup API
	TicketAPIBaseURL string

	// Expiration windows for search selections, session retention and
	// passenger cleanup. Each is its own knob.
	CityCacheTTL     time.Duration
	SessionRetention time.Duration
	PassengerMaxAge  time.Duration

	// Maintenance / timers
	CleanupInterval   time.Duration
	CountdownInterval time.Duration
	PurchaseDeadline  time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// SQLite
		SQLitePath: getEnv("SQLITE_PATH", "data/busflow.db"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Ticket lookup
		TicketAPIBaseURL: getEnv("TICKET_API_BASE_URL", "http://localhost:9000"),

		// Expiration windows
		CityCacheTTL:     getEnvAsDuration("CITY_CACHE_TTL", "23h"),
		SessionRetention: getEnvAsDuration("SESSION_RETENTION", "168h"),
		PassengerMaxAge:  getEnvAsDuration("PASSENGER_MAX_AGE", "30m"),

		// Maintenance
		CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", "1h"),
		CountdownInterval: getEnvAsDuration("COUNTDOWN_INTERVAL", "1s"),
		PurchaseDeadline:  getEnvAsDuration("PURCHASE_DEADLINE", "15m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
