package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the box office
type Config struct {
	// Mode selects the log format: debug (text) or release (JSON)
	Mode     string
	LogLevel string

	// Venue configuration
	Venue VenueConfig

	// Hold id generation: memory or redis
	HoldIDBackend string

	// Redis configuration
	Redis RedisConfig

	// Kafka event publishing
	Kafka KafkaConfig

	// Per-customer hold throttling
	RateLimit RateLimitConfig
}

// VenueConfig sizes the default venue
type VenueConfig struct {
	Rows            int
	Columns         int
	HoldPeriod      time.Duration
	ReclaimInterval time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	Addr      string
	HoldIDKey string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RateLimitConfig holds hold-request throttling configuration
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Mode:     getEnv("APP_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Venue configuration
		Venue: VenueConfig{
			Rows:            getIntEnv("VENUE_ROWS", 0),
			Columns:         getIntEnv("VENUE_COLUMNS", 0),
			HoldPeriod:      getDurationEnv("HOLD_PERIOD", 30*time.Second),
			ReclaimInterval: getDurationEnv("RECLAIM_INTERVAL", 0),
		},

		HoldIDBackend: strings.ToLower(getEnv("HOLD_ID_BACKEND", "memory")),

		// Redis configuration
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getIntEnv("REDIS_DB", 0),
			HoldIDKey: getEnv("REDIS_HOLD_ID_KEY", "tics:hold_id"),
		},

		// Kafka configuration
		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_VENUE_TOPIC", "venue-events"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			RPS:   getFloatEnv("HOLD_RATE_LIMIT_RPS", 0),
			Burst: getIntEnv("HOLD_RATE_LIMIT_BURST", 1),
		},
	}

	// Build composite values
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port
	cfg.RateLimit.Enabled = cfg.RateLimit.RPS > 0

	return cfg
}

// HasVenue reports whether a default venue is configured
func (c *Config) HasVenue() bool {
	return c.Venue.Rows > 0 && c.Venue.Columns > 0
}

// UseRedisHoldIDs reports whether hold ids come from Redis
func (c *Config) UseRedisHoldIDs() bool {
	return c.HoldIDBackend == "redis"
}

// IsProduction returns true if the application is running in release mode
func (c *Config) IsProduction() bool {
	return c.Mode == "release"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value.
// A bare integer is read as milliseconds.
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
