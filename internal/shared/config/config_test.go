package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"VENUE_ROWS", "VENUE_COLUMNS", "HOLD_PERIOD", "HOLD_ID_BACKEND", "KAFKA_ENABLED", "HOLD_RATE_LIMIT_RPS", "REDIS_HOST", "REDIS_PORT", "APP_MODE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HasVenue() {
		t.Fatalf("expected no default venue")
	}
	if cfg.Mode != "debug" || cfg.IsProduction() {
		t.Fatalf("expected debug mode by default, got %q", cfg.Mode)
	}
	if cfg.Venue.HoldPeriod != 30*time.Second {
		t.Fatalf("unexpected hold period %s", cfg.Venue.HoldPeriod)
	}
	if cfg.UseRedisHoldIDs() || cfg.Kafka.Enabled || cfg.RateLimit.Enabled {
		t.Fatalf("optional backends should be off by default: %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_MODE", "release")
	t.Setenv("VENUE_ROWS", "2")
	t.Setenv("VENUE_COLUMNS", "5")
	t.Setenv("HOLD_PERIOD", "1500")
	t.Setenv("RECLAIM_INTERVAL", "250ms")
	t.Setenv("HOLD_ID_BACKEND", "Redis")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("HOLD_RATE_LIMIT_RPS", "2.5")
	t.Setenv("HOLD_RATE_LIMIT_BURST", "4")

	cfg := Load()
	if !cfg.HasVenue() || cfg.Venue.Rows != 2 || cfg.Venue.Columns != 5 {
		t.Fatalf("unexpected venue %+v", cfg.Venue)
	}
	if cfg.Venue.HoldPeriod != 1500*time.Millisecond || cfg.Venue.ReclaimInterval != 250*time.Millisecond {
		t.Fatalf("unexpected durations %+v", cfg.Venue)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected release mode")
	}
	if !cfg.UseRedisHoldIDs() {
		t.Fatalf("expected redis hold ids")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 4 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
}
