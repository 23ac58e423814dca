package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env                string
	HTTPPort           string
	UpstreamURL        string
	UpstreamTimeout    time.Duration
	RedisAddr          string
	QueueBackend       string
	SessionSigningKey  string
	SessionIssuer      string
	SessionTTL         time.Duration
	SessionBackend     string
	EventsCacheTTL     time.Duration
	ScanSessionIdleTTL time.Duration
	RateLimitPerMin    int
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPPort:           getEnv("HTTP_PORT", "8082"),
		UpstreamURL:        getEnv("UPSTREAM_URL", "http://localhost:5000/api"),
		UpstreamTimeout:    durationEnv("UPSTREAM_TIMEOUT", 30*time.Second),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		QueueBackend:       getEnv("QUEUE_BACKEND", "redis"),
		SessionSigningKey:  getEnv("SESSION_SIGNING_KEY", "dev-signing-secret-change"),
		SessionIssuer:      getEnv("SESSION_ISSUER", "eventgate"),
		SessionTTL:         durationEnv("SESSION_TTL", 12*time.Hour),
		SessionBackend:     getEnv("SESSION_BACKEND", "redis"),
		EventsCacheTTL:     durationEnv("EVENTS_CACHE_TTL", 5*time.Minute),
		ScanSessionIdleTTL: durationEnv("SCAN_SESSION_IDLE_TTL", 30*time.Minute),
		RateLimitPerMin:    intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
