package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required (the
// in-app feed store lives there).
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database (in-app feed store)
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Preference store; empty address means in-process default-allow.
	RedisAddr     string
	RedisPassword string

	// Event source; empty URL disables the NATS subscriber.
	NATSURL     string
	NATSSubject string

	// Dispatch engine
	BatchSize    int
	BatchTimeout time.Duration
	SendTimeout  time.Duration

	// Outbound throttle: maximum sends per second per channel.
	ChannelRateLimit int

	// Rate-limit state eviction
	RateEvictInterval time.Duration
	RateEvictMaxIdle  time.Duration

	// Channel sender endpoints
	EmailGatewayURL         string
	ChatPrimaryWebhookURL   string
	ChatSecondaryWebhookURL string
	WebhookTimeout          time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "proposals.events.>"),

		BatchSize:    getInt("BATCH_SIZE", 10),
		BatchTimeout: getDuration("BATCH_TIMEOUT", 5*time.Second),
		SendTimeout:  getDuration("SEND_TIMEOUT", 10*time.Second),

		ChannelRateLimit: getInt("CHANNEL_RATE_LIMIT", 100),

		RateEvictInterval: getDuration("RATE_EVICT_INTERVAL", 10*time.Minute),
		RateEvictMaxIdle:  getDuration("RATE_EVICT_MAX_IDLE", 24*time.Hour),

		EmailGatewayURL:         getEnv("EMAIL_GATEWAY_URL", "http://localhost:8025/api/send"),
		ChatPrimaryWebhookURL:   getEnv("CHAT_PRIMARY_WEBHOOK_URL", "http://localhost:9000/hooks/proposals"),
		ChatSecondaryWebhookURL: getEnv("CHAT_SECONDARY_WEBHOOK_URL", "http://localhost:9000/hooks/escalations"),
		WebhookTimeout:          getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
