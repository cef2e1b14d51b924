package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    string
	DatabaseURL             string
	CreateAttempts          int
	ShutdownTimeout         time.Duration
	RateLimitPerMinute      int
	RateLimitBurst          int
	StaffRateLimitPerMinute int
	StaffRateLimitBurst     int
	OTLPEndpoint            string
	OTLPInsecure            bool
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                    port,
		DatabaseURL:             os.Getenv("DB_DSN"),
		CreateAttempts:          readInt("TICKET_CREATE_ATTEMPTS", 3),
		ShutdownTimeout:         readDurationSeconds("SHUTDOWN_TIMEOUT_SECONDS", 10),
		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		StaffRateLimitPerMinute: readInt("STAFF_RATE_LIMIT_PER_MIN", 600),
		StaffRateLimitBurst:     readInt("STAFF_RATE_LIMIT_BURST", 120),
		OTLPEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:            readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
