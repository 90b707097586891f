package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr           string
	CRDBDSN            string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RabbitURL          string
	OTLPEndpoint       string
	LogLevel           string
	SessionTTL         time.Duration
	IdempotencyTTL     time.Duration
	OutboxInterval     time.Duration
	CompletionInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getenv("MONGO_DB", "rail"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"SESSION_TTL", 30 * time.Minute, &cfg.SessionTTL},
		{"IDEMPOTENCY_TTL", time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_INTERVAL", 5 * time.Second, &cfg.OutboxInterval},
		{"COMPLETION_INTERVAL", time.Minute, &cfg.CompletionInterval},
	}
	for _, d := range durations {
		v, err := duration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	if d <= 0 {
		return 0, errors.Newf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}
