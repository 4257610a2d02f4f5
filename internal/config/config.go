package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv               string
	Port                 string
	DatabaseURL          string
	RedisURL             string
	SupabaseJWTSecret    string
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	Currency             string
	RiderPriceDefault    decimal.Decimal
	CORSAllowedOrigins   []string
	IdempotencyTTL       time.Duration
	OfferCacheTTL        time.Duration
	RateLimitEnabled     bool
	RateLimitGlobal      string
	RateLimitIntent      int
	RateLimitWindow      time.Duration
	MetricsEnabled       bool
	MetricsBucketsCSV    string
	TracingEnabled       bool
	OTLPEndpoint         string
	LogFormat            string
	PprofUser            string
	PprofPass            string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	riderDefault, err := parseDecimal(k.String("RIDER_PRICE_DEFAULT"), "6.00")
	if err != nil {
		return nil, fmt.Errorf("RIDER_PRICE_DEFAULT: %w", err)
	}

	cfg := &Config{
		AppEnv:               valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                 valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:          k.String("DATABASE_URL"),
		RedisURL:             k.String("REDIS_URL"),
		SupabaseJWTSecret:    k.String("SUPABASE_JWT_SECRET"),
		StripeSecretKey:      k.String("STRIPE_SECRET_KEY"),
		StripePublishableKey: k.String("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  k.String("STRIPE_WEBHOOK_SECRET"),
		Currency:             strings.ToLower(valueOrDefault(k.String("CURRENCY"), "eur")),
		RiderPriceDefault:    riderDefault,
		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		OfferCacheTTL:        parseDuration(k.String("OFFER_CACHE_TTL"), "60s"),
		RateLimitEnabled:     parseBoolDefault(k.String("RATE_LIMIT_ENABLED"), true),
		RateLimitGlobal:      valueOrDefault(k.String("RATE_LIMIT_GLOBAL"), "120-M"),
		RateLimitIntent:      parseInt(k.String("RATE_LIMIT_INTENT"), 10),
		RateLimitWindow:      parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		MetricsEnabled:       parseBoolDefault(k.String("OBS_METRICS_ENABLED"), true),
		MetricsBucketsCSV:    k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:       parseBoolDefault(k.String("OBS_TRACING_ENABLED"), false),
		OTLPEndpoint:         valueOrDefault(k.String("OTEL_EXPORTER_OTLP_ENDPOINT"), "localhost:4318"),
		LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		PprofUser:            k.String("PPROF_USER"),
		PprofPass:            k.String("PPROF_PASS"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"SUPABASE_JWT_SECRET", cfg.SupabaseJWTSecret},
		{"STRIPE_SECRET_KEY", cfg.StripeSecretKey},
		{"STRIPE_PUBLISHABLE_KEY", cfg.StripePublishableKey},
		{"STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret},
	}
	for _, req := range required {
		if strings.TrimSpace(req.value) == "" {
			return nil, errors.New(req.name + " is required")
		}
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(trimmed, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
