// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Timeouts bounds how long each kind of user-facing operation may wait on the
// backend. The deadline is carried into the request context, so an expired
// timeout cancels the call itself.
type Timeouts struct {
	Session  time.Duration
	Login    time.Duration
	SignUp   time.Duration
	Submit   time.Duration
	Transfer time.Duration
}

// Config holds all configuration for the application.
type Config struct {
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	DatabaseURL       string

	LogLevel    string
	LogJSON     bool
	LogHashSalt string

	Timeouts Timeouts

	RecentTransactionsLimit int

	ExchangeAPIURL   string
	ExchangeCacheTTL time.Duration
	DZDPerEUR        decimal.Decimal

	TelegramBotToken string
	TelegramChatID   int64

	KafkaBrokers []string
	KafkaTopic   string

	GeminiAPIKey string

	OTelExporter string
	OTelEndpoint string
	ServiceName  string
}

// Default values used when the corresponding variable is unset or invalid.
const (
	DefaultSessionTimeout          = 8 * time.Second
	DefaultLoginTimeout            = 15 * time.Second
	DefaultSignUpTimeout           = 35 * time.Second
	DefaultSubmitTimeout           = 10 * time.Second
	DefaultTransferTimeout         = 20 * time.Second
	DefaultRecentTransactionsLimit = 50
	DefaultExchangeCacheTTL        = 12 * time.Hour
	DefaultDZDPerEUR               = "145"
	DefaultKafkaTopic              = "wallet-notifications"
	DefaultOTelExporter            = "none"
	DefaultServiceName             = "walletctl"
)

// Load reads configuration from environment variables, after loading a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SupabaseURL:       firstEnv("SUPABASE_URL", "VITE_SUPABASE_URL"),
		SupabaseAnonKey:   firstEnv("SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		LogJSON:           os.Getenv("LOG_FORMAT") == "json",
		LogHashSalt:       os.Getenv("LOG_HASH_SALT"),
		ExchangeAPIURL:    os.Getenv("EXCHANGE_API_URL"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", DefaultKafkaTopic),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		OTelExporter:      strings.ToLower(getEnv("OTEL_EXPORTER", DefaultOTelExporter)),
		OTelEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:       getEnv("OTEL_SERVICE_NAME", DefaultServiceName),
	}

	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")

	cfg.Timeouts = Timeouts{
		Session:  getEnvDuration("SESSION_TIMEOUT", DefaultSessionTimeout),
		Login:    getEnvDuration("LOGIN_TIMEOUT", DefaultLoginTimeout),
		SignUp:   getEnvDuration("SIGNUP_TIMEOUT", DefaultSignUpTimeout),
		Submit:   getEnvDuration("SUBMIT_TIMEOUT", DefaultSubmitTimeout),
		Transfer: getEnvDuration("TRANSFER_TIMEOUT", DefaultTransferTimeout),
	}

	cfg.RecentTransactionsLimit = DefaultRecentTransactionsLimit
	if v := os.Getenv("RECENT_TRANSACTIONS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			cfg.RecentTransactionsLimit = n
		}
	}

	cfg.ExchangeCacheTTL = getEnvDuration("EXCHANGE_CACHE_TTL", DefaultExchangeCacheTTL)

	cfg.DZDPerEUR = decimal.RequireFromString(DefaultDZDPerEUR)
	if v := os.Getenv("EXCHANGE_DZD_PER_EUR"); v != "" {
		if rate, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil && rate.IsPositive() {
			cfg.DZDPerEUR = rate
		}
	}

	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for broker := range strings.SplitSeq(brokers, ",") {
			broker = strings.TrimSpace(broker)
			if broker == "" {
				continue
			}
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.SupabaseURL == "" {
		errs = append(errs, "SUPABASE_URL (or VITE_SUPABASE_URL) is required")
	} else if u, err := url.Parse(c.SupabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "SUPABASE_URL must be an absolute URL")
	}
	if c.SupabaseAnonKey == "" {
		errs = append(errs, "SUPABASE_ANON_KEY (or VITE_SUPABASE_ANON_KEY) is required")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, "TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	switch c.OTelExporter {
	case "none", "stdout", "otlp-grpc", "otlp-http":
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// UsesDirectDatabase reports whether data calls should bypass the HTTP
// gateway and go straight to Postgres.
func (c *Config) UsesDirectDatabase() bool {
	return c.DatabaseURL != ""
}

// NotificationsToKafka reports whether notification events are published.
func (c *Config) NotificationsToKafka() bool {
	return len(c.KafkaBrokers) > 0
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
