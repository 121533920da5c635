package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-wide configuration, built once in main and passed by
// reference. It is read-only after FromEnv returns; nothing mutates it at
// request time.
type Config struct {
	Addr        string
	Env         string
	FrontendURL string

	Session SessionConfig
	Broker  BrokerConfig
	SSNHash SSNHashConfig

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	LoginRatePerMinute int
	LoginRateBurst     int
}

// SessionConfig controls the application session credential and its cookies.
type SessionConfig struct {
	SigningKey   string
	Issuer       string
	Audience     string
	TTL          time.Duration
	CookieDomain string
	CookieSecure bool
}

// BrokerConfig describes the eID identity broker (OIDC). Web and native app
// register as separate broker clients, so they carry distinct client IDs.
// An empty Domain means the broker is not configured; login attempts then
// fail with a service-unavailable error rather than a panic.
type BrokerConfig struct {
	Domain          string
	WebClientID     string
	AppClientID     string
	ClientSecret    string
	Scopes          []string
	ExchangeTimeout time.Duration
	JWKSRefresh     time.Duration
}

// Configured reports whether the broker can be used for logins.
func (b BrokerConfig) Configured() bool {
	return b.Domain != "" && b.WebClientID != "" && b.ClientSecret != ""
}

// SSNHashConfig keys the one-way personnummer hash.
type SSNHashConfig struct {
	Secret string
}

// PostgresConfig points at the account database. Empty URL selects the
// in-memory store (development only).
type PostgresConfig struct {
	URL string
}

// RedisConfig points at the optional revocation denylist. Empty URL disables
// revocation; logout then only clears cookies.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig points at the audit event sink. Empty Brokers keeps audit
// events in the in-process sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("CAREGATE_ADDR", ":8080"),
		Env:         envOr("CAREGATE_ENV", "development"),
		FrontendURL: envOr("FRONTEND_URL", "http://localhost:3000"),
		Session: SessionConfig{
			SigningKey:   envOr("SESSION_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:       envOr("SESSION_ISSUER", "caregate"),
			Audience:     envOr("SESSION_AUDIENCE", "caregate-api"),
			TTL:          envDuration("SESSION_TTL", time.Hour),
			CookieDomain: os.Getenv("SESSION_COOKIE_DOMAIN"),
			CookieSecure: os.Getenv("SESSION_COOKIE_SECURE") != "false",
		},
		Broker: BrokerConfig{
			Domain:          os.Getenv("BROKER_DOMAIN"),
			WebClientID:     os.Getenv("BROKER_WEB_CLIENT_ID"),
			AppClientID:     os.Getenv("BROKER_APP_CLIENT_ID"),
			ClientSecret:    os.Getenv("BROKER_CLIENT_SECRET"),
			Scopes:          envList("BROKER_SCOPES", []string{"openid", "profile"}),
			ExchangeTimeout: envDuration("BROKER_EXCHANGE_TIMEOUT", 10*time.Second),
			JWKSRefresh:     envDuration("BROKER_JWKS_REFRESH", 15*time.Minute),
		},
		SSNHash: SSNHashConfig{
			Secret: envOr("SSN_HASH_SECRET", "dev-ssn-hash-secret"),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS", nil),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "caregate.audit"),
		},
		LoginRatePerMinute: envInt("LOGIN_RATE_PER_MINUTE", 30),
		LoginRateBurst:     envInt("LOGIN_RATE_BURST", 10),
	}

	// If only one broker client is registered, the native app shares it.
	if cfg.Broker.AppClientID == "" {
		cfg.Broker.AppClientID = cfg.Broker.WebClientID
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
