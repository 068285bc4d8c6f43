package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBUrl          string
	RedisURL       string
	RedisPassword  string
	JWTSecret      string
	Port           string
	Host           string
	Env            string
	AllowedOrigins []string

	VendorBaseURL string
	VendorAPIKey  string
	VendorTimeout time.Duration

	ProviderBaseURL         string
	ProviderAPIKey          string
	ProviderWebhookSecret   string
	RequireWebhookSignature bool

	MinCashbackWithdrawal decimal.Decimal
	MaxActiveKeys         int

	KafkaBrokers []string
	KafkaTopic   string

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

func LoadConfig() Config {
	godotenv.Load()

	cfg := Config{
		DBUrl:          getEnv("DATABASE_URL"),
		RedisURL:       getEnvDefault("REDIS_URL", "localhost:6379"),
		RedisPassword:  getEnvDefault("REDIS_PASSWORD", ""),
		JWTSecret:      getEnv("JWT_SECRET"),
		Port:           getEnv("PORT"),
		Host:           getEnvDefault("HOST", "http://localhost"),
		Env:            getEnvDefault("ENV", "development"),
		AllowedOrigins: splitList(getEnvDefault("ALLOWED_ORIGINS", "*")),

		VendorBaseURL: getEnv("VENDOR_BASE_URL"),
		VendorAPIKey:  getEnv("VENDOR_API_KEY"),
		VendorTimeout: getDuration("VENDOR_TIMEOUT", 30*time.Second),

		ProviderBaseURL:         getEnv("PROVIDER_BASE_URL"),
		ProviderAPIKey:          getEnv("PROVIDER_API_KEY"),
		ProviderWebhookSecret:   getEnv("PROVIDER_WEBHOOK_SECRET"),
		RequireWebhookSignature: getBool("REQUIRE_WEBHOOK_SIGNATURE", true),

		MinCashbackWithdrawal: getDecimal("MIN_CASHBACK_WITHDRAWAL", decimal.NewFromInt(100)),
		MaxActiveKeys:         getInt("MAX_ACTIVE_KEYS", 5),

		KafkaBrokers: splitList(getEnvDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnvDefault("KAFKA_TOPIC", "wallet-notifications"),

		ReconcileInterval: getDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileGrace:    getDuration("RECONCILE_GRACE", 5*time.Minute),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10),
	}

	// a debited purchase younger than the vendor timeout may still have a call in flight
	if cfg.ReconcileGrace <= cfg.VendorTimeout {
		panic(fmt.Sprintf("RECONCILE_GRACE (%s) must be longer than VENDOR_TIMEOUT (%s)", cfg.ReconcileGrace, cfg.VendorTimeout))
	}
	return cfg
}

func getEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	panic(fmt.Sprintf("%s is required", key))
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		panic(fmt.Sprintf("%s must be a valid integer", key))
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		panic(fmt.Sprintf("%s must be a valid number", key))
	}
	return v
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		panic(fmt.Sprintf("%s must be true or false", key))
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		panic(fmt.Sprintf("%s must be a duration such as 30s or 5m", key))
	}
	return v
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		panic(fmt.Sprintf("%s must be a non-negative amount", key))
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
