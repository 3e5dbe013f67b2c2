package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is constructed once in main and injected into the components that
// need it. Request handlers never mutate it.
type Config struct {
	Port        int
	DatabaseURL string
	JWTSecret   string

	Redis   RedisConfig
	Minio   MinioConfig
	Gateway GatewayConfig
	Billing BillingConfig

	NotifierURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GatewayConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	WebhookSecret string
	Timeout       time.Duration
	MaxRetries    int
}

type BillingConfig struct {
	ChargeRetryBudget      int
	ReferralRewardCents    int64
	RefereeDiscountPercent float64
	ReferralExpiryDays     int
	LockWait               time.Duration
}

// Load reads the environment (and a .env file in development) into a Config.
// Missing required values are an error; policy values fall back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment directly")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	webhookSecret := os.Getenv("GATEWAY_WEBHOOK_SECRET")
	if webhookSecret == "" {
		return nil, fmt.Errorf("GATEWAY_WEBHOOK_SECRET environment variable is required")
	}

	cfg := &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: databaseURL,
		JWTSecret:   jwtSecret,
		Redis: RedisConfig{
			Addr:     envString("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		Minio: MinioConfig{
			Endpoint:  envString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: envString("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: envString("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    envString("MINIO_STATEMENT_BUCKET", "commission-statements"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
		Gateway: GatewayConfig{
			BaseURL:       envString("GATEWAY_BASE_URL", "https://api.paygate.example.com"),
			APIKey:        os.Getenv("GATEWAY_API_KEY"),
			APISecret:     os.Getenv("GATEWAY_API_SECRET"),
			WebhookSecret: webhookSecret,
			Timeout:       time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,
			MaxRetries:    envInt("GATEWAY_MAX_RETRIES", 3),
		},
		Billing: BillingConfig{
			ChargeRetryBudget:      envInt("CHARGE_RETRY_BUDGET", 3),
			ReferralRewardCents:    int64(envInt("REFERRAL_REWARD_CENTS", 1000)),
			RefereeDiscountPercent: envFloat("REFEREE_DISCOUNT_PERCENT", 10),
			ReferralExpiryDays:     envInt("REFERRAL_EXPIRY_DAYS", 90),
			LockWait:               time.Duration(envInt("PERIOD_LOCK_WAIT_SECONDS", 5)) * time.Second,
		},
		NotifierURL: os.Getenv("NOTIFIER_URL"),
	}
	return cfg, nil
}

func envString(key, fallback string) string {
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
		log.Printf("invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid number for %s, using default %v", key, fallback)
	}
	return fallback
}
