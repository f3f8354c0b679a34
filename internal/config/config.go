package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI string
	DBName   string

	JWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string

	BaseURL  string
	Currency string

	CheckoutSessionTTL time.Duration
	PlatformFeePercent float64

	RedisAddr string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:            getEnvOrDefault("MONGO_URI", ""),
		DBName:              getEnvOrDefault("DB_NAME", "marketplace"),
		JWTSecret:           getEnvOrDefault("JWT_SECRET", ""),
		StripeSecretKey:     getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		BaseURL:             getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		Currency:            getEnvOrDefault("CURRENCY", "usd"),
		CheckoutSessionTTL:  getDurationEnv("CHECKOUT_SESSION_TTL_HOURS", 24, time.Hour),
		PlatformFeePercent:  getFloatEnv("PLATFORM_FEE_PERCENT", 15),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
