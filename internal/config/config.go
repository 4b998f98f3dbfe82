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
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PaymentGatewayURL     string
	PaymentMerchantID     string
	PaymentSecret         string
	PaymentNotifyURL      string
	PaymentReturnURL      string
	PaymentGatewayTimeout time.Duration

	PreorderAutoCancelTTL time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "freshfruit"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),

		PaymentGatewayURL:     getEnvOrDefault("PAYMENT_GATEWAY_URL", ""),
		PaymentMerchantID:     getEnvOrDefault("PAYMENT_MERCHANT_ID", ""),
		PaymentSecret:         getEnvOrDefault("PAYMENT_SECRET", ""),
		PaymentNotifyURL:      getEnvOrDefault("PAYMENT_NOTIFY_URL", ""),
		PaymentReturnURL:      getEnvOrDefault("PAYMENT_RETURN_URL", ""),
		PaymentGatewayTimeout: getDurationEnv("PAYMENT_GATEWAY_TIMEOUT", 10, time.Second),

		PreorderAutoCancelTTL: getDurationEnv("PREORDER_AUTOCANCEL_TTL", 30, time.Minute),
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
