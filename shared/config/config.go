package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// AppConfig holds the settings shared by the back-office services
type AppConfig struct {
	BackofficePort string
	ActivityPort   string
	GatewayPort    string
	BackofficeURL  string
	ActivityURL    string
	AllowedOrigins []string

	ExpiringSoonDays     int
	LeaseRefreshSchedule string
	PaymentSweepSchedule string

	RedisEnabled   bool
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	CacheKeyPrefix string

	KafkaBroker   string
	EventsTopic   string
	ConsumerGroup string

	AWSRegion            string
	CognitoUserPoolID    string
	VerifyAuthSignatures bool
}

// LoadEnv reads an optional .env file into the environment
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warn("Error loading .env file: ", err)
	}
}

// Load returns the application configuration from environment variables
func Load() *AppConfig {
	return &AppConfig{
		BackofficePort: getEnv("BACKOFFICE_PORT", "8002"),
		ActivityPort:   getEnv("ACTIVITY_PORT", "8003"),
		GatewayPort:    getEnv("API_GATEWAY_PORT", "8080"),
		BackofficeURL:  getEnv("BACKOFFICE_SERVICE_URL", "http://localhost:8002"),
		ActivityURL:    getEnv("ACTIVITY_SERVICE_URL", "http://localhost:8003"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		ExpiringSoonDays:     getEnvInt("LEASE_EXPIRING_SOON_DAYS", 90),
		LeaseRefreshSchedule: getEnv("LEASE_REFRESH_SCHEDULE", "@every 1h"),
		PaymentSweepSchedule: getEnv("PAYMENT_SWEEP_SCHEDULE", "@every 1h"),

		RedisEnabled:   getEnvBool("REDIS_ENABLED", true),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		CacheKeyPrefix: getEnv("CACHE_KEY_PREFIX", "pm"),

		KafkaBroker:   getEnv("KAFKA_BROKER", ""),
		EventsTopic:   getEnv("EVENTS_TOPIC", "occupancy-events"),
		ConsumerGroup: getEnv("ACTIVITY_CONSUMER_GROUP", "activity-feed"),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		CognitoUserPoolID:    getEnv("COGNITO_USER_POOL_ID", ""),
		VerifyAuthSignatures: getEnvBool("AUTH_VERIFY_SIGNATURES", true),
	}
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logrus.Warnf("Invalid %s %q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logrus.Warnf("Invalid %s %q, using %t", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
