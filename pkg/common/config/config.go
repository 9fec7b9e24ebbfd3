package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort      string
	AuditServerPort string
	ServerHost      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRequestBody  int64

	// Artifacts
	ClassifierPath     string
	StatisticsPath     string
	FeatureCatalogPath string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers         []string
	KafkaGroupID         string
	PredictionEventTopic string

	// Rate limiting
	RateLimitRPS    int
	RateLimitWindow time.Duration
	RateLimitPrefix string
	TrustedProxies  []string

	// Client
	PredictionBaseURL string
	ClientTimeout     time.Duration
	OIDCTokenURL      string
	OIDCClientID      string
	OIDCClientSecret  string
}

func Load() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8000"),
		AuditServerPort: getEnv("AUDIT_SERVER_PORT", "8001"),
		ServerHost:      getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody:  int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		ClassifierPath:     getEnv("CLASSIFIER_PATH", "artifacts/ckd_classifier.json"),
		StatisticsPath:     getEnv("STATISTICS_PATH", "artifacts/ckd_statistics.json"),
		FeatureCatalogPath: getEnv("FEATURE_CATALOG_PATH", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "physickd"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "physickd"),
		PostgresDB:       getEnv("POSTGRES_DB", "physickd"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:         getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaGroupID:         getEnv("KAFKA_GROUP_ID", "physickd-audit"),
		PredictionEventTopic: getEnv("PREDICTION_EVENT_TOPIC", "ckd.predictions"),

		RateLimitRPS:    getIntEnv("RATE_LIMIT_RPS", 20),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Second),
		RateLimitPrefix: getEnv("RATE_LIMIT_PREFIX", "ratelimit:predict"),
		TrustedProxies:  getStringSliceEnv("TRUSTED_PROXIES", nil),

		PredictionBaseURL: getEnv("PREDICTION_BASE_URL", "http://localhost:8000"),
		ClientTimeout:     getDuration("CLIENT_TIMEOUT", 10*time.Second),
		OIDCTokenURL:      getEnv("OIDC_TOKEN_URL", ""),
		OIDCClientID:      getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:  getEnv("OIDC_CLIENT_SECRET", ""),
	}
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// KafkaEnabled reports whether at least one broker was configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
