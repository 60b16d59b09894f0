package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	CORSAllowedOrigins []string

	// Storage
	StoreDriver    string // sqlite | memory
	SQLitePath     string
	MaxRetries     int
	InitialBackoff time.Duration

	// Cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Events
	KafkaBrokers      []string
	KafkaFlaggedTopic string

	// Generative model
	LLMAPIURL         string
	LLMModel          string
	LLMAPIKey         string
	LLMTimeout        time.Duration
	LLMMaxConcurrency int

	// Reference dataset
	DatasetDir       string
	FraudDatasetRule bool

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration
}

// LoadDotEnv loads variables from the given .env files without overriding
// the ones already set in the environment. Missing files are an error the
// caller may ignore.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		StoreDriver:    getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/fintrack.db"),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		KafkaBrokers:      getEnvList("KAFKA_BROKERS", nil),
		KafkaFlaggedTopic: getEnv("KAFKA_FLAGGED_TOPIC", "fintrack.transactions.flagged"),

		LLMAPIURL:         getEnv("LLM_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
		LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-flash"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMTimeout:        getEnvDuration("LLM_TIMEOUT", 20*time.Second),
		LLMMaxConcurrency: getEnvInt("LLM_MAX_CONCURRENCY", 8),

		DatasetDir:       getEnv("DATASET_DIR", "./datasets"),
		FraudDatasetRule: getEnvBool("FRAUD_DATASET_RULE", false),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret:    getEnv("JWT_SECRET", "fintrack-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 60*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
