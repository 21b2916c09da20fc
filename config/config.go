package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Ledger    LedgerConfig
	Observ    ObservabilityConfig
	Auth      AuthConfig
	Assistant AssistantConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StorageConfig struct {
	DataDir string
}

// RedisConfig is optional; an empty Addr keeps file locks in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// KafkaConfig is optional; without brokers events go through the in-process bus.
type KafkaConfig struct {
	Brokers        []string
	TopicOrder     string
	InventoryGroup string
	LedgerGroup    string
}

type LedgerConfig struct {
	Driver string
	DSN    string
}

type ObservabilityConfig struct {
	JaegerEndpoint   string
	TraceSampleRatio float64
	LogLevel         string
}

type AuthConfig struct {
	JWTSecret       string
	SessionTTL      time.Duration
	AdminSessionTTL time.Duration
	PinChallengeTTL time.Duration
}

type AssistantConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type RateLimitConfig struct {
	AuthPerMinute      int
	AssistantPerMinute int
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Storage: StorageConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			LockTTL:  getSeconds("REDIS_LOCK_TTL_SECONDS", 10),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(getEnv("KAFKA_BROKERS", "")),
			TopicOrder:     getEnv("KAFKA_TOPIC_ORDER_EVENTS", "storefront-order-events"),
			InventoryGroup: getEnv("KAFKA_INVENTORY_GROUP", "storefront-inventory"),
			LedgerGroup:    getEnv("KAFKA_LEDGER_GROUP", "storefront-ledger"),
		},
		Ledger: LedgerConfig{
			Driver: getEnv("LEDGER_DRIVER", "postgres"),
			DSN:    getEnv("LEDGER_DSN", ""),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint:   getEnv("JAEGER_ENDPOINT", ""),
			TraceSampleRatio: getFloat("TRACE_SAMPLE_RATIO", 1),
			LogLevel:         getEnv("LOG_LEVEL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
			SessionTTL:      getSeconds("SESSION_TTL_SECONDS", 7*24*3600),
			AdminSessionTTL: getSeconds("ADMIN_SESSION_TTL_SECONDS", 8*3600),
			PinChallengeTTL: getSeconds("PIN_CHALLENGE_TTL_SECONDS", 300),
		},
		Assistant: AssistantConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout: getSeconds("ASSISTANT_TIMEOUT_SECONDS", 30),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute:      getInt("RATE_LIMIT_AUTH_PER_MINUTE", 30),
			AssistantPerMinute: getInt("RATE_LIMIT_ASSISTANT_PER_MINUTE", 20),
		},
	}

	if cfg.Server.Env == "production" && cfg.Auth.JWTSecret == "dev-secret-change-me" {
		log.Fatal("JWT_SECRET must be set in production")
	}

	log.Printf("Config loaded: env=%s, port=%s, data_dir=%s", cfg.Server.Env, cfg.Server.Port, cfg.Storage.DataDir)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if parsed, err := strconv.Atoi(getEnv(key, "")); err == nil && parsed > 0 {
		return parsed
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if parsed, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && parsed >= 0 && parsed <= 1 {
		return parsed
	}
	return defaultVal
}

func getSeconds(key string, defaultVal int) time.Duration {
	return time.Duration(getInt(key, defaultVal)) * time.Second
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
