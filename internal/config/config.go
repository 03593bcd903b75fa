package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type Config struct {
	Port     string
	Database DatabaseConfig

	RedisAddr   string
	KafkaBroker string
	JWTSecret   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	RosterCacheTTL     time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	// Per client IP, applied before authentication. Zero disables it.
	IPRateLimitRPS   float64
	IPRateLimitBurst int

	AutoMigrate bool
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: getEnv("PORT", "3000"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "sheepshep"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		KafkaBroker:        os.Getenv("KAFKA_BROKER"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		OutboxPollInterval: getDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
		OutboxBatchSize:    getInt("OUTBOX_BATCH_SIZE", 50),
		RosterCacheTTL:     getDuration("ROSTER_CACHE_TTL", 5*time.Minute),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 10),
		IPRateLimitRPS:     getFloat("IP_RATE_LIMIT_RPS", 20),
		IPRateLimitBurst:   getInt("IP_RATE_LIMIT_BURST", 40),
		AutoMigrate:        getBool("AUTO_MIGRATE", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
