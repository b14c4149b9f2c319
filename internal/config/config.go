package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	DBURL      string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration
	LockWait      time.Duration

	SentryDSN    string
	OTLPEndpoint string

	ReconcileSchedule string
	RateLimitRPS      float64
	RateLimitBurst    int
	LowStockThreshold int
	ConflictRetries   int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_WAIT", "3s")
	v.SetDefault("RECONCILE_SCHEDULE", "0 30 2 * * *")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("CONFLICT_RETRIES", 3)
}

// Load reads .env (if present) and the process environment. It never exits.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		DBHost:     v.GetString("DB_HOST"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBPort:     v.GetString("DB_PORT"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		DBURL:      v.GetString("DB_URL"),
		AppPort:    v.GetString("APP_PORT"),
		AppEnv:     v.GetString("APP_ENV"),
		JWTSecret:  v.GetString("JWT_SECRET"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		LockTTL:       v.GetDuration("LOCK_TTL"),
		LockWait:      v.GetDuration("LOCK_WAIT"),

		SentryDSN:    v.GetString("SENTRY_DSN"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		ReconcileSchedule: v.GetString("RECONCILE_SCHEDULE"),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		ConflictRetries:   v.GetInt("CONFLICT_RETRIES"),
	}
}

// LoadConfig is Load plus the mandatory database check used by the server binary.
func LoadConfig() *Config {
	cfg := Load()
	if cfg.DBHost == "" && cfg.DBURL == "" {
		log.Fatal("Environment variables not loaded properly")
	}
	return cfg
}
