package config

import (
	"os"
	"strconv"
	"time"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/cache"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/messaging"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/providers"
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	// Reservation hold lifetime for PENDING bookings.
	BookingHoldTTL time.Duration

	// Expiry sweep cadence and per-pass batch size.
	SweepInterval  time.Duration
	SweepBatchSize int

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config
	Card     gateway.CardConfig
	Entrio   providers.Config
	Ulaznice providers.Config
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		BookingHoldTTL: time.Duration(getEnvInt("BOOKING_HOLD_TTL_MIN", 15)) * time.Minute,
		SweepInterval:  time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 30)) * time.Second,
		SweepBatchSize: getEnvInt("SWEEP_BATCH_SIZE", 100),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "kruzna"),
			Password:           getEnv("DB_PASSWORD", "kruzna"),
			DBName:             getEnv("DB_NAME", "kruzna_karta"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "kruzna-karta"),
			ClientID:  getEnv("NATS_CLIENT_ID", "booking-engine"),
			Enabled:   getEnv("NATS_ENABLED", "false") == "true",
		},

		Card: gateway.CardConfig{
			BaseURL:       getEnv("GATEWAY_URL", "https://gateway.example.com"),
			MerchantSlug:  getEnv("GATEWAY_MERCHANT_SLUG", ""),
			APISecret:     getEnv("GATEWAY_API_SECRET", ""),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			Timeout:       time.Duration(getEnvInt("GATEWAY_TIMEOUT_SEC", 30)) * time.Second,
		},

		Entrio: providers.Config{
			BaseURL: getEnv("ENTRIO_URL", "https://api.entrio.hr"),
			APIKey:  getEnv("ENTRIO_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SEC", 30)) * time.Second,
		},

		Ulaznice: providers.Config{
			BaseURL: getEnv("ULAZNICE_URL", "https://api.ulaznice.hr"),
			APIKey:  getEnv("ULAZNICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
