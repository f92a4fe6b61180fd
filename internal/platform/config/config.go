package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool
	LogLevel     string

	StoreDriver   string
	DatabaseURL   string
	SQLitePath    string
	EnableDBCheck bool
	RunMigrations bool

	JWTSecret          string
	RateLimit          string // ulule/limiter format, e.g. "100-M"
	CORSAllowedOrigins []string

	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	LockWaitTimeout      time.Duration
	OperationTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("SQLITE_PATH", "ledger.db")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RETRY_MAX_ATTEMPTS", 5)
	v.SetDefault("RETRY_INITIAL_INTERVAL", "20ms")
	v.SetDefault("RETRY_MAX_INTERVAL", "500ms")
	v.SetDefault("LOCK_WAIT_TIMEOUT", "2s")
	v.SetDefault("OPERATION_TIMEOUT", "10s")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                 v.GetString("PORT"),
		IsProduction:         v.GetBool("IS_PRODUCTION"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		StoreDriver:          strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:          v.GetString("PGSQL_URL"),
		SQLitePath:           v.GetString("SQLITE_PATH"),
		EnableDBCheck:        v.GetBool("ENABLE_DB_CHECK"),
		RunMigrations:        v.GetBool("RUN_MIGRATIONS"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		RateLimit:            v.GetString("RATE_LIMIT"),
		RetryMaxAttempts:     v.GetInt("RETRY_MAX_ATTEMPTS"),
		RetryInitialInterval: v.GetDuration("RETRY_INITIAL_INTERVAL"),
		RetryMaxInterval:     v.GetDuration("RETRY_MAX_INTERVAL"),
		LockWaitTimeout:      v.GetDuration("LOCK_WAIT_TIMEOUT"),
		OperationTimeout:     v.GetDuration("OPERATION_TIMEOUT"),
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL must be set when STORE_DRIVER is %s", DriverPostgres)
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH must be set when STORE_DRIVER is %s", DriverSQLite)
		}
	case DriverMemory:
		log.Println("Warning: STORE_DRIVER is memory, data will not survive a restart.")
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.IsProduction && cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		return nil, fmt.Errorf("JWT_SECRET must be changed in production")
	}

	return cfg, nil
}
