// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"coach_admin_backend/internal/common"
)

// Profile store drivers.
const (
	StoreDriverFirestore = "firestore"
	StoreDriverMongo     = "mongo"
	StoreDriverPostgres  = "postgres"
	StoreDriverSQLite    = "sqlite"
)

// Orphan policies applied when the profile write fails after the account was created.
const (
	OrphanPolicyReport = "report"
	OrphanPolicyDelete = "delete"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE" validate:"oneof=debug release test"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT" validate:"required"`
	ServerTimeout      time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	CORSAllowedOrigins []string      `mapstructure:"-"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=json console"`

	// Firebase Configuration
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseClientEmail           string `mapstructure:"FIREBASE_CLIENT_EMAIL"`
	FirebasePrivateKey            string `mapstructure:"FIREBASE_PRIVATE_KEY" validate:"required_with=FirebaseClientEmail"`

	// Profile Store
	ProfileStoreDriver string `mapstructure:"PROFILE_STORE_DRIVER" validate:"oneof=firestore mongo postgres sqlite"`
	ProfileCollection  string `mapstructure:"PROFILE_COLLECTION" validate:"required"`
	DefaultSpecialty   string `mapstructure:"DEFAULT_SPECIALTY" validate:"required"`

	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	SQLitePath        string        `mapstructure:"SQLITE_PATH"`

	// Provisioning
	OrphanPolicy                 string        `mapstructure:"ORPHAN_POLICY" validate:"oneof=report delete"`
	ProfileWriteRetries          int           `mapstructure:"PROFILE_WRITE_RETRIES" validate:"min=0,max=10"`
	ProfileWriteRetryMaxInterval time.Duration `mapstructure:"-"` // PROFILE_WRITE_RETRY_MAX_INTERVAL_MS
	OrphanReconcileSchedule      string        `mapstructure:"ORPHAN_RECONCILE_SCHEDULE"`
	CreateCoachRatePerMinute     int           `mapstructure:"CREATE_COACH_RATE_PER_MINUTE" validate:"min=0"`
	CreateCoachBurst             int           `mapstructure:"CREATE_COACH_BURST" validate:"min=0"`

	// Admin access
	RequireAdminAuth bool     `mapstructure:"REQUIRE_ADMIN_AUTH"`
	AdminEmails      []string `mapstructure:"-"`

	// Redis (rate limiting)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Observability
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CLIENT_EMAIL", "")
	v.SetDefault("FIREBASE_PRIVATE_KEY", "")

	v.SetDefault("PROFILE_STORE_DRIVER", StoreDriverFirestore)
	v.SetDefault("PROFILE_COLLECTION", "users")
	v.SetDefault("DEFAULT_SPECIALTY", "General Recovery")

	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "coach_admin")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "coach_admin_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("SQLITE_PATH", "coach_admin.db")

	v.SetDefault("ORPHAN_POLICY", OrphanPolicyReport)
	v.SetDefault("PROFILE_WRITE_RETRIES", 0)
	v.SetDefault("PROFILE_WRITE_RETRY_MAX_INTERVAL_MS", 2000)
	v.SetDefault("ORPHAN_RECONCILE_SCHEDULE", "")
	v.SetDefault("CREATE_COACH_RATE_PER_MINUTE", 30)
	v.SetDefault("CREATE_COACH_BURST", 5)

	v.SetDefault("REQUIRE_ADMIN_AUTH", false)
	v.SetDefault("ADMIN_EMAILS", "")

	v.SetDefault("REDIS_URL", "")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "coach-admin-backend")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration fields are configured as plain integers in their unit and
	// skipped by Unmarshal, whose duration hook expects "250ms"-style values.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.ProfileWriteRetryMaxInterval = time.Duration(v.GetInt("PROFILE_WRITE_RETRY_MAX_INTERVAL_MS")) * time.Millisecond

	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.AdminEmails = splitList(strings.ToLower(v.GetString("ADMIN_EMAILS")))

	// The private key usually arrives through an env var with escaped newlines.
	cfg.FirebasePrivateKey = strings.ReplaceAll(cfg.FirebasePrivateKey, `\n`, "\n")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid configuration: %v", common.FormatValidationErrors(ve))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.FirebaseServiceAccountKeyPath != "" {
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
	}
	if c.ProfileStoreDriver == StoreDriverMongo && strings.TrimSpace(c.MongoURI) == "" {
		return fmt.Errorf("MONGODB_URI is required when PROFILE_STORE_DRIVER=mongo")
	}
	if c.ProfileStoreDriver == StoreDriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("SQLITE_PATH is required when PROFILE_STORE_DRIVER=sqlite")
	}
	return nil
}

// IsAdminEmail reports whether email is in the ADMIN_EMAILS allow-list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
