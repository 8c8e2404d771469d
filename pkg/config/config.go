package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const defaultSigningKey = "ledgerservicesecretkey"

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	SSLMode         string
	AdminDBName     string // maintenance database used for CREATE DATABASE / listing
	DefaultTenant   string // database used when a request names no tenant
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// DSNFor returns the PostgreSQL connection string for the named database
func (c *DBConfig) DSNFor(dbName string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, dbName, c.SSLMode)
}

// TenantConfig holds tenant derivation and registry settings
type TenantConfig struct {
	Prefix    string
	CacheSize int
	CacheTTL  time.Duration
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port             string
	Env              string
	LoginRateLimit   float64
	LoginRateBurst   int
	DataRequiresAuth bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey        string
	ExpirationMinutes int
}

// ReportConfig holds report generation settings
type ReportConfig struct {
	Dir string
}

// SchedulerConfig holds the cron job settings
type SchedulerConfig struct {
	Enabled    bool
	Timezone   string
	ReportCron string
	NotifyCron string
	BackupCron string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Config holds all configuration
type Config struct {
	DB        DBConfig
	Tenant    TenantConfig
	Server    ServerConfig
	JWT       JWTConfig
	Report    ReportConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			AdminDBName:     getEnv("DB_ADMIN_NAME", "postgres"),
			DefaultTenant:   getEnv("DB_DEFAULT_TENANT", "practice"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Tenant: TenantConfig{
			Prefix:    getEnv("TENANT_PREFIX", "shop_"),
			CacheSize: getEnvAsInt("TENANT_CACHE_SIZE", 32),
			CacheTTL:  getEnvAsDuration("TENANT_CACHE_TTL", 15*time.Minute),
		},
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", "8080"),
			Env:              getEnv("APP_ENV", "development"),
			LoginRateLimit:   getEnvAsFloat("LOGIN_RATE_LIMIT", 1),
			LoginRateBurst:   getEnvAsInt("LOGIN_RATE_BURST", 5),
			DataRequiresAuth: getEnvAsBool("DATA_REQUIRE_AUTH", false),
		},
		JWT: JWTConfig{
			SigningKey:        getEnv("JWT_SIGNING_KEY", defaultSigningKey),
			ExpirationMinutes: getEnvAsInt("JWT_EXPIRATION_MINUTES", 30),
		},
		Report: ReportConfig{
			Dir: getEnv("REPORT_DIR", "temp_reports"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getEnvAsBool("SCHEDULER_ENABLED", true),
			Timezone:   getEnv("SCHEDULER_TIMEZONE", "Local"),
			ReportCron: getEnv("REPORT_CRON", "0 3 * * *"),
			NotifyCron: getEnv("NOTIFY_CRON", "0 4 * * *"),
			BackupCron: getEnv("BACKUP_CRON", "0 2 * * *"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must not be empty"))
	}
	if c.Server.Env == "production" && c.JWT.SigningKey == defaultSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set explicitly in production"))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINUTES must be positive"))
	}
	if c.Tenant.Prefix == "" || strings.ContainsAny(c.Tenant.Prefix, " \"';") {
		errs = append(errs, fmt.Errorf("invalid TENANT_PREFIX %q", c.Tenant.Prefix))
	}
	if c.Tenant.CacheSize <= 0 {
		errs = append(errs, errors.New("TENANT_CACHE_SIZE must be positive"))
	}
	if c.DB.DefaultTenant == "" {
		errs = append(errs, errors.New("DB_DEFAULT_TENANT must not be empty"))
	}
	if c.DB.DefaultTenant == c.DB.AdminDBName {
		errs = append(errs, errors.New("DB_DEFAULT_TENANT must differ from DB_ADMIN_NAME"))
	}
	if c.Tenant.Prefix != "" && strings.HasPrefix(c.DB.AdminDBName, c.Tenant.Prefix) {
		errs = append(errs, fmt.Errorf("DB_ADMIN_NAME %q must not carry TENANT_PREFIX", c.DB.AdminDBName))
	}
	if c.Report.Dir == "" {
		errs = append(errs, errors.New("REPORT_DIR must not be empty"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_admin_name", c.DB.AdminDBName),
		zap.String("db_default_tenant", c.DB.DefaultTenant),
		zap.String("tenant_prefix", c.Tenant.Prefix),
		zap.Int("tenant_cache_size", c.Tenant.CacheSize),
		zap.Duration("tenant_cache_ttl", c.Tenant.CacheTTL),
		zap.String("server_port", c.Server.Port),
		zap.String("report_dir", c.Report.Dir),
		zap.Bool("scheduler_enabled", c.Scheduler.Enabled),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
