package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string   `yaml:"port" env:"SERVER_PORT"`
		Mode          string   `yaml:"mode" env:"SERVER_MODE"`
		StoragePath   string   `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		PublicBaseURL string   `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		AllowOrigins  []string `yaml:"allow_origins" env:"SERVER_ALLOW_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
		SessionWarning         string `yaml:"session_warning" env:"JWT_SESSION_WARNING"`
	} `yaml:"jwt"`

	Logging struct {
		Level        string `yaml:"level" env:"LOG_LEVEL"`
		Format       string `yaml:"format" env:"LOG_FORMAT"`
		RollbarToken string `yaml:"rollbar_token" env:"LOG_ROLLBAR_TOKEN"`
		Environment  string `yaml:"environment" env:"LOG_ENVIRONMENT"`
	} `yaml:"logging"`

	Mail struct {
		Provider        string `yaml:"provider" env:"MAIL_PROVIDER"`
		Host            string `yaml:"host" env:"MAIL_HOST"`
		Port            int    `yaml:"port" env:"MAIL_PORT"`
		Username        string `yaml:"username" env:"MAIL_USERNAME"`
		Password        string `yaml:"password" env:"MAIL_PASSWORD"`
		UseTLS          bool   `yaml:"use_tls" env:"MAIL_USE_TLS"`
		SendgridKey     string `yaml:"sendgrid_key" env:"MAIL_SENDGRID_KEY"`
		FromName        string `yaml:"from_name" env:"MAIL_FROM_NAME"`
		FromAddress     string `yaml:"from_address" env:"MAIL_FROM_ADDRESS"`
		FrontendBaseURL string `yaml:"frontend_base_url" env:"MAIL_FRONTEND_BASE_URL"`
	} `yaml:"mail"`

	Queue struct {
		Workers      int    `yaml:"workers" env:"QUEUE_WORKERS"`
		PollInterval string `yaml:"poll_interval" env:"QUEUE_POLL_INTERVAL"`
		LeaseTTL     string `yaml:"lease_ttl" env:"QUEUE_LEASE_TTL"`
		JobTimeout   string `yaml:"job_timeout" env:"QUEUE_JOB_TIMEOUT"`
		MaxAttempts  int    `yaml:"max_attempts" env:"QUEUE_MAX_ATTEMPTS"`
		BackoffBase  string `yaml:"backoff_base" env:"QUEUE_BACKOFF_BASE"`
		BackoffMax   string `yaml:"backoff_max" env:"QUEUE_BACKOFF_MAX"`
	} `yaml:"queue"`

	Storage struct {
		Driver       string `yaml:"driver" env:"STORAGE_DRIVER"`
		B2AccountID  string `yaml:"b2_account_id" env:"STORAGE_B2_ACCOUNT_ID"`
		B2AppKey     string `yaml:"b2_app_key" env:"STORAGE_B2_APP_KEY"`
		B2Bucket     string `yaml:"b2_bucket" env:"STORAGE_B2_BUCKET"`
		MaxUploadMiB int    `yaml:"max_upload_mib" env:"STORAGE_MAX_UPLOAD_MIB"`
	} `yaml:"storage"`

	Audit struct {
		Enabled      bool     `yaml:"enabled" env:"AUDIT_ENABLED"`
		Methods      []string `yaml:"methods" env:"AUDIT_METHODS"`
		ExcludePaths []string `yaml:"exclude_paths" env:"AUDIT_EXCLUDE_PATHS"`
	} `yaml:"audit"`

	Pagination struct {
		DefaultSize int `yaml:"default_size" env:"PAGINATION_DEFAULT_SIZE"`
		MaxSize     int `yaml:"max_size" env:"PAGINATION_MAX_SIZE"`
	} `yaml:"pagination"`

	Reports struct {
		OutputDir string `yaml:"output_dir" env:"REPORTS_OUTPUT_DIR"`
		MaxRows   int    `yaml:"max_rows" env:"REPORTS_MAX_ROWS"`
		Retention string `yaml:"retention" env:"REPORTS_RETENTION"`
	} `yaml:"reports"`

	Seed SeedConfig `yaml:"seed"`
}

// SeedConfig describes the default institution and administrator created on startup
type SeedConfig struct {
	Enabled         bool   `yaml:"enabled" env:"SEED_ENABLED"`
	AdminEmail      string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
	AdminPassword   string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	InstitutionName string `yaml:"institution_name" env:"SEED_INSTITUTION_NAME"`
	InstitutionCode string `yaml:"institution_code" env:"SEED_INSTITUTION_CODE"`
	District        string `yaml:"district" env:"SEED_DISTRICT"`
}

// LoadConfig loads configuration from a file and environment variables.
// A .env file next to the working directory is loaded first if present.
func LoadConfig(configPath string) (*Config, error) {
	// Missing .env is fine, real environment wins over it
	_ = godotenv.Load()

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "uploads"
	config.Server.PublicBaseURL = "http://localhost:8080"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "placeintern"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "168h"
	config.JWT.Issuer = "placeintern.punjab"
	config.JWT.SessionWarning = "5m"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Environment = "development"

	config.Mail.Provider = "log"
	config.Mail.Port = 587
	config.Mail.FromName = "PlaceIntern"
	config.Mail.FromAddress = "no-reply@placeintern.local"
	config.Mail.FrontendBaseURL = "http://localhost:3000"

	config.Queue.Workers = 4
	config.Queue.PollInterval = "2s"
	config.Queue.LeaseTTL = "5m"
	config.Queue.JobTimeout = "2m"
	config.Queue.MaxAttempts = 3
	config.Queue.BackoffBase = "5s"
	config.Queue.BackoffMax = "10m"

	config.Storage.Driver = "local"
	config.Storage.MaxUploadMiB = 10

	config.Audit.Enabled = true
	config.Audit.Methods = []string{"POST", "PUT", "PATCH", "DELETE"}
	config.Audit.ExcludePaths = []string{
		"/api/v1/auth/login",
		"/api/v1/auth/logout",
		"/api/v1/auth/refresh",
		"/api/v1/auth/session",
		"/api/v1/shared/notifications",
	}

	config.Pagination.DefaultSize = 10
	config.Pagination.MaxSize = 100

	config.Reports.OutputDir = "reports"
	config.Reports.MaxRows = 50000
	config.Reports.Retention = "720h"

	config.Seed.Enabled = true
	config.Seed.AdminEmail = "admin@placeintern.local"
	config.Seed.InstitutionName = "Government Polytechnic College, Ludhiana"
	config.Seed.InstitutionCode = "GPC-LDH"
	config.Seed.District = "Ludhiana"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"JWT refresh token expiration": config.JWT.RefreshTokenExpiration,
		"JWT session warning":          config.JWT.SessionWarning,
		"queue poll interval":          config.Queue.PollInterval,
		"queue lease ttl":              config.Queue.LeaseTTL,
		"queue job timeout":            config.Queue.JobTimeout,
		"queue backoff base":           config.Queue.BackoffBase,
		"queue backoff max":            config.Queue.BackoffMax,
		"report retention":             config.Reports.Retention,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	switch strings.ToLower(config.Mail.Provider) {
	case "log", "smtp", "sendgrid":
	default:
		return fmt.Errorf("unsupported mail provider %q", config.Mail.Provider)
	}
	if strings.EqualFold(config.Mail.Provider, "sendgrid") && config.Mail.SendgridKey == "" {
		return fmt.Errorf("sendgrid key is required for the sendgrid mail provider")
	}

	switch strings.ToLower(config.Storage.Driver) {
	case "local":
	case "b2":
		if config.Storage.B2AccountID == "" || config.Storage.B2AppKey == "" || config.Storage.B2Bucket == "" {
			return fmt.Errorf("b2 storage requires account id, app key and bucket")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.Queue.Workers < 1 {
		return fmt.Errorf("queue workers must be at least 1")
	}
	if config.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue max attempts must be at least 1")
	}
	if config.Pagination.DefaultSize < 1 || config.Pagination.MaxSize < config.Pagination.DefaultSize {
		return fmt.Errorf("pagination sizes must satisfy 1 <= default_size (%d) <= max_size (%d)",
			config.Pagination.DefaultSize, config.Pagination.MaxSize)
	}
	lease, _ := time.ParseDuration(config.Queue.LeaseTTL)
	timeout, _ := time.ParseDuration(config.Queue.JobTimeout)
	if lease < timeout {
		return fmt.Errorf("queue lease ttl (%s) must not be shorter than job timeout (%s)", lease, timeout)
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
