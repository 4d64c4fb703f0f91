package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/regression"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Channel computation
	Regression RegressionConfig
	Runner     RunnerConfig
	Publisher  PublisherConfig

	// Ops HTTP server, 0 disables it
	MetricsPort int `validate:"gte=0,lte=65535"`
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	Host            string `validate:"required"`
	Port            int    `validate:"gt=0,lte=65535"`
	User            string
	Password        string
	Database        string `validate:"required"`
	SSLMode         string
	MaxConnections  int `validate:"gt=0"`
	MaxIdleConns    int `validate:"gte=0"`
	ConnMaxLifetime time.Duration

	PriceTable   string `validate:"required"`
	ChannelTable string `validate:"required"`

	WriteBatchSize int `validate:"gt=0"`
	MaxRetries     int `validate:"gte=0"`
	RetryDelay     time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string `validate:"required"`
	Port         int    `validate:"gt=0,lte=65535"`
	Password     string
	DB           int `validate:"gte=0"`
	PoolSize     int `validate:"gt=0"`
	MinIdleConns int `validate:"gte=0"`
}

// RegressionConfig holds the channel parameters and the input column names
type RegressionConfig struct {
	MaxRegressionDays int     `yaml:"max_regression_days" validate:"gtfield=MinRegressionDays"`
	MinRegressionDays int     `yaml:"min_regression_days" validate:"gte=2"`
	LowerDeviation    float64 `yaml:"lower_deviation" validate:"gte=0"`
	UpperDeviation    float64 `yaml:"upper_deviation" validate:"gte=0"`
	DateColumn        string  `yaml:"date_column" validate:"required"`
	PriceColumn       string  `yaml:"price_column" validate:"required"`
	UseAbsCorrelation bool    `yaml:"use_abs_correlation"`
}

// RunnerConfig holds batch runner configuration
type RunnerConfig struct {
	WorkerCount int `validate:"gt=0"`
	Symbols     []string
}

// PublisherConfig holds redis publishing configuration for the latest channels
type PublisherConfig struct {
	Enabled       bool
	KeyPrefix     string `validate:"required_if=Enabled true"`
	TTL           time.Duration
	UpdateChannel string
}

// ToRegression returns the parameters used by the regression package
func (r RegressionConfig) ToRegression() regression.Config {
	return regression.Config{
		MaxRegressionDays: r.MaxRegressionDays,
		MinRegressionDays: r.MinRegressionDays,
		LowerDeviation:    r.LowerDeviation,
		UpperDeviation:    r.UpperDeviation,
		UseAbsCorrelation: r.UseAbsCorrelation,
	}
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory,
// then applies REGRESSION_CONFIG_FILE on top of the regression section.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	defaults := regression.DefaultConfig()
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "trend_channel"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			PriceTable:      getEnv("DB_PRICE_TABLE", "daily_prices"),
			ChannelTable:    getEnv("DB_CHANNEL_TABLE", "regression_channels"),
			WriteBatchSize:  getEnvAsInt("DB_WRITE_BATCH_SIZE", 1000),
			MaxRetries:      getEnvAsInt("DB_MAX_RETRIES", 3),
			RetryDelay:      getEnvAsDuration("DB_RETRY_DELAY", 100*time.Millisecond),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Regression: RegressionConfig{
			MaxRegressionDays: getEnvAsInt("REGRESSION_MAX_DAYS", defaults.MaxRegressionDays),
			MinRegressionDays: getEnvAsInt("REGRESSION_MIN_DAYS", defaults.MinRegressionDays),
			LowerDeviation:    getEnvAsFloat("REGRESSION_LOWER_DEVIATION", defaults.LowerDeviation),
			UpperDeviation:    getEnvAsFloat("REGRESSION_UPPER_DEVIATION", defaults.UpperDeviation),
			DateColumn:        getEnv("REGRESSION_DATE_COLUMN", "date"),
			PriceColumn:       getEnv("REGRESSION_PRICE_COLUMN", "close"),
			UseAbsCorrelation: getEnvAsBool("REGRESSION_USE_ABS_CORRELATION", defaults.UseAbsCorrelation),
		},
		Runner: RunnerConfig{
			WorkerCount: getEnvAsInt("RUNNER_WORKER_COUNT", 4),
			Symbols:     getEnvAsStringSlice("RUNNER_SYMBOLS", []string{}),
		},
		Publisher: PublisherConfig{
			Enabled:       getEnvAsBool("PUBLISHER_ENABLED", true),
			KeyPrefix:     getEnv("PUBLISHER_KEY_PREFIX", "channel:"),
			TTL:           getEnvAsDuration("PUBLISHER_TTL", 24*time.Hour),
			UpdateChannel: getEnv("PUBLISHER_UPDATE_CHANNEL", "channels.updated"),
		},
		MetricsPort: getEnvAsInt("METRICS_PORT", 9105),
	}

	if path := getEnv("REGRESSION_CONFIG_FILE", ""); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// fileOverlay mirrors the regression section of the YAML config file.
// Absent keys leave the environment value in place.
type fileOverlay struct {
	Regression struct {
		MaxRegressionDays *int     `yaml:"max_regression_days"`
		MinRegressionDays *int     `yaml:"min_regression_days"`
		LowerDeviation    *float64 `yaml:"lower_deviation"`
		UpperDeviation    *float64 `yaml:"upper_deviation"`
		DateColumn        *string  `yaml:"date_column"`
		PriceColumn       *string  `yaml:"price_column"`
		UseAbsCorrelation *bool    `yaml:"use_abs_correlation"`
	} `yaml:"regression"`
}

// ApplyFile overlays the regression section of a YAML file onto the config
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", models.ErrInvalidConfig, path, err)
	}

	r := overlay.Regression
	if r.MaxRegressionDays != nil {
		c.Regression.MaxRegressionDays = *r.MaxRegressionDays
	}
	if r.MinRegressionDays != nil {
		c.Regression.MinRegressionDays = *r.MinRegressionDays
	}
	if r.LowerDeviation != nil {
		c.Regression.LowerDeviation = *r.LowerDeviation
	}
	if r.UpperDeviation != nil {
		c.Regression.UpperDeviation = *r.UpperDeviation
	}
	if r.DateColumn != nil {
		c.Regression.DateColumn = *r.DateColumn
	}
	if r.PriceColumn != nil {
		c.Regression.PriceColumn = *r.PriceColumn
	}
	if r.UseAbsCorrelation != nil {
		c.Regression.UseAbsCorrelation = *r.UseAbsCorrelation
	}
	return nil
}

var validate = validator.New()

// Validate validates the configuration. Every failure wraps models.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("%w: %s", models.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}
	return c.Regression.ToRegression().Validate()
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", fe.Namespace(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Namespace(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
