package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"executor/internal/models"
)

// Rounding policies
const (
	RoundingInteger  = "integer"
	RoundingStep     = "step"
	RoundingExchange = "exchange"
)

// Price sources
const (
	PriceSourceREST   = "rest"
	PriceSourceStream = "stream"
)

const (
	testnetBaseURL   = "https://testnet.binance.vision"
	testnetWSBaseURL = "wss://stream.testnet.binance.vision"
)

// Config holds all configuration for the executor
type Config struct {
	Server   ServerConfig   `json:"server"`
	Binance  BinanceConfig  `json:"binance"`
	Executor ExecutorConfig `json:"executor"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `json:"port"`
	Host            string        `json:"host"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// BinanceConfig holds Binance API configuration.
// The key pair is excluded from JSON output.
type BinanceConfig struct {
	APIKey        string        `json:"-"`
	SecretKey     string        `json:"-"`
	BaseURL       string        `json:"base_url"`
	WSBaseURL     string        `json:"ws_base_url"`
	Testnet       bool          `json:"testnet"`
	PriceTimeout  time.Duration `json:"price_timeout"`
	SubmitTimeout time.Duration `json:"submit_timeout"`
	RecvWindow    int64         `json:"recv_window"`
	RateLimit     float64       `json:"rate_limit"` // requests per second, 0 disables
	RateBurst     int           `json:"rate_burst"`
}

// ExecutorConfig holds order construction settings
type ExecutorConfig struct {
	Rounding       string          `json:"rounding"`
	StepSize       decimal.Decimal `json:"step_size"`
	MinQty         decimal.Decimal `json:"min_qty"`
	PriceSource    string          `json:"price_source"`
	OrderUpdateURL string          `json:"order_update_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or console
}

// SecurityConfig holds security configuration of the HTTP surface
type SecurityConfig struct {
	APIKeyHeader   string  `json:"api_key_header"`
	RequiredAPIKey string  `json:"-"`
	MaxRequestSize int64   `json:"max_request_size"`
	RateLimit      float64 `json:"rate_limit"` // per client, 0 disables
	RateBurst      int     `json:"rate_burst"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "10s"),
		},
		Binance: BinanceConfig{
			APIKey:        getEnv("BINANCE_API_KEY", ""),
			SecretKey:     getEnv("BINANCE_SECRET_KEY", getEnv("BINANCE_API_SECRET", "")),
			BaseURL:       getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
			WSBaseURL:     getEnv("BINANCE_WS_BASE_URL", "wss://stream.binance.com:9443"),
			Testnet:       getEnvAsBool("BINANCE_TESTNET", false),
			PriceTimeout:  getEnvAsDuration("BINANCE_PRICE_TIMEOUT", "10s"),
			SubmitTimeout: getEnvAsDuration("BINANCE_SUBMIT_TIMEOUT", "10s"),
			RecvWindow:    getEnvAsInt64("BINANCE_RECV_WINDOW", 0),
			RateLimit:     getEnvAsFloat("BINANCE_RATE_LIMIT", 10),
			RateBurst:     getEnvAsInt("BINANCE_RATE_BURST", 5),
		},
		Executor: ExecutorConfig{
			Rounding:       strings.ToLower(getEnv("EXECUTOR_ROUNDING", RoundingInteger)),
			StepSize:       getEnvAsDecimal("EXECUTOR_STEP_SIZE", decimal.Zero),
			MinQty:         getEnvAsDecimal("EXECUTOR_MIN_QTY", decimal.Zero),
			PriceSource:    strings.ToLower(getEnv("EXECUTOR_PRICE_SOURCE", PriceSourceREST)),
			OrderUpdateURL: getEnv("ORDER_UPDATE_URL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			APIKeyHeader:   getEnv("SECURITY_API_KEY_HEADER", "X-API-Key"),
			RequiredAPIKey: getEnv("SECURITY_REQUIRED_API_KEY", ""),
			MaxRequestSize: getEnvAsInt64("SECURITY_MAX_REQUEST_SIZE", 1048576), // 1MB
			RateLimit:      getEnvAsFloat("SECURITY_RATE_LIMIT", 0),
			RateBurst:      getEnvAsInt("SECURITY_RATE_BURST", 10),
		},
	}

	config.ApplyTestnet()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Credentials().Validate(); err != nil {
		return fmt.Errorf("BINANCE_API_KEY and BINANCE_SECRET_KEY are required: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Binance.BaseURL == "" {
		return fmt.Errorf("BINANCE_BASE_URL must not be empty")
	}
	if c.Binance.PriceTimeout < 0 || c.Binance.SubmitTimeout < 0 {
		return fmt.Errorf("stage timeouts must not be negative")
	}
	if c.Binance.RecvWindow < 0 || c.Binance.RecvWindow > 60000 {
		return fmt.Errorf("invalid recv window: %d (must be 0-60000 ms)", c.Binance.RecvWindow)
	}
	if c.Binance.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %v", c.Binance.RateLimit)
	}
	if c.Binance.RateLimit > 0 && c.Binance.RateBurst < 1 {
		return fmt.Errorf("invalid rate burst: %d (must be at least 1)", c.Binance.RateBurst)
	}

	if c.Security.RateLimit < 0 {
		return fmt.Errorf("invalid security rate limit: %v", c.Security.RateLimit)
	}
	if c.Security.RateLimit > 0 && c.Security.RateBurst < 1 {
		return fmt.Errorf("invalid security rate burst: %d (must be at least 1)", c.Security.RateBurst)
	}

	switch c.Executor.Rounding {
	case RoundingInteger, RoundingExchange:
	case RoundingStep:
		if !c.Executor.StepSize.IsPositive() {
			return fmt.Errorf("EXECUTOR_STEP_SIZE must be positive for step rounding")
		}
	default:
		return fmt.Errorf("unknown rounding policy: %q", c.Executor.Rounding)
	}
	if c.Executor.MinQty.IsNegative() {
		return fmt.Errorf("EXECUTOR_MIN_QTY must not be negative")
	}

	switch c.Executor.PriceSource {
	case PriceSourceREST:
	case PriceSourceStream:
		if c.Binance.WSBaseURL == "" {
			return fmt.Errorf("BINANCE_WS_BASE_URL is required for the stream price source")
		}
	default:
		return fmt.Errorf("unknown price source: %q", c.Executor.PriceSource)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return nil
}

// ApplyTestnet points the endpoints at the spot testnet when enabled
func (c *Config) ApplyTestnet() {
	if c.Binance.Testnet {
		c.Binance.BaseURL = testnetBaseURL
		c.Binance.WSBaseURL = testnetWSBaseURL
	}
}

// Credentials returns the exchange key pair
func (c *Config) Credentials() models.Credentials {
	return models.Credentials{
		APIKey:    c.Binance.APIKey,
		APISecret: c.Binance.SecretKey,
	}
}

// LogLevel returns the parsed log level, info if unparseable
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int64Value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
