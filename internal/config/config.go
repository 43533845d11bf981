package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
	// AuthRateLimit is the number of login and register attempts allowed
	// per client IP and minute.
	AuthRateLimit int

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables service events)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Auth
	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int

	// Finance
	AggregateConcurrency int
	TrailingMonths       int
	SelectorMonths       int

	// Invoice cache
	InvoiceCacheSize int
	InvoiceCacheTTL  time.Duration

	// Backend selection
	DataBackend string
}

const (
	minBcryptCost = 4
	maxBcryptCost = 31
	minSecretLen  = 16
)

// validBackends is also the order shown in error messages.
var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8081"),
		SecureCookies: getEnvBool("COOKIE_SECURE", false),
		AuthRateLimit: getEnvInt("AUTH_RATE_LIMIT", 10),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/martelinho.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "martelinho"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "service"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTExpiry:  getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		AggregateConcurrency: getEnvInt("AGGREGATE_CONCURRENCY", 4),
		TrailingMonths:       getEnvInt("TRAILING_MONTHS", 6),
		SelectorMonths:       getEnvInt("SELECTOR_MONTHS", 24),

		InvoiceCacheSize: getEnvInt("INVOICE_CACHE_SIZE", 64),
		InvoiceCacheTTL:  getEnvDuration("INVOICE_CACHE_TTL", time.Hour),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if len(c.JWTSecret) < minSecretLen {
		errors = append(errors, fmt.Sprintf("JWT secret must be at least %d characters (set JWT_SECRET)", minSecretLen))
	}
	if c.JWTExpiry < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT expiry %v: must be at least 1 minute", c.JWTExpiry))
	}
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, minBcryptCost, maxBcryptCost))
	}

	if c.AggregateConcurrency < 1 || c.AggregateConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid aggregate concurrency %d: must be between 1 and 64", c.AggregateConcurrency))
	}
	if c.TrailingMonths < 1 || c.TrailingMonths > 36 {
		errors = append(errors, fmt.Sprintf("invalid trailing months %d: must be between 1 and 36", c.TrailingMonths))
	}
	if c.SelectorMonths < 1 || c.SelectorMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid selector months %d: must be between 1 and 120", c.SelectorMonths))
	}

	if c.AuthRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be at least 1", c.AuthRateLimit))
	}
	if c.InvoiceCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid invoice cache size %d: must be at least 1", c.InvoiceCacheSize))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
