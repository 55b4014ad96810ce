// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	customValidation "github.com/allisson/apitokens/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// DBDriver is the database driver to use ("sqlite", "postgres" or "mysql").
	DBDriver string
	// DBConnectionString is the connection string for the database.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// TokenKeyPath is the file holding the key material that encrypts stored secrets.
	TokenKeyPath string
	// TokenEncryptionKey is an inline base64 key. When set it replaces TokenKeyPath.
	TokenEncryptionKey string
	// TokenCipherAlgorithm is the AEAD used for stored secrets ("aes-gcm" or "chacha20-poly1305").
	TokenCipherAlgorithm string
	// TokenLookupMode selects secret lookup: "scan" decrypts every row, "index" uses the keyed hash.
	TokenLookupMode string
	// TokenSecretLength is the length of generated secrets.
	TokenSecretLength int
	// TokenDefaultExpirationDays is applied when a token is created without an expiry. Zero means never.
	TokenDefaultExpirationDays int
	// TokenRotationGraceDays is how long a rotated token keeps working when no grace is given.
	TokenRotationGraceDays int

	// LegacyAPIToken is the static pre-migration secret. Empty disables the fallback.
	LegacyAPIToken string

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// KMSProvider is the KMS provider to use (e.g., "google", "aws", "azure").
	KMSProvider string
	// KMSKeyURI wraps the key file through the KMS when set.
	KMSKeyURI string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Database configuration
		DBDriver: env.GetString("DB_DRIVER", "sqlite"),
		DBConnectionString: env.GetString(
			"DB_CONNECTION_STRING",
			"file:data/tokens.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Tokens
		TokenKeyPath:               env.GetString("TOKEN_KEY_PATH", "data/tokens.key"),
		TokenEncryptionKey:         env.GetString("TOKEN_ENCRYPTION_KEY", ""),
		TokenCipherAlgorithm:       env.GetString("TOKEN_CIPHER_ALGORITHM", "aes-gcm"),
		TokenLookupMode:            env.GetString("TOKEN_LOOKUP_MODE", "scan"),
		TokenSecretLength:          env.GetInt("TOKEN_SECRET_LENGTH", 48),
		TokenDefaultExpirationDays: env.GetInt("TOKEN_DEFAULT_EXPIRATION_DAYS", 0),
		TokenRotationGraceDays:     env.GetInt("TOKEN_ROTATION_GRACE_DAYS", 30),

		// Legacy fallback
		LegacyAPIToken: env.GetString("LEGACY_API_TOKEN", ""),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "apitokens"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// KMS configuration
		KMSProvider: env.GetString("KMS_PROVIDER", ""),
		KMSKeyURI:   env.GetString("KMS_KEY_URI", ""),
	}
}

// Validate checks the settings that cannot be corrected at runtime.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBDriver, validation.Required, validation.In("sqlite", "postgres", "mysql")),
		validation.Field(&c.DBConnectionString, validation.Required),
		validation.Field(&c.TokenCipherAlgorithm,
			validation.Required,
			validation.In("aes-gcm", "chacha20-poly1305"),
		),
		validation.Field(&c.TokenLookupMode, validation.In("scan", "index")),
		validation.Field(&c.TokenSecretLength, validation.Min(16), validation.Max(256)),
		validation.Field(&c.TokenDefaultExpirationDays, validation.Min(0)),
		validation.Field(&c.TokenRotationGraceDays, validation.Min(0)),
		validation.Field(&c.TokenEncryptionKey, customValidation.Base64),
		validation.Field(&c.TokenKeyPath,
			validation.When(c.TokenEncryptionKey == "", validation.Required),
		),
		validation.Field(&c.KMSKeyURI,
			validation.When(c.KMSProvider != "", validation.Required),
		),
	)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	case "info", "warn", "error":
		return "release"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
