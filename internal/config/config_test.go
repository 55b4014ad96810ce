package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "sqlite", cfg.DBDriver)
				assert.Equal(
					t,
					"file:data/tokens.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
					cfg.DBConnectionString,
				)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "data/tokens.key", cfg.TokenKeyPath)
				assert.Empty(t, cfg.TokenEncryptionKey)
				assert.Equal(t, "aes-gcm", cfg.TokenCipherAlgorithm)
				assert.Equal(t, "scan", cfg.TokenLookupMode)
				assert.Equal(t, 48, cfg.TokenSecretLength)
				assert.Equal(t, 0, cfg.TokenDefaultExpirationDays)
				assert.Equal(t, 30, cfg.TokenRotationGraceDays)
				assert.Empty(t, cfg.LegacyAPIToken)
				assert.False(t, cfg.CORSEnabled)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, "apitokens", cfg.MetricsNamespace)
				assert.Equal(t, 8081, cfg.MetricsPort)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_MAX_IDLE_CONNECTIONS": "10",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load custom token configuration",
			envVars: map[string]string{
				"TOKEN_KEY_PATH":                "/var/lib/apitokens/key",
				"TOKEN_ENCRYPTION_KEY":          "a2V5",
				"TOKEN_CIPHER_ALGORITHM":        "chacha20-poly1305",
				"TOKEN_LOOKUP_MODE":             "index",
				"TOKEN_SECRET_LENGTH":           "64",
				"TOKEN_DEFAULT_EXPIRATION_DAYS": "90",
				"TOKEN_ROTATION_GRACE_DAYS":     "7",
				"LEGACY_API_TOKEN":              "legacy-shared-secret",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/var/lib/apitokens/key", cfg.TokenKeyPath)
				assert.Equal(t, "a2V5", cfg.TokenEncryptionKey)
				assert.Equal(t, "chacha20-poly1305", cfg.TokenCipherAlgorithm)
				assert.Equal(t, "index", cfg.TokenLookupMode)
				assert.Equal(t, 64, cfg.TokenSecretLength)
				assert.Equal(t, 90, cfg.TokenDefaultExpirationDays)
				assert.Equal(t, 7, cfg.TokenRotationGraceDays)
				assert.Equal(t, "legacy-shared-secret", cfg.LegacyAPIToken)
			},
		},
		{
			name: "load custom kms and cors configuration",
			envVars: map[string]string{
				"KMS_PROVIDER":       "localsecrets",
				"KMS_KEY_URI":        "base64key://c21hbGwgc2VjcmV0",
				"CORS_ENABLED":       "true",
				"CORS_ALLOW_ORIGINS": "https://a.example.com,https://b.example.com",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localsecrets", cfg.KMSProvider)
				assert.Equal(t, "base64key://c21hbGwgc2VjcmV0", cfg.KMSKeyURI)
				assert.True(t, cfg.CORSEnabled)
				assert.Equal(t, "https://a.example.com,https://b.example.com", cfg.CORSAllowOrigins)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			// Load configuration
			cfg := Load()

			// Validate
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		want     string
	}{
		{logLevel: "debug", want: "debug"},
		{logLevel: "info", want: "release"},
		{logLevel: "error", want: "release"},
		{logLevel: "unknown", want: "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, cfg.GetGinMode())
		})
	}
}

func validConfig() *Config {
	return &Config{
		DBDriver:             "sqlite",
		DBConnectionString:   "file:tokens.db",
		TokenKeyPath:         "data/tokens.key",
		TokenCipherAlgorithm: "aes-gcm",
		TokenLookupMode:      "scan",
		TokenSecretLength:    48,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Success_Defaults", func(t *testing.T) {
		os.Clearenv()
		assert.NoError(t, Load().Validate())
	})

	t.Run("Success_InlineKeyWithoutPath", func(t *testing.T) {
		cfg := validConfig()
		cfg.TokenKeyPath = ""
		cfg.TokenEncryptionKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{name: "Error_UnknownDriver", mutate: func(c *Config) { c.DBDriver = "oracle" }, field: "DBDriver"},
		{
			name:   "Error_UnknownCipher",
			mutate: func(c *Config) { c.TokenCipherAlgorithm = "des" },
			field:  "TokenCipherAlgorithm",
		},
		{name: "Error_UnknownLookupMode", mutate: func(c *Config) { c.TokenLookupMode = "btree" }, field: "TokenLookupMode"},
		{name: "Error_ShortSecrets", mutate: func(c *Config) { c.TokenSecretLength = 8 }, field: "TokenSecretLength"},
		{
			name:   "Error_NegativeGrace",
			mutate: func(c *Config) { c.TokenRotationGraceDays = -1 },
			field:  "TokenRotationGraceDays",
		},
		{
			name:   "Error_InlineKeyNotBase64",
			mutate: func(c *Config) { c.TokenEncryptionKey = "not base64!" },
			field:  "TokenEncryptionKey",
		},
		{name: "Error_NoKeySource", mutate: func(c *Config) { c.TokenKeyPath = "" }, field: "TokenKeyPath"},
		{name: "Error_KMSWithoutURI", mutate: func(c *Config) { c.KMSProvider = "aws" }, field: "KMSKeyURI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
