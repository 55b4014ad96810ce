// Package integration provides end-to-end tests for the token API.
// The flow runs against SQLite always, and against PostgreSQL and MySQL when
// TEST_POSTGRES_DSN and TEST_MYSQL_DSN are set.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/apitokens/internal/app"
	"github.com/allisson/apitokens/internal/config"
	"github.com/allisson/apitokens/internal/database"
	"github.com/allisson/apitokens/internal/testutil"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	"github.com/allisson/apitokens/internal/token/http/dto"
)

const legacySecret = "legacy-integration-secret"

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	server    *httptest.Server
	adminID   string
	adminKey  string
	dbDriver  string
}

// makeRequest performs an HTTP request authenticated with secret and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	secret string,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if secret != "" {
		req.Header.Set("X-API-Token", secret)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// connectionString prepares the database for dbDriver and returns its DSN.
func connectionString(t *testing.T, dbDriver string) string {
	t.Helper()

	switch dbDriver {
	case database.DriverPostgres:
		testutil.SetupPostgresDB(t)
		return os.Getenv("TEST_POSTGRES_DSN")
	case database.DriverMySQL:
		testutil.SetupMySQLDB(t)
		return os.Getenv("TEST_MYSQL_DSN")
	default:
		return testutil.SQLiteDSN(filepath.Join(t.TempDir(), "integration.db"))
	}
}

// setupIntegrationTest initializes all components and issues an admin token.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DBDriver:               dbDriver,
		DBConnectionString:     connectionString(t, dbDriver),
		DBMaxOpenConnections:   10,
		DBMaxIdleConnections:   5,
		DBConnMaxLifetime:      time.Hour,
		ServerHost:             "localhost",
		ServerPort:             8080,
		LogLevel:               "error",
		TokenKeyPath:           filepath.Join(t.TempDir(), "tokens.key"),
		TokenCipherAlgorithm:   "aes-gcm",
		TokenLookupMode:        "index",
		TokenSecretLength:      48,
		TokenRotationGraceDays: 30,
		LegacyAPIToken:         legacySecret,
	}

	container := app.NewContainer(cfg)

	tokenUseCase, err := container.TokenUseCase()
	require.NoError(t, err, "failed to get token use case")

	admin, err := tokenUseCase.Create(context.Background(), &tokenDomain.CreateTokenInput{
		Description: "integration admin",
		Scopes:      tokenDomain.Scopes{tokenDomain.ScopeRead, tokenDomain.ScopeWrite, tokenDomain.ScopeAdmin},
	})
	require.NoError(t, err, "failed to create admin token")

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.GetHandler()
	require.NotNil(t, handler, "handler should not be nil after SetupRouter")

	return &integrationTestContext{
		container: container,
		server:    httptest.NewServer(handler),
		adminID:   admin.ID.String(),
		adminKey:  admin.Secret,
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}
}

var drivers = []struct {
	name     string
	dbDriver string
}{
	{"SQLite", database.DriverSQLite},
	{"PostgreSQL", database.DriverPostgres},
	{"MySQL", database.DriverMySQL},
}

// TestIntegration_Health_BasicChecks validates the health and readiness endpoints.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			t.Run("01_HealthCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]string
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, "healthy", response["status"])
			})

			t.Run("02_ReadinessCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, "ready", response["status"])
			})
		})
	}
}

// TestIntegration_Tokens_CompleteFlow walks a token through create, use, rotate and revoke.
func TestIntegration_Tokens_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			var created dto.CreateTokenResponse
			var rotated dto.RotateTokenResponse

			t.Run("01_RejectsMissingToken", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/tokens", nil, "")
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("02_CreateToken", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", map[string]interface{}{
					"description":     "ci-bot",
					"scopes":          []string{"read"},
					"expires_in_days": 7,
				}, ctx.adminKey)
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

				require.NoError(t, json.Unmarshal(body, &created))
				assert.Len(t, created.Secret, 48)
				assert.Equal(t, []string{"read"}, created.Scopes)
				require.NotNil(t, created.ExpiresAt)
			})

			t.Run("03_IdentityOfNewToken", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/auth/identity", nil, created.Secret)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var identity dto.IdentityResponse
				require.NoError(t, json.Unmarshal(body, &identity))
				require.NotNil(t, identity.TokenID)
				assert.Equal(t, created.ID, *identity.TokenID)
				assert.False(t, identity.Legacy)
			})

			t.Run("04_ReadTokenCannotAdminister", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/tokens", nil, created.Secret)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			})

			t.Run("05_ListMasksSecrets", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/tokens", nil, ctx.adminKey)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				assert.NotContains(t, string(body), created.Secret)
				assert.NotContains(t, string(body), ctx.adminKey)

				var list dto.ListTokensResponse
				require.NoError(t, json.Unmarshal(body, &list))
				assert.Len(t, list.Data, 2)
			})

			t.Run("06_GetRecordsLastUse", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/tokens/"+created.ID, nil, ctx.adminKey)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var token dto.TokenResponse
				require.NoError(t, json.Unmarshal(body, &token))
				assert.NotNil(t, token.LastUsedAt)
				assert.Equal(t, tokenDomain.MaskSecret(created.Secret), token.Secret)
			})

			t.Run("07_RotateKeepsOldTokenDuringGrace", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/"+created.ID+"/rotate",
					map[string]int{"grace_days": 1}, ctx.adminKey)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				require.NoError(t, json.Unmarshal(body, &rotated))
				assert.Equal(t, created.ID, rotated.OldTokenID)
				assert.NotEqual(t, created.Secret, rotated.NewToken.Secret)
				assert.Equal(t, []string{"read"}, rotated.NewToken.Scopes)

				for _, secret := range []string{created.Secret, rotated.NewToken.Secret} {
					resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/auth/identity", nil, secret)
					assert.Equal(t, http.StatusOK, resp.StatusCode)
				}
			})

			t.Run("08_RevokeInvalidatesToken", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodDelete, "/v1/tokens/"+created.ID, nil, ctx.adminKey)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodGet, "/v1/auth/identity", nil, created.Secret)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodDelete, "/v1/tokens/"+created.ID, nil, ctx.adminKey)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			})
		})
	}
}

// TestIntegration_Legacy_Migration covers the legacy fallback and its migration.
func TestIntegration_Legacy_Migration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			t.Run("01_LegacySecretAuthenticates", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/auth/identity", nil, legacySecret)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var identity dto.IdentityResponse
				require.NoError(t, json.Unmarshal(body, &identity))
				assert.True(t, identity.Legacy)
				assert.Nil(t, identity.TokenID)
			})

			var firstID string

			t.Run("02_MigrateIsIdempotent", func(t *testing.T) {
				for i := 0; i < 2; i++ {
					resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/migrate-legacy",
						map[string]string{"description": "old integrations"}, ctx.adminKey)
					require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
					assert.NotContains(t, string(body), legacySecret)

					var token dto.TokenResponse
					require.NoError(t, json.Unmarshal(body, &token))
					if firstID == "" {
						firstID = token.ID
					}
					assert.Equal(t, firstID, token.ID)
				}
			})

			t.Run("03_LegacySecretResolvesToStoredToken", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/auth/identity", nil, legacySecret)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var identity dto.IdentityResponse
				require.NoError(t, json.Unmarshal(body, &identity))
				assert.False(t, identity.Legacy)
				require.NotNil(t, identity.TokenID)
				assert.Equal(t, firstID, *identity.TokenID)
			})
		})
	}
}
