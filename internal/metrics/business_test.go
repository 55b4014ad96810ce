package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func newTestBusinessMetrics(t *testing.T, namespace string) (*Provider, BusinessMetrics) {
	t.Helper()

	provider, err := NewProvider(namespace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(provider.MeterProvider(), namespace)
	require.NoError(t, err)
	return provider, bm
}

func TestNewBusinessMetrics(t *testing.T) {
	t.Run("Success_CreateBusinessMetrics", func(t *testing.T) {
		_, bm := newTestBusinessMetrics(t, "test_app")
		assert.NotNil(t, bm)
	})
}

func TestBusinessMetrics_Operations(t *testing.T) {
	provider, bm := newTestBusinessMetrics(t, "apitokens")
	ctx := context.Background()

	bm.RecordOperation(ctx, "tokens", "token_create", "success")
	bm.RecordOperation(ctx, "tokens", "token_create", "success")
	bm.RecordOperation(ctx, "tokens", "token_rotate", "error")
	bm.RecordDuration(ctx, "tokens", "token_create", 10*time.Millisecond, "success")
	bm.RecordDuration(ctx, "tokens", "token_create", 30*time.Millisecond, "success")

	output := scrape(t, provider)

	assertBizMetricLine(t, output, `apitokens_operations_total`,
		`domain="tokens".*operation="token_create".*status="success"`, `2`)
	assertBizMetricLine(t, output, `apitokens_operations_total`,
		`domain="tokens".*operation="token_rotate".*status="error"`, `1`)
	assertBizMetricLine(t, output, `apitokens_operation_duration_seconds_count`,
		`domain="tokens".*operation="token_create".*status="success"`, `2`)
	assertBizMetricLine(t, output, `apitokens_operation_duration_seconds_sum`,
		`domain="tokens".*operation="token_create".*status="success"`, ``)
}

func TestBusinessMetrics_RecordAuthentication(t *testing.T) {
	provider, bm := newTestBusinessMetrics(t, "apitokens")
	ctx := context.Background()

	bm.RecordAuthentication(ctx, AuthResultToken)
	bm.RecordAuthentication(ctx, AuthResultToken)
	bm.RecordAuthentication(ctx, AuthResultLegacy)
	bm.RecordAuthentication(ctx, AuthResultRejected)

	output := scrape(t, provider)

	assertBizMetricLine(t, output, `apitokens_authentications_total`, `result="token"`, `2`)
	assertBizMetricLine(t, output, `apitokens_authentications_total`, `result="legacy"`, `1`)
	assertBizMetricLine(t, output, `apitokens_authentications_total`, `result="rejected"`, `1`)
	assert.NotContains(t, output, `result="error"`)
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOp := NewNoOpBusinessMetrics()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		noOp.RecordOperation(ctx, "tokens", "token_create", "success")
		noOp.RecordDuration(ctx, "tokens", "token_create", time.Millisecond, "error")
		noOp.RecordAuthentication(ctx, AuthResultLegacy)
	})
}
