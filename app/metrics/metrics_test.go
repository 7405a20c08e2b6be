package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
)

func TestMetrics_Observe(t *testing.T) {
	m := metrics.New()

	m.Observe("login", metrics.OutcomeSuccess)
	m.Observe("login", metrics.OutcomeSuccess)
	m.Observe("login", metrics.OutcomeFailure)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Operations.WithLabelValues("login", metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("login", metrics.OutcomeFailure)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() { m.Observe("register", metrics.OutcomeSuccess) })
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Observe("register", metrics.OutcomeSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `accounts_operations_total{operation="register",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
