package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/files/{fileID}", 200, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/files/{fileID}", 200, 20*time.Millisecond)
	m.Import(ResultSuccess)
	m.TokenRefresh(ResultFailure)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/files/{fileID}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importsTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshesTotal.WithLabelValues(ResultFailure)))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.Import(ResultFailure)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dataroom_imports_total{result="failure"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Second)
		m.Import(ResultSuccess)
		m.TokenRefresh(ResultSuccess)
	})
}
