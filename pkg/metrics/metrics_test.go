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

func TestRecordAnalysis(t *testing.T) {
	m := NewMetrics()

	m.RecordAnalysis("fire", 92)
	m.RecordAnalysis("fire", 40)
	m.RecordAnalysis("medical", 55)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.analysesTotal.WithLabelValues("fire")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.analysesTotal.WithLabelValues("medical")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.priorityScore))
}

func TestNewMetrics_Independent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordFallback()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.fallbacksTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.fallbacksTotal))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
	m.RecordStoreError("ZADD")
	m.SetStoredEmergencies("fire", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `calltriage_http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, body, `calltriage_store_errors_total{operation="ZADD"} 1`)
	assert.Contains(t, body, `calltriage_stored_emergencies{emergency_type="fire"} 3`)
	assert.Contains(t, body, "go_goroutines")
}
