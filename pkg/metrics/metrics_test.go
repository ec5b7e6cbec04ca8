package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTurn(t *testing.T) {
	m := New()
	m.ObserveTurn("complete")
	m.ObserveTurn("complete")
	m.ObserveTurn("degraded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("degraded")))
}

func TestObserveModelCall(t *testing.T) {
	m := New()
	m.ObserveModelCall("extraction", 200*time.Millisecond, nil)
	m.ObserveModelCall("reply", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCallErrors.WithLabelValues("reply")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.modelCallErrors.WithLabelValues("extraction")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.modelCallDuration))
}

func TestAddModelCost(t *testing.T) {
	m := New()
	m.AddModelCost("extraction", "gpt-4o-mini", 0.25)
	m.AddModelCost("extraction", "gpt-4o-mini", 0.5)
	m.AddModelCost("extraction", "gpt-4o-mini", 0)

	assert.InDelta(t, 0.75, testutil.ToFloat64(m.modelCostUSD.WithLabelValues("extraction", "gpt-4o-mini")), 1e-9)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodPost, "/v1/turns", http.StatusAccepted, 50*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `genai_slotfill_http_request_duration_seconds_count{method="POST",route="/v1/turns",status="202"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn("complete")
		m.ObserveModelCall("reply", time.Second, nil)
		m.AddModelCost("reply", "x", 1)
		m.ObserveHTTPRequest("GET", "/", 200, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
