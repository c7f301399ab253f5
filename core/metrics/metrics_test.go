package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCounters(t *testing.T) {
	m := New()
	m.ObserveUpdate("callback", "callback.approve_login", "ok", 0.01)
	m.ObserveUpdate("callback", "callback.approve_login", "ok", 0.02)
	m.ObserveOutbound("sendMessage", errors.New("boom"))
	m.ObserveRateLimited("message")
	m.SetSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Updates.WithLabelValues("callback", "callback.approve_login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outbound.WithLabelValues("sendMessage", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("message")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Sessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpdate("message", "start", "ok", 0)
		m.ObserveOutbound("editMessageText", nil)
		m.ObserveHTTP("POST", "/telegram/webhook", "OK", 0)
		m.SetSessions(1)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "/telegram/webhook", "OK", 0.001)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/telegram/webhook",status="OK"} 1`)
}
