package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id+"/status", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	got := counterValue(t, reg, "campus_eats_http_requests_total", map[string]string{
		"route": "/orders/{id}/status", "method": "GET", "status": "404",
	})
	assert.Equal(t, float64(3), got)
}

func TestPaymentCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReconciliation("callback", "paid")
	m.ObserveReconciliation("callback", "paid")
	m.ObserveReconciliation("poll", "error")
	m.ObserveInitiation("ok")
	m.ObserveNotification("order_confirmed", "ok")

	assert.Equal(t, float64(2), counterValue(t, reg, "campus_eats_payment_reconciliations_total",
		map[string]string{"source": "callback", "result": "paid"}))
	assert.Equal(t, float64(1), counterValue(t, reg, "campus_eats_payment_reconciliations_total",
		map[string]string{"source": "poll", "result": "error"}))
	assert.Equal(t, float64(1), counterValue(t, reg, "campus_eats_payment_initiations_total",
		map[string]string{"result": "ok"}))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReconciliation("callback", "paid")
		m.ObserveInitiation("ok")
		m.ObserveNotification("status_update", "ok")
	})

	called := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveInitiation("error")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `campus_eats_payment_initiations_total{result="error"} 1`))
}
