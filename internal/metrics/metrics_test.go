package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_Metrics_Counters(t *testing.T) {
	// given
	m := New(prometheus.NewRegistry())

	// when
	m.Decision("product", "delete", "deny")
	m.Decision("product", "delete", "deny")
	m.Transition("store", "deleted")
	m.PublishFailed("inventory.stores.deleted")

	// then
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("product", "delete", "deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("store", "deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures.WithLabelValues("inventory.stores.deleted")))
}

func Test_Metrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Decision("product", "read", "allow")
		m.Transition("product", "restored")
		m.PublishFailed("x")
	})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(h))
}

func Test_Metrics_MiddlewareUsesRoutePattern(t *testing.T) {
	// given
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// when
	for _, id := range []string{"22", "23"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil))
	}

	// then
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/products/{id}", "404")))
}
