// Package metrics holds the prometheus collectors. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "equisy"

type Metrics struct {
	registry       *prometheus.Registry
	httpReqCnt     *prometheus.CounterVec
	httpDur        *prometheus.HistogramVec
	httpInfl       prometheus.Gauge
	provisioned    *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	adminActions   *prometheus.CounterVec
	permissionDeny *prometheus.CounterVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	httpInfl := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "http_requests_inflight", Help: "Requests currently being served.",
	})
	provisioned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "tenants_provisioned_total", Help: "Tenant provisioning attempts by result.",
	}, []string{"result"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "tenant_resolutions_total", Help: "Host to tenant lookups by source.",
	}, []string{"source"})
	adminActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "admin_actions_total", Help: "Admin bulk actions by model and action.",
	}, []string{"model", "action"})
	permissionDeny := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "object_permission_denied_total", Help: "Object permission checks that failed.",
	}, []string{"permission"})

	r.MustRegister(httpReqCnt, httpDur, httpInfl, provisioned, resolutions, adminActions, permissionDeny)

	return &Metrics{
		registry:       r,
		httpReqCnt:     httpReqCnt,
		httpDur:        httpDur,
		httpInfl:       httpInfl,
		provisioned:    provisioned,
		resolutions:    resolutions,
		adminActions:   adminActions,
		permissionDeny: permissionDeny,
	}
}

// TenantProvisioned counts a provisioning attempt; result is "ok" or "error".
func (m *Metrics) TenantProvisioned(result string) {
	if m == nil {
		return
	}
	m.provisioned.WithLabelValues(result).Inc()
}

// TenantResolved counts a lookup by where it was answered:
// "cache", "db", "public" or "unknown".
func (m *Metrics) TenantResolved(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) AdminAction(model, action string) {
	if m == nil {
		return
	}
	m.adminActions.WithLabelValues(model, action).Inc()
}

func (m *Metrics) PermissionDenied(permission string) {
	if m == nil {
		return
	}
	m.permissionDeny.WithLabelValues(permission).Inc()
}

// Middleware records request counts and latency keyed by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInfl.Inc()
		defer m.httpInfl.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpReqCnt.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDur.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
