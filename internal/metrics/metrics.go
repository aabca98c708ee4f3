// Package metrics owns the Prometheus collectors exported at /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boxgallery"

// Registry groups the collectors for HTTP traffic and provider calls.
type Registry struct {
	reg prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec
	uploadedBytes    prometheus.Counter
	uploadsInFlight  prometheus.Gauge
}

// New registers all collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) (*Registry, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Registry{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_operation_duration_seconds",
			Help:      "Latency of media provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_operation_errors_total",
			Help:      "Count of failed media provider calls.",
		}, []string{"operation"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_uploaded_bytes_total",
			Help:      "Bytes successfully forwarded to the media provider.",
		}),
		uploadsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads_in_flight",
			Help:      "Uploads currently holding an admission slot.",
		}),
	}

	collectors := []prometheus.Collector{
		r.requests, r.requestDuration,
		r.providerDuration, r.providerErrors, r.uploadedBytes, r.uploadsInFlight,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveProvider records one provider call. size is only counted for
// successful uploads.
func (r *Registry) ObserveProvider(op string, d time.Duration, size int64, err error) {
	if r == nil {
		return
	}
	r.providerDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.providerErrors.WithLabelValues(op).Inc()
		return
	}
	if size > 0 {
		r.uploadedBytes.Add(float64(size))
	}
}

// UploadStarted marks an upload as admitted.
func (r *Registry) UploadStarted() {
	if r == nil {
		return
	}
	r.uploadsInFlight.Inc()
}

// UploadFinished releases an admitted upload.
func (r *Registry) UploadFinished() {
	if r == nil {
		return
	}
	r.uploadsInFlight.Dec()
}
