// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msomdec/authcore/internal/service"
)

// Label values for AuthRequests and HashDuration.
const (
	OutcomeSuccess    = "success"
	OutcomeRejected   = "rejected"
	OutcomeError      = "error"
	OperationLogin    = "login"
	OperationRegister = "register"
	OperationHash     = "hash"
	OperationVerify   = "verify"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	AuthRequests *prometheus.CounterVec
	HashDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_auth_requests_total",
				Help: "Total number of authentication requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_password_hash_seconds",
				Help:    "Time spent hashing or verifying passwords",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.AuthRequests)
	reg.MustRegister(m.HashDuration)
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordAuth increments the request counter. A nil receiver is a no-op so
// callers need not guard optional metrics.
func (m *Metrics) RecordAuth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthRequests.WithLabelValues(operation, outcome).Inc()
}

// InstrumentHasher wraps h so every Hash and Verify call is timed.
func (m *Metrics) InstrumentHasher(h service.PasswordHasher) service.PasswordHasher {
	return &timedHasher{next: h, hist: m.HashDuration}
}

type timedHasher struct {
	next service.PasswordHasher
	hist *prometheus.HistogramVec
}

func (t *timedHasher) Hash(ctx context.Context, password string) (string, error) {
	start := time.Now()
	defer func() { t.hist.WithLabelValues(OperationHash).Observe(time.Since(start).Seconds()) }()
	return t.next.Hash(ctx, password)
}

func (t *timedHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	start := time.Now()
	defer func() { t.hist.WithLabelValues(OperationVerify).Observe(time.Since(start).Seconds()) }()
	return t.next.Verify(ctx, password, digest)
}
