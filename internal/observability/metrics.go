// Package observability exposes Prometheus metrics for the suspend loop.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soypat/icmpdiscard"
)

// SuspendCollector bundles the suspend loop metrics. Its Observe method is
// an [icmpdiscard.Observer].
type SuspendCollector struct {
	gatherer prometheus.Gatherer

	Iterations *prometheus.CounterVec
	Wait       prometheus.Histogram
}

// NewSuspendCollector registers the suspend loop metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSuspendCollector(reg prometheus.Registerer) (*SuspendCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	iterations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icmpdiscard_suspend_iterations_total",
		Help: "Total number of suspend attempts, labeled by result.",
	}, []string{"result"})
	iterations, err := registerCounterVec(reg, iterations, "icmpdiscard_suspend_iterations_total")
	if err != nil {
		return nil, err
	}

	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "icmpdiscard_suspend_wait_seconds",
		Help:    "Time spent in a single suspend attempt in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	wait, err = registerHistogram(reg, wait, "icmpdiscard_suspend_wait_seconds")
	if err != nil {
		return nil, err
	}
	return &SuspendCollector{
		gatherer:   gatherer,
		Iterations: iterations,
		Wait:       wait,
	}, nil
}

// Observe records one suspend attempt. Attempts that failed are counted
// under the "error" result.
func (c *SuspendCollector) Observe(ev icmpdiscard.SuspendEvent) {
	if c == nil {
		return
	}
	result := ev.Result.String()
	if ev.Err != nil {
		result = "error"
	}
	c.Iterations.WithLabelValues(result).Inc()
	c.Wait.Observe(ev.Elapsed.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SuspendCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
