// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Counters and the step summary live in a private registry that Flush pushes
// to the gateway under the job grouping key; nothing is exposed for scraping.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"salesload/internal/metrics"
)

// counter is a registered CounterVec plus the metrics.Labels keys that feed
// its label values, in collector order.
type counter struct {
	vec  *prometheus.CounterVec
	keys []string
}

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	counters  map[string]counter
	durations *prometheus.SummaryVec
}

var _ metrics.Backend = (*Backend)(nil)

var stepKeys = []string{"step", "status"}

// NewBackend registers the pipeline collectors and returns a backend that
// pushes to gatewayURL as job jobName ("salesload" when empty).
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "salesload"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		counters:   map[string]counter{},
	}

	for _, c := range []struct {
		name, help string
		keys       []string
	}{
		{metrics.StepTotal, "Pipeline stage executions by step and status.", stepKeys},
		{metrics.RecordsTotal, "Rows counted per kind (loaded, filled, dropped_dates, inserted, ...).", []string{"kind"}},
		{metrics.BatchesTotal, "Insert batches written to the target table.", nil},
	} {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: c.name, Help: c.help}, c.keys)
		if err := b.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", c.name, err)
		}
		b.counters[c.name] = counter{vec: vec, keys: c.keys}
	}

	b.durations = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Pipeline stage duration in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		stepKeys,
	)
	if err := b.reg.Register(b.durations); err != nil {
		return nil, fmt.Errorf("prompush: register %s: %w", metrics.StepDuration, err)
	}
	return b, nil
}

func labelValues(l metrics.Labels, keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = l[k]
	}
	return out
}

// IncCounter implements metrics.Backend. Unknown names and negative deltas
// are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	c, ok := b.counters[name]
	if !ok || delta < 0 {
		return
	}
	c.vec.WithLabelValues(labelValues(labels, c.keys)...).Add(delta)
}

// ObserveHistogram implements metrics.Backend; only step durations are kept.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.durations == nil {
		return
	}
	b.durations.WithLabelValues(labelValues(labels, stepKeys)...).Observe(value)
}

// Flush pushes (PUT) the registry to the Pushgateway, replacing the job's
// previous group.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
