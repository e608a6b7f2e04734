// Package metrics instruments runner invocations with Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"digital.vasic.smbshare/pkg/runner"
)

// Metrics tracks share command metrics. All metrics use the smbshare_ prefix.
type Metrics struct {
	// CommandsTotal counts commands by verb and result
	CommandsTotal *prometheus.CounterVec

	// CommandDuration tracks command latency by verb
	CommandDuration *prometheus.HistogramVec

	// OutputBytes counts captured stdout bytes by verb
	OutputBytes *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics with reg.
// Panics if registration fails.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbshare_commands_total",
				Help: "Total share commands by verb and result",
			},
			[]string{"verb", "result"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smbshare_command_duration_seconds",
				Help:    "Share command duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"verb"},
		),
		OutputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbshare_output_bytes_total",
				Help: "Bytes of command output returned to the parsers",
			},
			[]string{"verb"},
		),
	}

	reg.MustRegister(m.CommandsTotal, m.CommandDuration, m.OutputBytes)
	return m
}

// RecordCommand records one finished command.
func (m *Metrics) RecordCommand(verb, result string, outputBytes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(verb, result).Inc()
	m.CommandDuration.WithLabelValues(verb).Observe(duration.Seconds())
	if outputBytes > 0 {
		m.OutputBytes.WithLabelValues(verb).Add(float64(outputBytes))
	}
}

// Result returns the result label for err.
func Result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, runner.ErrAuthentication):
		return "authentication"
	case errors.Is(err, runner.ErrConnection):
		return "connection"
	case errors.Is(err, runner.ErrNotFound):
		return "not_found"
	case errors.Is(err, runner.ErrPermission):
		return "permission"
	case errors.Is(err, runner.ErrNotDirectory):
		return "not_directory"
	case errors.Is(err, runner.ErrIsDirectory):
		return "is_directory"
	case errors.Is(err, runner.ErrOutputTooLarge):
		return "output_too_large"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// InstrumentedRunner records metrics around another runner.
type InstrumentedRunner struct {
	inner   runner.Runner
	metrics *Metrics
}

// Instrument wraps r. It matches the factory's Instrument hook.
func (m *Metrics) Instrument(r runner.Runner) runner.Runner {
	return &InstrumentedRunner{inner: r, metrics: m}
}

// Run delegates to the wrapped runner and records the outcome.
func (r *InstrumentedRunner) Run(ctx context.Context, command string) (string, error) {
	start := time.Now()
	out, err := r.inner.Run(ctx, command)
	r.metrics.RecordCommand(runner.Verb(command), Result(err), len(out), time.Since(start))
	return out, err
}

// WriteTextfile writes everything g gathers to path in the Prometheus
// text format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
