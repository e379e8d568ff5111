// Package observe provides observability primitives for edgevox:
// OpenTelemetry metrics, tracing helpers, and structured logging glue.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from a /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all edgevox metrics.
const meterName = "github.com/edgevox/edgevox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks end-to-end synthesis latency per stream.
	SynthesisDuration metric.Float64Histogram

	// ConnectAttempts counts websocket connection attempts. Use with
	// attribute.String("status", "ok"|"error").
	ConnectAttempts metric.Int64Counter

	// AudioChunks counts audio chunks received from the service.
	AudioChunks metric.Int64Counter

	// AudioBytes counts encoded audio bytes received from the service.
	AudioBytes metric.Int64Counter

	// StreamErrors counts terminal stream failures. Use with
	// attribute.String("kind", ...).
	StreamErrors metric.Int64Counter

	// ActiveStreams tracks the number of streams currently in flight.
	ActiveStreams metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// speech synthesis round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("edgevox.synthesis.duration",
		metric.WithDescription("End-to-end latency of one synthesis stream."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConnectAttempts, err = m.Int64Counter("edgevox.connect.attempts",
		metric.WithDescription("Total websocket connection attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.AudioChunks, err = m.Int64Counter("edgevox.audio.chunks",
		metric.WithDescription("Total audio chunks received from the speech service."),
	); err != nil {
		return nil, err
	}
	if met.AudioBytes, err = m.Int64Counter("edgevox.audio.bytes",
		metric.WithDescription("Total encoded audio bytes received from the speech service."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.StreamErrors, err = m.Int64Counter("edgevox.stream.errors",
		metric.WithDescription("Total terminal stream failures by error kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("edgevox.active_streams",
		metric.WithDescription("Number of synthesis streams currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStreamError increments the stream error counter with the given kind.
func (m *Metrics) RecordStreamError(ctx context.Context, kind string) {
	m.StreamErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordConnectAttempt increments the connect attempt counter with the given
// status.
func (m *Metrics) RecordConnectAttempt(ctx context.Context, status string) {
	m.ConnectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordAudioChunk records one received audio chunk of the given size.
func (m *Metrics) RecordAudioChunk(ctx context.Context, size int) {
	m.AudioChunks.Add(ctx, 1)
	m.AudioBytes.Add(ctx, int64(size))
}
