// Package observe provides observability primitives for the voice gateway:
// OpenTelemetry metrics with a Prometheus exporter bridge, so the pipeline
// stage latencies and session counters can be scraped from /metrics.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) exists for
// convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all gateway metrics.
const meterName = "github.com/txurtxil/Esc32S3-Groq"

// Metrics holds the OpenTelemetry instruments for the gateway. All fields
// are safe for concurrent use; the underlying OTel types synchronise
// themselves.
type Metrics struct {
	// STTDuration tracks transcription latency per interaction.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks completion latency per interaction.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks synthesis latency per interaction.
	TTSDuration metric.Float64Histogram

	// InteractionDuration tracks utterance-endpoint to reply-streamed latency.
	InteractionDuration metric.Float64Histogram

	// FramesReceived counts inbound audio frames, whether or not a recording
	// is active.
	FramesReceived metric.Int64Counter

	// Utterances counts endpointed utterances handed to the pipeline.
	Utterances metric.Int64Counter

	// Interactions counts pipeline runs by outcome. Use with attribute:
	//   attribute.String("outcome", "completed"|"abandoned"|"dropped")
	Interactions metric.Int64Counter

	// ActiveSessions tracks the number of connected devices.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks admin-surface request time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram boundaries (seconds) sized for
// voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.STTDuration, err = m.Float64Histogram("gateway.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("gateway.llm.duration",
		metric.WithDescription("Latency of reply completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("gateway.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InteractionDuration, err = m.Float64Histogram("gateway.interaction.duration",
		metric.WithDescription("End-to-end latency from endpoint to reply streamed."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.FramesReceived, err = m.Int64Counter("gateway.frames.received",
		metric.WithDescription("Inbound audio frames received from devices."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("gateway.utterances",
		metric.WithDescription("Endpointed utterances handed to the pipeline."),
	); err != nil {
		return nil, err
	}
	if met.Interactions, err = m.Int64Counter("gateway.interactions",
		metric.WithDescription("Pipeline runs by outcome."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("gateway.active_sessions",
		metric.WithDescription("Number of connected devices."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("gateway.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
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

// RecordInteraction increments the interaction counter with the given
// outcome.
func (m *Metrics) RecordInteraction(ctx context.Context, outcome string) {
	m.Interactions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
