// Package observe provides application-wide observability primitives for the
// text-to-speech synthesis service: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all service metrics.
const meterName = "github.com/synthline/ttscore"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthesisDuration tracks end-to-end synthesis latency for one
	// utterance. Use with attributes: attribute.String("voice", ...),
	// attribute.String("backend", ...) where backend is "unitselect" or
	// "parametric".
	SynthesisDuration metric.Float64Histogram

	// PipelineStageDuration tracks the latency of one front-end pipeline
	// stage (tokenizer, normalizer, phrasifier, phonetizer, pauses). Use
	// with attribute.String("stage", ...).
	PipelineStageDuration metric.Float64Histogram

	// ExternalEngineDuration tracks the latency of one external parametric
	// engine invocation.
	ExternalEngineDuration metric.Float64Histogram

	// --- Counters ---

	// ViterbiCandidatesConsidered counts candidates scored during unit
	// selection, labeled attribute.String("voice", ...).
	ViterbiCandidatesConsidered metric.Int64Counter

	// ViterbiCandidatesPruned counts candidates dropped by the pruning
	// step (delta threshold or top-K truncation).
	ViterbiCandidatesPruned metric.Int64Counter

	// G2PFallbacks counts words resolved via the grapheme-to-phoneme
	// rewriter rather than a dictionary hit.
	G2PFallbacks metric.Int64Counter

	// DictionaryFallbacks counts which step of the pronunciation fallback chain
	// resolved a word's pronunciation. Use with attribute.String("step",
	// ...) — one of "addendum", "dict_pos", "dict_nopos", "rawmap", "g2p",
	// "silence".
	DictionaryFallbacks metric.Int64Counter

	// --- Error counters ---

	// ExternalEngineFailures counts failed invocations of the external
	// parametric synthesis engine.
	ExternalEngineFailures metric.Int64Counter

	// CircuitBreakerTrips counts state transitions of the circuit breakers
	// guarding the external engine process and voice backend fallback
	// chain. Use with attribute.String("name", ...) (the breaker's
	// configured name) and attribute.String("state", ...) (the state it
	// entered — "open", "half-open", or "closed").
	CircuitBreakerTrips metric.Int64Counter

	// --- Gauges ---

	// ActiveSyntheses tracks the number of synthesis requests currently
	// in flight across all voices.
	ActiveSyntheses metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for synthesis-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("ttscore.synthesis.duration",
		metric.WithDescription("Latency of one end-to-end utterance synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineStageDuration, err = m.Float64Histogram("ttscore.pipeline_stage.duration",
		metric.WithDescription("Latency of one front-end pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExternalEngineDuration, err = m.Float64Histogram("ttscore.external_engine.duration",
		metric.WithDescription("Latency of one external parametric engine invocation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ViterbiCandidatesConsidered, err = m.Int64Counter("ttscore.viterbi.candidates_considered",
		metric.WithDescription("Total unit-selection candidates scored during Viterbi search."),
	); err != nil {
		return nil, err
	}
	if met.ViterbiCandidatesPruned, err = m.Int64Counter("ttscore.viterbi.candidates_pruned",
		metric.WithDescription("Total unit-selection candidates dropped by delta/top-K pruning."),
	); err != nil {
		return nil, err
	}
	if met.G2PFallbacks, err = m.Int64Counter("ttscore.g2p.fallbacks",
		metric.WithDescription("Total words whose pronunciation came from the G2P rewriter."),
	); err != nil {
		return nil, err
	}
	if met.DictionaryFallbacks, err = m.Int64Counter("ttscore.dictionary.fallbacks",
		metric.WithDescription("Total words resolved per fallback-chain step."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ExternalEngineFailures, err = m.Int64Counter("ttscore.external_engine.failures",
		metric.WithDescription("Total failed external parametric engine invocations."),
	); err != nil {
		return nil, err
	}
	if met.CircuitBreakerTrips, err = m.Int64Counter("ttscore.circuit_breaker.state_transitions",
		metric.WithDescription("Total circuit breaker state transitions, by breaker name and entered state."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSyntheses, err = m.Int64UpDownCounter("ttscore.active_syntheses",
		metric.WithDescription("Number of synthesis requests currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("ttscore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSynthesis is a convenience method that records a synthesis duration
// observation with the standard attribute set.
func (m *Metrics) RecordSynthesis(ctx context.Context, voice, backend string, seconds float64) {
	m.SynthesisDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("voice", voice),
			attribute.String("backend", backend),
		),
	)
}

// RecordPipelineStage is a convenience method that records a pipeline-stage
// duration observation.
func (m *Metrics) RecordPipelineStage(ctx context.Context, stage string, seconds float64) {
	m.PipelineStageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordDictionaryFallback is a convenience method that increments the
// pronunciation fallback-chain step counter.
func (m *Metrics) RecordDictionaryFallback(ctx context.Context, step string) {
	m.DictionaryFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("step", step)),
	)
	if step == "g2p" {
		m.G2PFallbacks.Add(ctx, 1)
	}
}

// RecordExternalEngineFailure is a convenience method that increments the
// external-engine failure counter.
func (m *Metrics) RecordExternalEngineFailure(ctx context.Context, voice string) {
	m.ExternalEngineFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("voice", voice)),
	)
}

// RecordCircuitBreakerTrip is a convenience method that increments the
// circuit-breaker state-transition counter. Intended for use as a
// [resilience.CircuitBreakerConfig.OnStateChange] callback.
func (m *Metrics) RecordCircuitBreakerTrip(ctx context.Context, name, state string) {
	m.CircuitBreakerTrips.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("name", name),
			attribute.String("state", state),
		),
	)
}
