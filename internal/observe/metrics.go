// Package observe provides application-wide observability primitives for
// Glossia: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Glossia metrics.
const meterName = "github.com/tobfel/glossia"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranslationDuration tracks end-to-end translation request latency,
	// including retries.
	TranslationDuration metric.Float64Histogram

	// ProbeDuration tracks provider reachability probe latency.
	ProbeDuration metric.Float64Histogram

	// --- Counters ---

	// TranslationRequests counts translation API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	TranslationRequests metric.Int64Counter

	// TranslationErrors counts failed translation requests. Use with attribute:
	//   attribute.String("provider", ...)
	TranslationErrors metric.Int64Counter

	// UtterancesFinalized counts finalized utterances. Use with attribute:
	//   attribute.String("speaker_id", ...)
	UtterancesFinalized metric.Int64Counter

	// SnapshotsProcessed counts caption snapshots handled by the session.
	SnapshotsProcessed metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live translation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ViewSubscribers tracks the number of connected view websocket clients.
	ViewSubscribers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for translation API latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4.5, 6, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranslationDuration, err = m.Float64Histogram("glossia.translation.duration",
		metric.WithDescription("Latency of translation requests, including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProbeDuration, err = m.Float64Histogram("glossia.probe.duration",
		metric.WithDescription("Latency of provider reachability probes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranslationRequests, err = m.Int64Counter("glossia.translation.requests",
		metric.WithDescription("Total translation requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.TranslationErrors, err = m.Int64Counter("glossia.translation.errors",
		metric.WithDescription("Total failed translation requests by provider."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesFinalized, err = m.Int64Counter("glossia.utterances.finalized",
		metric.WithDescription("Total finalized utterances by speaker."),
	); err != nil {
		return nil, err
	}
	if met.SnapshotsProcessed, err = m.Int64Counter("glossia.snapshots.processed",
		metric.WithDescription("Total caption snapshots processed."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("glossia.active_sessions",
		metric.WithDescription("Number of live translation sessions."),
	); err != nil {
		return nil, err
	}
	if met.ViewSubscribers, err = m.Int64UpDownCounter("glossia.view_subscribers",
		metric.WithDescription("Number of connected view websocket clients."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("glossia.http.request.duration",
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

// RecordTranslationRequest records a translation request counter increment
// with the standard attribute set.
func (m *Metrics) RecordTranslationRequest(ctx context.Context, provider, status string) {
	m.TranslationRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordTranslationError records a translation error counter increment.
func (m *Metrics) RecordTranslationError(ctx context.Context, provider string) {
	m.TranslationErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordUtteranceFinalized records a finalized utterance counter increment.
func (m *Metrics) RecordUtteranceFinalized(ctx context.Context, speakerID string) {
	m.UtterancesFinalized.Add(ctx, 1,
		metric.WithAttributes(attribute.String("speaker_id", speakerID)),
	)
}
