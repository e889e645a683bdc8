package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// InstrumentedTranslator wraps a [translate.Provider] and records request
// latency, outcome counters, and spans for every call.
type InstrumentedTranslator struct {
	inner   translate.Provider
	metrics *Metrics
}

var _ translate.Provider = (*InstrumentedTranslator)(nil)

// InstrumentTranslator wraps the given provider with the given metrics. When
// metrics is nil, [DefaultMetrics] is used.
func InstrumentTranslator(inner translate.Provider, metrics *Metrics) *InstrumentedTranslator {
	if metrics == nil {
		metrics = DefaultMetrics()
	}
	return &InstrumentedTranslator{inner: inner, metrics: metrics}
}

// Translate delegates to the wrapped provider, recording duration and the
// request outcome.
func (t *InstrumentedTranslator) Translate(ctx context.Context, req translate.Request) (string, error) {
	ctx, span := StartSpan(ctx, "translate",
		trace.WithAttributes(
			attribute.String("provider", t.inner.Name()),
			attribute.String("source_lang", req.SourceLang),
			attribute.String("target_lang", req.TargetLang),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := t.inner.Translate(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		t.metrics.RecordTranslationError(ctx, t.inner.Name())
	}
	t.metrics.TranslationDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.String("provider", t.inner.Name()),
			attribute.String("status", status),
		),
	)
	t.metrics.RecordTranslationRequest(ctx, t.inner.Name(), status)
	return out, err
}

// Probe delegates to the wrapped provider, recording probe latency.
func (t *InstrumentedTranslator) Probe(ctx context.Context) error {
	start := time.Now()
	err := t.inner.Probe(ctx)
	t.metrics.ProbeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", t.inner.Name())),
	)
	return err
}

// Name reports the wrapped provider's name.
func (t *InstrumentedTranslator) Name() string {
	return t.inner.Name()
}
