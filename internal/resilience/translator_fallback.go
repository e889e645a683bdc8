package resilience

import (
	"context"
	"strings"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// Compile-time assertion that TranslatorFallback satisfies the translate
// provider interface.
var _ translate.Provider = (*TranslatorFallback)(nil)

// TranslatorFallback wraps a primary translation provider and zero or more
// fallbacks behind the [translate.Provider] interface. Each entry gets its
// own circuit breaker, so a provider that keeps timing out is bypassed for a
// while instead of adding its full timeout to every caption tick.
type TranslatorFallback struct {
	group *FallbackGroup[translate.Provider]
	names []string
}

// NewTranslatorFallback creates a TranslatorFallback with primary as the
// first entry. Add fallbacks via [TranslatorFallback.AddFallback].
func NewTranslatorFallback(primary translate.Provider, cfg FallbackConfig) *TranslatorFallback {
	return &TranslatorFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
		names: []string{primary.Name()},
	}
}

// AddFallback appends a fallback provider, tried after all earlier entries.
func (tf *TranslatorFallback) AddFallback(p translate.Provider) {
	tf.group.AddFallback(p.Name(), p)
	tf.names = append(tf.names, p.Name())
}

// Translate implements translate.Provider. The request is tried against each
// healthy entry in order until one succeeds.
func (tf *TranslatorFallback) Translate(ctx context.Context, req translate.Request) (string, error) {
	return ExecuteWithResult(tf.group, func(p translate.Provider) (string, error) {
		return p.Translate(ctx, req)
	})
}

// Probe implements translate.Provider. It succeeds if any entry's probe
// succeeds, so a dead primary with a live fallback still counts as reachable.
func (tf *TranslatorFallback) Probe(ctx context.Context) error {
	return tf.group.Execute(func(p translate.Provider) error {
		return p.Probe(ctx)
	})
}

// Name implements translate.Provider by joining all entry names.
func (tf *TranslatorFallback) Name() string {
	return strings.Join(tf.names, ",")
}
