package health

import (
	"context"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// TranslatorChecker returns a [Checker] that probes the given translation
// provider. The check passes when the provider's API is reachable.
func TranslatorChecker(p translate.Provider) Checker {
	return Checker{
		Name: "translator",
		Check: func(ctx context.Context) error {
			return p.Probe(ctx)
		},
	}
}
