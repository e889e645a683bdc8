// Package mock provides a test double for the translate.Provider interface.
//
// Use Provider in unit tests to verify the texts the pipeline actually sends
// over the wire and to feed controlled translations without a live backend.
// Response fields are safe to set before calling any method; mutating them
// during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{TranslateFunc: func(req translate.Request) (string, error) {
//	    return "[" + req.TargetLang + "] " + req.Text, nil
//	}}
package mock

import (
	"context"
	"sync"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// Compile-time assertion that Provider satisfies the translate interface.
var _ translate.Provider = (*Provider)(nil)

// TranslateCall records a single invocation of Translate.
type TranslateCall struct {
	// Ctx is the context passed to Translate.
	Ctx context.Context
	// Req is the request passed to Translate.
	Req translate.Request
}

// Provider is a mock implementation of translate.Provider.
// Zero values cause methods to return zero values and nil errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// TranslateFunc, if non-nil, computes the response for each Translate
	// call. It takes precedence over TranslateResponse and TranslateErr.
	TranslateFunc func(req translate.Request) (string, error)

	// TranslateResponse is returned by Translate when TranslateFunc is nil.
	TranslateResponse string

	// TranslateErr, if non-nil, is returned by Translate when TranslateFunc
	// is nil.
	TranslateErr error

	// ProbeErr, if non-nil, is returned by Probe.
	ProbeErr error

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// --- Call records (read after test) ---

	// TranslateCalls records every invocation of Translate in order.
	TranslateCalls []TranslateCall

	// ProbeCalls counts invocations of Probe.
	ProbeCalls int
}

// Translate records the call and returns the configured response.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	p.mu.Lock()
	p.TranslateCalls = append(p.TranslateCalls, TranslateCall{Ctx: ctx, Req: req})
	fn := p.TranslateFunc
	resp, err := p.TranslateResponse, p.TranslateErr
	p.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return resp, err
}

// Probe records the call and returns ProbeErr.
func (p *Provider) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProbeCalls++
	return p.ProbeErr
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Calls returns a copy of the recorded Translate invocations.
func (p *Provider) Calls() []TranslateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranslateCall, len(p.TranslateCalls))
	copy(out, p.TranslateCalls)
	return out
}

// CallCount returns how many Translate invocations were recorded.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranslateCalls)
}
