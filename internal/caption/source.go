package caption

import "context"

// Source delivers caption snapshots captured from a host page.
//
// Implementations run their own capture loop and hand every observed
// [Snapshot] to the handler, in order. Run blocks until the context is
// canceled or the source fails permanently.
type Source interface {
	Run(ctx context.Context, handle func(Snapshot)) error
}

// SourceFunc adapts a plain function to the [Source] interface.
type SourceFunc func(ctx context.Context, handle func(Snapshot)) error

func (f SourceFunc) Run(ctx context.Context, handle func(Snapshot)) error {
	return f(ctx, handle)
}
