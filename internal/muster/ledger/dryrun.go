package ledger

import "context"

type dryRunKey struct{}

// WithDryRun marks ctx so that every ledger mutation refuses to write. The
// flag lives on the request's context, never in package state, so concurrent
// requests cannot see each other's guard.
func WithDryRun(ctx context.Context) context.Context {
	return context.WithValue(ctx, dryRunKey{}, true)
}

func IsDryRun(ctx context.Context) bool {
	v, _ := ctx.Value(dryRunKey{}).(bool)
	return v
}
