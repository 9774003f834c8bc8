package event

import "context"

type emissionKey struct{}

// withEmission returns a context carrying the emission being delivered.
func withEmission(ctx context.Context, e Emission) context.Context {
	return context.WithValue(ctx, emissionKey{}, e)
}

// CurrentEmission returns the emission whose callback is running in ctx.
// Emitting with this context from inside a callback links the new emission
// to it (CausationID, Depth). A callback that emits with a fresh context
// starts a new top-level chain and bypasses the nesting limit.
func CurrentEmission(ctx context.Context) (Emission, bool) {
	if ctx == nil {
		return Emission{}, false
	}
	e, ok := ctx.Value(emissionKey{}).(Emission)
	return e, ok
}
