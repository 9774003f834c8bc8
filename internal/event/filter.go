package event

// Common filter predicates for subscriptions.

// FilterBySource allows only emissions raised by the given source.
func FilterBySource(source string) FilterFunc {
	return func(e Emission) bool {
		return e.Metadata.Source == source
	}
}

// FilterBySources allows emissions from any of the given sources.
func FilterBySources(sources ...string) FilterFunc {
	set := make(map[string]bool, len(sources))
	for _, s := range sources {
		set[s] = true
	}
	return func(e Emission) bool {
		return set[e.Metadata.Source]
	}
}

// FilterDirect allows only emissions whose target is the subscription's
// own scope, ignoring those bubbling up from descendants.
func FilterDirect() FilterFunc {
	return func(e Emission) bool {
		return e.Target == e.Scope
	}
}

// FilterByTargetWithin allows only emissions whose target is node or one of
// its descendants.
func FilterByTargetWithin(node Node) FilterFunc {
	return func(e Emission) bool {
		for n := e.Target; n != nil; n = n.ParentNode() {
			if n == node {
				return true
			}
			if n.IsRoot() {
				return false
			}
		}
		return false
	}
}

// FilterByDepth allows emissions nested at most max levels deep. Zero
// admits only top-level emissions.
func FilterByDepth(max int) FilterFunc {
	return func(e Emission) bool {
		return e.Metadata.Depth <= max
	}
}

// FilterPayload allows emissions whose payload has type P and satisfies pred.
func FilterPayload[P any](pred func(P) bool) FilterFunc {
	return func(e Emission) bool {
		p, ok := e.Payload.(P)
		return ok && pred(p)
	}
}

// AndFilter combines filters; all must pass.
func AndFilter(filters ...FilterFunc) FilterFunc {
	return func(e Emission) bool {
		for _, f := range filters {
			if f != nil && !f(e) {
				return false
			}
		}
		return true
	}
}

// OrFilter combines filters; at least one must pass.
func OrFilter(filters ...FilterFunc) FilterFunc {
	return func(e Emission) bool {
		for _, f := range filters {
			if f != nil && f(e) {
				return true
			}
		}
		return false
	}
}

// NotFilter inverts a filter.
func NotFilter(f FilterFunc) FilterFunc {
	return func(e Emission) bool {
		return !f(e)
	}
}
