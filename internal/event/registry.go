package event

import (
	"sync"
)

// registryKey addresses the subscriptions for one event name at one scope.
type registryKey struct {
	scope Node
	name  Name
}

// Registry maps (scope, name) to subscriptions kept in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[registryKey][]*subscription
	byID map[string]*subscription
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[registryKey][]*subscription),
		byID: make(map[string]*subscription),
	}
}

// Add appends a subscription after every earlier one for the same scope and name.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{scope: sub.scope, name: sub.name}
	r.subs[key] = append(r.subs[key], sub)
	r.byID[sub.id] = sub
}

// Remove removes a subscription by ID and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	r.removeLocked(sub)
	return true
}

func (r *Registry) removeLocked(sub *subscription) {
	key := registryKey{scope: sub.scope, name: sub.name}
	subs := r.subs[key]
	for i, s := range subs {
		if s == sub {
			// Copy instead of shifting in place: snapshots handed to an
			// in-flight dispatch share the old backing array.
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			subs = next
			break
		}
	}
	if len(subs) == 0 {
		delete(r.subs, key)
	} else {
		r.subs[key] = subs
	}
	delete(r.byID, sub.id)
}

// RemoveScope removes every subscription registered at scope and returns them.
func (r *Registry) RemoveScope(scope Node) []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*subscription
	for key, subs := range r.subs {
		if key.scope != scope {
			continue
		}
		removed = append(removed, subs...)
		delete(r.subs, key)
		for _, sub := range subs {
			delete(r.byID, sub.id)
		}
	}
	return removed
}

// Get returns a subscription by ID.
func (r *Registry) Get(id string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return sub, true
}

// snapshot returns the subscriptions for (scope, name) in registration order.
// The returned slice must not be modified.
func (r *Registry) snapshot(scope Node, name Name) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.subs[registryKey{scope: scope, name: name}]
}

// Count returns the total number of registered subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountAt returns the number of subscriptions for name at scope.
func (r *Registry) CountAt(scope Node, name Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs[registryKey{scope: scope, name: name}])
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Names returns the event names with at least one subscription at scope.
func (r *Registry) Names(scope Node) []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []Name
	for key := range r.subs {
		if key.scope == scope {
			names = append(names, key.name)
		}
	}
	return names
}
