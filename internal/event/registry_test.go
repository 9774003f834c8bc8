package event

import (
	"context"
	"testing"
)

func newTestSub(id string, scope Node, name Name) *subscription {
	return newSubscription(id, scope, name, HandlerFunc(func(context.Context, Emission) error { return nil }))
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	root := newRoot("root")
	grid := root.child("grid")

	r.Add(newTestSub("a", root, "search"))
	r.Add(newTestSub("b", root, "search"))
	r.Add(newTestSub("c", grid, "search"))
	r.Add(newTestSub("d", root, "facet"))

	if r.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", r.Count())
	}
	if r.CountAt(root, "search") != 2 || r.CountAt(grid, "search") != 1 {
		t.Error("CountAt() should key on scope and name")
	}

	if _, ok := r.Get("c"); !ok {
		t.Error("Get(c) not found")
	}
	if !r.Remove("c") {
		t.Error("Remove(c) = false")
	}
	if r.Remove("c") {
		t.Error("second Remove(c) = true")
	}
	if _, ok := r.Get("c"); ok {
		t.Error("Get(c) found after removal")
	}
	if r.CountAt(grid, "search") != 0 {
		t.Error("grid scope should be empty")
	}
}

func TestRegistry_SnapshotOrderAndIsolation(t *testing.T) {
	r := NewRegistry()
	root := newRoot("root")

	for _, id := range []string{"a", "b", "c"} {
		r.Add(newTestSub(id, root, "search"))
	}

	snap := r.snapshot(root, "search")
	r.Remove("a")
	r.Add(newTestSub("d", root, "search"))

	var ids []string
	for _, s := range snap {
		ids = append(ids, s.id)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("snapshot = %v, want [a b c] unaffected by later changes", ids)
	}

	var now []string
	for _, s := range r.snapshot(root, "search") {
		now = append(now, s.id)
	}
	if len(now) != 3 || now[0] != "b" || now[2] != "d" {
		t.Errorf("current = %v, want [b c d]", now)
	}
}

func TestRegistry_RemoveScope(t *testing.T) {
	r := NewRegistry()
	root := newRoot("root")
	modal := root.child("modal")

	r.Add(newTestSub("a", modal, "next-asset"))
	r.Add(newTestSub("b", modal, "previous-asset"))
	r.Add(newTestSub("c", root, "next-asset"))

	if names := r.Names(modal); len(names) != 2 {
		t.Errorf("Names(modal) = %v", names)
	}

	removed := r.RemoveScope(modal)
	if len(removed) != 2 {
		t.Fatalf("RemoveScope() removed %d, want 2", len(removed))
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if _, ok := r.Get("a"); ok {
		t.Error("removed subscription still indexed by ID")
	}
}

func TestRegistry_CountActive(t *testing.T) {
	r := NewRegistry()
	root := newRoot("root")
	a := newTestSub("a", root, "search")
	r.Add(a)
	r.Add(newTestSub("b", root, "search"))

	a.Pause()
	if r.CountActive() != 1 {
		t.Errorf("CountActive() = %d, want 1", r.CountActive())
	}
}
