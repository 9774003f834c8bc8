// Package event provides the site-wide event notification bus for assetbus.
//
// The bus lets unrelated UI components (asset grid, details modal, download
// panel, search bar) talk to each other without holding references to one
// another. A component emits a named event from a node in the UI hierarchy;
// the emission bubbles from that node up to the root, and every
// subscription registered on a node along the way is invoked.
//
// # Hierarchy
//
// The bus does not own a tree. It walks whatever implements Node:
//
//	type Node interface {
//	    ParentNode() Node
//	    IsRoot() bool
//	}
//
// A node is attached when its parent chain reaches a root. Emitting from a
// detached node delivers nothing and is not an error. The propagation path
// (target, parent, ..., root) is fixed when Emit starts, so callbacks that
// rearrange the tree do not change where the current emission goes.
//
// # Ordering
//
//   - The target's subscriptions run first, then each ancestor's, up to the root.
//   - Subscriptions on the same scope and name run in registration order.
//     There are no priorities.
//   - An Emit made from inside a callback is delivered completely before the
//     outer emission moves on to its next subscription.
//
// # Failure isolation
//
// A callback that returns an error or panics is recovered, logged, counted
// and reported to the ErrorHandler. Delivery carries on with the next
// subscription. There is no stop-propagation primitive.
//
// # Typed events
//
// Each event name carries exactly one payload type. Kind[P] binds the two so
// that mismatches are compile errors:
//
//	var AssetSelected = event.NewKind[AssetRef]("asset-selected")
//
//	_, err := event.On(bus, root, AssetSelected,
//	    func(ctx context.Context, e event.TypedEmission[AssetRef]) error {
//	        fmt.Println("selected", e.Payload.AssetID)
//	        return nil
//	    })
//
//	err = event.Emit(ctx, bus, card, AssetSelected, AssetRef{AssetID: "a1"})
//
// Untyped callers (scripts, scenario files) go through an Adapter, which
// decodes map payloads against a Codec and rejects unknown names.
//
// # Lifecycle
//
// Subscriptions live until removed. Use Bus.Off (or Subscription.Cancel)
// for one, Bus.OffScope when a view is torn down, or a Subscriber to group
// everything a component registered and Close it on unmount.
//
// # Thread Safety
//
// Bus, Registry and Subscriber are safe for concurrent use. No lock is held
// while callbacks run, so callbacks may subscribe, unsubscribe and emit.
//
// # Subpackages
//
//   - events: the event catalog (names and payload types)
//   - dispatch: callback execution with panic recovery
package event
