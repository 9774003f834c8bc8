// Package events defines the closed catalog of site events and their
// strongly-typed payloads.
//
// Each event has a name constant, a payload struct and a typed Kind. Events
// are grouped by the component that usually raises them:
//
//   - Asset events: selection, navigation, preview, details, download
//   - Multiselect events: items added to or removed from the selection cart
//   - Search events: text search, facet changes, result updates, scrolling
//   - Session events: session start, share links, banner dismissal
//
// # Usage
//
// Typed emission goes through the Kind values, so the payload type is
// checked at compile time:
//
//	import (
//	    "github.com/dshills/assetbus/internal/event"
//	    "github.com/dshills/assetbus/internal/event/events"
//	)
//
//	err := event.Emit(ctx, bus, card, events.AssetSelected, events.AssetRef{
//	    AssetID:   "a1",
//	    AssetName: "Photo.png",
//	})
//
// Untyped callers (scripts, scenario files) go through Catalog, which
// decodes a map keyed by wire field names into the registered payload type
// and rejects unknown names and unknown fields.
//
// # Wire Names
//
// Event names and the JSON field names of the payloads are a wire contract
// shared with components built elsewhere. Renaming either is a breaking
// change.
package events
