// Package lua runs sandboxed Lua scripts as event bus subscribers.
//
// A Host owns one Lua state and exposes a preloaded "bus" module to the
// scripts it loads:
//
//	local bus = require("bus")
//
//	local id = bus.on("body/main", "asset-selected", function(name, payload, target)
//	    print(name, payload.assetId, target)
//	end)
//
//	bus.emit("body/main/grid", "asset-deselected", { assetId = "a1", assetName = "Photo.png" })
//	bus.off(id)
//
// Paths resolve from the host's root node. Payload tables are decoded against
// the event catalog before emission, so scripts cannot emit malformed
// payloads. A Lua error inside a callback is reported by the bus as a handler
// failure and does not stop delivery to other subscribers.
//
// # Sandbox
//
// The state opens only the base, table, string and math libraries. dofile,
// loadfile, load and loadstring are removed, package paths are cleared and
// require resolves only whitelisted built-ins and preloaded modules. print is
// redirected to the host logger.
//
// # Concurrency
//
// gopher-lua states are single threaded. State serializes access with a
// mutex; a callback that runs while the same state is already executing on
// the current call chain (a script emitting an event that one of its own
// subscriptions receives) reuses the held lock instead of deadlocking.
package lua
