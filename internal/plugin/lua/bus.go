package lua

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/assetbus/internal/event"
	"github.com/dshills/assetbus/internal/tree"
)

// BusModuleName is the name scripts pass to require.
const BusModuleName = "bus"

// busModule implements the bus Lua module on top of a Host.
type busModule struct {
	host *Host
}

// loader builds the module table when a script requires it.
func (m *busModule) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"on":        m.on,
		"once":      m.once,
		"off":       m.off,
		"emit":      m.emit,
		"names":     m.names,
		"listeners": m.listeners,
	})
	L.Push(mod)
	return 1
}

// on(path, name, fn) -> id
// Subscribes fn at the node addressed by path. fn receives
// (name, payload, targetPath).
func (m *busModule) on(L *lua.LState) int {
	return m.subscribe(L)
}

// once(path, name, fn) -> id
// Like on, but the subscription cancels itself after its first delivery.
func (m *busModule) once(L *lua.LState) int {
	return m.subscribe(L, event.WithOnce())
}

func (m *busModule) subscribe(L *lua.LState, opts ...event.SubscriptionOption) int {
	path := L.CheckString(1)
	name := L.CheckString(2)
	fn := L.CheckFunction(3)

	scope := m.resolve(L, path)
	id, err := m.host.subscribe(scope, name, fn, opts...)
	if err != nil {
		L.RaiseError("on: %v", err)
		return 0
	}
	L.Push(lua.LString(id))
	return 1
}

// off(id) -> bool
// Cancels a subscription. Returns false when the id is unknown or the
// subscription was already cancelled.
func (m *busModule) off(L *lua.LState) int {
	id := L.CheckString(1)
	L.Push(lua.LBool(m.host.off(id)))
	return 1
}

// emit(path, name, payload?)
// Emits name from the node addressed by path. payload is decoded against the
// catalog; a mismatch raises an error in the calling script.
func (m *busModule) emit(L *lua.LState) int {
	path := L.CheckString(1)
	name := L.CheckString(2)
	payload := L.OptTable(3, nil)

	target := m.resolve(L, path)
	data := NewBridge(L).TableToMap(payload)

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := m.host.adapter.Emit(ctx, target, name, data); err != nil {
		L.RaiseError("emit: %v", err)
	}
	return 0
}

// names() -> {string}
// Returns the catalog's event names.
func (m *busModule) names(L *lua.LState) int {
	names := make([]string, 0)
	if cat, ok := m.host.adapter.Codec().(interface{ Names() []event.Name }); ok {
		for _, n := range cat.Names() {
			names = append(names, n.String())
		}
	}
	L.Push(NewBridge(L).StringsToTable(names))
	return 1
}

// listeners(path, name) -> number
// Returns the number of subscriptions for name at the addressed node.
func (m *busModule) listeners(L *lua.LState) int {
	path := L.CheckString(1)
	name := L.CheckString(2)
	scope := m.resolve(L, path)
	L.Push(lua.LNumber(m.host.adapter.Bus().Listeners(scope, event.Name(name))))
	return 1
}

func (m *busModule) resolve(L *lua.LState, path string) *tree.Node {
	node, err := m.host.root.Find(tree.Path(path))
	if err != nil {
		L.RaiseError("%v", err)
		return nil
	}
	return node
}
