package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// builtinModules are the standard libraries require may return.
var builtinModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	preloaded map[string]bool
}

// NewSandbox creates a sandbox for L. preloaded names the modules registered
// with PreloadModule that require may load.
func NewSandbox(L *lua.LState, preloaded ...string) *Sandbox {
	s := &Sandbox{L: L, preloaded: make(map[string]bool, len(preloaded))}
	for _, name := range preloaded {
		s.preloaded[name] = true
	}
	return s
}

// Install removes the loaders that reach the filesystem or compile arbitrary
// chunks, replaces require and redirects print when printer is non-nil.
func (s *Sandbox) Install(printer func(string)) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	if printer != nil {
		s.installPrint(printer)
	}
	s.installSafeRequire()
}

// Allowed reports whether require may load name.
func (s *Sandbox) Allowed(name string) bool {
	return builtinModules[name] || s.preloaded[name]
}

func (s *Sandbox) installPrint(printer func(string)) {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		printer(strings.Join(parts, "\t"))
		return 0
	}))
}

// installSafeRequire clears the package search paths and replaces require
// with a whitelist check in front of the original.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !s.Allowed(modName) {
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}
