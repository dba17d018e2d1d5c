// Copyright 2026 The luabind Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the “Software”), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED “AS IS”, WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// SPDX-License-Identifier: MIT

// Package luabind marshals values and callables between Go and an embedded
// Lua interpreter.
//
// A State owns one interpreter instance. Go functions, methods, and objects
// bound through it become callable values and opaque instances on the Lua
// side; Lua values retrieved through it arrive in statically typed Go
// variables. Callables are classified once at bind time, so invoking them
// from a script performs no signature inspection.
//
// A State and everything derived from it must be driven from one goroutine
// at a time. The package provides no internal locking.
package luabind

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// A State owns one interpreter instance and every handle derived from it.
// Create one with NewState and release it with Close.
type State struct {
	ls       *lua.LState
	coercion bool
	pins     *pinTable
	types    map[string]*TypeDef
	byType   map[reflect.Type]*TypeDef
	objects  map[*Object]struct{}
	closed   bool
}

type config struct {
	coercion  bool
	libraries []string
	allLibs   bool
}

// An Option adjusts NewState behavior.
type Option func(*config)

// WithCoercion enables best-effort coercion on retrieval: numeric strings
// convert to numbers, numbers to strings, and any value to boolean by
// truthiness. Without it every conversion is strict: the value's kind must
// match the destination exactly.
func WithCoercion() Option {
	return func(c *config) {
		c.coercion = true
	}
}

// WithLibraries opens only the named standard libraries instead of the
// full set. Recognized names are "base", "package", "coroutine", "table",
// "io", "os", "string", "math", "debug", and "channel". The module loader
// ("package") is always opened first; the interpreter's other libraries
// assume its plumbing exists. WithLibraries() with no names yields an
// interpreter with the loader alone.
func WithLibraries(names ...string) Option {
	return func(c *config) {
		c.allLibs = false
		c.libraries = names
	}
}

var stdLibraries = map[string]struct {
	libName string
	open    lua.LGFunction
}{
	"base":      {lua.BaseLibName, lua.OpenBase},
	"package":   {lua.LoadLibName, lua.OpenPackage},
	"coroutine": {lua.CoroutineLibName, lua.OpenCoroutine},
	"table":     {lua.TabLibName, lua.OpenTable},
	"io":        {lua.IoLibName, lua.OpenIo},
	"os":        {lua.OsLibName, lua.OpenOs},
	"string":    {lua.StringLibName, lua.OpenString},
	"math":      {lua.MathLibName, lua.OpenMath},
	"debug":     {lua.DebugLibName, lua.OpenDebug},
	"channel":   {lua.ChannelLibName, lua.OpenChannel},
}

// NewState creates an interpreter instance. By default every standard
// library is opened and conversions are strict.
func NewState(opts ...Option) (*State, error) {
	c := &config{allLibs: true}
	for _, opt := range opts {
		opt(c)
	}
	s := &State{
		coercion: c.coercion,
		pins:     newPinTable(),
		types:    make(map[string]*TypeDef),
		byType:   make(map[reflect.Type]*TypeDef),
		objects:  make(map[*Object]struct{}),
	}
	if c.allLibs {
		s.ls = lua.NewState()
		return s, nil
	}
	s.ls = lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := s.OpenLibraries(append([]string{"package"}, c.libraries...)...); err != nil {
		s.ls.Close()
		return nil, err
	}
	return s, nil
}

// OpenLibraries opens the named standard libraries. Opening a library
// twice is harmless.
func (s *State) OpenLibraries(names ...string) error {
	for _, name := range names {
		lib, ok := stdLibraries[name]
		if !ok {
			return fmt.Errorf("luabind: unknown standard library %q", name)
		}
		err := s.ls.CallByParam(lua.P{
			Fn:      s.ls.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.libName))
		if err != nil {
			return fmt.Errorf("luabind: open library %q: %w", name, err)
		}
	}
	return nil
}

// Runtime returns the underlying interpreter for operations this package
// does not surface. Stack changes made through it are the caller's to
// balance.
func (s *State) Runtime() *lua.LState {
	return s.ls
}

// Close releases every live instance, in unspecified order, then shuts the
// interpreter down. Owned instances not yet released run their finalizers
// here, exactly once. Close is idempotent.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for o := range s.objects {
		o.Release()
	}
	s.ls.Close()
}

// Set binds a value under a global name. Funcs, MethodBindings, and
// OverloadSets become callable values; everything else converts like any
// pushed value. Re-binding a name replaces the previous binding.
func (s *State) Set(name string, v any) error {
	lv, err := s.pushAny(s.ls, v)
	if err != nil {
		return fmt.Errorf("luabind: set %s: %w", name, err)
	}
	s.ls.SetGlobal(name, lv)
	return nil
}

// SetFunction binds a callable under a global name.
// It differs from Set only in reporting the binding name in classification
// errors.
func (s *State) SetFunction(name string, fn any) error {
	lfn, err := s.bindCallable(name, fn)
	if err != nil {
		return err
	}
	s.ls.SetGlobal(name, lfn)
	return nil
}

// Get retrieves a global into dst, which must be a non-nil pointer.
// An unset global reads as nil; request a pointer type to observe absence
// instead of a conversion failure.
func (s *State) Get(name string, dst any) error {
	return s.assign(s.ls, s.ls.GetGlobal(name), dst, 0)
}

// GetFunction retrieves a global function as a callable handle.
func (s *State) GetFunction(name string) (*Function, error) {
	var f *Function
	if err := s.Get(name, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// GetTable retrieves a global table as a pinned handle.
func (s *State) GetTable(name string) (*Table, error) {
	var t *Table
	if err := s.Get(name, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// Script runs source as a chunk, discarding its results.
func (s *State) Script(source string) error {
	if err := s.ls.DoString(source); err != nil {
		return wrapRuntime("script", err)
	}
	return nil
}

// ScriptFile runs the chunk in the named file, discarding its results.
func (s *State) ScriptFile(path string) error {
	if err := s.ls.DoFile(path); err != nil {
		return wrapRuntime("script", err)
	}
	return nil
}

// Eval runs source as a chunk and returns its results, lazily convertible.
// Close the Results before unrelated stack use, as with Function.Call.
func (s *State) Eval(source string) (*Results, error) {
	fn, err := s.ls.LoadString(source)
	if err != nil {
		return nil, wrapRuntime("load", err)
	}
	l := s.ls
	base := l.GetTop()
	l.Push(fn)
	if err := l.PCall(0, lua.MultRet, nil); err != nil {
		l.SetTop(base)
		return nil, wrapRuntime("eval", err)
	}
	return &Results{s: s, base: base, n: l.GetTop() - base}, nil
}
