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

package luabind

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// pinTable is the per-State registry of pinned runtime values.
// A value stays reachable from the host for exactly as long as it occupies
// a slot, which is the pin guarantee: the runtime's collector cannot reclaim
// a value the host can still reach through the registry.
// Slots are reused through a free list, as luaL_ref does.
type pinTable struct {
	slots map[int]lua.LValue
	free  []int
	next  int
}

func newPinTable() *pinTable {
	return &pinTable{
		slots: make(map[int]lua.LValue),
		next:  1,
	}
}

func (p *pinTable) pin(lv lua.LValue) int {
	var ref int
	if n := len(p.free); n > 0 {
		ref = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		ref = p.next
		p.next++
	}
	p.slots[ref] = lv
	return ref
}

func (p *pinTable) unpin(ref int) {
	if _, ok := p.slots[ref]; !ok {
		return
	}
	delete(p.slots, ref)
	p.free = append(p.free, ref)
}

// count reports the number of live pins. Used by tests and diagnostics.
func (p *pinTable) count() int {
	return len(p.slots)
}

// A Value is a pinned handle to a runtime-managed value.
// It stays valid across unrelated stack churn until Release is called;
// there is no way to reach the underlying value through a released handle.
type Value struct {
	s        *State
	lv       lua.LValue
	ref      int
	released bool
}

// pinValue pins lv and returns the owning handle.
func (s *State) pinValue(lv lua.LValue) *Value {
	return &Value{
		s:   s,
		lv:  lv,
		ref: s.pins.pin(lv),
	}
}

// lua returns the pinned runtime value.
// It panics if the pin has been released.
func (v *Value) lua() lua.LValue {
	if v.released {
		panic("luabind: use of released value")
	}
	return v.lv
}

// Scan converts the pinned value into dst, which must be a non-nil pointer
// to a supported host type.
func (v *Value) Scan(dst any) error {
	return v.s.assign(v.s.ls, v.lua(), dst, 0)
}

// Kind reports the Lua kind of the pinned value.
func (v *Value) Kind() string {
	return kindName(v.lua())
}

// Release unpins the value.
// The runtime is free to reclaim it afterward; the handle must not be used
// again. Release is idempotent.
func (v *Value) Release() {
	if v.released {
		return
	}
	v.s.pins.unpin(v.ref)
	v.lv = nil
	v.released = true
}

// assign converts lv into dst, which must be a non-nil pointer.
// pos carries the argument position for error reporting (0 when not an
// argument).
func (s *State) assign(l *lua.LState, lv lua.LValue, dst any, pos int) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		panic("luabind: conversion destination must be a non-nil pointer")
	}
	elem := rv.Elem()
	if s.strict() && !s.check(l, lv, elem.Type()) {
		return (&ConversionError{
			Expected: expectedName(s, elem.Type()),
			Actual:   kindName(lv),
		}).at(pos)
	}
	if err := s.get(l, lv, elem); err != nil {
		var convErr *ConversionError
		if pos > 0 && asConversion(err, &convErr) {
			return convErr.at(pos)
		}
		return err
	}
	return nil
}
