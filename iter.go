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
	lua "github.com/yuin/gopher-lua"
)

// A Table is a pinned handle to a runtime table.
// It stays valid until Release.
type Table struct {
	s   *State
	pin *Value
}

func (s *State) wrapTable(tbl *lua.LTable) *Table {
	return &Table{s: s, pin: s.pinValue(tbl)}
}

// NewTable creates a fresh table, pinned for the host.
func (s *State) NewTable() *Table {
	return s.wrapTable(s.ls.NewTable())
}

func (t *Table) tbl() *lua.LTable {
	return t.pin.lua().(*lua.LTable)
}

// Release unpins the table. The handle must not be used afterward.
func (t *Table) Release() {
	t.pin.Release()
}

// Set stores value under key. Keys and values convert like any pushed
// value; a value expanding to more than one slot is rejected.
func (t *Table) Set(key, value any) error {
	s := t.s
	k, err := s.pushAny(s.ls, key)
	if err != nil {
		return err
	}
	v, err := s.pushAny(s.ls, value)
	if err != nil {
		return err
	}
	s.ls.RawSet(t.tbl(), k, v)
	return nil
}

// Get converts the value stored under key into dst. An absent key reads
// as nil, so a pointer destination reports absence as a nil pointer.
func (t *Table) Get(key, dst any) error {
	s := t.s
	k, err := s.pushAny(s.ls, key)
	if err != nil {
		return err
	}
	return s.assign(s.ls, s.ls.RawGet(t.tbl(), k), dst, 0)
}

// Len reports the sequence length, counting sequential integer keys
// from 1 until the first gap.
func (t *Table) Len() int {
	return t.tbl().Len()
}

// Append stores v at the end of the sequence part.
func (t *Table) Append(v any) error {
	s := t.s
	lv, err := s.pushAny(s.ls, v)
	if err != nil {
		return err
	}
	t.tbl().Append(lv)
	return nil
}

// Scan converts the whole table into dst, which may point at a slice, an
// array, a map, or any other supported destination.
func (t *Table) Scan(dst any) error {
	return t.s.assign(t.s.ls, t.tbl(), dst, 0)
}

// Iterate starts a key/value walk over the table.
// Modifying the table during the walk, other than clearing existing keys,
// leaves the traversal order undefined, as the runtime's own next does.
func (t *Table) Iterate() *Iterator {
	return &Iterator{t: t, key: lua.LNil}
}

// An Iterator walks a table's key/value pairs in runtime order.
// The current key and value are pinned only between Next calls: convert
// them before advancing. Pattern:
//
//	it := tbl.Iterate()
//	for it.Next() {
//		var k string
//		var v int
//		it.Key(&k)
//		it.Value(&v)
//	}
type Iterator struct {
	t     *Table
	key   lua.LValue
	value lua.LValue
	done  bool
}

// Next advances to the next pair, reporting false on exhaustion.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	k, v := it.t.tbl().Next(it.key)
	if k == lua.LNil {
		it.done = true
		it.key, it.value = nil, nil
		return false
	}
	it.key, it.value = k, v
	return true
}

// Key converts the current pair's key into dst.
// It panics when no pair is current.
func (it *Iterator) Key(dst any) error {
	if it.key == nil || it.key == lua.LNil {
		panic("luabind: no current iteration pair")
	}
	return it.t.s.assign(it.t.s.ls, it.key, dst, 0)
}

// Value converts the current pair's value into dst.
// It panics when no pair is current.
func (it *Iterator) Value(dst any) error {
	if it.value == nil {
		panic("luabind: no current iteration pair")
	}
	return it.t.s.assign(it.t.s.ls, it.value, dst, 0)
}
