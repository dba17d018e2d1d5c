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

// Primitive operations over the runtime's evaluation stack.
// Positions are 1-based from the bottom; negative positions count back from
// the top, so -1 is the top slot. A position is a transient coordinate:
// any push or pop below it shifts what it names.

// Height returns the number of occupied stack slots.
func (s *State) Height() int {
	return s.ls.GetTop()
}

// SetHeight grows or truncates the stack to exactly n slots.
// New slots are filled with nil. It panics if n is negative.
func (s *State) SetHeight(n int) {
	if n < 0 {
		panic("luabind: negative stack height")
	}
	s.ls.SetTop(n)
}

// AbsIndex converts a possibly negative stack position into an absolute one.
// The result stays stable across later pushes, which a relative position
// does not.
func (s *State) AbsIndex(pos int) int {
	if pos >= 0 {
		return pos
	}
	return s.ls.GetTop() + pos + 1
}

// Push converts v to its runtime form and pushes it, returning the number
// of slots written. Most values occupy one slot; Values packs expand to
// one slot per element. On error nothing is pushed.
func (s *State) Push(v any) (int, error) {
	return s.pushOn(s.ls, v)
}

// PushValues pushes each value left to right and returns the total number
// of slots written. If any value fails to convert, slots written by earlier
// values are removed again and the stack is left at its prior height.
func (s *State) PushValues(vs ...any) (int, error) {
	return s.pushAllOn(s.ls, vs)
}

func (s *State) pushOn(l *lua.LState, v any) (int, error) {
	lvs, err := s.push(l, reflect.ValueOf(v))
	if err != nil {
		return 0, err
	}
	for _, lv := range lvs {
		l.Push(lv)
	}
	return len(lvs), nil
}

func (s *State) pushAllOn(l *lua.LState, vs []any) (int, error) {
	base := l.GetTop()
	n := 0
	for i, v := range vs {
		wrote, err := s.pushOn(l, v)
		if err != nil {
			l.SetTop(base)
			var convErr *ConversionError
			if asConversion(err, &convErr) {
				return 0, convErr.at(i + 1)
			}
			return 0, err
		}
		n += wrote
	}
	return n, nil
}

// Pop consumes the top stack slot into dst, which must be a non-nil pointer
// to a supported host type. On conversion failure the slot is left in place
// so the caller can inspect or discard it.
// Pop panics if the stack is empty.
func (s *State) Pop(dst any) error {
	l := s.ls
	if l.GetTop() == 0 {
		panic("luabind: pop from empty stack")
	}
	lv := l.Get(-1)
	if err := s.assign(l, lv, dst, 0); err != nil {
		return err
	}
	l.Pop(1)
	return nil
}

// Peek converts the stack slot at pos into dst without consuming it.
// It panics if pos does not name an occupied slot.
func (s *State) Peek(pos int, dst any) error {
	l := s.ls
	abs := s.AbsIndex(pos)
	if abs < 1 || abs > l.GetTop() {
		panic("luabind: stack position out of range")
	}
	return s.assign(l, l.Get(abs), dst, 0)
}

// Remove deletes the slot at pos, shifting the slots above it down.
// It panics if pos does not name an occupied slot.
func (s *State) Remove(pos int) {
	l := s.ls
	abs := s.AbsIndex(pos)
	if abs < 1 || abs > l.GetTop() {
		panic("luabind: stack position out of range")
	}
	l.Remove(abs)
}

// Insert moves the top slot to pos, shifting the slots at and above pos up.
// It panics if pos does not name an occupied slot.
func (s *State) Insert(pos int) {
	l := s.ls
	abs := s.AbsIndex(pos)
	if abs < 1 || abs > l.GetTop() {
		panic("luabind: stack position out of range")
	}
	l.Insert(l.Get(-1), abs)
	l.Pop(1)
}
