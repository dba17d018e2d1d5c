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
	"testing"
)

func TestPushSlotCounts(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	n, err := s.Push(1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Push(1) wrote %d slots; want 1", n)
	}
	n, err = s.Push(Values{1, "two", true})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Push(pack of 3) wrote %d slots; want 3", n)
	}
	if got := s.Height(); got != 4 {
		t.Errorf("Height() = %d; want 4", got)
	}

	n, err = s.PushValues("a", 2, Values{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("PushValues wrote %d slots; want 4", n)
	}
	if got := s.Height(); got != 8 {
		t.Errorf("Height() = %d; want 8", got)
	}
}

func TestPushValuesFailureRestoresHeight(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	type unregistered struct{ n int }
	before := s.Height()
	if _, err := s.PushValues(1, "ok", unregistered{}); err == nil {
		t.Fatal("PushValues accepted an unconvertible value")
	}
	if got := s.Height(); got != before {
		t.Errorf("Height() = %d after failed push; want %d", got, before)
	}
}

func TestAbsIndex(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.PushValues(10, 20, 30); err != nil {
		t.Fatal(err)
	}
	if got := s.AbsIndex(-1); got != 3 {
		t.Errorf("AbsIndex(-1) = %d; want 3", got)
	}
	if got := s.AbsIndex(2); got != 2 {
		t.Errorf("AbsIndex(2) = %d; want 2", got)
	}
	var v int
	if err := s.Peek(-3, &v); err != nil {
		t.Fatal(err)
	}
	if v != 10 {
		t.Errorf("Peek(-3) = %d; want 10", v)
	}
}

func TestRemoveAndInsert(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.PushValues(1, 2, 3); err != nil {
		t.Fatal(err)
	}
	s.Remove(2)
	var v int
	if err := s.Peek(2, &v); err != nil {
		t.Fatal(err)
	}
	if v != 3 {
		t.Errorf("slot 2 = %d after Remove(2); want 3", v)
	}
	if got := s.Height(); got != 2 {
		t.Errorf("Height() = %d; want 2", got)
	}

	if _, err := s.Push(9); err != nil {
		t.Fatal(err)
	}
	s.Insert(1)
	if err := s.Peek(1, &v); err != nil {
		t.Fatal(err)
	}
	if v != 9 {
		t.Errorf("slot 1 = %d after Insert(1); want 9", v)
	}
	if got := s.Height(); got != 3 {
		t.Errorf("Height() = %d; want 3", got)
	}
}

func TestStackPanics(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	mustPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		f()
	}
	mustPanic("Pop on empty stack", func() {
		var n int
		s.Pop(&n)
	})
	mustPanic("Peek out of range", func() {
		var n int
		s.Peek(1, &n)
	})
	mustPanic("negative SetHeight", func() { s.SetHeight(-1) })
	mustPanic("nil destination", func() {
		s.Push(1)
		s.Pop(nil)
	})
}
