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

	"github.com/google/go-cmp/cmp"
)

func TestTableAccess(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	tbl := s.NewTable()
	defer tbl.Release()
	if err := tbl.Set("answer", 42); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append("first"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append("second"); err != nil {
		t.Fatal(err)
	}

	var answer int
	if err := tbl.Get("answer", &answer); err != nil {
		t.Fatal(err)
	}
	if answer != 42 {
		t.Errorf("answer = %d; want 42", answer)
	}
	if got := tbl.Len(); got != 2 {
		t.Errorf("Len() = %d; want 2", got)
	}
	var second string
	if err := tbl.Get(2, &second); err != nil {
		t.Fatal(err)
	}
	if second != "second" {
		t.Errorf("element 2 = %q; want %q", second, "second")
	}

	var absent *int
	if err := tbl.Get("missing", &absent); err != nil {
		t.Fatal(err)
	}
	if absent != nil {
		t.Errorf("missing key read as %v; want nil", absent)
	}
}

func TestIterator(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Script("t = {red = 1, green = 2, blue = 3}"); err != nil {
		t.Fatal(err)
	}
	tbl, err := s.GetTable("t")
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Release()

	got := make(map[string]int)
	it := tbl.Iterate()
	for it.Next() {
		var k string
		var v int
		if err := it.Key(&k); err != nil {
			t.Fatal(err)
		}
		if err := it.Value(&v); err != nil {
			t.Fatal(err)
		}
		got[k] = v
	}
	want := map[string]int{"red": 1, "green": 2, "blue": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pairs (-want +got):\n%s", diff)
	}
	if it.Next() {
		t.Error("Next() returned true after exhaustion")
	}
}

func TestIteratorEmptyTable(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	tbl := s.NewTable()
	defer tbl.Release()
	it := tbl.Iterate()
	if it.Next() {
		t.Error("Next() returned true for an empty table")
	}
}
