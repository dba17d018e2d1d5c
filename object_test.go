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
	"fmt"
	"strings"
	"testing"
)

type counter struct {
	n int
}

func registerCounter(t *testing.T, s *State, finalized *int) *TypeDef {
	t.Helper()
	b := s.NewType("Counter", counter{}).
		Constructor(func() counter { return counter{} }).
		Constructor(func(start int) counter { return counter{n: start} }).
		Method("incr", func(c *counter, delta int) { c.n += delta }).
		Method("value", func(c *counter) int { return c.n }).
		Func("describe", func() string { return "a counting thing" }).
		Stringer(func(c *counter) string { return fmt.Sprintf("Counter(%d)", c.n) })
	if finalized != nil {
		b = b.Finalizer(func(c *counter) { *finalized++ })
	}
	def, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func TestMethodReceiverIdentity(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	err = s.Script(`
		obj = Counter.new()
		obj:incr(7)
		got = obj:value()
	`)
	if err != nil {
		t.Fatal(err)
	}
	var got int
	if err := s.Get("got", &got); err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("obj:value() = %d after obj:incr(7); want 7", got)
	}

	// The receiver the method observed is the same record as obj.
	var o *Object
	if err := s.Get("obj", &o); err != nil {
		t.Fatal(err)
	}
	if c := o.Value().(*counter); c.n != 7 {
		t.Errorf("record holds %d; want the method's mutation 7", c.n)
	}
}

func TestConstructorOverloads(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	err = s.Script(`
		a = Counter.new():value()
		b = Counter.new(9):value()
		c = Counter:new(3):value()
	`)
	if err != nil {
		t.Fatal(err)
	}
	var a, b, c int
	if err := s.Get("a", &a); err != nil {
		t.Fatal(err)
	}
	if err := s.Get("b", &b); err != nil {
		t.Fatal(err)
	}
	if err := s.Get("c", &c); err != nil {
		t.Fatal(err)
	}
	if a != 0 || b != 9 || c != 3 {
		t.Errorf("constructors produced (%d, %d, %d); want (0, 9, 3)", a, b, c)
	}
}

func TestTypeTableFunctions(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	if err := s.Script("d = Counter.describe()"); err != nil {
		t.Fatal(err)
	}
	var d string
	if err := s.Get("d", &d); err != nil {
		t.Fatal(err)
	}
	if d != "a counting thing" {
		t.Errorf("Counter.describe() = %q", d)
	}
}

func TestStringer(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	if err := s.Script("rendered = tostring(Counter.new(5))"); err != nil {
		t.Fatal(err)
	}
	var rendered string
	if err := s.Get("rendered", &rendered); err != nil {
		t.Fatal(err)
	}
	if rendered != "Counter(5)" {
		t.Errorf("tostring = %q; want %q", rendered, "Counter(5)")
	}
}

func TestOwnedValueIsACopy(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	src := counter{n: 1}
	if err := s.Set("c", src); err != nil {
		t.Fatal(err)
	}
	src.n = 99
	if err := s.Script("got = c:value()"); err != nil {
		t.Fatal(err)
	}
	var got int
	if err := s.Get("got", &got); err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("owned instance observed %d; want the bind-time copy 1", got)
	}
}

func TestAliasObservesHostMutations(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	final := 0
	registerCounter(t, s, &final)

	host := counter{n: 1}
	if err := s.Set("c", &host); err != nil {
		t.Fatal(err)
	}
	if err := s.Script("c:incr(2)"); err != nil {
		t.Fatal(err)
	}
	if host.n != 3 {
		t.Errorf("host value = %d after script mutation; want 3", host.n)
	}
	host.n = 10
	if err := s.Script("got = c:value()"); err != nil {
		t.Fatal(err)
	}
	var got int
	if err := s.Get("got", &got); err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("alias observed %d; want the host mutation 10", got)
	}

	s.Close()
	if final != 0 {
		t.Errorf("finalizer ran %d times for an alias; want 0", final)
	}
}

func TestFinalizerRunsExactlyOnce(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	final := 0
	registerCounter(t, s, &final)

	o, err := s.Wrap(counter{n: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got := o.Mode(); got != OwnedValue {
		t.Fatalf("Mode() = %v; want %v", got, OwnedValue)
	}
	o.Release()
	o.Release()
	if final != 1 {
		t.Fatalf("finalizer ran %d times after double release; want 1", final)
	}
	s.Close()
	if final != 1 {
		t.Errorf("finalizer ran %d times after Close; want 1", final)
	}
}

func TestCloseReleasesUnreleasedInstances(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	final := 0
	registerCounter(t, s, &final)

	if _, err := s.Wrap(counter{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Wrap(counter{}); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if final != 2 {
		t.Errorf("finalizer ran %d times after Close; want 2", final)
	}
}

func TestSharedOwnership(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	released := 0
	host := &counter{n: 8}
	sh := NewShared(host, func() { released++ })
	if got := sh.Refs(); got != 1 {
		t.Fatalf("Refs() = %d at creation; want 1", got)
	}

	o, err := s.WrapShared(sh)
	if err != nil {
		t.Fatal(err)
	}
	if got := sh.Refs(); got != 2 {
		t.Errorf("Refs() = %d while bound; want 2", got)
	}
	if err := s.Set("c", o); err != nil {
		t.Fatal(err)
	}
	if err := s.Script("got = c:value()"); err != nil {
		t.Fatal(err)
	}
	var got int
	if err := s.Get("got", &got); err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("shared instance observed %d; want 8", got)
	}

	o.Release()
	if got := sh.Refs(); got != 1 {
		t.Errorf("Refs() = %d after instance release; want the pre-binding count 1", got)
	}
	if released != 0 {
		t.Errorf("shared value destroyed while the host still holds a reference")
	}
	sh.Release()
	if released != 1 {
		t.Errorf("release hook ran %d times; want 1", released)
	}
}

func TestSharedReleasedByClose(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	registerCounter(t, s, nil)

	sh := NewShared(&counter{}, nil)
	if err := s.Set("c", sh); err != nil {
		t.Fatal(err)
	}
	if got := sh.Refs(); got != 2 {
		t.Fatalf("Refs() = %d while bound; want 2", got)
	}
	s.Close()
	if got := sh.Refs(); got != 1 {
		t.Errorf("Refs() = %d after Close; want the pre-binding count 1", got)
	}
}

func TestRecordIdentityEquality(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	host := counter{n: 1}
	// Two aliases of one host value name the same storage; a fresh owned
	// instance does not.
	if err := s.Set("a", &host); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("b", &host); err != nil {
		t.Fatal(err)
	}
	if err := s.Script("same = (a == b); distinct = (a == Counter.new(1))"); err != nil {
		t.Fatal(err)
	}
	var same, distinct bool
	if err := s.Get("same", &same); err != nil {
		t.Fatal(err)
	}
	if err := s.Get("distinct", &distinct); err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("aliases of one host value compared unequal")
	}
	if distinct {
		t.Error("distinct instances compared equal")
	}
}

func TestWrapRejectsUnregisteredTypes(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	type stranger struct{ x int }
	if _, err := s.Wrap(stranger{}); err == nil {
		t.Error("Wrap accepted an unregistered type")
	}
	if err := s.Set("v", stranger{}); err == nil {
		t.Error("Set accepted an unregistered struct")
	} else if !strings.Contains(err.Error(), "register") {
		t.Errorf("error %q does not point at type registration", err)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	registerCounter(t, s, nil)

	if _, err := s.NewType("Counter2", counter{}).Build(); err == nil {
		t.Error("second registration of the same Go type succeeded")
	}
}
