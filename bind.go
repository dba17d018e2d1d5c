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
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// The binder turns an arbitrary host callable into a single runtime-visible
// function value. Classification happens once at bind time: the callable's
// parameter and result types are read out of its signature and recorded in a
// callState, and the function value the runtime sees is a closure over that
// callState with the runtime's fixed entry signature. Invoking it later
// performs no further signature inspection.
//
// Classification, in priority order:
//
//  1. A lua.LGFunction is installed verbatim. It owns the stack protocol
//     itself, including result count, so its return arity need not be
//     statically known.
//  2. A MethodBinding without a receiver takes its receiver from the first
//     runtime-side argument, which is how obj:method(...) calls arrive.
//  3. A MethodBinding with a receiver captures it at bind time: aliased when
//     supplied through ByRef (the host must keep it alive), copied otherwise
//     (host mutations after binding are not observed).
//  4. An OverloadSet defers to resolution at call time; bind time records
//     the ordered candidate list only.
//  5. Any other func value is bound as a plain function.

// A MethodBinding describes a host function exposed as an object method.
// When recv is nil the receiver is taken from the first runtime argument.
type MethodBinding struct {
	fn   any
	recv any
}

// Method exposes fn, whose first parameter is the receiver, as a method
// whose receiver arrives as the first runtime-side argument.
func Method(fn any) MethodBinding {
	return MethodBinding{fn: fn}
}

// BindMethod exposes fn with recv bound at bind time. Pass recv through
// ByRef to alias it instead of copying.
func BindMethod(fn, recv any) MethodBinding {
	if recv == nil {
		panic("luabind: BindMethod requires a receiver; use Method for stack receivers")
	}
	return MethodBinding{fn: fn, recv: recv}
}

// An OverloadSet is an ordered list of callables bound under one name.
// Registration order is resolution priority.
type OverloadSet []any

// Overload groups candidates into a set resolved per call by argument
// count and kinds.
func Overload(candidates ...any) OverloadSet {
	return OverloadSet(candidates)
}

// callState is everything needed to invoke one specific binding:
// the callable, an optional bind-time receiver, and the parameter and
// result layout read from the callable's signature.
type callState struct {
	name     string
	fn       reflect.Value
	recv     reflect.Value // valid iff a receiver was captured at bind time
	params   []reflect.Type
	variadic bool
	results  []reflect.Type
	errLast  bool
}

// newCallState classifies fn and records its calling convention.
// recv, when valid, is prepended to every invocation; params lists only
// the parameters filled from the runtime stack.
func newCallState(s *State, name string, fn any, recv any) (*callState, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("luabind: bind %s: not a function: %T", name, fn)
	}
	if fv.IsNil() {
		return nil, fmt.Errorf("luabind: bind %s: nil function", name)
	}
	t := fv.Type()
	cs := &callState{name: name, fn: fv, variadic: t.IsVariadic()}

	first := 0
	if recv != nil {
		if t.NumIn() == 0 {
			return nil, fmt.Errorf("luabind: bind %s: receiver supplied but function takes no parameters", name)
		}
		rv, err := receiverValue(recv, t.In(0))
		if err != nil {
			return nil, fmt.Errorf("luabind: bind %s: %w", name, err)
		}
		cs.recv = rv
		first = 1
	}
	for i := first; i < t.NumIn(); i++ {
		pt := t.In(i)
		if cs.variadic && i == t.NumIn()-1 {
			pt = pt.Elem()
		}
		cs.params = append(cs.params, pt)
	}
	for i := 0; i < t.NumOut(); i++ {
		cs.results = append(cs.results, t.Out(i))
	}
	if n := len(cs.results); n > 0 && cs.results[n-1] == errorType {
		cs.errLast = true
		cs.results = cs.results[:n-1]
	}
	return cs, nil
}

// receiverValue produces the value prepended to every call for a bind-time
// receiver. ByRef aliases; anything else is copied into fresh storage.
func receiverValue(recv any, want reflect.Type) (reflect.Value, error) {
	if ref, ok := recv.(Ref); ok {
		rv := reflect.ValueOf(ref.ptr)
		switch {
		case rv.Type().AssignableTo(want):
			return rv, nil
		case rv.Type().Elem().AssignableTo(want):
			// Aliased receiver with a value parameter still observes host
			// mutations: the indirection happens per call.
			return rv, nil
		default:
			return reflect.Value{}, fmt.Errorf("receiver %v does not fit parameter %v", rv.Type(), want)
		}
	}
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("nil receiver")
	}
	switch {
	case rv.Type().AssignableTo(want):
		copied := reflect.New(rv.Type()).Elem()
		copied.Set(rv)
		return copied, nil
	case want.Kind() == reflect.Pointer && rv.Type().AssignableTo(want.Elem()):
		p := reflect.New(want.Elem())
		p.Elem().Set(rv)
		return p, nil
	default:
		return reflect.Value{}, fmt.Errorf("receiver %v does not fit parameter %v", rv.Type(), want)
	}
}

// fixedArity returns the number of stack arguments the binding requires;
// variadic bindings accept any count at or above it.
func (cs *callState) fixedArity() int {
	if cs.variadic {
		return len(cs.params) - 1
	}
	return len(cs.params)
}

// accepts reports whether the nargs stack arguments starting at slot base+1
// of l would all convert. It only reads the stack, so a rejected candidate
// leaves the stack exactly as it found it.
func (cs *callState) accepts(s *State, l *lua.LState, base, nargs int) bool {
	if cs.variadic {
		if nargs < cs.fixedArity() {
			return false
		}
	} else if nargs != len(cs.params) {
		return false
	}
	for i := 0; i < nargs; i++ {
		pt := cs.params[min(i, len(cs.params)-1)]
		if !s.check(l, l.Get(base+i+1), pt) {
			return false
		}
	}
	return true
}

// invoke converts the stack arguments above slot base, calls the underlying
// callable, and pushes its results, returning the number of slots pushed.
func (cs *callState) invoke(s *State, l *lua.LState, base int) (int, error) {
	nargs := l.GetTop() - base
	var in []reflect.Value
	if cs.recv.IsValid() {
		rv := cs.recv
		if want := cs.fn.Type().In(0); !rv.Type().AssignableTo(want) {
			rv = rv.Elem()
		}
		in = append(in, rv)
	}
	fixed := cs.fixedArity()
	for i := 0; i < fixed; i++ {
		arg, err := s.getArg(l, l.Get(base+i+1), cs.params[i], i+1)
		if err != nil {
			return 0, err
		}
		in = append(in, arg)
	}
	if cs.variadic {
		et := cs.params[len(cs.params)-1]
		for i := fixed; i < nargs; i++ {
			arg, err := s.getArg(l, l.Get(base+i+1), et, i+1)
			if err != nil {
				return 0, err
			}
			in = append(in, arg)
		}
	}

	out := cs.fn.Call(in)
	if cs.errLast {
		last := out[len(out)-1]
		if !last.IsNil() {
			return 0, fmt.Errorf("luabind: %s: %w", cs.name, last.Interface().(error))
		}
		out = out[:len(out)-1]
	}

	pushed := 0
	for _, rv := range out {
		n, err := s.pushOn(l, rv.Interface())
		if err != nil {
			return 0, fmt.Errorf("luabind: %s: result: %w", cs.name, err)
		}
		pushed += n
	}
	return pushed, nil
}

// signature renders the binding's parameter list for resolution errors.
func (cs *callState) signature() string {
	parts := make([]string, 0, len(cs.params))
	for i, pt := range cs.params {
		name := pt.String()
		if cs.variadic && i == len(cs.params)-1 {
			name = "..." + name
		}
		parts = append(parts, name)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// trampoline wraps cs in the runtime's fixed entry signature.
// Errors from conversion or from the callable itself are re-raised through
// the runtime's native error channel, so protected calls observe them the
// same way they observe script-raised errors. Panics from the host callable
// are caught and re-raised the same way.
func (cs *callState) trampoline(s *State) lua.LGFunction {
	return func(l *lua.LState) int {
		defer rethrow(l)
		n, err := cs.invoke(s, l, 0)
		if err != nil {
			raise(l, err)
		}
		return n
	}
}

// rethrow converts a panic out of a host callable into a runtime error.
// Errors the runtime itself raises already travel as *lua.ApiError panics
// and pass through untouched.
func rethrow(l *lua.LState) {
	r := recover()
	if r == nil {
		return
	}
	if _, ok := r.(*lua.ApiError); ok {
		panic(r)
	}
	l.RaiseError("host error: %v", r)
}

// bindCallable classifies v and returns the runtime function value that
// invokes it. name is used in error messages only.
func (s *State) bindCallable(name string, v any) (*lua.LFunction, error) {
	switch x := v.(type) {
	case lua.LGFunction:
		return s.ls.NewFunction(x), nil
	case func(*lua.LState) int:
		return s.ls.NewFunction(x), nil
	case MethodBinding:
		cs, err := newCallState(s, name, x.fn, x.recv)
		if err != nil {
			return nil, err
		}
		return s.ls.NewFunction(cs.trampoline(s)), nil
	case OverloadSet:
		ov, err := newOverload(s, name, x)
		if err != nil {
			return nil, err
		}
		return s.ls.NewFunction(ov.trampoline(s)), nil
	default:
		cs, err := newCallState(s, name, v, nil)
		if err != nil {
			return nil, err
		}
		return s.ls.NewFunction(cs.trampoline(s)), nil
	}
}
