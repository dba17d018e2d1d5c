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

	lua "github.com/yuin/gopher-lua"
)

// A Function is a pinned handle to a runtime function value, callable from
// the host. It stays valid until Release.
type Function struct {
	s   *State
	pin *Value
}

func (s *State) newFunction(fn *lua.LFunction) *Function {
	return &Function{s: s, pin: s.pinValue(fn)}
}

// Release unpins the function. The handle must not be used afterward.
func (f *Function) Release() {
	f.pin.Release()
}

// Call invokes the function under the runtime's protected-call mechanism
// and returns a handle over however many results it produced. Conversion
// is deferred: results the caller never reads are never converted. The
// results stay on the stack until Close, which restores the pre-call
// height; callers must close a Results before making unrelated stack
// operations on the same State.
func (f *Function) Call(args ...any) (*Results, error) {
	s := f.s
	l := s.ls
	base := l.GetTop()
	l.Push(f.pin.lua())
	nargs, err := s.pushAllOn(l, args)
	if err != nil {
		l.SetTop(base)
		return nil, err
	}
	if err := l.PCall(nargs, lua.MultRet, nil); err != nil {
		l.SetTop(base)
		return nil, wrapRuntime("call", err)
	}
	return &Results{s: s, base: base, n: l.GetTop() - base}, nil
}

// Call1 invokes the function and converts its first result into dst.
// Remaining results are discarded; the stack is restored before returning.
func (f *Function) Call1(dst any, args ...any) error {
	r, err := f.Call(args...)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Get(1, dst)
}

// Exec invokes the function and discards all results.
func (f *Function) Exec(args ...any) error {
	r, err := f.Call(args...)
	if err != nil {
		return err
	}
	r.Close()
	return nil
}

// Results is a lazily-converting handle over the values a call produced.
// Positions are 1-based in production order. The values live on the stack:
// the handle is valid until Close and must be closed exactly once per call.
type Results struct {
	s      *State
	base   int
	n      int
	closed bool
}

// Len reports how many results the call produced.
func (r *Results) Len() int {
	return r.n
}

// Get converts result pos (1-based) into dst. A position past the produced
// count reads as nil, matching the runtime's own treatment of absent
// results.
func (r *Results) Get(pos int, dst any) error {
	if r.closed {
		panic("luabind: use of closed results")
	}
	if pos < 1 {
		panic("luabind: result position out of range")
	}
	l := r.s.ls
	lv := lua.LValue(lua.LNil)
	if pos <= r.n {
		lv = l.Get(r.base + pos)
	}
	return r.s.assign(l, lv, dst, 0)
}

// Scan converts the leading results into dsts, one per pointer.
func (r *Results) Scan(dsts ...any) error {
	for i, dst := range dsts {
		if err := r.Get(i+1, dst); err != nil {
			return err
		}
	}
	return nil
}

// Value pins result pos so it survives Close.
func (r *Results) Value(pos int) *Value {
	if r.closed {
		panic("luabind: use of closed results")
	}
	if pos < 1 {
		panic("luabind: result position out of range")
	}
	lv := lua.LValue(lua.LNil)
	if pos <= r.n {
		lv = r.s.ls.Get(r.base + pos)
	}
	return r.s.pinValue(lv)
}

// Close pops the results, restoring the stack to its pre-call height.
// Close is idempotent.
func (r *Results) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.s.ls.SetTop(r.base)
}

// BindFunc fills fnPtr, a non-nil pointer to a Go func variable, with a
// wrapper that invokes f through the call protocol. It panics if fnPtr is
// not a pointer to a func.
func (s *State) BindFunc(f *Function, fnPtr any) {
	rv := reflect.ValueOf(fnPtr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Func {
		panic("luabind: BindFunc requires a non-nil pointer to a func variable")
	}
	rv.Elem().Set(s.makeFunc(rv.Elem().Type(), f))
}

// makeFunc wraps a runtime function as a host func value of type t, so a
// script-supplied callback can be stored in an ordinary Go field. If t's
// last result is an error, call failures surface there; otherwise they
// panic, since the signature leaves no error channel.
func (s *State) makeFunc(t reflect.Type, f *Function) reflect.Value {
	nOut := t.NumOut()
	errOut := nOut > 0 && t.Out(nOut-1) == errorType
	if errOut {
		nOut--
	}
	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		args := make([]any, 0, len(in))
		for i, rv := range in {
			if t.IsVariadic() && i == len(in)-1 {
				for j := 0; j < rv.Len(); j++ {
					args = append(args, rv.Index(j).Interface())
				}
				continue
			}
			args = append(args, rv.Interface())
		}
		out := make([]reflect.Value, 0, t.NumOut())
		fail := func(err error) []reflect.Value {
			if !errOut {
				panic(fmt.Errorf("luabind: callback: %w", err))
			}
			out = out[:0]
			for i := 0; i < nOut; i++ {
				out = append(out, reflect.Zero(t.Out(i)))
			}
			return append(out, reflect.ValueOf(err))
		}
		r, err := f.Call(args...)
		if err != nil {
			return fail(err)
		}
		defer r.Close()
		for i := 0; i < nOut; i++ {
			rv := reflect.New(t.Out(i))
			if err := r.Get(i+1, rv.Interface()); err != nil {
				return fail(err)
			}
			out = append(out, rv.Elem())
		}
		if errOut {
			out = append(out, reflect.Zero(errorType))
		}
		return out
	})
}
