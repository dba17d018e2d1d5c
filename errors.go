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
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// A ConversionError reports that a Lua value could not become the host type
// a conversion asked for (or the reverse).
// Expected and Actual are kind names as Lua spells them ("number", "table", …)
// or Go type names for host-side expectations.
// Arg is the 1-based argument position for conversions performed while
// unmarshalling call arguments, and 0 otherwise.
type ConversionError struct {
	Expected string
	Actual   string
	Arg      int
}

func (e *ConversionError) Error() string {
	if e.Arg > 0 {
		return fmt.Sprintf("luabind: bad argument #%d (%s expected, got %s)", e.Arg, e.Expected, e.Actual)
	}
	return fmt.Sprintf("luabind: cannot convert %s to %s", e.Actual, e.Expected)
}

// at returns a copy of e carrying an argument position.
func (e *ConversionError) at(pos int) *ConversionError {
	e2 := *e
	e2.Arg = pos
	return &e2
}

// A ResolutionError reports that no candidate of an overload set
// accepted the argument count and kinds a call supplied.
type ResolutionError struct {
	// Name is the runtime-visible name the set was bound under.
	Name string
	// NArgs is the number of arguments received.
	NArgs int
	// Kinds are the Lua kind names of the received arguments, in order.
	Kinds []string
	// Candidates are the signatures attempted, in registration order.
	Candidates []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("luabind: no overload of %q accepts (%s); candidates are %s",
		e.Name, strings.Join(e.Kinds, ", "), strings.Join(e.Candidates, "; "))
}

// An InvocationError wraps an error raised by the runtime itself
// or by a host callable invoked through it.
// Value, when not nil, is the runtime's error object.
type InvocationError struct {
	Value lua.LValue
	err   error
}

func (e *InvocationError) Error() string {
	return e.err.Error()
}

func (e *InvocationError) Unwrap() error {
	return e.err
}

// wrapRuntime converts an error returned by the runtime into an
// *InvocationError, preserving the runtime's error object when present.
func wrapRuntime(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *lua.ApiError
	wrapped := fmt.Errorf("luabind: %s: %w", op, err)
	if errors.As(err, &apiErr) {
		return &InvocationError{Value: apiErr.Object, err: wrapped}
	}
	return &InvocationError{err: wrapped}
}

// raise converts an error produced inside a trampoline to the runtime's
// native error channel, so protected script calls observe conversion,
// resolution, and invocation failures uniformly.
// raise does not return.
func raise(l *lua.LState, err error) {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr.Value != nil {
		l.Error(invErr.Value, 1)
		return
	}
	l.RaiseError("%s", err.Error())
}

// kindName names the kind of a Lua value the way Lua error messages do.
func kindName(lv lua.LValue) string {
	if lv == nil {
		return lua.LTNil.String()
	}
	return lv.Type().String()
}
