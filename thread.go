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
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ThreadStatus is a secondary execution context's reported state.
type ThreadStatus string

const (
	ThreadSuspended ThreadStatus = "suspended"
	ThreadRunning   ThreadStatus = "running"
	ThreadNormal    ThreadStatus = "normal"
	ThreadDead      ThreadStatus = "dead"
)

// A Thread is a cooperative secondary execution context: a logically
// separate stack sharing the parent State's globals. It carries the same
// single-driver requirement as the State itself: resume it from one call
// site at a time, with no internal locking. Suspension is opaque to the
// host; the only corrective signal is the reported status.
type Thread struct {
	s      *State
	co     *lua.LState
	cancel context.CancelFunc
}

// NewThread creates a suspended secondary context.
func (s *State) NewThread() *Thread {
	co, cancel := s.ls.NewThread()
	return &Thread{s: s, co: co, cancel: cancel}
}

// Status reports the context's state. A dead context is terminal: the
// only recourse is creating a new one.
func (t *Thread) Status() ThreadStatus {
	return ThreadStatus(t.s.ls.Status(t.co))
}

// Resume starts or continues fn on the thread. The returned values are
// what the function yielded, or its final results if it finished; check
// Status to tell the two apart. Resuming a dead thread is an error.
func (t *Thread) Resume(fn *Function, args ...any) (Values, error) {
	if t.Status() == ThreadDead {
		return nil, fmt.Errorf("luabind: resume: thread is dead")
	}
	largs := make([]lua.LValue, 0, len(args))
	for i, a := range args {
		lv, err := t.s.pushAny(t.s.ls, a)
		if err != nil {
			var convErr *ConversionError
			if asConversion(err, &convErr) {
				return nil, convErr.at(i + 1)
			}
			return nil, err
		}
		largs = append(largs, lv)
	}
	_, err, rets := t.s.ls.Resume(t.co, fn.pin.lua().(*lua.LFunction), largs...)
	if err != nil {
		return nil, wrapRuntime("resume", err)
	}
	out := make(Values, 0, len(rets))
	for _, lv := range rets {
		out = append(out, t.s.toGoValue(lv))
	}
	return out, nil
}

// Close abandons the context. A suspended function never observes a
// cancellation signal; it simply is never resumed again.
func (t *Thread) Close() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
