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

// overload is the call-time form of an OverloadSet: an immutable ordered
// candidate list sharing one runtime-visible name.
type overload struct {
	name  string
	cands []*callState
}

// newOverload classifies each candidate up front so resolution at call time
// reads recorded metadata only.
func newOverload(s *State, name string, set OverloadSet) (*overload, error) {
	ov := &overload{name: name}
	for _, cand := range set {
		var cs *callState
		var err error
		switch x := cand.(type) {
		case MethodBinding:
			cs, err = newCallState(s, name, x.fn, x.recv)
		default:
			cs, err = newCallState(s, name, cand, nil)
		}
		if err != nil {
			return nil, err
		}
		ov.cands = append(ov.cands, cs)
	}
	return ov, nil
}

// resolve picks and invokes the first candidate, in registration order,
// that accepts the argument count and kinds on the stack above slot base.
// There is no best-match search: the first acceptor wins. A rejected
// candidate never touches the stack, so every candidate sees the same
// arguments.
func (ov *overload) resolve(s *State, l *lua.LState, base int) (int, error) {
	nargs := l.GetTop() - base
	for _, cs := range ov.cands {
		if cs.accepts(s, l, base, nargs) {
			return cs.invoke(s, l, base)
		}
	}
	kinds := make([]string, nargs)
	for i := range kinds {
		kinds[i] = kindName(l.Get(base + i + 1))
	}
	sigs := make([]string, len(ov.cands))
	for i, cs := range ov.cands {
		sigs[i] = cs.signature()
	}
	return 0, &ResolutionError{
		Name:       ov.name,
		NArgs:      nargs,
		Kinds:      kinds,
		Candidates: sigs,
	}
}

func (ov *overload) trampoline(s *State) lua.LGFunction {
	return func(l *lua.LState) int {
		defer rethrow(l)
		n, err := ov.resolve(s, l, 0)
		if err != nil {
			raise(l, err)
		}
		return n
	}
}
