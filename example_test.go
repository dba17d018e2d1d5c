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

package luabind_test

import (
	"fmt"
	"log"

	"zombiezen.com/go/luabind"
)

func Example() {
	state, err := luabind.NewState()
	if err != nil {
		log.Fatal(err)
	}
	defer state.Close()

	// Bind a Go function under a global name, then call it from a script.
	err = state.SetFunction("add", func(a, b int) int {
		return a + b
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := state.Script("result = add(2, 3)"); err != nil {
		log.Fatal(err)
	}

	var result int
	if err := state.Get("result", &result); err != nil {
		log.Fatal(err)
	}
	fmt.Println(result)
	// Output:
	// 5
}

func ExampleOverload() {
	state, err := luabind.NewState()
	if err != nil {
		log.Fatal(err)
	}
	defer state.Close()

	// Candidates are tried in registration order against the argument
	// count and kinds each call supplies.
	err = state.SetFunction("describe", luabind.Overload(
		func(n int) string { return fmt.Sprintf("number %d", n) },
		func(s string) string { return fmt.Sprintf("string %q", s) },
	))
	if err != nil {
		log.Fatal(err)
	}
	err = state.Script(`
		print(describe(7))
		print(describe('seven'))
	`)
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// number 7
	// string "seven"
}

func ExampleState_NewType() {
	state, err := luabind.NewState()
	if err != nil {
		log.Fatal(err)
	}
	defer state.Close()

	type vector struct {
		x, y float64
	}
	_, err = state.NewType("Vector", vector{}).
		Constructor(func(x, y float64) vector { return vector{x: x, y: y} }).
		Method("length2", func(v *vector) float64 { return v.x*v.x + v.y*v.y }).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	err = state.Script(`
		v = Vector.new(3, 4)
		print(v:length2())
	`)
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// 25
}
