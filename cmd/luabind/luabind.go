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

// luabind is a standalone Lua interpreter built on the luabind runtime.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"zombiezen.com/go/luabind"
)

func main() {
	programName := "luabind"
	if len(os.Args) > 0 && os.Args[0] != "" {
		programName = filepath.Base(os.Args[0])
	}
	err := run(programName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func run(programName string) error {
	var stats stringsFlag
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] [script [args]]\n", programName)
		flag.PrintDefaults()
	}
	flag.Var(&stats, "e", "execute string '`stat`'")
	interactive := flag.Bool("i", false, "enter interactive mode after executing 'script'")
	showVersion := flag.Bool("v", false, "show version information")
	coerce := flag.Bool("coerce", false, "enable best-effort value coercion on retrieval")
	flag.Parse()

	if *showVersion || *interactive {
		fmt.Println(lua.PackageCopyRight)
	}

	var opts []luabind.Option
	if *coerce {
		opts = append(opts, luabind.WithCoercion())
	}
	s, err := luabind.NewState(opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := createArgTable(s, flag.Args()); err != nil {
		return err
	}
	for _, stat := range stats {
		if err := s.Script(stat); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		}
	}
	if flag.NArg() > 0 {
		if err := s.ScriptFile(flag.Arg(0)); err != nil {
			return err
		}
	}
	if *interactive || (flag.NArg() == 0 && len(stats) == 0 && !*showVersion) {
		if flag.NArg() == 0 && len(stats) == 0 && !*showVersion && !*interactive {
			fmt.Println(lua.PackageCopyRight)
		}
		return doREPL(s)
	}
	return nil
}

// createArgTable exposes the script name and its trailing arguments as the
// conventional global arg table: arg[0] is the script, arg[1..] follow.
func createArgTable(s *luabind.State, args []string) error {
	tbl := s.NewTable()
	defer tbl.Release()
	for i, a := range args {
		if err := tbl.Set(i, a); err != nil {
			return fmt.Errorf("create arg table: %v", err)
		}
	}
	return s.Set("arg", tbl)
}

func doREPL(s *luabind.State) error {
	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)
	for {
		src, err := readChunk(rl)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		rl.AppendHistory(src)
		printResults(s, src)
	}
}

// readChunk reads one loadable chunk, continuing onto further lines while
// the parser reports an unfinished construct.
func readChunk(rl *liner.State) (string, error) {
	line, err := rl.Prompt("> ")
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(line, "=") {
		line = "return " + line[1:]
	}
	for {
		if _, err := parse.Parse(strings.NewReader(line), "stdin"); !isIncomplete(err) {
			return line, nil
		}
		next, err := rl.Prompt(">> ")
		if err != nil {
			return "", err
		}
		line += "\n" + next
	}
}

// printResults runs src, printing its results or, failing that, the same
// source wrapped in a return so bare expressions echo their value.
func printResults(s *luabind.State, src string) {
	r, err := s.Eval(src)
	if err != nil && !strings.HasPrefix(src, "return ") {
		if r2, err2 := s.Eval("return " + src); err2 == nil {
			r, err = r2, nil
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer r.Close()
	if r.Len() == 0 {
		return
	}
	parts := make([]string, r.Len())
	for i := range parts {
		var v any
		if err := r.Get(i+1, &v); err != nil {
			parts[i] = fmt.Sprintf("<%v>", err)
			continue
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	fmt.Println(strings.Join(parts, "\t"))
}

// isIncomplete reports whether err is a parse failure caused by the chunk
// ending mid-construct, the signal to keep reading lines.
func isIncomplete(err error) bool {
	if err == nil {
		return false
	}
	var perr *parse.Error
	if errors.As(err, &perr) {
		return perr.Pos.Line == parse.EOF
	}
	return false
}

type stringsFlag []string

func (f *stringsFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *stringsFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
