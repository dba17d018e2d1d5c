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
	"math"
	"reflect"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// The conversion registry dispatches on the static Go type of the host-side
// value, selected once per conversion site rather than by inspecting the
// runtime value. Each supported category has the same three strategies:
//
//   - check: does this runtime value become the host type without failing?
//   - get: extract the host value.
//   - push: place the host value onto the runtime side as 1..N values.
//
// check accepts if and only if get will not fail under the active
// strictness policy; multi-value pushes declare their count through the
// length of the slice push returns, so tuples compose under PushValues.

var (
	luaValueType = reflect.TypeOf((*lua.LValue)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	byteSlice    = reflect.TypeOf([]byte(nil))
)

// Values is an ordered pack of host values that expands to one runtime value
// per element when pushed. It is the host-side spelling of a multi-value
// result or argument tuple.
type Values []any

// Ref marks a bind-time receiver as aliased rather than copied.
// The pointer it wraps must stay alive for as long as the binding exists.
type Ref struct {
	ptr any
}

// ByRef wraps a pointer for aliased receiver binding.
// It panics if p is not a pointer.
func ByRef(p any) Ref {
	if reflect.ValueOf(p).Kind() != reflect.Pointer {
		panic("luabind: ByRef requires a pointer")
	}
	return Ref{ptr: p}
}

func (s *State) strict() bool {
	return !s.coercion
}

func asConversion(err error, dst **ConversionError) bool {
	return errors.As(err, dst)
}

// expectedName names the Lua kind a host type expects, for error messages.
func expectedName(s *State, t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array, reflect.Map:
		if t == byteSlice {
			return "string"
		}
		return "table"
	case reflect.Func:
		return "function"
	case reflect.Pointer:
		if def := s.byType[t.Elem()]; def != nil {
			return def.name
		}
		return "nil or " + expectedName(s, t.Elem())
	case reflect.Struct:
		if def := s.byType[t]; def != nil {
			return def.name
		}
	}
	switch t {
	case reflect.TypeOf((*Function)(nil)), reflect.TypeOf((*lua.LFunction)(nil)):
		return "function"
	case reflect.TypeOf((*Table)(nil)), reflect.TypeOf((*lua.LTable)(nil)):
		return "table"
	}
	return t.String()
}

// check reports whether lv can become a host value of type t.
// It never touches the stack; overload resolution depends on that.
func (s *State) check(l *lua.LState, lv lua.LValue, t reflect.Type) bool {
	if t == anyType || t == luaValueType {
		return true
	}
	if t.Implements(luaValueType) {
		return reflect.TypeOf(lv) == t
	}
	switch t {
	case reflect.TypeOf((*Function)(nil)):
		return lv.Type() == lua.LTFunction
	case reflect.TypeOf((*Table)(nil)):
		return lv.Type() == lua.LTTable
	case reflect.TypeOf((*Value)(nil)):
		return true
	case reflect.TypeOf((*Object)(nil)):
		return objectAt(lv) != nil
	case reflect.TypeOf((*Shared)(nil)):
		o := objectAt(lv)
		return o != nil && o.mode == SharedOwner
	}
	if def := s.byType[t]; def != nil {
		o := objectAt(lv)
		return o != nil && o.def == def
	}
	switch t.Kind() {
	case reflect.Bool:
		return lv.Type() == lua.LTBool || s.coercion
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := s.number(lv)
		if !ok {
			return false
		}
		i := int64(n)
		return float64(i) == n && !reflect.New(t).Elem().OverflowInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := s.number(lv)
		if !ok || n < 0 {
			return false
		}
		u := uint64(n)
		return float64(u) == n && !reflect.New(t).Elem().OverflowUint(u)
	case reflect.Float32, reflect.Float64:
		_, ok := s.number(lv)
		return ok
	case reflect.String:
		_, ok := s.stringValue(lv)
		return ok
	case reflect.Slice:
		if t == byteSlice {
			_, ok := s.stringValue(lv)
			return ok
		}
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return false
		}
		for i := 1; ; i++ {
			ev := tbl.RawGetInt(i)
			if ev == lua.LNil {
				return true
			}
			if !s.check(l, ev, t.Elem()) {
				return false
			}
		}
	case reflect.Array:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return false
		}
		for i := 1; i <= t.Len(); i++ {
			ev := tbl.RawGetInt(i)
			if ev == lua.LNil || !s.check(l, ev, t.Elem()) {
				return false
			}
		}
		return tbl.RawGetInt(t.Len()+1) == lua.LNil
	case reflect.Map:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return false
		}
		ok = true
		tbl.ForEach(func(k, v lua.LValue) {
			if !s.check(l, k, t.Key()) || !s.check(l, v, t.Elem()) {
				ok = false
			}
		})
		return ok
	case reflect.Pointer:
		if lv == lua.LNil {
			return true
		}
		if def := s.byType[t.Elem()]; def != nil {
			o := objectAt(lv)
			return o != nil && o.def == def
		}
		return s.check(l, lv, t.Elem())
	case reflect.Func:
		return lv.Type() == lua.LTFunction
	}
	return false
}

// get extracts lv into dst, an addressable value of the destination type.
// Callers that enforce strict checking run check first; get itself performs
// the best-effort path and reports a ConversionError on total mismatch.
func (s *State) get(l *lua.LState, lv lua.LValue, dst reflect.Value) error {
	t := dst.Type()
	if t == anyType {
		if g := s.toGoValue(lv); g != nil {
			dst.Set(reflect.ValueOf(g))
		} else {
			dst.Set(reflect.Zero(anyType))
		}
		return nil
	}
	if t == luaValueType {
		dst.Set(reflect.ValueOf(lv))
		return nil
	}
	if t.Implements(luaValueType) {
		if reflect.TypeOf(lv) != t {
			return s.convErr(t, lv)
		}
		dst.Set(reflect.ValueOf(lv))
		return nil
	}
	switch t {
	case reflect.TypeOf((*Function)(nil)):
		fn, ok := lv.(*lua.LFunction)
		if !ok {
			return s.convErr(t, lv)
		}
		dst.Set(reflect.ValueOf(s.newFunction(fn)))
		return nil
	case reflect.TypeOf((*Table)(nil)):
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return s.convErr(t, lv)
		}
		dst.Set(reflect.ValueOf(s.wrapTable(tbl)))
		return nil
	case reflect.TypeOf((*Value)(nil)):
		dst.Set(reflect.ValueOf(s.pinValue(lv)))
		return nil
	case reflect.TypeOf((*Object)(nil)):
		o := objectAt(lv)
		if o == nil {
			return s.convErr(t, lv)
		}
		dst.Set(reflect.ValueOf(o))
		return nil
	case reflect.TypeOf((*Shared)(nil)):
		o := objectAt(lv)
		if o == nil || o.mode != SharedOwner {
			return s.convErr(t, lv)
		}
		dst.Set(reflect.ValueOf(o.shared))
		return nil
	}
	if def := s.byType[t]; def != nil {
		o := objectAt(lv)
		if o == nil || o.def != def {
			return s.convErr(t, lv)
		}
		dst.Set(o.store.Elem())
		return nil
	}
	switch t.Kind() {
	case reflect.Bool:
		if b, ok := lv.(lua.LBool); ok {
			dst.SetBool(bool(b))
			return nil
		}
		if s.coercion {
			dst.SetBool(lua.LVAsBool(lv))
			return nil
		}
		return s.convErr(t, lv)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := s.number(lv)
		if !ok {
			return s.convErr(t, lv)
		}
		i := int64(n)
		if float64(i) != n {
			return &ConversionError{Expected: "integer", Actual: "number"}
		}
		if dst.OverflowInt(i) {
			return &ConversionError{Expected: t.String(), Actual: "number"}
		}
		dst.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := s.number(lv)
		if !ok {
			return s.convErr(t, lv)
		}
		if n < 0 {
			return &ConversionError{Expected: t.String(), Actual: "number"}
		}
		u := uint64(n)
		if float64(u) != n || dst.OverflowUint(u) {
			return &ConversionError{Expected: t.String(), Actual: "number"}
		}
		dst.SetUint(u)
		return nil
	case reflect.Float32, reflect.Float64:
		n, ok := s.number(lv)
		if !ok {
			return s.convErr(t, lv)
		}
		dst.SetFloat(n)
		return nil
	case reflect.String:
		str, ok := s.stringValue(lv)
		if !ok {
			return s.convErr(t, lv)
		}
		dst.SetString(str)
		return nil
	case reflect.Slice:
		if t == byteSlice {
			str, ok := s.stringValue(lv)
			if !ok {
				return s.convErr(t, lv)
			}
			dst.SetBytes([]byte(str))
			return nil
		}
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return s.convErr(t, lv)
		}
		out := reflect.MakeSlice(t, 0, tbl.Len())
		for i := 1; ; i++ {
			ev := tbl.RawGetInt(i)
			if ev == lua.LNil {
				break
			}
			elem := reflect.New(t.Elem()).Elem()
			if err := s.get(l, ev, elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			out = reflect.Append(out, elem)
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return s.convErr(t, lv)
		}
		for i := 0; i < t.Len(); i++ {
			ev := tbl.RawGetInt(i + 1)
			if ev == lua.LNil {
				return &ConversionError{
					Expected: fmt.Sprintf("table of %d elements", t.Len()),
					Actual:   fmt.Sprintf("table of %d elements", i),
				}
			}
			if err := s.get(l, ev, dst.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i+1, err)
			}
		}
		return nil
	case reflect.Map:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return s.convErr(t, lv)
		}
		out := reflect.MakeMap(t)
		var convErr error
		tbl.ForEach(func(k, v lua.LValue) {
			if convErr != nil {
				return
			}
			key := reflect.New(t.Key()).Elem()
			if err := s.get(l, k, key); err != nil {
				convErr = fmt.Errorf("key %s: %w", kindName(k), err)
				return
			}
			val := reflect.New(t.Elem()).Elem()
			if err := s.get(l, v, val); err != nil {
				convErr = fmt.Errorf("value for key %v: %w", key.Interface(), err)
				return
			}
			out.SetMapIndex(key, val)
		})
		if convErr != nil {
			return convErr
		}
		dst.Set(out)
		return nil
	case reflect.Pointer:
		if lv == lua.LNil {
			dst.Set(reflect.Zero(t))
			return nil
		}
		if def := s.byType[t.Elem()]; def != nil {
			o := objectAt(lv)
			if o == nil || o.def != def {
				return s.convErr(t, lv)
			}
			dst.Set(o.store)
			return nil
		}
		p := reflect.New(t.Elem())
		if err := s.get(l, lv, p.Elem()); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Func:
		fn, ok := lv.(*lua.LFunction)
		if !ok {
			return s.convErr(t, lv)
		}
		dst.Set(s.makeFunc(t, s.newFunction(fn)))
		return nil
	}
	return fmt.Errorf("luabind: unsupported destination type %v", t)
}

func (s *State) convErr(t reflect.Type, lv lua.LValue) *ConversionError {
	return &ConversionError{Expected: expectedName(s, t), Actual: kindName(lv)}
}

// getArg converts lv into a fresh value of type t for use as a call argument.
func (s *State) getArg(l *lua.LState, lv lua.LValue, t reflect.Type, pos int) (reflect.Value, error) {
	rv := reflect.New(t).Elem()
	if s.strict() && !s.check(l, lv, t) {
		return rv, s.convErr(t, lv).at(pos)
	}
	if err := s.get(l, lv, rv); err != nil {
		var convErr *ConversionError
		if asConversion(err, &convErr) {
			return rv, convErr.at(pos)
		}
		return rv, err
	}
	return rv, nil
}

// number converts lv to a float under the active policy.
func (s *State) number(lv lua.LValue) (float64, bool) {
	switch v := lv.(type) {
	case lua.LNumber:
		return float64(v), true
	case lua.LString:
		if !s.coercion {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// stringValue converts lv to a string under the active policy.
// Numbers convert only when coercion is enabled, matching Lua's own
// tostring behavior for the number-to-string direction.
func (s *State) stringValue(lv lua.LValue) (string, bool) {
	switch v := lv.(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		if !s.coercion {
			return "", false
		}
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10), true
		}
		return strconv.FormatFloat(f, 'g', 14, 64), true
	default:
		return "", false
	}
}

// toGoValue maps a runtime value to a dynamically typed Go value:
// nil, bool, float64, string, []any for sequence-shaped tables,
// map[any]any otherwise, and the host object for opaque instances.
func (s *State) toGoValue(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		arrayLike := true
		n := 0
		v.ForEach(func(k, _ lua.LValue) {
			n++
			if _, ok := k.(lua.LNumber); !ok {
				arrayLike = false
			}
		})
		if arrayLike && n == v.Len() {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, s.toGoValue(v.RawGetInt(i)))
			}
			return out
		}
		out := make(map[any]any, n)
		v.ForEach(func(k, val lua.LValue) {
			out[s.toGoValue(k)] = s.toGoValue(val)
		})
		return out
	case *lua.LUserData:
		if o, ok := v.Value.(*Object); ok {
			return o.Value()
		}
		return v.Value
	case *lua.LFunction:
		return s.newFunction(v)
	default:
		return lv
	}
}

// push converts a host value into its runtime form.
// Most categories produce exactly one value; Values expands to one per
// element so tuple pushes compose.
func (s *State) push(l *lua.LState, v reflect.Value) ([]lua.LValue, error) {
	if !v.IsValid() {
		return []lua.LValue{lua.LNil}, nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return []lua.LValue{lua.LNil}, nil
		}
		v = v.Elem()
	}
	t := v.Type()
	if t.Implements(luaValueType) {
		if isNilable(t.Kind()) && v.IsNil() {
			return []lua.LValue{lua.LNil}, nil
		}
		return []lua.LValue{v.Interface().(lua.LValue)}, nil
	}
	switch x := v.Interface().(type) {
	case Values:
		var out []lua.LValue
		for _, elem := range x {
			lvs, err := s.push(l, reflect.ValueOf(elem))
			if err != nil {
				return nil, err
			}
			out = append(out, lvs...)
		}
		return out, nil
	case *Function:
		return []lua.LValue{x.pin.lua()}, nil
	case *Table:
		return []lua.LValue{x.pin.lua()}, nil
	case *Value:
		return []lua.LValue{x.lua()}, nil
	case *Object:
		return []lua.LValue{x.userdata()}, nil
	case *Shared:
		o, err := s.WrapShared(x)
		if err != nil {
			return nil, err
		}
		return []lua.LValue{o.userdata()}, nil
	case Ref:
		return s.push(l, reflect.ValueOf(x.ptr))
	case OverloadSet, MethodBinding:
		fn, err := s.bindCallable("anonymous", v.Interface())
		if err != nil {
			return nil, err
		}
		return []lua.LValue{fn}, nil
	case error:
		return []lua.LValue{lua.LString(x.Error())}, nil
	}
	if def := s.byType[t]; def != nil {
		o, err := s.wrapOwned(def, v)
		if err != nil {
			return nil, err
		}
		return []lua.LValue{o.userdata()}, nil
	}
	if t.Kind() == reflect.Pointer {
		if def := s.byType[t.Elem()]; def != nil {
			if v.IsNil() {
				return []lua.LValue{lua.LNil}, nil
			}
			o := s.wrapAlias(def, v)
			return []lua.LValue{o.userdata()}, nil
		}
	}
	switch t.Kind() {
	case reflect.Bool:
		return []lua.LValue{lua.LBool(v.Bool())}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []lua.LValue{lua.LNumber(v.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []lua.LValue{lua.LNumber(v.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return []lua.LValue{lua.LNumber(v.Float())}, nil
	case reflect.String:
		return []lua.LValue{lua.LString(v.String())}, nil
	case reflect.Slice, reflect.Array:
		if t == byteSlice {
			return []lua.LValue{lua.LString(v.Bytes())}, nil
		}
		tbl := l.CreateTable(v.Len(), 0)
		for i := 0; i < v.Len(); i++ {
			lv, err := s.pushSingle(l, v.Index(i))
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i+1, err)
			}
			tbl.RawSetInt(i+1, lv)
		}
		return []lua.LValue{tbl}, nil
	case reflect.Map:
		tbl := l.CreateTable(0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			klv, err := s.pushSingle(l, iter.Key())
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
			}
			vlv, err := s.pushSingle(l, iter.Value())
			if err != nil {
				return nil, fmt.Errorf("value for key %v: %w", iter.Key().Interface(), err)
			}
			tbl.RawSet(klv, vlv)
		}
		return []lua.LValue{tbl}, nil
	case reflect.Pointer:
		if v.IsNil() {
			return []lua.LValue{lua.LNil}, nil
		}
		return s.push(l, v.Elem())
	case reflect.Func:
		if v.IsNil() {
			return []lua.LValue{lua.LNil}, nil
		}
		fn, err := s.bindCallable("anonymous", v.Interface())
		if err != nil {
			return nil, err
		}
		return []lua.LValue{fn}, nil
	}
	return nil, fmt.Errorf("luabind: cannot convert %v to a Lua value; register it as an opaque type first", t)
}

// pushAny is pushSingle over a dynamically typed value.
func (s *State) pushAny(l *lua.LState, v any) (lua.LValue, error) {
	return s.pushSingle(l, reflect.ValueOf(v))
}

// pushSingle converts a host value that must occupy exactly one slot.
func (s *State) pushSingle(l *lua.LState, v reflect.Value) (lua.LValue, error) {
	lvs, err := s.push(l, v)
	if err != nil {
		return nil, err
	}
	if len(lvs) != 1 {
		return nil, fmt.Errorf("luabind: value expands to %d slots where exactly 1 is required", len(lvs))
	}
	return lvs[0], nil
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	}
	return false
}

// objectAt returns the opaque object record behind lv, or nil.
func objectAt(lv lua.LValue) *Object {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil
	}
	o, _ := ud.Value.(*Object)
	return o
}
