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

// OwnershipMode describes who owns the storage behind an opaque instance.
type OwnershipMode int

const (
	// Unbound is the zero mode; no instance carries it after creation.
	Unbound OwnershipMode = iota

	// OwnedValue instances hold an independent copy of the host value.
	// The registered finalizer runs exactly once when the instance is
	// released or its State closes.
	OwnedValue

	// RawAlias instances hold only an address. They are never finalized;
	// the host keeps the pointee alive.
	RawAlias

	// SharedOwner instances hold a retained reference on a Shared handle.
	// Release decrements it; the underlying value is destroyed by whoever
	// drops the count to zero.
	SharedOwner
)

func (m OwnershipMode) String() string {
	switch m {
	case OwnedValue:
		return "owned"
	case RawAlias:
		return "alias"
	case SharedOwner:
		return "shared"
	default:
		return "unbound"
	}
}

// A Shared is a reference-counted ownership handle for a host value exposed
// to the runtime under shared ownership. The handle starts with one
// reference, owned by its creator; every instance wrapping it retains one
// more. release runs when the count reaches zero, whichever side drops last.
//
// Shared follows the State's single-threaded model and carries no lock.
type Shared struct {
	ptr     any
	refs    int
	release func()
}

// NewShared wraps ptr, which must be a pointer, with an initial reference
// count of one. release may be nil.
func NewShared(ptr any, release func()) *Shared {
	if reflect.ValueOf(ptr).Kind() != reflect.Pointer {
		panic("luabind: NewShared requires a pointer")
	}
	return &Shared{ptr: ptr, refs: 1, release: release}
}

// Value returns the shared pointer. Valid only while the count is positive.
func (sh *Shared) Value() any {
	return sh.ptr
}

// Refs reports the current reference count.
func (sh *Shared) Refs() int {
	return sh.refs
}

// Retain adds a reference. It panics if the value was already destroyed.
func (sh *Shared) Retain() {
	if sh.refs <= 0 {
		panic("luabind: retain of destroyed shared value")
	}
	sh.refs++
}

// Release drops a reference, running the release hook when the last one
// goes. It panics on over-release.
func (sh *Shared) Release() {
	if sh.refs <= 0 {
		panic("luabind: release of destroyed shared value")
	}
	sh.refs--
	if sh.refs == 0 && sh.release != nil {
		sh.release()
	}
}

// A TypeDef is a registered opaque type: the bridge between one host Go
// type and its runtime-visible metatable.
type TypeDef struct {
	s         *State
	name      string
	goType    reflect.Type
	mt        *lua.LTable
	typeTable *lua.LTable
	finalizer reflect.Value // func(*T), valid iff set
}

// Name returns the runtime-visible type name.
func (d *TypeDef) Name() string { return d.name }

// GoType returns the host type instances of this definition store.
func (d *TypeDef) GoType() reflect.Type { return d.goType }

// An Object is a host-side handle to one opaque instance exposed to the
// runtime. Identity is the storage address: two handles to the same
// instance alias the same storage, which is what obj:method receivers
// observe.
type Object struct {
	s         *State
	def       *TypeDef
	mode      OwnershipMode
	store     reflect.Value // pointer to the instance storage
	shared    *Shared       // valid iff mode == SharedOwner
	ud        *lua.LUserData
	destroyed bool
}

// Mode reports the instance's ownership mode.
func (o *Object) Mode() OwnershipMode { return o.mode }

// Type returns the definition the instance was created under.
func (o *Object) Type() *TypeDef { return o.def }

// Value returns a pointer to the instance storage. Its validity is scoped
// to the instance, not to this handle: after Release the storage may be
// finalized, and use of a previously returned pointer is not detected.
func (o *Object) Value() any {
	return o.store.Interface()
}

func (o *Object) userdata() *lua.LUserData {
	return o.ud
}

// Release destroys the instance exactly once: owned values run their
// finalizer, shared owners drop their retained reference, aliases do
// nothing. Further Release calls are no-ops. Instances never released
// explicitly are released by State.Close; an instance neither released
// nor covered by Close before process exit is simply never finalized.
func (o *Object) Release() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	delete(o.s.objects, o)
	switch o.mode {
	case OwnedValue:
		if o.def.finalizer.IsValid() {
			o.def.finalizer.Call([]reflect.Value{o.store})
		}
	case SharedOwner:
		// Destruction defers to the last shared reference; dropping ours
		// is all an instance release may do.
		o.shared.Release()
	}
}

// wrapOwned copies v, a value of def's host type, into fresh storage owned
// by the runtime side.
func (s *State) wrapOwned(def *TypeDef, v reflect.Value) (*Object, error) {
	if v.Type() != def.goType {
		return nil, fmt.Errorf("luabind: wrap %s: value has type %v", def.name, v.Type())
	}
	store := reflect.New(def.goType)
	store.Elem().Set(v)
	return s.newObject(def, OwnedValue, store, nil), nil
}

// wrapAlias stores only the address in v; the host keeps the pointee alive
// and the instance is never finalized.
func (s *State) wrapAlias(def *TypeDef, v reflect.Value) *Object {
	return s.newObject(def, RawAlias, v, nil)
}

// WrapShared exposes sh's value as an instance holding one retained
// reference, dropped when the instance is released.
func (s *State) WrapShared(sh *Shared) (*Object, error) {
	ptr := reflect.ValueOf(sh.Value())
	def := s.byType[ptr.Type().Elem()]
	if def == nil {
		return nil, fmt.Errorf("luabind: no registered type for %v", ptr.Type().Elem())
	}
	sh.Retain()
	return s.newObject(def, SharedOwner, ptr, sh), nil
}

// Wrap exposes v as an opaque instance: a value of a registered type is
// copied into owned storage, a pointer to one aliases the host's storage.
func (s *State) Wrap(v any) (*Object, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("luabind: cannot wrap nil")
	}
	if sh, ok := v.(*Shared); ok {
		return s.WrapShared(sh)
	}
	if rv.Kind() == reflect.Pointer {
		def := s.byType[rv.Type().Elem()]
		if def == nil {
			return nil, fmt.Errorf("luabind: no registered type for %v", rv.Type().Elem())
		}
		if rv.IsNil() {
			return nil, fmt.Errorf("luabind: cannot wrap nil %v", rv.Type())
		}
		return s.wrapAlias(def, rv), nil
	}
	def := s.byType[rv.Type()]
	if def == nil {
		return nil, fmt.Errorf("luabind: no registered type for %v", rv.Type())
	}
	return s.wrapOwned(def, rv)
}

func (s *State) newObject(def *TypeDef, mode OwnershipMode, store reflect.Value, sh *Shared) *Object {
	l := s.ls
	o := &Object{
		s:      s,
		def:    def,
		mode:   mode,
		store:  store,
		shared: sh,
	}
	ud := l.NewUserData()
	ud.Value = o
	l.SetMetatable(ud, def.mt)
	o.ud = ud
	s.objects[o] = struct{}{}
	return o
}

// A TypeBuilder accumulates the bindings of one opaque type before
// registration. Errors are deferred to Build so calls chain.
type TypeBuilder struct {
	s         *State
	name      string
	goType    reflect.Type
	ctors     OverloadSet
	methods   []namedBinding
	statics   []namedBinding
	finalizer any
	stringer  any
	err       error
}

type namedBinding struct {
	name string
	fn   any
}

// NewType starts the definition of an opaque type under name.
// prototype supplies the host type: pass a zero value or a nil pointer to
// it. Build registers the type; until then nothing is runtime-visible.
func (s *State) NewType(name string, prototype any) *TypeBuilder {
	b := &TypeBuilder{s: s, name: name}
	t := reflect.TypeOf(prototype)
	if t == nil {
		b.err = fmt.Errorf("luabind: type %s: nil prototype", name)
		return b
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		b.err = fmt.Errorf("luabind: type %s: prototype must be a struct or pointer to struct, got %v", name, t)
		return b
	}
	b.goType = t
	return b
}

// Constructor adds a constructor signature. Multiple constructors form an
// overload set resolved per call; a constructor returning the type by value
// produces an owned instance, one returning a pointer produces an alias.
func (b *TypeBuilder) Constructor(fn any) *TypeBuilder {
	b.ctors = append(b.ctors, fn)
	return b
}

// Method binds fn under name with the receiver taken from the first
// runtime-side argument, so obj:method(...) calls arrive with obj bound.
// A pointer receiver aliases the instance storage; a value receiver gets
// a copy.
func (b *TypeBuilder) Method(name string, fn any) *TypeBuilder {
	b.methods = append(b.methods, namedBinding{name: name, fn: fn})
	return b
}

// Func binds fn as a plain function on the type's table, with no receiver.
func (b *TypeBuilder) Func(name string, fn any) *TypeBuilder {
	b.statics = append(b.statics, namedBinding{name: name, fn: fn})
	return b
}

// Finalizer registers fn, taking a pointer to the type, to run exactly once
// when an owned or shared instance is destroyed.
func (b *TypeBuilder) Finalizer(fn any) *TypeBuilder {
	b.finalizer = fn
	return b
}

// Stringer registers fn to render instances for the runtime's tostring.
func (b *TypeBuilder) Stringer(fn any) *TypeBuilder {
	b.stringer = fn
	return b
}

// Build registers the type: its metatable, its method table, and a global
// type table carrying the constructors under "new" plus the plain
// functions. Registering a name twice replaces the earlier global but not
// instances already created under it.
func (b *TypeBuilder) Build() (*TypeDef, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.s
	l := s.ls
	if _, ok := s.byType[b.goType]; ok {
		return nil, fmt.Errorf("luabind: type %v already registered", b.goType)
	}

	def := &TypeDef{s: s, name: b.name, goType: b.goType}
	if b.finalizer != nil {
		fv := reflect.ValueOf(b.finalizer)
		want := reflect.PointerTo(b.goType)
		if fv.Kind() != reflect.Func || fv.Type().NumIn() != 1 || fv.Type().In(0) != want {
			return nil, fmt.Errorf("luabind: type %s: finalizer must be func(%v)", b.name, want)
		}
		def.finalizer = fv
	}

	// Registering byType before binding lets methods and constructors
	// mention the type in their own signatures.
	s.byType[b.goType] = def
	s.types[b.name] = def
	ok := false
	defer func() {
		if !ok {
			delete(s.byType, b.goType)
			delete(s.types, b.name)
		}
	}()

	mt := l.NewTypeMetatable(b.name)
	def.mt = mt
	methods := l.NewTable()
	for _, m := range b.methods {
		fn, err := s.bindCallable(b.name+":"+m.name, Method(m.fn))
		if err != nil {
			return nil, err
		}
		methods.RawSetString(m.name, fn)
	}
	l.SetField(mt, "__index", methods)
	// Equality is record identity: two runtime values are equal when they
	// name the same instance storage.
	l.SetField(mt, "__eq", l.NewFunction(func(l *lua.LState) int {
		a, b := objectAt(l.Get(1)), objectAt(l.Get(2))
		l.Push(lua.LBool(a != nil && b != nil && a.def == b.def &&
			a.store.Pointer() == b.store.Pointer()))
		return 1
	}))
	if b.stringer != nil {
		fn, err := s.bindCallable(b.name+":__tostring", Method(b.stringer))
		if err != nil {
			return nil, err
		}
		l.SetField(mt, "__tostring", fn)
	}

	typeTable := l.NewTable()
	def.typeTable = typeTable
	if len(b.ctors) > 0 {
		ov, err := newOverload(s, b.name+".new", b.ctors)
		if err != nil {
			return nil, err
		}
		typeTable.RawSetString("new", l.NewFunction(ctorTrampoline(s, ov, typeTable)))
	}
	for _, st := range b.statics {
		fn, err := s.bindCallable(b.name+"."+st.name, st.fn)
		if err != nil {
			return nil, err
		}
		typeTable.RawSetString(st.name, fn)
	}
	l.SetGlobal(b.name, typeTable)

	ok = true
	return def, nil
}

// ctorTrampoline resolves and invokes a constructor overload.
// Both Type.new(...) and Type:new(...) spellings work: a leading argument
// that is the type table itself is skipped.
func ctorTrampoline(s *State, ov *overload, typeTable *lua.LTable) lua.LGFunction {
	return func(l *lua.LState) int {
		defer rethrow(l)
		base := 0
		if l.GetTop() > 0 && l.Get(1) == lua.LValue(typeTable) {
			base = 1
		}
		n, err := ov.resolve(s, l, base)
		if err != nil {
			raise(l, err)
		}
		return n
	}
}
