// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package reflectshape

import (
	"reflect"
	"sync"

	"github.com/shapewire/shapewire"
)

// Go's type system carries no enum, union, or surrogate metadata the way a
// language with sum types or annotations would, so these three shape
// kinds cannot be derived by reflection alone. A caller opts a type into
// one of them explicitly, before the first ShapeFor(t) call for it (or any
// type that embeds/references it) — registration after first use does not
// retroactively change an already-cached Shape.

type enumRegistration struct {
	members       []shapewire.EnumMember
	caseSensitive bool
}

// RegisterEnum declares t (expected to be a named integer type) an enum
// shape with the given ordinal/name members.
func (p *Provider) RegisterEnum(t reflect.Type, members []shapewire.EnumMember, caseSensitive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enums[t] = &enumRegistration{members: members, caseSensitive: caseSensitive}
}

func (p *Provider) buildEnumShape(t reflect.Type, reg *enumRegistration) shapewire.Shape {
	return &enumShape{typ: t, members: reg.members, caseSensitive: reg.caseSensitive}
}

type enumShape struct {
	typ           reflect.Type
	members       []shapewire.EnumMember
	caseSensitive bool
}

func (s *enumShape) Kind() shapewire.Kind          { return shapewire.KindEnum }
func (s *enumShape) Type() reflect.Type            { return s.typ }
func (s *enumShape) Members() []shapewire.EnumMember { return s.members }
func (s *enumShape) CaseSensitive() bool           { return s.caseSensitive }

// UnionCaseSpec is one derived type of a registered union, supplied by the
// caller at RegisterUnion time.
type UnionCaseSpec struct {
	Type      reflect.Type
	Tag       int
	HasTag    bool
	Name      string
	HasName   bool
	Marshaler *shapewire.Marshaler
}

type unionRegistration struct {
	cases     []UnionCaseSpec
	duckTyped bool
}

// RegisterUnion declares base a polymorphic union over the given derived
// cases. base is typically a Go interface type; each case's Type must
// satisfy it.
func (p *Provider) RegisterUnion(base reflect.Type, duckTyped bool, cases ...UnionCaseSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unions[base] = &unionRegistration{cases: cases, duckTyped: duckTyped}
}

func (p *Provider) buildUnionShape(t reflect.Type, reg *unionRegistration) (shapewire.Shape, error) {
	return &unionShape{provider: p, typ: t, reg: reg}, nil
}

type unionShape struct {
	provider *Provider
	typ      reflect.Type
	reg      *unionRegistration

	once  sync.Once
	base  shapewire.Shape
	cases []shapewire.UnionCase
}

func (s *unionShape) Kind() shapewire.Kind { return shapewire.KindUnion }
func (s *unionShape) Type() reflect.Type   { return s.typ }
func (s *unionShape) DuckTyped() bool      { return s.reg.duckTyped }

func (s *unionShape) resolve() {
	s.once.Do(func() {
		if s.typ.Kind() == reflect.Interface {
			s.base = &emptyObjectShape{typ: s.typ}
		} else {
			s.base = &objectShape{provider: s.provider, typ: s.typ}
		}
		cases := make([]shapewire.UnionCase, len(s.reg.cases))
		for i, c := range s.reg.cases {
			caseShape, err := s.provider.ShapeFor(c.Type)
			if err != nil {
				caseShape = &leafShape{typ: c.Type}
			}
			cases[i] = shapewire.UnionCase{
				Tag: c.Tag, HasTag: c.HasTag,
				Name: c.Name, HasName: c.HasName,
				CaseShape: caseShape, Marshaler: c.Marshaler,
			}
		}
		s.cases = cases
	})
}

func (s *unionShape) BaseShape() shapewire.Shape {
	s.resolve()
	return s.base
}

func (s *unionShape) Cases() []shapewire.UnionCase {
	s.resolve()
	return s.cases
}

func (s *unionShape) CaseIndex(value any) int {
	if value == nil {
		return -1
	}
	s.resolve()
	t := reflect.TypeOf(value)
	for i, c := range s.reg.cases {
		if c.Type == t {
			return i
		}
	}
	return -1
}

// emptyObjectShape stands in for an interface union base: it has no
// fields of its own, only the discriminated cases carry data.
type emptyObjectShape struct{ typ reflect.Type }

func (s *emptyObjectShape) Kind() shapewire.Kind             { return shapewire.KindObject }
func (s *emptyObjectShape) Type() reflect.Type               { return s.typ }
func (s *emptyObjectShape) Properties() []shapewire.Property { return nil }
func (s *emptyObjectShape) Constructor() *shapewire.Constructor { return nil }
func (s *emptyObjectShape) New() any {
	return nil
}
func (s *emptyObjectShape) Surrogate() (shapewire.Marshaler, shapewire.Shape, bool) {
	return shapewire.Marshaler{}, nil, false
}

type surrogateRegistration struct {
	surrogateType reflect.Type
	marshaler     shapewire.Marshaler
}

// RegisterSurrogate declares t to be routed entirely through surrogateType
// via the given marshal/unmarshal pair (§4.9): every write/read of t goes
// through surrogateType's own shape and converter instead.
func (p *Provider) RegisterSurrogate(t, surrogateType reflect.Type, marshaler shapewire.Marshaler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surrogates[t] = &surrogateRegistration{surrogateType: surrogateType, marshaler: marshaler}
}

func (p *Provider) buildSurrogateShape(t reflect.Type, reg *surrogateRegistration) shapewire.Shape {
	return &surrogateShape{provider: p, typ: t, reg: reg}
}

type surrogateShape struct {
	provider *Provider
	typ      reflect.Type
	reg      *surrogateRegistration
}

func (s *surrogateShape) Kind() shapewire.Kind          { return shapewire.KindSurrogate }
func (s *surrogateShape) Type() reflect.Type            { return s.typ }
func (s *surrogateShape) Marshaler() shapewire.Marshaler { return s.reg.marshaler }
func (s *surrogateShape) SurrogateOf() shapewire.Shape {
	shape, err := s.provider.ShapeFor(s.reg.surrogateType)
	if err != nil {
		return &leafShape{typ: s.reg.surrogateType}
	}
	return shape
}
