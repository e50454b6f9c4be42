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

// Package reflectshape is the one concrete shapewire.ShapeProvider this
// repository ships: it derives a Shape for an arbitrary Go type by
// reflection, reading struct fields through a `msgpack:"..."` tag
// mini-language (see tag.go) rather than requiring hand-written shape
// declarations.
package reflectshape

import (
	"reflect"
	"sync"

	"github.com/shapewire/shapewire"
)

// Provider is a caching, concurrency-safe shapewire.ShapeProvider. One
// Provider should be shared by every Serializer built over the same set
// of Go types, since shapewire.ConverterCache keys on Shape identity and
// Provider is what guarantees the same reflect.Type always yields the
// same Shape instance (§3.2).
type Provider struct {
	mu sync.RWMutex

	shapes map[reflect.Type]shapewire.Shape

	enums      map[reflect.Type]*enumRegistration
	unions     map[reflect.Type]*unionRegistration
	surrogates map[reflect.Type]*surrogateRegistration
}

// NewProvider returns an empty Provider. Register enums, unions, and
// surrogates before first use; struct/slice/map/pointer shapes need no
// registration, they fall out of ordinary reflection.
func NewProvider() *Provider {
	return &Provider{
		shapes:     map[reflect.Type]shapewire.Shape{},
		enums:      map[reflect.Type]*enumRegistration{},
		unions:     map[reflect.Type]*unionRegistration{},
		surrogates: map[reflect.Type]*surrogateRegistration{},
	}
}

// ShapeFor implements shapewire.ShapeProvider.
func (p *Provider) ShapeFor(t reflect.Type) (shapewire.Shape, error) {
	p.mu.RLock()
	if s, ok := p.shapes[t]; ok {
		p.mu.RUnlock()
		return s, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another goroutine may have built it while we waited for the lock.
	if s, ok := p.shapes[t]; ok {
		return s, nil
	}
	return p.buildAndCache(t)
}

// buildAndCache must be called with mu held. For recursive/self-referential
// types (a linked list node, a tree), the Shape value is inserted into
// p.shapes *before* its fields are walked, so a field referring back to t
// resolves to the same Shape instance instead of recursing forever; the
// object/enumerable/dictionary shapes below defer that field walk to their
// first Properties()/ElementShape()/etc. call for exactly this reason.
func (p *Provider) buildAndCache(t reflect.Type) (shapewire.Shape, error) {
	if reg, ok := p.surrogates[t]; ok {
		return p.buildSurrogateShape(t, reg), nil
	}
	if reg, ok := p.unions[t]; ok {
		return p.buildUnionShape(t, reg)
	}
	if reg, ok := p.enums[t]; ok {
		return p.buildEnumShape(t, reg), nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		s := &optionalShape{provider: p, typ: t, elemType: t.Elem()}
		p.shapes[t] = s
		return s, nil
	case reflect.Struct:
		s := &objectShape{provider: p, typ: t}
		p.shapes[t] = s
		return s, nil
	case reflect.Slice, reflect.Array:
		s := &enumerableShape{provider: p, typ: t}
		p.shapes[t] = s
		return s, nil
	case reflect.Map:
		s := &dictionaryShape{provider: p, typ: t}
		p.shapes[t] = s
		return s, nil
	case reflect.Func:
		s := &leafShape{typ: t, kind: shapewire.KindFunction}
		p.shapes[t] = s
		return s, nil
	default:
		// Basic kinds (e.g. plain `int`) and any other kind not matched
		// above round-trip through shapewire's primitive table by exact
		// type; hand back a passthrough leaf.
		s := &leafShape{typ: t}
		p.shapes[t] = s
		return s, nil
	}
}

// leafShape is a Shape with no children: either a genuinely primitive
// type (dispatched by shapewire's closed table or its named-basic-kind
// fallback) or a rejected function type.
type leafShape struct {
	typ  reflect.Type
	kind shapewire.Kind
}

func (s *leafShape) Kind() shapewire.Kind { return s.kind }
func (s *leafShape) Type() reflect.Type   { return s.typ }
