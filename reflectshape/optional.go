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

// optionalShape is the reflection-derived shapewire.OptionalShape for a Go
// pointer type. Every pointer, at any position, maps to kind Optional
// (§4.8): the element shape is resolved lazily for the same cycle-safety
// reason as objectShape.Properties.
type optionalShape struct {
	provider *Provider
	typ      reflect.Type // the pointer type itself
	elemType reflect.Type

	once sync.Once
	elem shapewire.Shape
	err  error
}

func (s *optionalShape) Kind() shapewire.Kind { return shapewire.KindOptional }
func (s *optionalShape) Type() reflect.Type   { return s.typ }

func (s *optionalShape) Elem() shapewire.Shape {
	s.once.Do(func() { s.elem, s.err = s.provider.ShapeFor(s.elemType) })
	return s.elem
}

// Wrap builds the pointer representation from an element value. When the
// element shape already hands back a value of the pointer's own type (an
// object shape's New() does, since it always allocates *T) the pointer is
// reused as-is instead of being copied into a fresh allocation.
func (s *optionalShape) Wrap(value any, present bool) any {
	if !present || value == nil {
		return reflect.Zero(s.typ).Interface()
	}
	vv := reflect.ValueOf(value)
	if vv.Type() == s.typ {
		return value
	}
	ptr := reflect.New(s.elemType)
	if vv.Type() != s.elemType && vv.Type().ConvertibleTo(s.elemType) {
		vv = vv.Convert(s.elemType)
	}
	ptr.Elem().Set(vv)
	return ptr.Interface()
}

// Unwrap dereferences the pointer for the element converter, which (for
// object elements) tolerates either a bare value or a pointer via
// reflect.Indirect in its Property.Get closures.
func (s *optionalShape) Unwrap(wrapped any) (any, bool) {
	if wrapped == nil {
		return nil, false
	}
	rv := reflect.ValueOf(wrapped)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, false
	}
	return rv.Elem().Interface(), true
}
