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

// enumerableShape is the reflection-derived shapewire.EnumerableShape for
// a Go slice or fixed-size array type.
type enumerableShape struct {
	provider *Provider
	typ      reflect.Type

	once sync.Once
	elem shapewire.Shape
	err  error
}

func (s *enumerableShape) Kind() shapewire.Kind { return shapewire.KindEnumerable }
func (s *enumerableShape) Type() reflect.Type   { return s.typ }

func (s *enumerableShape) ElementShape() shapewire.Shape {
	s.once.Do(func() { s.elem, s.err = s.provider.ShapeFor(s.typ.Elem()) })
	return s.elem
}

// Rank reports how many nested fixed-size array dimensions this type
// declares. A jagged slice of slices ([][]T) cannot be told apart from a
// genuinely rectangular matrix by its Go type alone, so only chained
// reflect.Array types (a true [N][M]T) count; a bare slice is rank 1.
func (s *enumerableShape) Rank() int {
	rank := 1
	t := s.typ
	for t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Array {
		rank++
		t = t.Elem()
	}
	return rank
}

func (s *enumerableShape) Mode() shapewire.ConstructionMode {
	if s.typ.Kind() == reflect.Array {
		return shapewire.ConstructParameterized
	}
	return shapewire.ConstructMutable
}

func (s *enumerableShape) Enumerate(value any) ([]any, error) {
	rv := reflect.Indirect(reflect.ValueOf(value))
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = elementToWire(rv.Index(i))
	}
	return out, nil
}

type sliceHandle struct {
	elemType reflect.Type
	rv       reflect.Value
}

func (s *enumerableShape) NewMutable() (any, func(handle any, elem any) any) {
	h := &sliceHandle{elemType: s.typ.Elem(), rv: reflect.MakeSlice(s.typ, 0, 0)}
	return h, func(handle any, elem any) any {
		hh := handle.(*sliceHandle)
		hh.rv = reflect.Append(hh.rv, coerceElement(elem, hh.elemType))
		return hh
	}
}

func (s *enumerableShape) FromElements(elems []any) (any, error) {
	elemType := s.typ.Elem()
	if s.typ.Kind() == reflect.Array {
		out := reflect.New(s.typ).Elem()
		for i := 0; i < out.Len() && i < len(elems); i++ {
			out.Index(i).Set(coerceElement(elems[i], elemType))
		}
		return out.Interface(), nil
	}
	out := reflect.MakeSlice(s.typ, len(elems), len(elems))
	for i, e := range elems {
		out.Index(i).Set(coerceElement(e, elemType))
	}
	return out.Interface(), nil
}

func (s *enumerableShape) Finish(handle any) any {
	return handle.(*sliceHandle).rv.Interface()
}

// elementToWire hands a collection element to the element converter in the
// form its Property.Get closures expect: object shapes read through
// reflect.Indirect, so a struct-valued element (Person, not *Person) needs
// no special handling here.
func elementToWire(rv reflect.Value) any {
	return rv.Interface()
}

// coerceElement bridges a decoded element back into the collection's
// storage type. An object shape's New() always allocates *T even when the
// collection stores T by value, so a decoded *Person must be dereferenced
// before it can sit in a []Person.
func coerceElement(v any, elemType reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(elemType)
	}
	vv := reflect.ValueOf(v)
	if vv.Type() == elemType {
		return vv
	}
	if vv.Kind() == reflect.Ptr && vv.Type().Elem() == elemType {
		return vv.Elem()
	}
	if elemType.Kind() == reflect.Ptr && vv.Type() == elemType.Elem() {
		ptr := reflect.New(elemType.Elem())
		ptr.Elem().Set(vv)
		return ptr
	}
	if vv.Type().ConvertibleTo(elemType) {
		return vv.Convert(elemType)
	}
	return vv
}
