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

// dictionaryShape is the reflection-derived shapewire.DictionaryShape for
// a Go map type.
type dictionaryShape struct {
	provider *Provider
	typ      reflect.Type

	once               sync.Once
	keyShape, valShape shapewire.Shape
	keyErr, valErr     error
}

func (s *dictionaryShape) Kind() shapewire.Kind { return shapewire.KindDictionary }
func (s *dictionaryShape) Type() reflect.Type   { return s.typ }

func (s *dictionaryShape) resolve() {
	s.once.Do(func() {
		s.keyShape, s.keyErr = s.provider.ShapeFor(s.typ.Key())
		s.valShape, s.valErr = s.provider.ShapeFor(s.typ.Elem())
	})
}

func (s *dictionaryShape) KeyShape() shapewire.Shape {
	s.resolve()
	return s.keyShape
}

func (s *dictionaryShape) ValueShape() shapewire.Shape {
	s.resolve()
	return s.valShape
}

func (s *dictionaryShape) Mode() shapewire.ConstructionMode {
	return shapewire.ConstructMutable
}

func (s *dictionaryShape) Enumerate(value any) ([][2]any, error) {
	rv := reflect.Indirect(reflect.ValueOf(value))
	out := make([][2]any, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out = append(out, [2]any{iter.Key().Interface(), iter.Value().Interface()})
	}
	return out, nil
}

type mapHandle struct {
	keyType, valType reflect.Type
	rv               reflect.Value
}

func (s *dictionaryShape) NewMutable() (any, func(handle any, key, val any) any) {
	h := &mapHandle{keyType: s.typ.Key(), valType: s.typ.Elem(), rv: reflect.MakeMap(s.typ)}
	return h, func(handle any, key, val any) any {
		hh := handle.(*mapHandle)
		hh.rv.SetMapIndex(coerceElement(key, hh.keyType), coerceElement(val, hh.valType))
		return hh
	}
}

func (s *dictionaryShape) FromPairs(pairs [][2]any) (any, error) {
	keyType, valType := s.typ.Key(), s.typ.Elem()
	out := reflect.MakeMapWithSize(s.typ, len(pairs))
	for _, kv := range pairs {
		out.SetMapIndex(coerceElement(kv[0], keyType), coerceElement(kv[1], valType))
	}
	return out.Interface(), nil
}

func (s *dictionaryShape) Finish(handle any) any {
	return handle.(*mapHandle).rv.Interface()
}
