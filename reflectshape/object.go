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

// objectShape is the reflection-derived shapewire.ObjectShape for a Go
// struct type. Properties() is computed once, lazily, on first call
// rather than eagerly in Provider.buildAndCache: a self-referential field
// (a linked-list Next, a tree Children) must be able to look the owning
// type back up in Provider's cache and find this very Shape instance
// already registered, which only holds if Provider.ShapeFor returns
// before any field walk begins.
type objectShape struct {
	provider *Provider
	typ      reflect.Type

	once  sync.Once
	props []shapewire.Property
}

func (s *objectShape) Kind() shapewire.Kind { return shapewire.KindObject }
func (s *objectShape) Type() reflect.Type   { return s.typ }

func (s *objectShape) Properties() []shapewire.Property {
	s.once.Do(func() { s.props = buildStructProperties(s.typ) })
	return s.props
}

// Constructor reports nil: reflection-derived objects are materialized via
// New() plus field setters, they have no notion of a unique constructor to
// invoke with positional arguments (§3.1 applies only to shapes that
// declare one).
func (s *objectShape) Constructor() *shapewire.Constructor { return nil }

func (s *objectShape) New() any {
	return reflect.New(s.typ).Interface()
}

// Surrogate always reports false here: a type registered as a surrogate
// pair never reaches objectShape, Provider routes it to a surrogateShape
// before the struct branch of buildAndCache is even considered.
func (s *objectShape) Surrogate() (shapewire.Marshaler, shapewire.Shape, bool) {
	return shapewire.Marshaler{}, nil, false
}

// ConverterNamed is implemented by a type to designate, by name, the
// converter Provider-built shapes for it should use instead of the
// ordinary object/surrogate/primitive resolution — the type-level half of
// §4.2 rule 1's third sub-step (the member-level half is the
// `msgpack:",converter=name"` field tag). The name is resolved against
// Policy.NamedConverters at build time; ConverterName is called against a
// zero value of the type and must not depend on field state.
type ConverterNamed interface {
	ConverterName() string
}

// CustomConverterName implements shapewire.NamedConverterShape by
// checking whether the underlying type (or its pointer form, covering a
// pointer-receiver implementation) satisfies ConverterNamed.
func (s *objectShape) CustomConverterName() string {
	if named, ok := s.New().(ConverterNamed); ok {
		return named.ConverterName()
	}
	return ""
}

func buildStructProperties(t reflect.Type) []shapewire.Property {
	n := t.NumField()
	props := make([]shapewire.Property, 0, n)
	for i := 0; i < n; i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		tag := parseFieldTag(f.Tag.Get("msgpack"), f.Name)
		if tag.ignore {
			continue
		}
		fieldIndex := i
		fieldType := f.Type
		props = append(props, shapewire.Property{
			Name:         f.Name,
			WireName:     tag.name,
			Type:         fieldType,
			HasGetter:    true,
			HasSetter:    true,
			Nullable:     tag.nullable || fieldType.Kind() == reflect.Ptr,
			Required:     tag.required,
			KeyIndex:     tag.keyIndex,
			IsUnusedData: tag.unused,
			CustomConverterName: tag.converter,
			Get: func(obj any) (any, error) {
				rv := reflect.Indirect(reflect.ValueOf(obj))
				return rv.Field(fieldIndex).Interface(), nil
			},
			Set: func(obj any, value any) error {
				rv := reflect.ValueOf(obj)
				if rv.Kind() == reflect.Ptr {
					rv = rv.Elem()
				}
				fv := rv.Field(fieldIndex)
				if value == nil {
					fv.Set(reflect.Zero(fv.Type()))
					return nil
				}
				vv := reflect.ValueOf(value)
				if vv.Type() != fv.Type() && vv.Type().ConvertibleTo(fv.Type()) {
					vv = vv.Convert(fv.Type())
				}
				fv.Set(vv)
				return nil
			},
			DefaultValue: reflect.Zero(fieldType).Interface(),
		})
	}
	return props
}
