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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shapewire/shapewire"
)

type node struct {
	Value int32 `msgpack:"value"`
	Next  *node `msgpack:"next"`
}

func TestShapeForSameTypeReturnsSameInstance(t *testing.T) {
	p := NewProvider()
	t1 := reflect.TypeOf(node{})

	s1, err := p.ShapeFor(t1)
	require.NoError(t, err)
	s2, err := p.ShapeFor(t1)
	require.NoError(t, err)
	require.Same(t, s1, s2)
}

func TestShapeForRecursiveTypeDoesNotInfiniteLoop(t *testing.T) {
	p := NewProvider()
	s, err := p.ShapeFor(reflect.TypeOf(node{}))
	require.NoError(t, err)

	obj, ok := s.(shapewire.ObjectShape)
	require.True(t, ok)

	props := obj.Properties()
	require.Len(t, props, 2)

	var nextProp *shapewire.Property
	for i := range props {
		if props[i].Name == "Next" {
			nextProp = &props[i]
		}
	}
	require.NotNil(t, nextProp)
	require.True(t, nextProp.Nullable, "pointer field must be forced nullable")
}

type withUnexported struct {
	Visible   string `msgpack:"visible"`
	invisible string
}

func TestBuildStructPropertiesSkipsUnexported(t *testing.T) {
	props := buildStructProperties(reflect.TypeOf(withUnexported{}))
	require.Len(t, props, 1)
	require.Equal(t, "Visible", props[0].Name)
}

type withIgnoredField struct {
	Keep   string `msgpack:"keep"`
	Ignore string `msgpack:"-"`
}

func TestBuildStructPropertiesHonorsIgnoreTag(t *testing.T) {
	props := buildStructProperties(reflect.TypeOf(withIgnoredField{}))
	require.Len(t, props, 1)
	require.Equal(t, "Keep", props[0].Name)
}

func TestOptionalShapeWrapUnwrap(t *testing.T) {
	p := NewProvider()
	s, err := p.ShapeFor(reflect.TypeOf((*int32)(nil)))
	require.NoError(t, err)

	opt, ok := s.(shapewire.OptionalShape)
	require.True(t, ok)

	var v int32 = 42
	wrapped := opt.Wrap(v, true)
	ptr, ok := wrapped.(*int32)
	require.True(t, ok)
	require.Equal(t, int32(42), *ptr)

	unwrapped, present := opt.Unwrap(ptr)
	require.True(t, present)
	require.Equal(t, int32(42), unwrapped)

	absent := opt.Wrap(nil, false)
	require.Nil(t, absent)
}

func TestEnumerableShapeRank(t *testing.T) {
	p := NewProvider()

	s, err := p.ShapeFor(reflect.TypeOf([]int32{}))
	require.NoError(t, err)
	require.Equal(t, 1, s.(shapewire.EnumerableShape).Rank())

	s, err = p.ShapeFor(reflect.TypeOf([3][4]int32{}))
	require.NoError(t, err)
	require.Equal(t, 2, s.(shapewire.EnumerableShape).Rank())

	s, err = p.ShapeFor(reflect.TypeOf([][]int32{}))
	require.NoError(t, err)
	require.Equal(t, 1, s.(shapewire.EnumerableShape).Rank(), "jagged slice-of-slices is always rank 1")
}

func TestEnumerableShapeConstructionMode(t *testing.T) {
	p := NewProvider()

	s, err := p.ShapeFor(reflect.TypeOf([]int32{}))
	require.NoError(t, err)
	require.Equal(t, shapewire.ConstructMutable, s.(shapewire.EnumerableShape).Mode())

	s, err = p.ShapeFor(reflect.TypeOf([4]int32{}))
	require.NoError(t, err)
	require.Equal(t, shapewire.ConstructParameterized, s.(shapewire.EnumerableShape).Mode())
}

func TestDictionaryShapeKeyValue(t *testing.T) {
	p := NewProvider()
	s, err := p.ShapeFor(reflect.TypeOf(map[string]int32{}))
	require.NoError(t, err)

	dict, ok := s.(shapewire.DictionaryShape)
	require.True(t, ok)
	require.Equal(t, reflect.TypeOf(""), dict.KeyShape().Type())
	require.Equal(t, reflect.TypeOf(int32(0)), dict.ValueShape().Type())
}

func TestRegisterEnumAndBuild(t *testing.T) {
	type color int32
	p := NewProvider()
	p.RegisterEnum(reflect.TypeOf(color(0)), []shapewire.EnumMember{
		{Name: "RED", Value: 0},
		{Name: "BLUE", Value: 1},
	}, false)

	s, err := p.ShapeFor(reflect.TypeOf(color(0)))
	require.NoError(t, err)
	require.Equal(t, shapewire.KindEnum, s.Kind())

	enum := s.(shapewire.EnumShape)
	require.Len(t, enum.Members(), 2)
}

type vehicle interface{ isVehicle() }
type car struct{ Wheels int32 }

func (car) isVehicle() {}

func TestRegisterUnionInterfaceBase(t *testing.T) {
	p := NewProvider()
	baseType := reflect.TypeOf((*vehicle)(nil)).Elem()
	p.RegisterUnion(baseType, false, UnionCaseSpec{
		Type: reflect.TypeOf(car{}), Tag: 1, HasTag: true,
	})

	s, err := p.ShapeFor(baseType)
	require.NoError(t, err)
	union := s.(shapewire.UnionShape)
	require.Equal(t, reflect.TypeOf(car{}), union.Cases()[0].CaseShape.Type())
	require.Equal(t, 0, union.CaseIndex(car{Wheels: 4}))
}

type celsius float64
type kelvin float64

func TestRegisterSurrogate(t *testing.T) {
	p := NewProvider()
	p.RegisterSurrogate(reflect.TypeOf(celsius(0)), reflect.TypeOf(kelvin(0)), shapewire.Marshaler{
		Marshal:   func(v any) (any, error) { return kelvin(v.(celsius) + 273.15), nil },
		Unmarshal: func(v any) (any, error) { return celsius(v.(kelvin) - 273.15), nil },
	})

	s, err := p.ShapeFor(reflect.TypeOf(celsius(0)))
	require.NoError(t, err)
	require.Equal(t, shapewire.KindSurrogate, s.Kind())

	surr := s.(shapewire.SurrogateShape)
	require.Equal(t, reflect.TypeOf(kelvin(0)), surr.SurrogateOf().Type())
}
