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

package shapewire_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shapewire/shapewire"
	"github.com/shapewire/shapewire/reflectshape"
)

type address struct {
	Street string `msgpack:"street"`
	City   string `msgpack:"city"`
}

type person struct {
	Name    string   `msgpack:"name"`
	Age     int32    `msgpack:"age"`
	Emails  []string `msgpack:"emails"`
	Home    *address `msgpack:"home"`
	ignored string
}

func roundTrip(t *testing.T, s *shapewire.Serializer, value any, target reflect.Type) any {
	t.Helper()
	data, err := s.Serialize(context.Background(), value)
	require.NoError(t, err)
	out, err := s.Deserialize(context.Background(), data, target)
	require.NoError(t, err)
	return out
}

func TestSerializerPrimitives(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider())

	got := roundTrip(t, s, int32(7), reflect.TypeOf(int32(0)))
	require.Equal(t, int32(7), got)

	got = roundTrip(t, s, "hello", reflect.TypeOf(""))
	require.Equal(t, "hello", got)

	got = roundTrip(t, s, true, reflect.TypeOf(false))
	require.Equal(t, true, got)
}

func TestSerializerStruct(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider())

	p := person{
		Name:   "Ada",
		Age:    30,
		Emails: []string{"ada@example.com", "ada@lovelace.dev"},
		Home:   &address{Street: "1 Analytical Engine Way", City: "London"},
	}

	got := roundTrip(t, s, p, reflect.TypeOf(person{}))
	out, ok := got.(*person)
	require.True(t, ok, "expected *person, got %T", got)
	require.Equal(t, p.Name, out.Name)
	require.Equal(t, p.Age, out.Age)
	require.Equal(t, p.Emails, out.Emails)
	require.NotNil(t, out.Home)
	require.Equal(t, *p.Home, *out.Home)
}

func TestSerializerNilPointerField(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider())

	p := person{Name: "Grace", Age: 85, Emails: nil, Home: nil}
	got := roundTrip(t, s, p, reflect.TypeOf(person{}))
	out := got.(*person)
	require.Nil(t, out.Home)
}

func TestSerializerMap(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider())

	m := map[string]int32{"a": 1, "b": 2, "c": 3}
	got := roundTrip(t, s, m, reflect.TypeOf(map[string]int32{}))
	require.Equal(t, m, got)
}

func TestSerializerSlice(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider())

	sl := []int64{1, 2, 3, 4, 5}
	got := roundTrip(t, s, sl, reflect.TypeOf([]int64{}))
	require.Equal(t, sl, got)
}

type status int32

const (
	statusActive status = iota
	statusInactive
)

func TestSerializerEnumByName(t *testing.T) {
	provider := reflectshape.NewProvider()
	provider.RegisterEnum(reflect.TypeOf(status(0)), []shapewire.EnumMember{
		{Name: "ACTIVE", Value: int64(statusActive)},
		{Name: "INACTIVE", Value: int64(statusInactive)},
	}, false)

	s := shapewire.NewSerializer(provider, shapewire.WithSerializeEnumValuesByName(true))

	got := roundTrip(t, s, statusInactive, reflect.TypeOf(status(0)))
	require.Equal(t, statusInactive, got)
}

func TestSerializerEnumOrdinal(t *testing.T) {
	provider := reflectshape.NewProvider()
	provider.RegisterEnum(reflect.TypeOf(status(0)), []shapewire.EnumMember{
		{Name: "ACTIVE", Value: int64(statusActive)},
		{Name: "INACTIVE", Value: int64(statusInactive)},
	}, false)

	s := shapewire.NewSerializer(provider)

	got := roundTrip(t, s, statusActive, reflect.TypeOf(status(0)))
	require.Equal(t, statusActive, got)
}

type shape interface{ isShape() }

type circle struct {
	Radius float64 `msgpack:"radius"`
}

func (circle) isShape() {}

type square struct {
	Side float64 `msgpack:"side"`
}

func (square) isShape() {}

func TestSerializerUnion(t *testing.T) {
	provider := reflectshape.NewProvider()
	baseType := reflect.TypeOf((*shape)(nil)).Elem()
	provider.RegisterUnion(baseType, false,
		reflectshape.UnionCaseSpec{Type: reflect.TypeOf(circle{}), Tag: 1, HasTag: true},
		reflectshape.UnionCaseSpec{Type: reflect.TypeOf(square{}), Tag: 2, HasTag: true},
	)

	s := shapewire.NewSerializer(provider)

	data, err := s.Serialize(context.Background(), circle{Radius: 2.5})
	require.NoError(t, err)

	out, err := s.Deserialize(context.Background(), data, reflect.TypeOf(circle{}))
	require.NoError(t, err)
	require.Equal(t, circle{Radius: 2.5}, *out.(*circle))
}

func TestSerializerReferencePreservation(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider(),
		shapewire.WithReferencePreservation(shapewire.ReferencePreservationPerCall))

	shared := &address{Street: "1 Shared Ave", City: "Townsville"}
	type pair struct {
		A *address `msgpack:"a"`
		B *address `msgpack:"b"`
	}
	p := pair{A: shared, B: shared}

	got := roundTrip(t, s, p, reflect.TypeOf(pair{}))
	out := got.(*pair)
	require.Same(t, out.A, out.B)
}

type cyclicA struct {
	Name string   `msgpack:"name"`
	Next *cyclicB `msgpack:"next"`
}

type cyclicB struct {
	Name string   `msgpack:"name"`
	Back *cyclicA `msgpack:"back"`
}

// TestSerializerReferencePreservationTrueCycle exercises a true A -> B ->
// A cycle (§8 scenario 6), not just two fields sharing one leaf object:
// decoding b's back-reference to a happens while a itself is still being
// decoded, which only resolves if a's identity was registered before its
// fields were read.
func TestSerializerReferencePreservationTrueCycle(t *testing.T) {
	s := shapewire.NewSerializer(reflectshape.NewProvider(),
		shapewire.WithReferencePreservation(shapewire.ReferencePreservationPerCall))

	a := &cyclicA{Name: "a"}
	b := &cyclicB{Name: "b", Back: a}
	a.Next = b

	got := roundTrip(t, s, a, reflect.TypeOf(a))
	out := got.(*cyclicA)
	require.Equal(t, "a", out.Name)
	require.NotNil(t, out.Next)
	require.Equal(t, "b", out.Next.Name)
	require.Same(t, out, out.Next.Back)
}
