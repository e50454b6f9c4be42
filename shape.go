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

package shapewire

import "reflect"

// Kind discriminates the polymorphic shape tree the engine consumes.
// This boundary is supplied by the caller (or by reflectshape, the one
// concrete implementation this repo ships) — the builder never assumes a
// particular provider.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindObject
	KindUnion
	KindEnum
	KindOptional
	KindDictionary
	KindEnumerable
	KindSurrogate
	KindFunction // rejected: UnsupportedOperationError
)

// Shape is the minimal contract every node in the shape tree satisfies.
// Concrete richer behavior is obtained by type-asserting to ObjectShape,
// UnionShape, EnumShape, OptionalShape, DictionaryShape, EnumerableShape,
// or SurrogateShape according to Kind().
type Shape interface {
	Kind() Kind
	// Type is the concrete Go type this shape describes. Two shapes with
	// the same Type are not required to be the same Shape value, but the
	// ConverterCache keys on Shape identity (§3.2), not on Type.
	Type() reflect.Type
}

// ConstructorParameter describes one parameter of a type's unique
// constructor.
type ConstructorParameter struct {
	Name         string
	Position     int
	Type         reflect.Type
	Required     bool
	HasDefault   bool
	DefaultValue any
}

// Constructor describes the single constructor the builder invokes to
// materialize a deserialized object. Shapes expose exactly one (per §3.1
// ArgumentState having "one slot per parameter").
type Constructor struct {
	Parameters []ConstructorParameter
	// Invoke builds a T given argument values positioned per Parameters.
	Invoke func(args []any) (any, error)
}

// Marshaler is the identity-preserving pair between a type and its
// surrogate, per §4.9. Either half may be nil only for a one-directional
// surrogate (e.g. write-only raw passthrough); ordinary surrogates supply
// both.
type Marshaler struct {
	// Marshal converts a T (nil-able) to the surrogate's value (nil-able).
	Marshal func(v any) (surrogate any, err error)
	// Unmarshal converts a surrogate value back to T.
	Unmarshal func(surrogate any) (v any, err error)
}

// Property describes one member of an object shape.
type Property struct {
	Name         string
	WireName     string // explicit wire name; when empty, property_naming_policy (or Name) applies
	Type         reflect.Type
	HasGetter    bool
	HasSetter    bool
	Nullable     bool
	Required     bool
	KeyIndex     int // -1 if not explicitly indexed
	IsUnusedData bool
	Get          func(obj any) (any, error)
	Set          func(obj any, value any) error
	// ShouldSerialize reports whether to emit this property under the
	// current default-value policy; nil means "always consult policy
	// default comparison against DefaultValue".
	ShouldSerialize func(obj any) bool
	DefaultValue    any
	// Param, if non-nil, is the constructor parameter this property feeds
	// on deserialization (property/parameter matching, §4.2).
	Param *ConstructorParameter
	// CustomConverterName, if non-empty, names a converter registered via
	// Policy.NamedConverters that this specific member should use instead
	// of the type-driven resolution the rest of §4.2 rule 1 would produce
	// (the "attribute-designated custom converter on the member" case).
	CustomConverterName string
}

// NamedConverterShape is implemented by a Shape that can designate a
// custom converter by name: the third sub-step of §4.2 rule 1,
// "attribute-designated custom converter on the member or type," resolved
// against Policy.NamedConverters. reflectshape.Provider implements this
// for a type that implements reflectshape.ConverterNamed; the
// member-level counterpart lives on Property.CustomConverterName instead,
// since a member directive can vary between two fields of the same type.
type NamedConverterShape interface {
	Shape
	CustomConverterName() string
}

// ObjectShape is the Shape for struct-like types (kind Object).
type ObjectShape interface {
	Shape
	Properties() []Property
	Constructor() *Constructor
	// New constructs a zero-value instance for the default-constructor path.
	New() any
	// Surrogate, if non-nil, routes all reads/writes of this type through
	// the surrogate's shape instead (§4.2 rule 3).
	Surrogate() (Marshaler, Shape, bool)
}

// UnionCase is one declared derived type of a union base.
type UnionCase struct {
	Tag       int
	HasTag    bool
	Name      string
	HasName   bool
	CaseShape Shape
	Marshaler *Marshaler
}

// UnionShape is the Shape for polymorphic base types (kind Union).
type UnionShape interface {
	Shape
	Cases() []UnionCase
	// BaseShape describes the base type's own properties (nil discriminator case).
	BaseShape() Shape
	// CaseIndex returns the index into Cases() for value's runtime type, or -1.
	CaseIndex(value any) int
	// DuckTyped reports whether this union has no wire discriminator and
	// instead matches on required-property sets (§4.6 experimental variant).
	DuckTyped() bool
}

// EnumMember is one named value of an enum shape.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumShape is the Shape for enum types (kind Enum).
type EnumShape interface {
	Shape
	Members() []EnumMember
	CaseSensitive() bool
}

// OptionalShape is the Shape for optional/nullable wrappers (kind Optional).
type OptionalShape interface {
	Shape
	Elem() Shape
	// Wrap/Unwrap bridge between the wrapper representation (a pointer,
	// for reflectshape.Provider) and the bare element value.
	Wrap(value any, present bool) any
	Unwrap(wrapped any) (value any, present bool)
}

// ConstructionMode describes how a collection is rebuilt on deserialize.
type ConstructionMode uint8

const (
	ConstructNone ConstructionMode = iota // serialize-only
	ConstructMutable
	ConstructParameterized
)

// EnumerableShape is the Shape for sequence types (kind Enumerable).
type EnumerableShape interface {
	Shape
	ElementShape() Shape
	Rank() int // 1 for a flat sequence; >1 for multi-dimensional arrays
	Mode() ConstructionMode
	Enumerate(value any) ([]any, error)
	// NewMutable returns a fresh builder handle and an Append func.
	NewMutable() (handle any, appendFn func(handle any, elem any) any)
	// FromElements builds the collection directly for the parameterized mode.
	FromElements(elems []any) (any, error)
	Finish(handle any) any
}

// DictionaryShape is the Shape for key/value map types (kind Dictionary).
type DictionaryShape interface {
	Shape
	KeyShape() Shape
	ValueShape() Shape
	Mode() ConstructionMode
	Enumerate(value any) ([][2]any, error)
	NewMutable() (handle any, insertFn func(handle any, key, val any) any)
	FromPairs(pairs [][2]any) (any, error)
	Finish(handle any) any
}

// SurrogateShape is a standalone Shape wrapping a Marshaler, used when the
// surrogate relationship is declared independent of an ObjectShape.
type SurrogateShape interface {
	Shape
	Marshaler() Marshaler
	SurrogateOf() Shape
}

// ShapeProvider is the inbound boundary (§6.2): given a reflect.Type, it
// supplies the Shape describing it. The builder consumes this interface
// only; reflectshape.Provider is this repo's one concrete implementation.
type ShapeProvider interface {
	ShapeFor(t reflect.Type) (Shape, error)
}
