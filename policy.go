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

// SerializeDefaults is a bitset controlling when a property is emitted
// regardless of whether its value equals the declared default (§4.2
// default-value policy, §6.3 serialize_default_values).
type SerializeDefaults uint8

const (
	SerializeDefaultsNever SerializeDefaults = 0
	SerializeDefaultsAlways SerializeDefaults = 1 << (iota - 1)
	SerializeDefaultsValueTypes
	SerializeDefaultsReferenceTypes
	SerializeDefaultsRequired
)

func (f SerializeDefaults) has(bit SerializeDefaults) bool { return f&bit != 0 }

// DeserializeDefaults is a bitset controlling non-null enforcement and
// required-property leniency on the read side.
type DeserializeDefaults uint8

const (
	DeserializeDefaultsNone                  DeserializeDefaults = 0
	AllowNullValuesForNonNullableProperties  DeserializeDefaults = 1 << (iota - 1)
	AllowMissingValuesForRequiredProperties
)

func (f DeserializeDefaults) has(bit DeserializeDefaults) bool { return f&bit != 0 }

// ReferencePreservationMode selects how long the reference map (§4.10)
// lives.
type ReferencePreservationMode uint8

const (
	ReferencePreservationOff ReferencePreservationMode = iota
	ReferencePreservationPerCall
	ReferencePreservationCrossCall
)

// MultiDimensionalArrayFormat selects the wire layout for rank>1
// enumerables (§4.7).
type MultiDimensionalArrayFormat uint8

const (
	MultiDimensionalArrayNested MultiDimensionalArrayFormat = iota
	MultiDimensionalArrayFlat
)

// NamingPolicyFunc maps a declared member name to its wire name. A nil
// func is the identity (no renaming).
type NamingPolicyFunc func(declaredName string) string

// ComparerProvider supplies an equality/ordering comparer for a keyed
// collection's element/key type; nil means "use the platform default"
// (Go's built-in map key equality for this Go implementation).
type ComparerProvider interface {
	ComparerFor(t Shape) (Comparer, bool)
}

// Comparer is a value-level equality + hash pair, used for dictionary
// keys (§9 "Custom comparers per member"). Should-serialize default
// comparisons do not use it; they use reflect.DeepEqual.
type Comparer struct {
	Equal func(a, b any) bool
	Hash  func(v any) uint64
}

// Policy bundles every serializer-wide option from §6.3 into one
// immutable value. A Serializer holds one Policy; changing any field
// requires building a new Serializer (and therefore a new
// ConverterCache), per §3.1's lifetime rule.
type Policy struct {
	MultiDimensionalArrayFormat MultiDimensionalArrayFormat
	PropertyNamingPolicy        NamingPolicyFunc
	ComparerProvider            ComparerProvider
	PerfOverSchemaStability     bool
	IgnoreKeyAttributes         bool
	SerializeEnumValuesByName   bool
	SerializeDefaults           SerializeDefaults
	DeserializeDefaults         DeserializeDefaults
	PreserveReferences          ReferencePreservationMode
	InternStrings               bool
	UseDiscriminatorObjects     bool
	DisableHardwareAcceleration bool
	MaxAsyncBuffer              int
	MaxDepth                    int

	// ExtensionTypeCodes is the extension type-code table (§6.1);
	// DefaultPolicy fills it with DefaultExtensionTypeCodes(). Only
	// ReferenceID is read from here; the extension-backed primitives
	// always write the DefaultExtensionTypeCodes() codes.
	ExtensionTypeCodes ExtensionTypeCodes

	// CustomConverters, CustomConverterFactories are consulted first in
	// resolution order (§4.2 rule 1), in this slice order.
	CustomConverters        map[TypeKey]Converter
	CustomConverterFactories []ConverterFactory

	// NamedConverters backs the third sub-step of §4.2 rule 1: a member or
	// type that designates a converter by name (NamedConverterShape,
	// Property.CustomConverterName) is looked up here.
	NamedConverters map[string]Converter

	// DerivedTypeUnions lets runtime configuration override, extend, or
	// disable statically-declared unions (§6.3 derived_type_unions).
	DerivedTypeUnions map[TypeKey]UnionOverride
}

// TypeKey identifies a reflect.Type for map keys without importing
// reflect into every call site; see typeKeyFor.
type TypeKey struct {
	pkgPath string
	name    string
}

// ConverterFactory builds a Converter for a shape when no exact-type
// custom converter matched (§4.2 rule 1, factory list).
type ConverterFactory interface {
	New(shape Shape, cache *ConverterCache) (Converter, bool)
}

// UnionOverride replaces or disables a statically-declared union at
// runtime (§4.6 "Disabling at runtime").
type UnionOverride struct {
	Disabled bool
	Cases    []UnionCase // when non-nil and not Disabled, replaces the static case list
}

// ExtensionTypeCodes assigns msgpack extension type codes to the engine's
// built-in extension-backed primitives (§6.1), overridable to avoid
// collisions with other ecosystems sharing the same wire.
type ExtensionTypeCodes struct {
	Guid           int8
	BigInteger     int8
	Decimal        int8
	Int128         int8
	UInt128        int8
	Float16        int8
	ReferenceID    int8
	DateTime       int8
	DateTimeLocal  int8
}

// DefaultExtensionTypeCodes returns the engine's built-in assignment.
func DefaultExtensionTypeCodes() ExtensionTypeCodes {
	return ExtensionTypeCodes{
		Guid:          1,
		BigInteger:    2,
		Decimal:       3,
		Int128:        4,
		UInt128:       5,
		Float16:       6,
		ReferenceID:   7,
		DateTime:      8,
		DateTimeLocal: 9,
	}
}

// DefaultPolicy returns the engine's out-of-the-box configuration.
func DefaultPolicy() Policy {
	return Policy{
		SerializeDefaults:   SerializeDefaultsValueTypes | SerializeDefaultsRequired,
		DeserializeDefaults: DeserializeDefaultsNone,
		PreserveReferences:  ReferencePreservationOff,
		MaxAsyncBuffer:      64 * 1024,
		MaxDepth:            64,
		ExtensionTypeCodes:  DefaultExtensionTypeCodes(),
	}
}
