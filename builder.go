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

// builder is the shape-directed visitor of §4.2: one handler per shape
// kind, composing a converter tree that mirrors the shape tree. It never
// constructs a converter directly for a shape the cache already has an
// entry for — all recursive sub-converter lookups go back through
// ConverterCache.GetOrBuild so cycles route through the delayed-value
// placeholder.
type builder struct {
	cache    *ConverterCache
	provider ShapeProvider
	policy   *Policy
}

func newBuilder(cache *ConverterCache, provider ShapeProvider, policy *Policy) *builder {
	return &builder{cache: cache, provider: provider, policy: policy}
}

// build runs the full resolution order of §4.2 for one shape.
func (b *builder) build(shape Shape) (Converter, error) {
	// 1. Runtime-registered custom converter / factory for the exact type.
	if conv, ok := b.customConverter(shape); ok {
		return conv, nil
	}

	// 2. Built-in primitive converter table.
	if conv, ok := primitiveConverterFor(shape.Type()); ok {
		return conv, nil
	}

	// 3. Surrogate routing.
	if obj, ok := shape.(ObjectShape); ok {
		if marshaler, surrogateShape, has := obj.Surrogate(); has {
			inner, err := b.cache.GetOrBuild(surrogateShape)
			if err != nil {
				return nil, err
			}
			return newSurrogateConverter(marshaler, inner), nil
		}
	}
	if surr, ok := shape.(SurrogateShape); ok {
		inner, err := b.cache.GetOrBuild(surr.SurrogateOf())
		if err != nil {
			return nil, err
		}
		return newSurrogateConverter(surr.Marshaler(), inner), nil
	}

	// 4. Shape-kind-specific family converter.
	conv, err := b.buildByKind(shape)
	if err != nil {
		return nil, err
	}

	// 5. Union wrapping for polymorphic object bases.
	if union, ok := shape.(UnionShape); ok {
		conv, err = b.wrapUnion(union, conv)
		if err != nil {
			return nil, err
		}
	}

	// 6. Reference-preservation envelope. track is false for a shape Go
	// gives no stable identity to (a struct reached by value, e.g. the
	// element shape behind a pointer once dereferenced): such a wrap must
	// never consume a reference id itself, only forward, or the read side
	// registers ids the write side's TrackWrite never assigned. See
	// referencePreservingConverter's track field.
	if b.policy.PreserveReferences != ReferencePreservationOff {
		conv = newReferencePreservingConverter(conv, b.policy.ExtensionTypeCodes, isIdentityKind(shape.Type().Kind()))
	}

	return conv, nil
}

func (b *builder) customConverter(shape Shape) (Converter, bool) {
	key := typeKeyFor(shape.Type())
	if conv, ok := b.policy.CustomConverters[key]; ok {
		return conv, true
	}
	for _, factory := range b.policy.CustomConverterFactories {
		if conv, ok := factory.New(shape, b.cache); ok {
			return conv, true
		}
	}
	// 1c. Attribute-designated custom converter on the type itself. The
	// member-level counterpart (a property's own CustomConverterName) is
	// resolved by the object converter when it builds that property's
	// converter, not here, since two members of the same type can name
	// different converters.
	if named, ok := shape.(NamedConverterShape); ok {
		if name := named.CustomConverterName(); name != "" {
			if conv, ok := b.policy.NamedConverters[name]; ok {
				return conv, true
			}
		}
	}
	return nil, false
}

func (b *builder) buildByKind(shape Shape) (Converter, error) {
	switch shape.Kind() {
	case KindObject:
		return b.buildObject(shape.(ObjectShape))
	case KindUnion:
		return b.buildUnionBase(shape.(UnionShape))
	case KindEnum:
		return b.buildEnum(shape.(EnumShape))
	case KindOptional:
		return b.buildOptional(shape.(OptionalShape))
	case KindDictionary:
		return b.buildDictionary(shape.(DictionaryShape))
	case KindEnumerable:
		return b.buildEnumerable(shape.(EnumerableShape))
	case KindFunction:
		return nil, UnsupportedOperationError("function shapes cannot be serialized")
	default:
		return nil, UnsupportedOperationError("unrecognized shape kind")
	}
}

func typeKeyFor(t any) TypeKey {
	type named interface {
		Name() string
		PkgPath() string
		String() string
	}
	if n, ok := t.(named); ok {
		if n.Name() == "" {
			// Unnamed types ([]int, map[string]T, *T) are keyed by their
			// type literal so they do not all share one empty key.
			return TypeKey{name: n.String()}
		}
		return TypeKey{pkgPath: n.PkgPath(), name: n.Name()}
	}
	return TypeKey{}
}
