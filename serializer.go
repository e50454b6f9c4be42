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

// Package shapewire is a shape-directed MessagePack serialization engine:
// given a ShapeProvider describing a Go type's structure, it builds and
// caches a Converter tree once, then reuses it for every subsequent
// Serialize/Deserialize call against that type.
package shapewire

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Option configures a Serializer at construction time, following the
// teacher's functional-options pattern: each Option mutates the Policy
// (or an adjacent facade setting) being assembled, and NewSerializer
// applies them in order before freezing the result.
type Option func(*Serializer)

// WithMaxDepth overrides the default recursion cap (§3.1, default 64).
func WithMaxDepth(max int) Option {
	return func(s *Serializer) { s.policy.MaxDepth = max }
}

// WithSerializeDefaults sets the default-value emission policy (§6.3).
func WithSerializeDefaults(flags SerializeDefaults) Option {
	return func(s *Serializer) { s.policy.SerializeDefaults = flags }
}

// WithDeserializeDefaults sets the read-side leniency policy (§6.3).
func WithDeserializeDefaults(flags DeserializeDefaults) Option {
	return func(s *Serializer) { s.policy.DeserializeDefaults = flags }
}

// WithReferencePreservation turns on reference-cycle-safe encoding, and
// chooses whether the reference table resets every call or persists
// across calls on one Serializer (§4.10).
func WithReferencePreservation(mode ReferencePreservationMode) Option {
	return func(s *Serializer) { s.policy.PreserveReferences = mode }
}

// WithMultiDimensionalArrayFormat selects nested vs. flat encoding for
// rank>1 enumerables (§4.7).
func WithMultiDimensionalArrayFormat(format MultiDimensionalArrayFormat) Option {
	return func(s *Serializer) { s.policy.MultiDimensionalArrayFormat = format }
}

// WithPropertyNamingPolicy installs a member-name-to-wire-name mapping
// function (e.g. camelCase to snake_case), applied to properties whose
// WireName is empty. reflectshape.Provider sets a WireName on every
// field (the tag name, or the Go field name), so the policy does not
// apply to its shapes.
func WithPropertyNamingPolicy(fn NamingPolicyFunc) Option {
	return func(s *Serializer) { s.policy.PropertyNamingPolicy = fn }
}

// WithPerfOverSchemaStability prefers the array object layout over the
// map layout when neither is forced by explicit key-index attributes
// (§4.2 resolution order).
func WithPerfOverSchemaStability(v bool) Option {
	return func(s *Serializer) { s.policy.PerfOverSchemaStability = v }
}

// WithIgnoreKeyAttributes forces the map object layout even for types
// that declare explicit key indexes.
func WithIgnoreKeyAttributes(v bool) Option {
	return func(s *Serializer) { s.policy.IgnoreKeyAttributes = v }
}

// WithSerializeEnumValuesByName switches enum wire encoding from ordinal
// to name (§4.8), falling back to ordinal per-value when no name exists.
func WithSerializeEnumValuesByName(v bool) Option {
	return func(s *Serializer) { s.policy.SerializeEnumValuesByName = v }
}

// WithUseDiscriminatorObjects selects the object-form union wire shape
// ({discriminator: payload}) over the default array form (§4.6).
func WithUseDiscriminatorObjects(v bool) Option {
	return func(s *Serializer) { s.policy.UseDiscriminatorObjects = v }
}

// WithInternStrings enables string interning (§4.11): decoded strings
// are shared, and, when reference preservation is also on, repeated
// strings are written as reference tokens.
func WithInternStrings(v bool) Option {
	return func(s *Serializer) { s.policy.InternStrings = v }
}

// WithDisableHardwareAcceleration disables any SIMD/unsafe fast paths the
// codec may otherwise take, trading throughput for portability — carried
// over from the teacher's equivalent Fory option.
func WithDisableHardwareAcceleration(v bool) Option {
	return func(s *Serializer) { s.policy.DisableHardwareAcceleration = v }
}

// WithAsyncBufferThreshold stores a payload size (bytes) in
// Policy.MaxAsyncBuffer (§5). No facade method reads it: Serialize and
// Deserialize always run synchronously, and SerializeStream and
// DeserializeStream always run the async drivers.
func WithAsyncBufferThreshold(n int) Option {
	return func(s *Serializer) { s.policy.MaxAsyncBuffer = n }
}

// WithExtensionTypeCodes sets Policy.ExtensionTypeCodes (§6.1). Only its
// ReferenceID code is read (by reference preservation and string
// interning); the extension-backed primitives (Guid, BigInteger, Decimal,
// Int128, UInt128, Float16, time) always write the codes from
// DefaultExtensionTypeCodes().
func WithExtensionTypeCodes(codes ExtensionTypeCodes) Option {
	return func(s *Serializer) { s.policy.ExtensionTypeCodes = codes }
}

// WithComparerProvider installs a custom key comparer provider for
// dictionary shapes (§6.3).
func WithComparerProvider(p ComparerProvider) Option {
	return func(s *Serializer) { s.policy.ComparerProvider = p }
}

// WithCustomConverter registers a converter for one exact type, consulted
// before the primitive table and shape-kind dispatch (§4.2 rule 1).
func WithCustomConverter(t reflect.Type, conv Converter) Option {
	return func(s *Serializer) {
		if s.policy.CustomConverters == nil {
			s.policy.CustomConverters = map[TypeKey]Converter{}
		}
		s.policy.CustomConverters[typeKeyFor(t)] = conv
	}
}

// WithCustomConverterFactory appends a converter factory consulted after
// exact-type custom converters and before the primitive table.
func WithCustomConverterFactory(f ConverterFactory) Option {
	return func(s *Serializer) {
		s.policy.CustomConverterFactories = append(s.policy.CustomConverterFactories, f)
	}
}

// WithNamedConverter registers conv under name, resolvable by a member or
// type that designates it by name (§4.2 rule 1's third sub-step: a
// `msgpack:",converter=name"` field tag, or a type implementing
// reflectshape.ConverterNamed).
func WithNamedConverter(name string, conv Converter) Option {
	return func(s *Serializer) {
		if s.policy.NamedConverters == nil {
			s.policy.NamedConverters = map[string]Converter{}
		}
		s.policy.NamedConverters[name] = conv
	}
}

// WithUnionOverride replaces or disables a statically-declared union for
// one base type at runtime (§6.3 derived_type_unions).
func WithUnionOverride(t reflect.Type, override UnionOverride) Option {
	return func(s *Serializer) {
		if s.policy.DerivedTypeUnions == nil {
			s.policy.DerivedTypeUnions = map[TypeKey]UnionOverride{}
		}
		s.policy.DerivedTypeUnions[typeKeyFor(t)] = override
	}
}

// WithLogger installs the structured logger the ConverterCache uses for
// build/cycle diagnostics; defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Serializer) { s.log = log }
}

// Serializer is the immutable, concurrency-safe facade of §5: one value
// per configuration, built once via NewSerializer and reused for every
// Serialize/Deserialize call. Changing behavior means building a new
// Serializer (and therefore a new ConverterCache), never mutating this one.
type Serializer struct {
	policy   Policy
	provider ShapeProvider
	cache    *ConverterCache
	log      *slog.Logger
	instr    *facadeInstrumentation

	// crossCallMu/crossCallRefs back ReferencePreservationCrossCall: a
	// single reference table shared across every call made through this
	// Serializer, rather than one reset per call.
	crossCallMu   sync.Mutex
	crossCallRefs *referenceTable
}

// NewSerializer builds a Serializer for the given shape provider,
// applying opts over DefaultPolicy().
func NewSerializer(provider ShapeProvider, opts ...Option) *Serializer {
	s := &Serializer{
		policy:   DefaultPolicy(),
		provider: provider,
		instr:    globalFacadeInstrumentation(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newConverterCache(provider, &s.policy, s.log)
	if s.policy.PreserveReferences == ReferencePreservationCrossCall {
		s.crossCallRefs = newReferenceTable()
	}
	return s
}

func (s *Serializer) newContext(ctx context.Context) *SerializationContext {
	var refs *referenceTable
	switch s.policy.PreserveReferences {
	case ReferencePreservationPerCall:
		refs = newReferenceTable()
	case ReferencePreservationCrossCall:
		refs = s.crossCallRefs
	}
	var interned *internTable
	if s.policy.InternStrings {
		interned = newInternTable()
	}
	return newSerializationContext(ctx, &s.policy, s.provider, refs, interned)
}

// Serialize encodes value to MessagePack bytes.
func (s *Serializer) Serialize(ctx context.Context, value any) ([]byte, error) {
	spanCtx, span := s.instr.startSpan(ctx, "serialize")
	defer span.End()
	s.instr.callCounter.Add(spanCtx, 1)

	if s.policy.PreserveReferences == ReferencePreservationCrossCall {
		s.crossCallMu.Lock()
		defer s.crossCallMu.Unlock()
	}

	buf := NewByteBuffer(nil)
	if value == nil {
		buf.WriteNil()
		return buf.Bytes(), nil
	}

	shape, err := s.provider.ShapeFor(reflect.TypeOf(value))
	if err != nil {
		return nil, err
	}
	conv, err := s.cache.GetOrBuild(shape)
	if err != nil {
		return nil, err
	}

	sctx := s.newContext(spanCtx)
	if err := conv.Write(sctx, buf, value); err != nil {
		return nil, err
	}
	s.instr.depthHist.Record(spanCtx, int64(sctx.Depth()))
	return buf.Bytes(), nil
}

// Deserialize decodes MessagePack bytes into a value of type t.
func (s *Serializer) Deserialize(ctx context.Context, data []byte, t reflect.Type) (any, error) {
	spanCtx, span := s.instr.startSpan(ctx, "deserialize")
	defer span.End()
	s.instr.callCounter.Add(spanCtx, 1)

	if s.policy.PreserveReferences == ReferencePreservationCrossCall {
		s.crossCallMu.Lock()
		defer s.crossCallMu.Unlock()
	}

	shape, err := s.provider.ShapeFor(t)
	if err != nil {
		return nil, err
	}
	conv, err := s.cache.GetOrBuild(shape)
	if err != nil {
		return nil, err
	}

	sctx := s.newContext(spanCtx)
	buf := NewByteBuffer(data)
	var peekErr Error
	// A surrogate maps nil through its Unmarshal (e.g. to an empty
	// Optional), so its converter reads the nil token itself.
	if buf.PeekNextType(&peekErr) == TypeNil && shape.Kind() != KindSurrogate {
		buf.ReadNil(&peekErr)
		return nil, peekErr.CheckError()
	}
	v, err := conv.Read(sctx, buf)
	if err != nil {
		return nil, err
	}
	s.instr.depthHist.Record(spanCtx, int64(sctx.Depth()))
	return v, nil
}

// DeserializeStream decodes a value of type t from src, a source that may
// not yet hold the complete encoded payload, pumping additional bytes in
// as the cooperative async state machine requests them (§5, §9).
func (s *Serializer) DeserializeStream(ctx context.Context, t reflect.Type, src ByteSource, prefetched []byte) (any, error) {
	spanCtx, span := s.instr.startSpan(ctx, "deserialize_stream")
	defer span.End()
	s.instr.callCounter.Add(spanCtx, 1)

	shape, err := s.provider.ShapeFor(t)
	if err != nil {
		return nil, err
	}
	conv, err := s.cache.GetOrBuild(shape)
	if err != nil {
		return nil, err
	}

	sctx := s.newContext(spanCtx)
	buf := NewByteBuffer(prefetched)
	driver := newAsyncDriver(conv)
	return driver.Drain(sctx, buf, src)
}

// SerializeStream encodes value through sink, the write-side counterpart
// to DeserializeStream: collection and dictionary converters suspend
// after each element/entry (§5, §9) so buf is drained to sink one chunk
// at a time instead of buffering the whole encoded graph in memory.
func (s *Serializer) SerializeStream(ctx context.Context, value any, sink ByteSink) error {
	spanCtx, span := s.instr.startSpan(ctx, "serialize_stream")
	defer span.End()
	s.instr.callCounter.Add(spanCtx, 1)

	if s.policy.PreserveReferences == ReferencePreservationCrossCall {
		s.crossCallMu.Lock()
		defer s.crossCallMu.Unlock()
	}

	buf := NewByteBuffer(nil)
	if value == nil {
		buf.WriteNil()
		return sink.Drain(buf.Bytes())
	}

	shape, err := s.provider.ShapeFor(reflect.TypeOf(value))
	if err != nil {
		return err
	}
	conv, err := s.cache.GetOrBuild(shape)
	if err != nil {
		return err
	}

	sctx := s.newContext(spanCtx)
	driver := newAsyncWriteDriver(conv)
	if err := driver.Drain(sctx, buf, value, sink); err != nil {
		return err
	}
	s.instr.depthHist.Record(spanCtx, int64(sctx.Depth()))
	return nil
}

// Cache exposes the Serializer's ConverterCache.
func (s *Serializer) Cache() *ConverterCache { return s.cache }

// Policy returns a copy of the effective configuration, for inspection.
func (s *Serializer) Policy() Policy { return s.policy }
