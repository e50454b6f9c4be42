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

// referenceTable implements §4.10 Reference Preservation: on write it
// records seen objects by pointer identity and, on re-encountering one,
// signals the caller to emit a reference extension token instead of the
// full payload. On read it records decoded objects by ID so later
// reference tokens resolve to the same instance. A true cycle (A -> B ->
// A) only resolves correctly if A's identity is registered before B's
// back-reference to A is decoded; see earlyRegisterReader.
type referenceTable struct {
	// write side
	seen    map[uintptr]int
	nextID  int
	// read side
	decoded map[int]any
}

func newReferenceTable() *referenceTable {
	return &referenceTable{seen: map[uintptr]int{}, decoded: map[int]any{}}
}

// identity returns the pointer address backing v and whether v is a
// reference kind at all (reference preservation only applies to
// pointer/map/slice-shaped object representations).
func identity(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

// TrackWrite registers v as about to be written. It returns the
// reference ID to use and whether v was already seen (in which case the
// caller must emit a reference extension token carrying id instead of
// the full payload).
func (t *referenceTable) TrackWrite(v any) (id int, alreadySeen bool) {
	ptr, isRef := identity(v)
	if !isRef {
		return 0, false
	}
	if id, ok := t.seen[ptr]; ok {
		return id, true
	}
	t.nextID++
	t.seen[ptr] = t.nextID
	return t.nextID, false
}

// RegisterRead records a freshly decoded object under the next sequential
// ID, mirroring the writer's first-seen ordering, and returns that ID.
func (t *referenceTable) RegisterRead(v any) int {
	t.nextID++
	t.decoded[t.nextID] = v
	return t.nextID
}

// Resolve returns the previously decoded object for a reference token's
// ID.
func (t *referenceTable) Resolve(id int) (any, bool) {
	v, ok := t.decoded[id]
	return v, ok
}

// earlyRegisterReader is implemented by converters (the object converter,
// for shapes without a constructor, and the optional and
// reference-preserving wrappers, which forward to their inner converter)
// that can hand back
// a placeholder identity before decoding nested fields. Without it, a
// converter's Read must fully return before referencePreservingConverter
// can register the decoded value, so a true cycle (A -> B -> A) fails:
// while A is still being decoded, B's back-reference to A looks up an ID
// that is never registered until A finishes, which requires B to finish
// first. register may be called synchronously from inside Read/ReadWith-
// EarlyRegistration, at the point the identity becomes available.
type earlyRegisterReader interface {
	ReadWithEarlyRegistration(ctx *SerializationContext, buf *ByteBuffer, register func(placeholder any)) (any, error)
}

// referencePreservingConverter wraps an inner converter with the
// bookkeeping described above, installed at build time per §4.2 rule 6
// when Policy.PreserveReferences != ReferencePreservationOff.
//
// track reports whether this particular wrap owns an identity: builder.
// build wraps every shape, but a pointer shape's element shape (e.g. the
// struct an *address unwraps to) is never itself reachable by a second
// path once dereferenced, so identity() never reports it as a reference
// kind and the write side's TrackWrite is always a no-op for it. A wrap
// with track false must therefore never call TrackWrite/RegisterRead
// itself — only forward — or the read side assigns reference ids the
// write side never consumed, desynchronizing every id after it.
type referencePreservingConverter struct {
	inner Converter
	codes ExtensionTypeCodes
	track bool
}

func newReferencePreservingConverter(inner Converter, codes ExtensionTypeCodes, track bool) Converter {
	return &referencePreservingConverter{inner: inner, codes: codes, track: track}
}

func (c *referencePreservingConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	if ctx.refs == nil || !c.track {
		return c.inner.Write(ctx, buf, value)
	}
	id, seen := ctx.refs.TrackWrite(value)
	if seen {
		var payload [8]byte
		n := putUvarint(payload[:], uint64(id))
		buf.WriteExtension(c.codes.ReferenceID, payload[:n])
		return nil
	}
	return c.inner.Write(ctx, buf, value)
}

func (c *referencePreservingConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	v, err := c.readTracked(ctx, buf, nil)
	return v, err
}

// ReadWithEarlyRegistration implements earlyRegisterReader. A track-false
// wrap has no identity of its own to offer, so it simply forwards the
// register callback down to whatever its inner converter can supply,
// preserving the earliest possible registration point for a track-true
// ancestor (e.g. the optional wrap around a pointer) further up the tree.
func (c *referencePreservingConverter) ReadWithEarlyRegistration(ctx *SerializationContext, buf *ByteBuffer, register func(any)) (any, error) {
	return c.readTracked(ctx, buf, register)
}

func (c *referencePreservingConverter) readTracked(ctx *SerializationContext, buf *ByteBuffer, register func(any)) (any, error) {
	if ctx.refs == nil || !c.track {
		if er, ok := c.inner.(earlyRegisterReader); ok {
			return er.ReadWithEarlyRegistration(ctx, buf, register)
		}
		v, err := c.inner.Read(ctx, buf)
		if err != nil {
			return nil, err
		}
		if register != nil {
			register(v)
		}
		return v, nil
	}
	var peekErr Error
	typ := buf.PeekNextType(&peekErr)
	if !peekErr.HasError() && typ == TypeExt {
		save := buf.ReaderIndex()
		var err Error
		code, payload := buf.ReadExtension(&err)
		if !err.HasError() && code == c.codes.ReferenceID {
			id, _ := getUvarint(payload)
			v, ok := ctx.refs.Resolve(int(id))
			if !ok {
				return nil, InvalidDataError("unresolved reference id %d", id)
			}
			if register != nil {
				register(v)
			}
			return v, nil
		}
		buf.SetReaderIndex(save)
	}
	if !peekErr.HasError() && typ == TypeNil {
		return c.inner.Read(ctx, buf) // a nil took no id on the write side
	}
	// Take the id before decoding the contents, as TrackWrite numbers a
	// value before anything nested in it.
	ctx.refs.nextID++
	id := ctx.refs.nextID
	if er, ok := c.inner.(earlyRegisterReader); ok {
		var registered bool
		v, err := er.ReadWithEarlyRegistration(ctx, buf, func(placeholder any) {
			registered = true
			ctx.refs.decoded[id] = placeholder
			if register != nil {
				register(placeholder)
			}
		})
		if err != nil {
			return nil, err
		}
		if !registered {
			ctx.refs.decoded[id] = v
			if register != nil {
				register(v)
			}
		}
		return v, nil
	}
	v, err := c.inner.Read(ctx, buf)
	if err != nil {
		return nil, err
	}
	ctx.refs.decoded[id] = v
	if register != nil {
		register(v)
	}
	return v, nil
}

func (c *referencePreservingConverter) PreferAsync() bool { return c.inner.PreferAsync() }

// isIdentityKind mirrors identity()'s own switch: the set of reflect.Kinds
// Go gives a stable, comparable identity to. Computed from a shape's
// static type at build time rather than identity() itself since no value
// exists yet to inspect.
func isIdentityKind(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

func putUvarint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

func getUvarint(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1
		}
		shift += 7
	}
	return v, len(buf)
}
