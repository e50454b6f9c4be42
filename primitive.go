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

import (
	"math/big"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/shapewire/shapewire/float16"
)

// This file is the closed primitive table of §4.3, keyed by concrete
// type. Each entry is a value of type primitiveConverter, which also
// knows how to describe itself as a JSON-schema fragment.
type primitiveConverter struct {
	write  func(buf *ByteBuffer, value any) error
	read   func(buf *ByteBuffer) (any, error)
	schema map[string]any

	// readCtx, when set, takes precedence over read. Only the string
	// entry below sets this, to route decoded strings through the
	// context's intern table (§4.11).
	readCtx func(ctx *SerializationContext, buf *ByteBuffer) (any, error)

	// writeCtx, when set, takes precedence over write. Only the string
	// entry below sets this, to suppress re-emission of an already-
	// written string when interning and reference preservation are both
	// enabled (§4.11).
	writeCtx func(ctx *SerializationContext, buf *ByteBuffer, value any) error
}

func (p primitiveConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	if p.writeCtx != nil {
		return p.writeCtx(ctx, buf, value)
	}
	return p.write(buf, value)
}
func (p primitiveConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	if p.readCtx != nil {
		return p.readCtx(ctx, buf)
	}
	return p.read(buf)
}
func (p primitiveConverter) PreferAsync() bool           { return false }
func (p primitiveConverter) JSONSchema() map[string]any { return p.schema }

var primitiveTable = map[reflect.Type]primitiveConverter{}

func registerPrimitive(zero any, schema map[string]any,
	write func(buf *ByteBuffer, value any) error,
	read func(buf *ByteBuffer) (any, error)) {
	primitiveTable[reflect.TypeOf(zero)] = primitiveConverter{write: write, read: read, schema: schema}
}

func primitiveConverterFor(t reflect.Type) (Converter, bool) {
	if c, ok := primitiveTable[t]; ok {
		return c, true
	}
	if c, ok := namedBasicKindConverter(t); ok {
		return c, true
	}
	return nil, false
}

// namedBasicKindConverter handles named types over a basic Go kind (e.g.
// `type Meters float64`, `type Status int32`) that aren't themselves in
// the closed table: it reads/writes through the underlying kind via
// reflection so ordinary type aliasing doesn't require an explicit enum
// or surrogate declaration.
func namedBasicKindConverter(t reflect.Type) (Converter, bool) {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
	default:
		return nil, false
	}
	if t.PkgPath() == "" {
		return nil, false // unnamed basic type would already be in primitiveTable
	}
	return namedBasicConverter{t: t}, true
}

type namedBasicConverter struct{ t reflect.Type }

func (c namedBasicConverter) PreferAsync() bool { return false }

func (c namedBasicConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	rv := reflect.ValueOf(value)
	switch c.t.Kind() {
	case reflect.Bool:
		buf.WriteBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteUint(rv.Uint())
	case reflect.Float32:
		buf.WriteFloat32(float32(rv.Float()))
	case reflect.Float64:
		buf.WriteFloat64(rv.Float())
	case reflect.String:
		buf.WriteStr(rv.String())
	}
	return nil
}

func (c namedBasicConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	var err Error
	out := reflect.New(c.t).Elem()
	switch c.t.Kind() {
	case reflect.Bool:
		out.SetBool(buf.ReadBool(&err))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(buf.ReadInt(&err))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out.SetUint(buf.ReadUint(&err))
	case reflect.Float32, reflect.Float64:
		out.SetFloat(buf.ReadFloat64(&err))
	case reflect.String:
		out.SetString(buf.ReadStr(&err))
	}
	if err.HasError() {
		return nil, err.CheckError()
	}
	return out.Interface(), nil
}

func init() {
	registerPrimitive(false, map[string]any{"type": "boolean"},
		func(buf *ByteBuffer, v any) error { buf.WriteBool(v.(bool)); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadBool(&err)
			return v, err.CheckError()
		})

	registerSignedInt[int8](map[string]any{"type": "integer", "format": "int8"})
	registerSignedInt[int16](map[string]any{"type": "integer", "format": "int16"})
	registerSignedInt[int32](map[string]any{"type": "integer", "format": "int32"})
	registerSignedInt[int64](map[string]any{"type": "integer", "format": "int64"})
	registerSignedInt[int](map[string]any{"type": "integer"})

	registerUnsignedInt[uint8](map[string]any{"type": "integer", "format": "uint8"})
	registerUnsignedInt[uint16](map[string]any{"type": "integer", "format": "uint16"})
	registerUnsignedInt[uint32](map[string]any{"type": "integer", "format": "uint32"})
	registerUnsignedInt[uint64](map[string]any{"type": "integer", "format": "uint64"})
	registerUnsignedInt[uint](map[string]any{"type": "integer"})

	registerPrimitive(float32(0), map[string]any{"type": "number", "format": "float"},
		func(buf *ByteBuffer, v any) error { buf.WriteFloat32(v.(float32)); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadFloat32(&err)
			return v, err.CheckError()
		})
	registerPrimitive(float64(0), map[string]any{"type": "number", "format": "double"},
		func(buf *ByteBuffer, v any) error { buf.WriteFloat64(v.(float64)); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadFloat64(&err)
			return v, err.CheckError()
		})

	registerPrimitive(float16.Zero, map[string]any{"type": "number", "format": "float16"},
		func(buf *ByteBuffer, v any) error {
			f := v.(float16.Float16)
			var payload [2]byte
			payload[0] = byte(f.Bits())
			payload[1] = byte(f.Bits() >> 8)
			codes := DefaultExtensionTypeCodes()
			buf.WriteExtension(codes.Float16, payload[:])
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() || len(payload) != 2 {
				return float16.Zero, InvalidDataError("malformed float16 extension")
			}
			return float16.Float16FromBits(uint16(payload[0]) | uint16(payload[1])<<8), nil
		})

	registerPrimitive("", map[string]any{"type": "string"},
		func(buf *ByteBuffer, v any) error { buf.WriteStr(v.(string)); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadStr(&err)
			return v, err.CheckError()
		})
	if c, ok := primitiveTable[reflect.TypeOf("")]; ok {
		c.readCtx = func(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
			var err Error
			v := internOrRead(ctx, buf, &err)
			return v, err.CheckError()
		}
		c.writeCtx = func(ctx *SerializationContext, buf *ByteBuffer, v any) error {
			return writeInternedStr(ctx, buf, v.(string))
		}
		primitiveTable[reflect.TypeOf("")] = c
	}

	registerPrimitive([]byte(nil), map[string]any{"type": "string", "format": "byte"},
		func(buf *ByteBuffer, v any) error { buf.WriteBin(v.([]byte)); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadBin(&err)
			return v, err.CheckError()
		})

	registerPrimitive(RawMessage(nil), map[string]any{"type": "object", "description": "already-encoded msgpack"},
		func(buf *ByteBuffer, v any) error { buf.WriteRaw(v.(RawMessage)); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			buf.SkipOneStructure(&err)
			return RawMessage(nil), err.CheckError()
		})

	registerPrimitive(time.Time{}, map[string]any{"type": "string", "format": "date-time"},
		func(buf *ByteBuffer, v any) error {
			t := v.(time.Time)
			codes := DefaultExtensionTypeCodes()
			code := codes.DateTime
			tu := t.UTC()
			var payload [12]byte
			putInt64(payload[:8], tu.Unix())
			putInt32(payload[8:], int32(tu.Nanosecond()))
			buf.WriteExtension(code, payload[:])
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() || len(payload) != 12 {
				return time.Time{}, InvalidDataError("malformed date-time extension")
			}
			sec := getInt64(payload[:8])
			nsec := getInt32(payload[8:])
			return time.Unix(sec, int64(nsec)).UTC(), nil
		})

	registerPrimitive(time.Duration(0), map[string]any{"type": "integer", "format": "duration-ns"},
		func(buf *ByteBuffer, v any) error { buf.WriteInt(int64(v.(time.Duration))); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadInt(&err)
			return time.Duration(v), err.CheckError()
		})

	registerPrimitive(uuid.UUID{}, map[string]any{"type": "string", "format": "uuid"},
		func(buf *ByteBuffer, v any) error {
			id := v.(uuid.UUID)
			codes := DefaultExtensionTypeCodes()
			b := id
			buf.WriteExtension(codes.Guid, b[:])
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() || len(payload) != 16 {
				return uuid.UUID{}, InvalidDataError("malformed guid extension")
			}
			var id uuid.UUID
			copy(id[:], payload)
			return id, nil
		})

	registerPrimitive(url.URL{}, map[string]any{"type": "string", "format": "uri"},
		func(buf *ByteBuffer, v any) error { u := v.(url.URL); buf.WriteStr(u.String()); return nil },
		func(buf *ByteBuffer) (any, error) {
			var err Error
			s := buf.ReadStr(&err)
			if err.HasError() {
				return url.URL{}, err.CheckError()
			}
			u, parseErr := url.Parse(s)
			if parseErr != nil {
				return url.URL{}, InvalidDataError("invalid uri %q: %v", s, parseErr)
			}
			return *u, nil
		})

	registerPrimitive(big.Int{}, map[string]any{"type": "string", "format": "bigint"},
		func(buf *ByteBuffer, v any) error {
			n := v.(big.Int)
			codes := DefaultExtensionTypeCodes()
			buf.WriteExtension(codes.BigInteger, bigIntToTwosComplement(&n))
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() {
				return big.Int{}, err.CheckError()
			}
			return *bigIntFromTwosComplement(payload), nil
		})

	registerPrimitive(Int128{}, map[string]any{"type": "string", "format": "int128"},
		func(buf *ByteBuffer, v any) error {
			n := v.(Int128)
			codes := DefaultExtensionTypeCodes()
			buf.WriteExtension(codes.Int128, n[:])
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() || len(payload) != 16 {
				return Int128{}, InvalidDataError("malformed int128 extension")
			}
			var n Int128
			copy(n[:], payload)
			return n, nil
		})

	registerPrimitive(UInt128{}, map[string]any{"type": "string", "format": "uint128"},
		func(buf *ByteBuffer, v any) error {
			n := v.(UInt128)
			codes := DefaultExtensionTypeCodes()
			buf.WriteExtension(codes.UInt128, n[:])
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() || len(payload) != 16 {
				return UInt128{}, InvalidDataError("malformed uint128 extension")
			}
			var n UInt128
			copy(n[:], payload)
			return n, nil
		})

	registerPrimitive(Decimal{}, map[string]any{"type": "string", "format": "decimal"},
		func(buf *ByteBuffer, v any) error {
			d := v.(Decimal)
			codes := DefaultExtensionTypeCodes()
			buf.WriteExtension(codes.Decimal, d[:])
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			_, payload := buf.ReadExtension(&err)
			if err.HasError() || len(payload) != 16 {
				return Decimal{}, InvalidDataError("malformed decimal extension")
			}
			var d Decimal
			copy(d[:], payload)
			return d, nil
		})

	registerPrimitive(Color{}, map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		func(buf *ByteBuffer, v any) error {
			c := v.(Color)
			buf.WriteArrayHeader(4)
			buf.WriteUint(uint64(c.R))
			buf.WriteUint(uint64(c.G))
			buf.WriteUint(uint64(c.B))
			buf.WriteUint(uint64(c.A))
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			n := buf.ReadArrayHeader(&err)
			if n != 3 && n != 4 {
				return Color{}, InvalidDataError("expected color array of length 3 or 4, got %d", n)
			}
			c := Color{A: 255}
			c.R = uint8(buf.ReadUint(&err))
			c.G = uint8(buf.ReadUint(&err))
			c.B = uint8(buf.ReadUint(&err))
			if n == 4 {
				c.A = uint8(buf.ReadUint(&err))
			}
			return c, err.CheckError()
		})

	registerPrimitive(Point{}, map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		func(buf *ByteBuffer, v any) error {
			p := v.(Point)
			buf.WriteArrayHeader(2)
			buf.WriteInt(int64(p.X))
			buf.WriteInt(int64(p.Y))
			return nil
		},
		func(buf *ByteBuffer) (any, error) {
			var err Error
			n := buf.ReadArrayHeader(&err)
			if n != 2 {
				return Point{}, InvalidDataError("expected point array of length 2, got %d", n)
			}
			x := buf.ReadInt(&err)
			y := buf.ReadInt(&err)
			return Point{X: int(x), Y: int(y)}, err.CheckError()
		})
}

// RawMessage is the "raw passthrough" primitive of §4.3: already-encoded
// msgpack bytes, written verbatim and skipped (not materialized) on read.
type RawMessage []byte

// Int128 is a 128-bit signed integer's two's-complement big-endian byte
// representation, the extension-backed primitive of §4.3.
type Int128 [16]byte

// UInt128 is a 128-bit unsigned integer's big-endian byte representation.
type UInt128 [16]byte

// Decimal is a normalized 128-bit decimal byte layout, the
// extension-backed primitive of §4.3. This Go implementation does not
// interpret the bytes; callers supplying/consuming Decimal values own the
// platform-specific 128-bit decimal encoding.
type Decimal [16]byte

// Color is the 3-4 channel color primitive of §4.3.
type Color struct{ R, G, B, A uint8 }

// Point is the two-int point primitive of §4.3.
type Point struct{ X, Y int }

func bigIntToTwosComplement(n *big.Int) []byte {
	if n.Sign() >= 0 {
		b := n.Bytes()
		if len(b) > 0 && b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		if len(b) == 0 {
			return []byte{0}
		}
		return b
	}
	nBits := n.BitLen() + 1
	nBytes := (nBits + 7) / 8
	twos := new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8)))
	b := twos.Bytes()
	for len(b) < nBytes {
		b = append([]byte{0}, b...)
	}
	return b
}

func bigIntFromTwosComplement(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}

func putInt64(buf []byte, v int64)  { putUint64(buf, uint64(v)) }
func putUint64(buf []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}
func getInt64(buf []byte) int64 { return int64(getUint64(buf)) }
func getUint64(buf []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
func putInt32(buf []byte, v int32) {
	u := uint32(v)
	for i := 3; i >= 0; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
}
func getInt32(buf []byte) int32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v = v<<8 | uint32(buf[i])
	}
	return int32(v)
}

type signedInt interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsignedInt interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func registerSignedInt[T signedInt](schema map[string]any) {
	var zero T
	primitiveTable[reflect.TypeOf(zero)] = primitiveConverter{
		schema: schema,
		write: func(buf *ByteBuffer, v any) error {
			buf.WriteInt(int64(v.(T)))
			return nil
		},
		read: func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadInt(&err)
			if err.HasError() {
				return T(0), err.CheckError()
			}
			return T(v), nil
		},
	}
}

func registerUnsignedInt[T unsignedInt](schema map[string]any) {
	var zero T
	primitiveTable[reflect.TypeOf(zero)] = primitiveConverter{
		schema: schema,
		write: func(buf *ByteBuffer, v any) error {
			buf.WriteUint(uint64(v.(T)))
			return nil
		},
		read: func(buf *ByteBuffer) (any, error) {
			var err Error
			v := buf.ReadUint(&err)
			if err.HasError() {
				return T(0), err.CheckError()
			}
			return T(v), nil
		},
	}
}
