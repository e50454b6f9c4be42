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

// Package shapewire implements a shape-directed MessagePack serialization
// engine: a converter builder that, given a type's shape, compiles and
// caches a reusable converter capable of writing and reading MessagePack
// values for that type.
package shapewire

import (
	"encoding/binary"
	"math"
)

// MessagePack leading-byte tokens, per the public spec.
const (
	mpNil       = 0xc0
	mpFalse     = 0xc2
	mpTrue      = 0xc3
	mpFloat32   = 0xca
	mpFloat64   = 0xcb
	mpUint8     = 0xcc
	mpUint16    = 0xcd
	mpUint32    = 0xce
	mpUint64    = 0xcf
	mpInt8      = 0xd0
	mpInt16     = 0xd1
	mpInt32     = 0xd2
	mpInt64     = 0xd3
	mpFixExt1   = 0xd4
	mpFixExt2   = 0xd5
	mpFixExt4   = 0xd6
	mpFixExt8   = 0xd7
	mpFixExt16  = 0xd8
	mpStr8      = 0xd9
	mpStr16     = 0xda
	mpStr32     = 0xdb
	mpArray16   = 0xdc
	mpArray32   = 0xdd
	mpMap16     = 0xde
	mpMap32     = 0xdf
	mpBin8      = 0xc4
	mpBin16     = 0xc5
	mpBin32     = 0xc6
	mpExt8      = 0xc7
	mpExt16     = 0xc8
	mpExt32     = 0xc9
	mpFixMapLo  = 0x80
	mpFixMapHi  = 0x8f
	mpFixArrLo  = 0x90
	mpFixArrHi  = 0x9f
	mpFixStrLo  = 0xa0
	mpFixStrHi  = 0xbf
	mpPosFixMax = 0x7f
	mpNegFixMin = 0xe0
)

// Type is the discriminated token kind returned by try_peek_next_type,
// independent of width/encoding.
type Type uint8

const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeUint
	TypeFloat32
	TypeFloat64
	TypeStr
	TypeBin
	TypeArray
	TypeMap
	TypeExt
	TypeUnknown
)

// ByteBuffer is a msgpack read/write cursor over one contiguous byte
// slice; output is not split into segments. Writes append to a growable
// buffer; reads advance a cursor over a byte slice the caller
// supplies. The same type backs both the buffered mode (the caller
// guarantees the whole structure is present) and the streaming mode,
// whose Try* methods never advance the cursor on a short read.
type ByteBuffer struct {
	data        []byte
	writerIndex int
	readerIndex int
}

// NewByteBuffer wraps data for reading, or, if data is nil, starts an
// empty buffer ready for writing.
func NewByteBuffer(data []byte) *ByteBuffer {
	return &ByteBuffer{data: data, writerIndex: len(data)}
}

func (b *ByteBuffer) grow(n int) {
	need := b.writerIndex + n
	if need <= cap(b.data) {
		b.data = b.data[:cap(b.data)]
		return
	}
	newCap := 2 * cap(b.data)
	if newCap < need {
		newCap = need * 2
	}
	newBuf := make([]byte, newCap)
	copy(newBuf, b.data[:b.writerIndex])
	b.data = newBuf
}

func (b *ByteBuffer) remaining() int { return b.writerIndex - b.readerIndex }

// Bytes returns everything written so far.
func (b *ByteBuffer) Bytes() []byte { return b.data[:b.writerIndex] }

// WriterIndex returns the current write offset.
func (b *ByteBuffer) WriterIndex() int { return b.writerIndex }

// ReaderIndex returns the current read offset.
func (b *ByteBuffer) ReaderIndex() int { return b.readerIndex }

// SetReaderIndex repositions the read cursor, e.g. to retry a streaming read.
func (b *ByteBuffer) SetReaderIndex(i int) { b.readerIndex = i }

// Reset discards everything written and read so far, retaining the
// backing array for reuse. Used by the streaming write driver to bound
// memory to one chunk at a time instead of the whole encoded graph.
func (b *ByteBuffer) Reset() {
	b.data = b.data[:0]
	b.writerIndex = 0
	b.readerIndex = 0
}

func (b *ByteBuffer) writeByte(v byte) {
	b.grow(1)
	b.data[b.writerIndex] = v
	b.writerIndex++
}

func (b *ByteBuffer) writeBytes(v []byte) {
	b.grow(len(v))
	copy(b.data[b.writerIndex:], v)
	b.writerIndex += len(v)
}

// ---- writes ----

// WriteNil writes the msgpack nil token.
func (b *ByteBuffer) WriteNil() { b.writeByte(mpNil) }

// WriteBool writes the msgpack true/false token.
func (b *ByteBuffer) WriteBool(v bool) {
	if v {
		b.writeByte(mpTrue)
	} else {
		b.writeByte(mpFalse)
	}
}

// WriteInt writes a signed integer using the narrowest encoding that fits.
func (b *ByteBuffer) WriteInt(v int64) {
	switch {
	case v >= 0:
		b.WriteUint(uint64(v))
	case v >= -32:
		b.writeByte(byte(v))
	case v >= math.MinInt8:
		b.grow(2)
		b.data[b.writerIndex] = mpInt8
		b.data[b.writerIndex+1] = byte(v)
		b.writerIndex += 2
	case v >= math.MinInt16:
		b.grow(3)
		b.data[b.writerIndex] = mpInt16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(v))
		b.writerIndex += 3
	case v >= math.MinInt32:
		b.grow(5)
		b.data[b.writerIndex] = mpInt32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(v))
		b.writerIndex += 5
	default:
		b.grow(9)
		b.data[b.writerIndex] = mpInt64
		binary.BigEndian.PutUint64(b.data[b.writerIndex+1:], uint64(v))
		b.writerIndex += 9
	}
}

// WriteUint writes an unsigned integer using the narrowest encoding that fits.
func (b *ByteBuffer) WriteUint(v uint64) {
	switch {
	case v <= mpPosFixMax:
		b.writeByte(byte(v))
	case v <= math.MaxUint8:
		b.grow(2)
		b.data[b.writerIndex] = mpUint8
		b.data[b.writerIndex+1] = byte(v)
		b.writerIndex += 2
	case v <= math.MaxUint16:
		b.grow(3)
		b.data[b.writerIndex] = mpUint16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(v))
		b.writerIndex += 3
	case v <= math.MaxUint32:
		b.grow(5)
		b.data[b.writerIndex] = mpUint32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(v))
		b.writerIndex += 5
	default:
		b.grow(9)
		b.data[b.writerIndex] = mpUint64
		binary.BigEndian.PutUint64(b.data[b.writerIndex+1:], v)
		b.writerIndex += 9
	}
}

// WriteFloat32 writes an IEEE-754 binary32.
func (b *ByteBuffer) WriteFloat32(v float32) {
	b.grow(5)
	b.data[b.writerIndex] = mpFloat32
	binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], math.Float32bits(v))
	b.writerIndex += 5
}

// WriteFloat64 writes an IEEE-754 binary64.
func (b *ByteBuffer) WriteFloat64(v float64) {
	b.grow(9)
	b.data[b.writerIndex] = mpFloat64
	binary.BigEndian.PutUint64(b.data[b.writerIndex+1:], math.Float64bits(v))
	b.writerIndex += 9
}

// WriteStr writes a UTF-8 string using fixstr/str8/str16/str32.
func (b *ByteBuffer) WriteStr(s string) {
	n := len(s)
	switch {
	case n <= 31:
		b.writeByte(byte(mpFixStrLo | n))
	case n <= math.MaxUint8:
		b.grow(2)
		b.data[b.writerIndex] = mpStr8
		b.data[b.writerIndex+1] = byte(n)
		b.writerIndex += 2
	case n <= math.MaxUint16:
		b.grow(3)
		b.data[b.writerIndex] = mpStr16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(n))
		b.writerIndex += 3
	default:
		b.grow(5)
		b.data[b.writerIndex] = mpStr32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(n))
		b.writerIndex += 5
	}
	b.writeBytes([]byte(s))
}

// WriteBin writes a byte slice using bin8/16/32.
func (b *ByteBuffer) WriteBin(v []byte) {
	n := len(v)
	switch {
	case n <= math.MaxUint8:
		b.grow(2)
		b.data[b.writerIndex] = mpBin8
		b.data[b.writerIndex+1] = byte(n)
		b.writerIndex += 2
	case n <= math.MaxUint16:
		b.grow(3)
		b.data[b.writerIndex] = mpBin16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(n))
		b.writerIndex += 3
	default:
		b.grow(5)
		b.data[b.writerIndex] = mpBin32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(n))
		b.writerIndex += 5
	}
	b.writeBytes(v)
}

// WriteArrayHeader writes a fixarray/array16/array32 header for n elements.
func (b *ByteBuffer) WriteArrayHeader(n int) {
	switch {
	case n <= 15:
		b.writeByte(byte(mpFixArrLo | n))
	case n <= math.MaxUint16:
		b.grow(3)
		b.data[b.writerIndex] = mpArray16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(n))
		b.writerIndex += 3
	default:
		b.grow(5)
		b.data[b.writerIndex] = mpArray32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(n))
		b.writerIndex += 5
	}
}

// WriteMapHeader writes a fixmap/map16/map32 header for n pairs.
func (b *ByteBuffer) WriteMapHeader(n int) {
	switch {
	case n <= 15:
		b.writeByte(byte(mpFixMapLo | n))
	case n <= math.MaxUint16:
		b.grow(3)
		b.data[b.writerIndex] = mpMap16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(n))
		b.writerIndex += 3
	default:
		b.grow(5)
		b.data[b.writerIndex] = mpMap32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(n))
		b.writerIndex += 5
	}
}

// WriteExtension writes an extension token with the given registered type
// code and payload, using fixext{1,2,4,8,16} where the length matches
// exactly, else ext8/16/32.
func (b *ByteBuffer) WriteExtension(typeCode int8, payload []byte) {
	n := len(payload)
	switch n {
	case 1:
		b.grow(2)
		b.data[b.writerIndex] = mpFixExt1
		b.data[b.writerIndex+1] = byte(typeCode)
		b.writerIndex += 2
		b.writeBytes(payload)
		return
	case 2:
		b.writeExtHeader(mpFixExt2, typeCode)
		b.writeBytes(payload)
		return
	case 4:
		b.writeExtHeader(mpFixExt4, typeCode)
		b.writeBytes(payload)
		return
	case 8:
		b.writeExtHeader(mpFixExt8, typeCode)
		b.writeBytes(payload)
		return
	case 16:
		b.writeExtHeader(mpFixExt16, typeCode)
		b.writeBytes(payload)
		return
	}
	switch {
	case n <= math.MaxUint8:
		b.grow(3)
		b.data[b.writerIndex] = mpExt8
		b.data[b.writerIndex+1] = byte(n)
		b.data[b.writerIndex+2] = byte(typeCode)
		b.writerIndex += 3
	case n <= math.MaxUint16:
		b.grow(4)
		b.data[b.writerIndex] = mpExt16
		binary.BigEndian.PutUint16(b.data[b.writerIndex+1:], uint16(n))
		b.data[b.writerIndex+3] = byte(typeCode)
		b.writerIndex += 4
	default:
		b.grow(6)
		b.data[b.writerIndex] = mpExt32
		binary.BigEndian.PutUint32(b.data[b.writerIndex+1:], uint32(n))
		b.data[b.writerIndex+5] = byte(typeCode)
		b.writerIndex += 6
	}
	b.writeBytes(payload)
}

func (b *ByteBuffer) writeExtHeader(tok byte, typeCode int8) {
	b.grow(2)
	b.data[b.writerIndex] = tok
	b.data[b.writerIndex+1] = byte(typeCode)
	b.writerIndex += 2
}

// WriteRaw appends already-encoded msgpack bytes verbatim (raw passthrough).
func (b *ByteBuffer) WriteRaw(encoded []byte) { b.writeBytes(encoded) }

// ---- buffered reads: any bounds violation is an error ----

func (b *ByteBuffer) need(n int, err *Error) bool {
	if b.remaining() < n {
		err.SetError(BufferOutOfBoundError(b.readerIndex, n, b.writerIndex))
		return false
	}
	return true
}

func (b *ByteBuffer) peekByte(err *Error) byte {
	if !b.need(1, err) {
		return 0
	}
	return b.data[b.readerIndex]
}

// PeekNextType inspects the next token without advancing the cursor.
func (b *ByteBuffer) PeekNextType(err *Error) Type {
	tok := b.peekByte(err)
	if err.HasError() {
		return TypeUnknown
	}
	return typeOfToken(tok)
}

func typeOfToken(tok byte) Type {
	switch {
	case tok == mpNil:
		return TypeNil
	case tok == mpFalse || tok == mpTrue:
		return TypeBool
	case tok <= mpPosFixMax:
		return TypeUint
	case tok >= mpNegFixMin:
		return TypeInt
	case tok == mpUint8, tok == mpUint16, tok == mpUint32, tok == mpUint64:
		return TypeUint
	case tok == mpInt8, tok == mpInt16, tok == mpInt32, tok == mpInt64:
		return TypeInt
	case tok == mpFloat32:
		return TypeFloat32
	case tok == mpFloat64:
		return TypeFloat64
	case tok >= mpFixStrLo && tok <= mpFixStrHi, tok == mpStr8, tok == mpStr16, tok == mpStr32:
		return TypeStr
	case tok == mpBin8, tok == mpBin16, tok == mpBin32:
		return TypeBin
	case tok >= mpFixArrLo && tok <= mpFixArrHi, tok == mpArray16, tok == mpArray32:
		return TypeArray
	case tok >= mpFixMapLo && tok <= mpFixMapHi, tok == mpMap16, tok == mpMap32:
		return TypeMap
	case tok == mpFixExt1, tok == mpFixExt2, tok == mpFixExt4, tok == mpFixExt8, tok == mpFixExt16,
		tok == mpExt8, tok == mpExt16, tok == mpExt32:
		return TypeExt
	default:
		return TypeUnknown
	}
}

// ReadNil consumes a nil token.
func (b *ByteBuffer) ReadNil(err *Error) {
	tok := b.readToken(err)
	if err.HasError() {
		return
	}
	if tok != mpNil {
		err.SetError(InvalidDataError("expected nil, got token 0x%02x", tok))
	}
}

// TryReadNil reports whether the next token is nil, consuming it if so
// (used by optional converters without a dedicated peek+branch).
func (b *ByteBuffer) TryReadNil(err *Error) bool {
	tok := b.peekByte(err)
	if err.HasError() || tok != mpNil {
		return false
	}
	b.readerIndex++
	return true
}

func (b *ByteBuffer) readToken(err *Error) byte {
	if !b.need(1, err) {
		return 0
	}
	tok := b.data[b.readerIndex]
	b.readerIndex++
	return tok
}

// ReadBool reads a bool token.
func (b *ByteBuffer) ReadBool(err *Error) bool {
	tok := b.readToken(err)
	if err.HasError() {
		return false
	}
	switch tok {
	case mpTrue:
		return true
	case mpFalse:
		return false
	default:
		err.SetError(InvalidDataError("expected bool, got token 0x%02x", tok))
		return false
	}
}

func (b *ByteBuffer) readN(n int, err *Error) []byte {
	if !b.need(n, err) {
		// Fixed-width callers decode the result before checking err, so
		// they get zeroed bytes rather than a slice too short to index.
		if n <= 8 {
			return make([]byte, n)
		}
		return nil
	}
	v := b.data[b.readerIndex : b.readerIndex+n]
	b.readerIndex += n
	return v
}

// ReadInt reads any msgpack integer token (signed or unsigned) as an int64.
func (b *ByteBuffer) ReadInt(err *Error) int64 {
	tok := b.readToken(err)
	if err.HasError() {
		return 0
	}
	switch {
	case tok <= mpPosFixMax:
		return int64(tok)
	case tok >= mpNegFixMin:
		return int64(int8(tok))
	case tok == mpUint8:
		return int64(b.readN(1, err)[0])
	case tok == mpUint16:
		return int64(binary.BigEndian.Uint16(b.readN(2, err)))
	case tok == mpUint32:
		return int64(binary.BigEndian.Uint32(b.readN(4, err)))
	case tok == mpUint64:
		return int64(binary.BigEndian.Uint64(b.readN(8, err)))
	case tok == mpInt8:
		return int64(int8(b.readN(1, err)[0]))
	case tok == mpInt16:
		return int64(int16(binary.BigEndian.Uint16(b.readN(2, err))))
	case tok == mpInt32:
		return int64(int32(binary.BigEndian.Uint32(b.readN(4, err))))
	case tok == mpInt64:
		return int64(binary.BigEndian.Uint64(b.readN(8, err)))
	default:
		err.SetError(InvalidDataError("expected integer, got token 0x%02x", tok))
		return 0
	}
}

// ReadUint reads any msgpack integer token as a uint64.
func (b *ByteBuffer) ReadUint(err *Error) uint64 {
	v := b.ReadInt(err)
	if err.HasError() {
		return 0
	}
	return uint64(v)
}

// ReadFloat32 reads a binary32, narrowing a binary64 token if present.
func (b *ByteBuffer) ReadFloat32(err *Error) float32 {
	tok := b.readToken(err)
	if err.HasError() {
		return 0
	}
	switch tok {
	case mpFloat32:
		return math.Float32frombits(binary.BigEndian.Uint32(b.readN(4, err)))
	case mpFloat64:
		return float32(math.Float64frombits(binary.BigEndian.Uint64(b.readN(8, err))))
	default:
		err.SetError(InvalidDataError("expected float32, got token 0x%02x", tok))
		return 0
	}
}

// ReadFloat64 reads a binary64, widening a binary32 token if present.
func (b *ByteBuffer) ReadFloat64(err *Error) float64 {
	tok := b.readToken(err)
	if err.HasError() {
		return 0
	}
	switch tok {
	case mpFloat64:
		return math.Float64frombits(binary.BigEndian.Uint64(b.readN(8, err)))
	case mpFloat32:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b.readN(4, err))))
	default:
		err.SetError(InvalidDataError("expected float64, got token 0x%02x", tok))
		return 0
	}
}

// ReadStr reads a str token and returns the decoded string.
func (b *ByteBuffer) ReadStr(err *Error) string {
	n := b.readStrLen(err)
	if err.HasError() {
		return ""
	}
	data := b.readN(n, err)
	if err.HasError() {
		return ""
	}
	return string(data)
}

func (b *ByteBuffer) readStrLen(err *Error) int {
	tok := b.readToken(err)
	if err.HasError() {
		return 0
	}
	switch {
	case tok >= mpFixStrLo && tok <= mpFixStrHi:
		return int(tok & 0x1f)
	case tok == mpStr8:
		return int(b.readN(1, err)[0])
	case tok == mpStr16:
		return int(binary.BigEndian.Uint16(b.readN(2, err)))
	case tok == mpStr32:
		return int(binary.BigEndian.Uint32(b.readN(4, err)))
	default:
		err.SetError(InvalidDataError("expected str, got token 0x%02x", tok))
		return 0
	}
}

// ReadBin reads a bin token.
func (b *ByteBuffer) ReadBin(err *Error) []byte {
	tok := b.readToken(err)
	if err.HasError() {
		return nil
	}
	var n int
	switch tok {
	case mpBin8:
		n = int(b.readN(1, err)[0])
	case mpBin16:
		n = int(binary.BigEndian.Uint16(b.readN(2, err)))
	case mpBin32:
		n = int(binary.BigEndian.Uint32(b.readN(4, err)))
	default:
		err.SetError(InvalidDataError("expected bin, got token 0x%02x", tok))
		return nil
	}
	if err.HasError() {
		return nil
	}
	return b.readN(n, err)
}

// ReadArrayHeader reads an array header and returns the element count.
func (b *ByteBuffer) ReadArrayHeader(err *Error) int {
	tok := b.readToken(err)
	if err.HasError() {
		return 0
	}
	switch {
	case tok >= mpFixArrLo && tok <= mpFixArrHi:
		return int(tok & 0x0f)
	case tok == mpArray16:
		return int(binary.BigEndian.Uint16(b.readN(2, err)))
	case tok == mpArray32:
		return int(binary.BigEndian.Uint32(b.readN(4, err)))
	default:
		err.SetError(InvalidDataError("expected array, got token 0x%02x", tok))
		return 0
	}
}

// ReadMapHeader reads a map header and returns the pair count.
func (b *ByteBuffer) ReadMapHeader(err *Error) int {
	tok := b.readToken(err)
	if err.HasError() {
		return 0
	}
	switch {
	case tok >= mpFixMapLo && tok <= mpFixMapHi:
		return int(tok & 0x0f)
	case tok == mpMap16:
		return int(binary.BigEndian.Uint16(b.readN(2, err)))
	case tok == mpMap32:
		return int(binary.BigEndian.Uint32(b.readN(4, err)))
	default:
		err.SetError(InvalidDataError("expected map, got token 0x%02x", tok))
		return 0
	}
}

// ReadExtension reads an extension token, returning its registered type
// code and payload.
func (b *ByteBuffer) ReadExtension(err *Error) (int8, []byte) {
	tok := b.readToken(err)
	if err.HasError() {
		return 0, nil
	}
	var n int
	switch tok {
	case mpFixExt1:
		n = 1
	case mpFixExt2:
		n = 2
	case mpFixExt4:
		n = 4
	case mpFixExt8:
		n = 8
	case mpFixExt16:
		n = 16
	case mpExt8:
		n = int(b.readN(1, err)[0])
	case mpExt16:
		n = int(binary.BigEndian.Uint16(b.readN(2, err)))
	case mpExt32:
		n = int(binary.BigEndian.Uint32(b.readN(4, err)))
	default:
		err.SetError(InvalidDataError("expected extension, got token 0x%02x", tok))
		return 0, nil
	}
	if err.HasError() {
		return 0, nil
	}
	typeCode := int8(b.readToken(err))
	if err.HasError() {
		return 0, nil
	}
	payload := b.readN(n, err)
	return typeCode, payload
}

// SkipOneStructure advances past one complete msgpack value of whatever
// shape follows, without decoding it (structure-aware skip for unknown
// object-form keys, extra array-form slots, etc).
func (b *ByteBuffer) SkipOneStructure(err *Error) {
	tok := b.peekByte(err)
	if err.HasError() {
		return
	}
	switch {
	case tok == mpNil, tok == mpFalse, tok == mpTrue, tok <= mpPosFixMax, tok >= mpNegFixMin:
		b.readerIndex++
	case tok == mpUint8, tok == mpInt8:
		b.readerIndex++
		b.Skip(1, err)
	case tok == mpUint16, tok == mpInt16:
		b.readerIndex++
		b.Skip(2, err)
	case tok == mpUint32, tok == mpInt32, tok == mpFloat32:
		b.readerIndex++
		b.Skip(4, err)
	case tok == mpUint64, tok == mpInt64, tok == mpFloat64:
		b.readerIndex++
		b.Skip(8, err)
	case tok >= mpFixStrLo && tok <= mpFixStrHi, tok == mpStr8, tok == mpStr16, tok == mpStr32:
		n := b.readStrLen(err)
		b.Skip(n, err)
	case tok == mpBin8, tok == mpBin16, tok == mpBin32:
		b.ReadBin(err)
	case tok >= mpFixArrLo && tok <= mpFixArrHi, tok == mpArray16, tok == mpArray32:
		n := b.ReadArrayHeader(err)
		for i := 0; i < n && !err.HasError(); i++ {
			b.SkipOneStructure(err)
		}
	case tok >= mpFixMapLo && tok <= mpFixMapHi, tok == mpMap16, tok == mpMap32:
		n := b.ReadMapHeader(err)
		for i := 0; i < n && !err.HasError(); i++ {
			b.SkipOneStructure(err)
			b.SkipOneStructure(err)
		}
	case tok == mpFixExt1, tok == mpFixExt2, tok == mpFixExt4, tok == mpFixExt8, tok == mpFixExt16,
		tok == mpExt8, tok == mpExt16, tok == mpExt32:
		b.ReadExtension(err)
	default:
		err.SetError(InvalidDataError("cannot skip unknown token 0x%02x", tok))
	}
}

// Skip advances the reader by n bytes.
func (b *ByteBuffer) Skip(n int, err *Error) {
	if !b.need(n, err) {
		return
	}
	b.readerIndex += n
}

// ---- streaming reads: short input yields needs_more_bytes rather than error ----

// StreamResult is the discriminated outcome of a streaming primitive read.
type StreamResult int

const (
	StreamOK StreamResult = iota
	StreamNeedsMoreBytes
	StreamError
)

// TryReadStr attempts a streaming string read. On StreamNeedsMoreBytes the
// cursor is left unmoved so the caller can retry once more bytes arrive.
func (b *ByteBuffer) TryReadStr() (string, StreamResult, Error) {
	start := b.readerIndex
	var err Error
	tok := b.peekByte(&err)
	if err.HasError() {
		b.readerIndex = start
		return "", StreamNeedsMoreBytes, Error{}
	}
	hdrLen := strHeaderLen(tok)
	if hdrLen == 0 {
		return "", StreamError, InvalidDataError("expected str, got token 0x%02x", tok)
	}
	if b.remaining() < hdrLen {
		b.readerIndex = start
		return "", StreamNeedsMoreBytes, Error{}
	}
	n := b.readStrLen(&err)
	if err.HasError() {
		b.readerIndex = start
		return "", StreamError, err
	}
	if b.remaining() < n {
		b.readerIndex = start
		return "", StreamNeedsMoreBytes, Error{}
	}
	data := b.readN(n, &err)
	return string(data), StreamOK, Error{}
}

func strHeaderLen(tok byte) int {
	switch {
	case tok >= mpFixStrLo && tok <= mpFixStrHi:
		return 1
	case tok == mpStr8:
		return 2
	case tok == mpStr16:
		return 3
	case tok == mpStr32:
		return 5
	default:
		return 0
	}
}

// TryPeekNextType is the streaming analogue of PeekNextType: it never
// advances the cursor and reports StreamNeedsMoreBytes rather than erroring
// when no byte is yet available.
func (b *ByteBuffer) TryPeekNextType() (Type, StreamResult) {
	if b.remaining() < 1 {
		return TypeUnknown, StreamNeedsMoreBytes
	}
	return typeOfToken(b.data[b.readerIndex]), StreamOK
}
