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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferIntRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -32, 255, 65535, -100000, 1 << 40, -(1 << 40)}
	for _, v := range values {
		buf := NewByteBuffer(nil)
		buf.WriteInt(v)

		var err Error
		got := buf.ReadInt(&err)
		require.NoError(t, err.CheckError())
		require.Equal(t, v, got, "round-trip of %d", v)
	}
}

func TestByteBufferStringRoundTrip(t *testing.T) {
	values := []string{"", "hello", "a much longer string that exceeds fixstr length to exercise str16/str32 framing"}
	for _, v := range values {
		buf := NewByteBuffer(nil)
		buf.WriteStr(v)

		var err Error
		got := buf.ReadStr(&err)
		require.NoError(t, err.CheckError())
		require.Equal(t, v, got)
	}
}

func TestByteBufferBoolRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		buf := NewByteBuffer(nil)
		buf.WriteBool(v)

		var err Error
		got := buf.ReadBool(&err)
		require.NoError(t, err.CheckError())
		require.Equal(t, v, got)
	}
}

func TestByteBufferNilRoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteNil()

	var err Error
	require.Equal(t, TypeNil, buf.PeekNextType(&err))
	require.NoError(t, err.CheckError())
	require.True(t, buf.TryReadNil(&err))
	require.NoError(t, err.CheckError())
}

func TestByteBufferFloatRoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteFloat64(3.14159)

	var err Error
	got := buf.ReadFloat64(&err)
	require.NoError(t, err.CheckError())
	require.InDelta(t, 3.14159, got, 1e-9)
}

func TestByteBufferBinRoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	payload := []byte{1, 2, 3, 4, 5}
	buf.WriteBin(payload)

	var err Error
	got := buf.ReadBin(&err)
	require.NoError(t, err.CheckError())
	require.Equal(t, payload, got)
}

func TestByteBufferArrayMapHeaderRoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteArrayHeader(3)

	var err Error
	n := buf.ReadArrayHeader(&err)
	require.NoError(t, err.CheckError())
	require.Equal(t, 3, n)

	buf2 := NewByteBuffer(nil)
	buf2.WriteMapHeader(5)
	n2 := buf2.ReadMapHeader(&err)
	require.NoError(t, err.CheckError())
	require.Equal(t, 5, n2)
}

func TestByteBufferExtensionRoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	buf.WriteExtension(7, payload)

	var err Error
	code, got := buf.ReadExtension(&err)
	require.NoError(t, err.CheckError())
	require.Equal(t, int8(7), code)
	require.Equal(t, payload, got)
}

func TestByteBufferSequentialReadsPreserveOrder(t *testing.T) {
	buf := NewByteBuffer(nil)
	buf.WriteInt(1)
	buf.WriteStr("two")
	buf.WriteBool(true)

	var err Error
	require.Equal(t, int64(1), buf.ReadInt(&err))
	require.Equal(t, "two", buf.ReadStr(&err))
	require.Equal(t, true, buf.ReadBool(&err))
	require.NoError(t, err.CheckError())
}
