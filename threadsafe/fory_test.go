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

package threadsafe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shapewire/shapewire"
	"github.com/shapewire/shapewire/reflectshape"
)

func newTestCodec() *Codec {
	return New(reflectshape.NewProvider(), shapewire.WithReferencePreservation(shapewire.ReferencePreservationPerCall))
}

func TestCodecGenericRoundTrip(t *testing.T) {
	c := newTestCodec()
	ctx := context.Background()

	t.Run("Int32", func(t *testing.T) {
		data, err := Serialize(c, ctx, int32(42))
		require.NoError(t, err)

		result, err := Deserialize[int32](c, ctx, data)
		require.NoError(t, err)
		require.Equal(t, int32(42), *result)
	})

	t.Run("String", func(t *testing.T) {
		data, err := Serialize(c, ctx, "hello world")
		require.NoError(t, err)

		result, err := Deserialize[string](c, ctx, data)
		require.NoError(t, err)
		require.Equal(t, "hello world", *result)
	})

	t.Run("Slice", func(t *testing.T) {
		original := []int32{1, 2, 3, 4, 5}
		data, err := Serialize(c, ctx, original)
		require.NoError(t, err)

		result, err := Deserialize[[]int32](c, ctx, data)
		require.NoError(t, err)
		require.Equal(t, original, *result)
	})
}

func TestCodecConcurrentAccess(t *testing.T) {
	c := newTestCodec()
	ctx := context.Background()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(val int64) {
			data, err := Serialize(c, ctx, val)
			require.NoError(t, err)

			result, err := Deserialize[int64](c, ctx, data)
			require.NoError(t, err)
			require.Equal(t, val, *result)
			done <- true
		}(int64(i * 1000))
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestGlobalFunctions(t *testing.T) {
	ctx := context.Background()

	t.Run("Marshal", func(t *testing.T) {
		data, err := Marshal(ctx, int32(42))
		require.NoError(t, err)

		result, err := Unmarshal[int32](ctx, data)
		require.NoError(t, err)
		require.Equal(t, int32(42), *result)
	})

	t.Run("Unmarshal", func(t *testing.T) {
		data, err := Marshal(ctx, "hello")
		require.NoError(t, err)

		result, err := Unmarshal[string](ctx, data)
		require.NoError(t, err)
		require.Equal(t, "hello", *result)
	})
}
