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

package optional

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSomeNone(t *testing.T) {
	require.True(t, Some(5).IsSome())
	require.False(t, Some(5).IsNone())
	require.True(t, None[int]().IsNone())
}

func TestUnwrapOr(t *testing.T) {
	require.Equal(t, 5, Some(5).UnwrapOr(9))
	require.Equal(t, 9, None[int]().UnwrapOr(9))
}

func TestUnwrapOrDefault(t *testing.T) {
	require.Equal(t, 0, None[int]().UnwrapOrDefault())
	require.Equal(t, "x", Some("x").UnwrapOrDefault())
}

func TestUnwrapPanicsOnNone(t *testing.T) {
	require.Panics(t, func() { None[int]().Unwrap() })
}

func TestOkOr(t *testing.T) {
	sentinel := errors.New("empty")

	v, err := Some(3).OkOr(sentinel)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	_, err = None[int]().OkOr(sentinel)
	require.Equal(t, sentinel, err)
}

func TestOr(t *testing.T) {
	require.Equal(t, Some(1), Some(1).Or(Some(2)))
	require.Equal(t, Some(2), None[int]().Or(Some(2)))
}

func TestFilter(t *testing.T) {
	even := func(v int) bool { return v%2 == 0 }
	require.True(t, Some(4).Filter(even).IsSome())
	require.True(t, Some(3).Filter(even).IsNone())
}

func TestTypedConstructors(t *testing.T) {
	require.Equal(t, int32(7), Int32(7).Unwrap())
	require.Equal(t, "s", String("s").Unwrap())
	require.Equal(t, true, Bool(true).Unwrap())
}
