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

package shapewire_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shapewire/shapewire"
	"github.com/shapewire/shapewire/optional"
	"github.com/shapewire/shapewire/reflectshape"
)

// registerOptionalInt32 wires optional.Optional[int32] through the
// surrogate mechanism (§4.9) rather than teaching reflectshape a second
// Optional representation alongside pointers, per the Open Question
// decision recorded in DESIGN.md.
func registerOptionalInt32(p *reflectshape.Provider) {
	p.RegisterSurrogate(
		reflect.TypeOf(optional.Optional[int32]{}),
		reflect.TypeOf((*int32)(nil)),
		shapewire.Marshaler{
			Marshal: func(v any) (any, error) {
				o := v.(optional.Optional[int32])
				if o.IsNone() {
					return (*int32)(nil), nil
				}
				val := o.Unwrap()
				return &val, nil
			},
			Unmarshal: func(v any) (any, error) {
				ptr, _ := v.(*int32)
				if ptr == nil {
					return optional.None[int32](), nil
				}
				return optional.Some(*ptr), nil
			},
		},
	)
}

func TestOptionalSurrogateRoundTrip(t *testing.T) {
	provider := reflectshape.NewProvider()
	registerOptionalInt32(provider)
	s := shapewire.NewSerializer(provider)

	ctx := context.Background()

	data, err := s.Serialize(ctx, optional.Some(int32(42)))
	require.NoError(t, err)
	got, err := s.Deserialize(ctx, data, reflect.TypeOf(optional.Optional[int32]{}))
	require.NoError(t, err)
	require.Equal(t, optional.Some(int32(42)), got)

	data, err = s.Serialize(ctx, optional.None[int32]())
	require.NoError(t, err)
	got, err = s.Deserialize(ctx, data, reflect.TypeOf(optional.Optional[int32]{}))
	require.NoError(t, err)
	require.Equal(t, optional.None[int32](), got)
}
