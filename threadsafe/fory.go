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

// Package threadsafe adds generic, type-inferred convenience functions
// over a *shapewire.Serializer. The Serializer underneath builds a fresh
// SerializationContext and ByteBuffer on every call and only shares the
// already-synchronized ConverterCache (and, in cross-call reference mode,
// a mutex-guarded reference table) across goroutines, so it needs no
// sync.Pool of exclusive instances to be called concurrently — this
// package survives purely as a generics-sugar layer over it.
package threadsafe

import (
	"context"
	"reflect"

	"github.com/shapewire/shapewire"
	"github.com/shapewire/shapewire/reflectshape"
)

// defaultProvider backs the package-level convenience functions; callers
// needing custom enum/union/surrogate registrations should build their own
// reflectshape.Provider and Codec via New instead.
var defaultProvider = reflectshape.NewProvider()

// Codec is a *shapewire.Serializer under a shorter name, kept so call
// sites built against this package don't need to import shapewire
// directly just to hold a reference.
type Codec = shapewire.Serializer

// New is shapewire.NewSerializer under this package's name.
func New(provider shapewire.ShapeProvider, opts ...shapewire.Option) *Codec {
	return shapewire.NewSerializer(provider, opts...)
}

// Serialize encodes v with its type inferred as the type parameter,
// rather than requiring the caller to pass it as an untyped any.
func Serialize[T any](c *Codec, ctx context.Context, v T) ([]byte, error) {
	return c.Serialize(ctx, v)
}

// Deserialize decodes data into a freshly allocated *T.
func Deserialize[T any](c *Codec, ctx context.Context, data []byte) (*T, error) {
	var zero T
	v, err := c.Deserialize(ctx, data, reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	if ptr, ok := v.(*T); ok {
		return ptr, nil
	}
	out, ok := v.(T)
	if !ok {
		return nil, shapewire.ConfigurationErrorf("decoded value of type %T does not satisfy requested type %T", v, zero)
	}
	return &out, nil
}

// globalCodec backs the package-level Marshal/Unmarshal convenience
// functions with reflectshape's pure-reflection ShapeProvider, this
// module's default.
var globalCodec = New(defaultProvider)

// Marshal serializes value using the package-level default Codec.
func Marshal[T any](ctx context.Context, value T) ([]byte, error) {
	return Serialize(globalCodec, ctx, value)
}

// Unmarshal decodes data into a freshly allocated *T using the
// package-level default Codec.
func Unmarshal[T any](ctx context.Context, data []byte) (*T, error) {
	return Deserialize[T](globalCodec, ctx, data)
}
