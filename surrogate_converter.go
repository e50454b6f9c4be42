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

// surrogateConverter implements §4.9: every read/write of T is routed
// through the declared marshaler to/from surrogate S, delegating the
// actual wire encoding to S's converter. Both halves of the marshaler
// must preserve null identity: a nil from Marshal is written as msgpack
// nil, and a nil token is handed to Unmarshal as nil.
type surrogateConverter struct {
	marshaler Marshaler
	inner     Converter
}

func newSurrogateConverter(marshaler Marshaler, inner Converter) Converter {
	return &surrogateConverter{marshaler: marshaler, inner: inner}
}

func (c *surrogateConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	surrogate, err := c.marshaler.Marshal(value)
	if err != nil {
		return err
	}
	if surrogate == nil {
		buf.WriteNil()
		return nil
	}
	return c.inner.Write(ctx, buf, surrogate)
}

func (c *surrogateConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	if buf.TryReadNil(new(Error)) {
		v, err := c.marshaler.Unmarshal(nil)
		return v, err
	}
	surrogate, err := c.inner.Read(ctx, buf)
	if err != nil {
		return nil, err
	}
	return c.marshaler.Unmarshal(surrogate)
}

func (c *surrogateConverter) PreferAsync() bool { return c.inner.PreferAsync() }
