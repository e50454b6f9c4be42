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

// optionalConverter handles the "optional" shape kind: a wrapper around
// an element shape (a pointer, for reflectshape.Provider; an
// optional.Optional[T] reaches this converter only through a registered
// surrogate, §12.3). Absence writes msgpack nil; presence delegates to the
// element converter.
type optionalConverter struct {
	shape OptionalShape
	elem  Converter
}

func (b *builder) buildOptional(shape OptionalShape) (Converter, error) {
	elem, err := b.cache.GetOrBuild(shape.Elem())
	if err != nil {
		return nil, err
	}
	return &optionalConverter{shape: shape, elem: elem}, nil
}

func (c *optionalConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	inner, present := c.shape.Unwrap(value)
	if !present {
		buf.WriteNil()
		return nil
	}
	if err := ctx.Enter(); err != nil {
		return err
	}
	defer ctx.Leave()
	return c.elem.Write(ctx, buf, inner)
}

func (c *optionalConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	if buf.TryReadNil(new(Error)) {
		return c.shape.Wrap(nil, false), nil
	}
	if err := ctx.Enter(); err != nil {
		return nil, err
	}
	defer ctx.Leave()
	v, err := c.elem.Read(ctx, buf)
	if err != nil {
		return nil, err
	}
	return c.shape.Wrap(v, true), nil
}

// ReadWithEarlyRegistration implements earlyRegisterReader by forwarding
// to the element converter: a pointer's identity is the pointer itself,
// but the placeholder that can be handed out before the pointee's fields
// are decoded comes from the element (an object shape's New()). Wrap is a
// no-op for a value already of the pointer's own type, which is exactly
// what an object shape's placeholder is, so the registered value and the
// final decoded value are the same instance.
func (c *optionalConverter) ReadWithEarlyRegistration(ctx *SerializationContext, buf *ByteBuffer, register func(any)) (any, error) {
	if buf.TryReadNil(new(Error)) {
		return c.shape.Wrap(nil, false), nil
	}
	if err := ctx.Enter(); err != nil {
		return nil, err
	}
	defer ctx.Leave()
	er, ok := c.elem.(earlyRegisterReader)
	if !ok {
		v, err := c.elem.Read(ctx, buf)
		if err != nil {
			return nil, err
		}
		wrapped := c.shape.Wrap(v, true)
		if register != nil {
			register(wrapped)
		}
		return wrapped, nil
	}
	var registered bool
	v, err := er.ReadWithEarlyRegistration(ctx, buf, func(placeholder any) {
		registered = true
		if register != nil {
			register(c.shape.Wrap(placeholder, true))
		}
	})
	if err != nil {
		return nil, err
	}
	wrapped := c.shape.Wrap(v, true)
	if !registered && register != nil {
		register(wrapped)
	}
	return wrapped, nil
}

func (c *optionalConverter) PreferAsync() bool { return c.elem.PreferAsync() }
