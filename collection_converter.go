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

import "strconv"

// enumerableConverter implements §4.7 for sequence types: arrays, slices,
// sets and similar. A rank-1 shape writes a plain msgpack array of
// elements. A rank>1 shape additionally honors
// Policy.MultiDimensionalArrayFormat: "nested" falls out naturally from
// composing enumerableConverters (each dimension's ElementShape is
// itself enumerable), "flat" collapses every dimension into one array
// preceded by a dimension-size header.
type enumerableConverter struct {
	shape EnumerableShape
	elem  Converter
}

func (b *builder) buildEnumerable(shape EnumerableShape) (Converter, error) {
	elem, err := b.cache.GetOrBuild(shape.ElementShape())
	if err != nil {
		return nil, err
	}
	return &enumerableConverter{shape: shape, elem: elem}, nil
}

func (c *enumerableConverter) PreferAsync() bool { return true }

func (c *enumerableConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	if err := ctx.Enter(); err != nil {
		return err
	}
	defer ctx.Leave()

	if c.shape.Rank() > 1 && ctx.Policy.MultiDimensionalArrayFormat == MultiDimensionalArrayFlat {
		dims, leaves, err := c.flatten(value)
		if err != nil {
			return err
		}
		buf.WriteArrayHeader(len(dims))
		for _, d := range dims {
			buf.WriteInt(int64(d))
		}
		buf.WriteArrayHeader(len(leaves))
		for _, leaf := range leaves {
			if err := c.leafConverter().Write(ctx, buf, leaf); err != nil {
				return err
			}
		}
		return nil
	}

	elems, err := c.shape.Enumerate(value)
	if err != nil {
		return WrapError(err, ErrKindInvalidData)
	}
	buf.WriteArrayHeader(len(elems))
	for i, e := range elems {
		if err := c.elem.Write(ctx, buf, e); err != nil {
			return wrapErrPath(err, indexSegment(i))
		}
	}
	return nil
}

// enumerableWriteState resumes a chunked WriteAsync: the element slice is
// enumerated once up front (so the element list and the array header are
// only computed once) and index tracks how many elements have been written so
// far.
type enumerableWriteState struct {
	elems []any
	index int
}

// WriteAsync implements AsyncWriter for the common rank-1 case: one
// element is an atomic chunk, matching §5's "after each atomic chunk is
// written, the writer may await a drain" suspension point. Rank>1 flat
// encoding has no natural per-element boundary at this level (the whole
// flattened leaf array is one header-prefixed unit) and falls back to a
// single synchronous Write.
func (c *enumerableConverter) WriteAsync(ctx *SerializationContext, buf *ByteBuffer, value any, state *AsyncState) (AsyncStatus, error) {
	if c.shape.Rank() > 1 && ctx.Policy.MultiDimensionalArrayFormat == MultiDimensionalArrayFlat {
		if err := c.Write(ctx, buf, value); err != nil {
			return AsyncOK, err
		}
		return AsyncOK, nil
	}

	st, _ := state.Scratch.(*enumerableWriteState)
	if st == nil {
		if err := ctx.Enter(); err != nil {
			return AsyncOK, err
		}
		elems, err := c.shape.Enumerate(value)
		if err != nil {
			ctx.Leave()
			return AsyncOK, WrapError(err, ErrKindInvalidData)
		}
		buf.WriteArrayHeader(len(elems))
		st = &enumerableWriteState{elems: elems}
		state.Scratch = st
	}

	if st.index >= len(st.elems) {
		ctx.Leave()
		return AsyncOK, nil
	}
	i := st.index
	if err := c.elem.Write(ctx, buf, st.elems[i]); err != nil {
		ctx.Leave()
		return AsyncOK, wrapErrPath(err, indexSegment(i))
	}
	st.index++
	if st.index >= len(st.elems) {
		ctx.Leave()
		return AsyncOK, nil
	}
	return AsyncNeedsMore, nil
}

func (c *enumerableConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	if err := ctx.Enter(); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	if c.shape.Rank() > 1 && ctx.Policy.MultiDimensionalArrayFormat == MultiDimensionalArrayFlat {
		return c.readFlat(ctx, buf)
	}

	var berr Error
	n := buf.ReadArrayHeader(&berr)
	if berr.HasError() {
		return nil, berr.CheckError()
	}

	switch c.shape.Mode() {
	case ConstructParameterized:
		elems := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := c.elem.Read(ctx, buf)
			if err != nil {
				return nil, wrapErrPath(err, indexSegment(i))
			}
			elems[i] = v
		}
		built, err := c.shape.FromElements(elems)
		if err != nil {
			return nil, WrapError(err, ErrKindInvalidData)
		}
		return built, nil
	case ConstructMutable:
		handle, appendFn := c.shape.NewMutable()
		for i := 0; i < n; i++ {
			v, err := c.elem.Read(ctx, buf)
			if err != nil {
				return nil, wrapErrPath(err, indexSegment(i))
			}
			handle = appendFn(handle, v)
		}
		return c.shape.Finish(handle), nil
	default:
		return nil, UnsupportedOperationError("enumerable type has no deserialize construction mode")
	}
}

func (c *enumerableConverter) readFlat(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	var berr Error
	dimCount := buf.ReadArrayHeader(&berr)
	if berr.HasError() {
		return nil, berr.CheckError()
	}
	dims := make([]int, dimCount)
	total := 1
	for i := range dims {
		dims[i] = int(buf.ReadInt(&berr))
		total *= dims[i]
	}
	n := buf.ReadArrayHeader(&berr)
	if berr.HasError() {
		return nil, berr.CheckError()
	}
	if n != total {
		return nil, InvalidDataError("flat multi-dimensional array length %d does not match dimension product %d", n, total)
	}
	leaf := c.leafConverter()
	leaves := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := leaf.Read(ctx, buf)
		if err != nil {
			return nil, wrapErrPath(err, indexSegment(i))
		}
		leaves[i] = v
	}
	return c.unflatten(dims, leaves)
}

// leafConverter descends through nested enumerableConverters to the
// innermost element converter, for the flat multi-dimensional encoding.
func (c *enumerableConverter) leafConverter() Converter {
	conv := c.elem
	for {
		next, ok := conv.(*enumerableConverter)
		if !ok {
			return conv
		}
		conv = next.elem
	}
}

// flatten walks a rank>1 value through nested Enumerate calls, collecting
// dimension sizes (outermost first) and the row-major leaf elements.
func (c *enumerableConverter) flatten(value any) (dims []int, leaves []any, err error) {
	elems, ferr := c.shape.Enumerate(value)
	if ferr != nil {
		return nil, nil, WrapError(ferr, ErrKindInvalidData)
	}
	dims = append(dims, len(elems))
	if inner, ok := c.elem.(*enumerableConverter); ok && inner.shape.Rank() >= 1 {
		for _, e := range elems {
			innerDims, innerLeaves, ierr := inner.flatten(e)
			if ierr != nil {
				return nil, nil, ierr
			}
			if dims[len(dims)-1] == len(elems) && len(dims) == 1 {
				dims = append(dims, innerDims...)
			}
			leaves = append(leaves, innerLeaves...)
		}
		return dims, leaves, nil
	}
	leaves = elems
	return dims, leaves, nil
}

// unflatten is the read-side inverse of flatten: it consumes leaves in
// row-major order and rebuilds nested collections dimension by dimension.
func (c *enumerableConverter) unflatten(dims []int, leaves []any) (any, error) {
	built, _, err := c.unflattenAt(dims, leaves, 0)
	return built, err
}

func (c *enumerableConverter) unflattenAt(dims []int, leaves []any, offset int) (any, int, error) {
	if len(dims) == 1 {
		switch c.shape.Mode() {
		case ConstructParameterized:
			built, err := c.shape.FromElements(leaves[offset : offset+dims[0]])
			return built, offset + dims[0], err
		case ConstructMutable:
			handle, appendFn := c.shape.NewMutable()
			for i := 0; i < dims[0]; i++ {
				handle = appendFn(handle, leaves[offset+i])
			}
			return c.shape.Finish(handle), offset + dims[0], nil
		default:
			return nil, offset, UnsupportedOperationError("enumerable type has no deserialize construction mode")
		}
	}
	inner, ok := c.elem.(*enumerableConverter)
	if !ok {
		return nil, offset, InvalidDataError("dimension count exceeds nested enumerable depth")
	}
	rows := make([]any, dims[0])
	for i := 0; i < dims[0]; i++ {
		row, next, err := inner.unflattenAt(dims[1:], leaves, offset)
		if err != nil {
			return nil, offset, err
		}
		rows[i] = row
		offset = next
	}
	switch c.shape.Mode() {
	case ConstructParameterized:
		built, err := c.shape.FromElements(rows)
		return built, offset, err
	case ConstructMutable:
		handle, appendFn := c.shape.NewMutable()
		for _, r := range rows {
			handle = appendFn(handle, r)
		}
		return c.shape.Finish(handle), offset, nil
	default:
		return nil, offset, UnsupportedOperationError("enumerable type has no deserialize construction mode")
	}
}

func indexSegment(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
