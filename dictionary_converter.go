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

// dictionaryConverter implements §4.7 for key/value map types, wired to
// the msgpack map family. Object-typed keys are rejected at build time:
// msgpack has no canonical encoding for a struct used as a map key, and
// the engine does not invent one.
type dictionaryConverter struct {
	shape DictionaryShape
	key   Converter
	value Converter
}

func (b *builder) buildDictionary(shape DictionaryShape) (Converter, error) {
	if shape.KeyShape().Kind() == KindObject {
		return nil, UnsupportedOperationError("object-typed dictionary keys are not supported")
	}
	key, err := b.cache.GetOrBuild(shape.KeyShape())
	if err != nil {
		return nil, err
	}
	value, err := b.cache.GetOrBuild(shape.ValueShape())
	if err != nil {
		return nil, err
	}
	return &dictionaryConverter{shape: shape, key: key, value: value}, nil
}

func (c *dictionaryConverter) PreferAsync() bool { return true }

func (c *dictionaryConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	if err := ctx.Enter(); err != nil {
		return err
	}
	defer ctx.Leave()

	pairs, err := c.shape.Enumerate(value)
	if err != nil {
		return WrapError(err, ErrKindInvalidData)
	}
	buf.WriteMapHeader(len(pairs))
	for _, kv := range pairs {
		if err := c.key.Write(ctx, buf, kv[0]); err != nil {
			return err
		}
		if err := c.value.Write(ctx, buf, kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// dictionaryWriteState resumes a chunked WriteAsync; one key/value pair is
// the atomic chunk.
type dictionaryWriteState struct {
	pairs [][2]any
	index int
}

// WriteAsync implements AsyncWriter: one pair per suspension, mirroring
// enumerableConverter.WriteAsync.
func (c *dictionaryConverter) WriteAsync(ctx *SerializationContext, buf *ByteBuffer, value any, state *AsyncState) (AsyncStatus, error) {
	st, _ := state.Scratch.(*dictionaryWriteState)
	if st == nil {
		if err := ctx.Enter(); err != nil {
			return AsyncOK, err
		}
		pairs, err := c.shape.Enumerate(value)
		if err != nil {
			ctx.Leave()
			return AsyncOK, WrapError(err, ErrKindInvalidData)
		}
		buf.WriteMapHeader(len(pairs))
		st = &dictionaryWriteState{pairs: pairs}
		state.Scratch = st
	}

	if st.index >= len(st.pairs) {
		ctx.Leave()
		return AsyncOK, nil
	}
	kv := st.pairs[st.index]
	if err := c.key.Write(ctx, buf, kv[0]); err != nil {
		ctx.Leave()
		return AsyncOK, err
	}
	if err := c.value.Write(ctx, buf, kv[1]); err != nil {
		ctx.Leave()
		return AsyncOK, err
	}
	st.index++
	if st.index >= len(st.pairs) {
		ctx.Leave()
		return AsyncOK, nil
	}
	return AsyncNeedsMore, nil
}

func (c *dictionaryConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	if err := ctx.Enter(); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	var berr Error
	n := buf.ReadMapHeader(&berr)
	if berr.HasError() {
		return nil, berr.CheckError()
	}

	switch c.shape.Mode() {
	case ConstructParameterized:
		pairs := make([][2]any, n)
		for i := 0; i < n; i++ {
			k, err := c.key.Read(ctx, buf)
			if err != nil {
				return nil, err
			}
			v, err := c.value.Read(ctx, buf)
			if err != nil {
				return nil, err
			}
			pairs[i] = [2]any{k, v}
		}
		pairs = c.dedupe(ctx, pairs)
		built, err := c.shape.FromPairs(pairs)
		if err != nil {
			return nil, WrapError(err, ErrKindInvalidData)
		}
		return built, nil
	case ConstructMutable:
		handle, insertFn := c.shape.NewMutable()
		pairs := make([][2]any, 0, n)
		for i := 0; i < n; i++ {
			k, err := c.key.Read(ctx, buf)
			if err != nil {
				return nil, err
			}
			v, err := c.value.Read(ctx, buf)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, [2]any{k, v})
		}
		pairs = c.dedupe(ctx, pairs)
		for _, kv := range pairs {
			handle = insertFn(handle, kv[0], kv[1])
		}
		return c.shape.Finish(handle), nil
	default:
		return nil, UnsupportedOperationError("dictionary type has no deserialize construction mode")
	}
}

// dedupe merges wire pairs by key equality when Policy.ComparerProvider
// supplies a comparer for this dictionary's key shape, per §4.7: without
// a configured provider, key identity is left entirely to the shape's own
// construction (Go's built-in map equality/hashing). Later pairs win,
// matching ordinary map-literal insertion semantics. This is also the
// entry point for set-like containers, since this repo's reflectshape
// provider models a set as a map keyed on the element with an empty
// value shape rather than as a distinct shape kind.
func (c *dictionaryConverter) dedupe(ctx *SerializationContext, pairs [][2]any) [][2]any {
	if ctx.Policy.ComparerProvider == nil {
		return pairs
	}
	cmp, ok := ctx.Policy.ComparerProvider.ComparerFor(c.shape.KeyShape())
	if !ok || cmp.Equal == nil {
		return pairs
	}
	out := make([][2]any, 0, len(pairs))
	if cmp.Hash != nil {
		buckets := map[uint64][]int{}
		for _, kv := range pairs {
			h := cmp.Hash(kv[0])
			merged := false
			for _, idx := range buckets[h] {
				if cmp.Equal(out[idx][0], kv[0]) {
					out[idx] = kv
					merged = true
					break
				}
			}
			if !merged {
				buckets[h] = append(buckets[h], len(out))
				out = append(out, kv)
			}
		}
		return out
	}
	for _, kv := range pairs {
		merged := false
		for i, existing := range out {
			if cmp.Equal(existing[0], kv[0]) {
				out[i] = kv
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, kv)
		}
	}
	return out
}
