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

// buildUnionBase builds the converter for a union's own base-type
// properties — the wire representation used when the discriminator is
// nil (the value is exactly the base type, not a derived case).
func (b *builder) buildUnionBase(union UnionShape) (Converter, error) {
	return b.cache.GetOrBuild(union.BaseShape())
}

// unionEntry pairs one declared derived case with its resolved converter
// and wire discriminator.
type unionEntry struct {
	tag     int64
	hasTag  bool
	name    string
	hasName bool
	conv    Converter
	shape   Shape
}

// unionConverter implements §4.6: polymorphism over a declared case list,
// discriminated on the wire either as an array [discriminator, payload]
// (default) or an object {discriminator: payload} (when
// Policy.UseDiscriminatorObjects is set). The duck-typed variant omits
// the discriminator entirely and dispatches by matching the payload's
// map keys against each case's required-property set.
type unionConverter struct {
	union     UnionShape
	base      Converter
	entries   []unionEntry
	byTag     map[int64]int
	byName    map[string]int
	useObject bool
	duckTyped bool
}

func (b *builder) wrapUnion(union UnionShape, base Converter) (Converter, error) {
	key := typeKeyFor(union.Type())
	if override, ok := b.policy.DerivedTypeUnions[key]; ok && override.Disabled {
		return base, nil
	}

	cases := union.Cases()
	if override, ok := b.policy.DerivedTypeUnions[key]; ok && override.Cases != nil {
		cases = override.Cases
	}

	entries := make([]unionEntry, len(cases))
	byTag := map[int64]int{}
	byName := map[string]int{}
	for i, uc := range cases {
		var conv Converter
		var err error
		if uc.Marshaler != nil {
			inner, ierr := b.cache.GetOrBuild(uc.CaseShape)
			if ierr != nil {
				return nil, ierr
			}
			conv = newSurrogateConverter(*uc.Marshaler, inner)
		} else {
			conv, err = b.cache.GetOrBuild(uc.CaseShape)
			if err != nil {
				return nil, err
			}
		}
		entries[i] = unionEntry{
			tag: int64(uc.Tag), hasTag: uc.HasTag,
			name: uc.Name, hasName: uc.HasName,
			conv: conv, shape: uc.CaseShape,
		}
		if uc.HasTag {
			byTag[int64(uc.Tag)] = i
		}
		if uc.HasName {
			byName[uc.Name] = i
		}
	}

	return &unionConverter{
		union:     union,
		base:      base,
		entries:   entries,
		byTag:     byTag,
		byName:    byName,
		useObject: b.policy.UseDiscriminatorObjects,
		duckTyped: union.DuckTyped(),
	}, nil
}

func (c *unionConverter) PreferAsync() bool { return true }

func (c *unionConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	if err := ctx.Enter(); err != nil {
		return err
	}
	defer ctx.Leave()

	idx := c.union.CaseIndex(value)
	if idx < 0 {
		if c.duckTyped {
			return c.base.Write(ctx, buf, value)
		}
		return c.writeEntry(ctx, buf, nil, value, c.base)
	}
	e := c.entries[idx]
	if c.duckTyped {
		return e.conv.Write(ctx, buf, value)
	}
	var discriminator any
	switch {
	case e.hasTag:
		discriminator = e.tag
	case e.hasName:
		discriminator = e.name
	}
	return c.writeEntry(ctx, buf, discriminator, value, e.conv)
}

func (c *unionConverter) writeEntry(ctx *SerializationContext, buf *ByteBuffer, discriminator, value any, conv Converter) error {
	if c.useObject {
		buf.WriteMapHeader(1)
	} else {
		buf.WriteArrayHeader(2)
	}
	switch d := discriminator.(type) {
	case nil:
		buf.WriteNil()
	case int64:
		buf.WriteInt(d)
	case string:
		buf.WriteStr(d)
	}
	return conv.Write(ctx, buf, value)
}

func (c *unionConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	if err := ctx.Enter(); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	if c.duckTyped {
		return c.readDuckTyped(ctx, buf)
	}

	var err Error
	if c.useObject {
		n := buf.ReadMapHeader(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		if n != 1 {
			return nil, InvalidDataError("union discriminator object must have exactly one entry, got %d", n)
		}
	} else {
		n := buf.ReadArrayHeader(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		if n != 2 {
			return nil, InvalidDataError("union discriminator array must have exactly two elements, got %d", n)
		}
	}

	typ := buf.PeekNextType(&err)
	if err.HasError() {
		return nil, err.CheckError()
	}
	switch typ {
	case TypeNil:
		buf.ReadNil(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		return c.base.Read(ctx, buf)
	case TypeInt, TypeUint:
		tag := buf.ReadInt(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		idx, ok := c.byTag[tag]
		if !ok {
			return nil, UnknownUnionDiscriminatorError(tag)
		}
		return c.entries[idx].conv.Read(ctx, buf)
	case TypeStr:
		name := buf.ReadStr(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		idx, ok := c.byName[name]
		if !ok {
			return nil, UnknownUnionDiscriminatorError(name)
		}
		return c.entries[idx].conv.Read(ctx, buf)
	default:
		return nil, InvalidDataError("unsupported union discriminator wire type")
	}
}

// readDuckTyped dispatches on the payload's own map keys, matching each
// case's required-property set (§4.6 experimental variant, §9 Open
// Questions: ambiguous matches are refused rather than guessed).
func (c *unionConverter) readDuckTyped(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	keys, probeErr := peekMapKeys(buf)
	if probeErr != nil {
		return nil, probeErr
	}
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	matched := -1
	for i, e := range c.entries {
		obj, ok := e.shape.(ObjectShape)
		if !ok {
			continue
		}
		if requiredSubsetOf(obj, keySet) {
			if matched >= 0 {
				return nil, InvalidDataError("ambiguous duck-typed union payload matches more than one case")
			}
			matched = i
		}
	}
	if matched < 0 {
		return c.base.Read(ctx, buf)
	}
	return c.entries[matched].conv.Read(ctx, buf)
}

func requiredSubsetOf(obj ObjectShape, keys map[string]struct{}) bool {
	for _, p := range obj.Properties() {
		if p.IsUnusedData {
			continue
		}
		if p.Required || (p.Param != nil && p.Param.Required) {
			name := p.WireName
			if name == "" {
				name = p.Name
			}
			if _, ok := keys[name]; !ok {
				return false
			}
		}
	}
	return true
}

// peekMapKeys reads the top-level keys of a map-form structure at buf's
// current position without disturbing buf's own cursor: it operates on a
// throwaway ByteBuffer view over the same backing bytes.
func peekMapKeys(buf *ByteBuffer) ([]string, error) {
	view := &ByteBuffer{data: buf.data, writerIndex: buf.writerIndex, readerIndex: buf.readerIndex}
	var err Error
	n := view.ReadMapHeader(&err)
	if err.HasError() {
		return nil, err.CheckError()
	}
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := view.ReadStr(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		keys = append(keys, k)
		view.SkipOneStructure(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
	}
	return keys, nil
}
