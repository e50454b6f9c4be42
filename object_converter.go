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

import "reflect"

// objectLayout is the on-wire representation choice of §4.2: map (the
// default, keyed by property name) or array (indexed by declared
// key-index), decided once at build time per shape.
type objectLayout uint8

const (
	layoutMap objectLayout = iota
	layoutArray
)

// objectConverter implements §4.4 (map form) and §4.5 (array form). Which
// one a given instance uses is fixed at build time by property metadata
// and policy; both share should-serialize / non-null-enforcement logic.
type objectConverter struct {
	shape      ObjectShape
	layout     objectLayout
	props      []Property
	propConv   []Converter // parallel to props
	unusedData *Property   // nil if the type has none
	arraySlots []int       // len == header length; value is index into props, or -1
}

func (b *builder) buildObject(shape ObjectShape) (Converter, error) {
	props := shape.Properties()

	var unusedData *Property
	indexed, unindexed := 0, 0
	for i := range props {
		p := &props[i]
		if p.IsUnusedData {
			if unusedData != nil {
				return nil, ConfigurationErrorf("type %s declares more than one unused-data bucket", shape.Type())
			}
			unusedData = p
			continue
		}
		if p.KeyIndex >= 0 {
			indexed++
		} else {
			unindexed++
		}
	}
	if indexed > 0 && unindexed > 0 {
		return nil, ConfigurationErrorf("type %s mixes members with and without explicit key indexes", shape.Type())
	}

	layout := layoutMap
	if indexed > 0 || (b.policy.PerfOverSchemaStability && !b.policy.IgnoreKeyAttributes) {
		layout = layoutArray
	}
	if b.policy.IgnoreKeyAttributes {
		layout = layoutMap
	}

	conv := &objectConverter{shape: shape, layout: layout, props: props, unusedData: unusedData}
	conv.propConv = make([]Converter, len(props))
	for i, p := range props {
		if p.IsUnusedData {
			continue
		}
		if p.CustomConverterName != "" {
			if pc, ok := b.policy.NamedConverters[p.CustomConverterName]; ok {
				conv.propConv[i] = pc
				continue
			}
			return nil, ConfigurationErrorf("type %s member %s names unregistered converter %q", shape.Type(), p.Name, p.CustomConverterName)
		}
		pshape, err := b.provider.ShapeFor(p.Type)
		if err != nil {
			return nil, err
		}
		pc, err := b.cache.GetOrBuild(pshape)
		if err != nil {
			return nil, err
		}
		conv.propConv[i] = pc
	}

	if layout == layoutArray {
		maxIndex := -1
		for _, p := range props {
			if !p.IsUnusedData && p.KeyIndex > maxIndex {
				maxIndex = p.KeyIndex
			}
		}
		slots := make([]int, maxIndex+1)
		for i := range slots {
			slots[i] = -1
		}
		for i, p := range props {
			if !p.IsUnusedData && p.KeyIndex >= 0 {
				slots[p.KeyIndex] = i
			}
		}
		if indexed == 0 {
			// No member declares a key index (PerfOverSchemaStability):
			// slots follow declaration order.
			for i, p := range props {
				if !p.IsUnusedData {
					slots = append(slots, i)
				}
			}
		}
		conv.arraySlots = slots
	}

	return conv, nil
}

func (c *objectConverter) PreferAsync() bool { return true }

// ---- write ----

func (c *objectConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	if err := ctx.Enter(); err != nil {
		return err
	}
	defer ctx.Leave()
	if c.layout == layoutArray {
		return c.writeArray(ctx, buf, value)
	}
	return c.writeMap(ctx, buf, value)
}

func (c *objectConverter) writeMap(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	type member struct {
		idx  int
		name string
	}
	var members []member
	for i, p := range c.props {
		if p.IsUnusedData {
			continue
		}
		fv, err := p.Get(value)
		if err != nil {
			return WrapError(err, ErrKindInvalidData).WithPath(p.Name)
		}
		if !c.shouldSerialize(ctx, p, fv) {
			continue
		}
		members = append(members, member{idx: i, name: wireName(ctx, p)})
	}
	buf.WriteMapHeader(len(members))
	for _, m := range members {
		p := c.props[m.idx]
		buf.WriteStr(m.name)
		fv, err := p.Get(value)
		if err != nil {
			return WrapError(err, ErrKindInvalidData).WithPath(p.Name)
		}
		if err := c.propConv[m.idx].Write(ctx, buf, fv); err != nil {
			return wrapErrPath(err, p.Name)
		}
	}
	return nil
}

func (c *objectConverter) writeArray(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	length := len(c.arraySlots)
	// Only the trailing run of defaults may be omitted by shortening the
	// header; interior defaults must still be emitted (§4.5).
	for length > 0 {
		idx := c.arraySlots[length-1]
		if idx < 0 {
			break
		}
		p := c.props[idx]
		fv, err := p.Get(value)
		if err != nil {
			return WrapError(err, ErrKindInvalidData).WithPath(p.Name)
		}
		if c.shouldSerialize(ctx, p, fv) {
			break
		}
		length--
	}
	buf.WriteArrayHeader(length)
	for slot := 0; slot < length; slot++ {
		idx := c.arraySlots[slot]
		if idx < 0 {
			buf.WriteNil()
			continue
		}
		p := c.props[idx]
		fv, err := p.Get(value)
		if err != nil {
			return WrapError(err, ErrKindInvalidData).WithPath(p.Name)
		}
		if err := c.propConv[idx].Write(ctx, buf, fv); err != nil {
			return wrapErrPath(err, p.Name)
		}
	}
	return nil
}

func (c *objectConverter) shouldSerialize(ctx *SerializationContext, p Property, value any) bool {
	if p.ShouldSerialize != nil {
		return p.ShouldSerialize(value)
	}
	pol := ctx.Policy.SerializeDefaults
	if pol.has(SerializeDefaultsAlways) {
		return true
	}
	if pol.has(SerializeDefaultsValueTypes) && isValueKind(p.Type) {
		return true
	}
	if pol.has(SerializeDefaultsReferenceTypes) && !isValueKind(p.Type) {
		return true
	}
	if p.Required && pol.has(SerializeDefaultsRequired) {
		return true
	}
	return !reflect.DeepEqual(value, p.DefaultValue)
}

func isValueKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return false
	default:
		return true
	}
}

func wireName(ctx *SerializationContext, p Property) string {
	if p.WireName != "" {
		return p.WireName
	}
	if ctx.Policy.PropertyNamingPolicy != nil {
		return ctx.Policy.PropertyNamingPolicy(p.Name)
	}
	return p.Name
}

func wrapErrPath(err error, segment string) error {
	if e, ok := err.(Error); ok {
		return e.WithPath(segment)
	}
	return WrapError(err, ErrKindInvalidData).WithPath(segment)
}

// ---- read ----

// objectParamState tracks per-deserialization constructor-argument
// assignment, implementing ArgumentState (§3.1): one slot per parameter
// plus a bitset of which slots were assigned, so a double-set is
// detectable (§3.2).
type objectParamState struct {
	values []any
	set    []bool
}

func newObjectParamState(n int) *objectParamState {
	return &objectParamState{values: make([]any, n), set: make([]bool, n)}
}

func (s *objectParamState) assign(pos int, v any, paramName string) error {
	if s.set[pos] {
		return DoublePropertyAssignmentError(paramName)
	}
	s.values[pos] = v
	s.set[pos] = true
	return nil
}

func (c *objectConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	return c.ReadWithEarlyRegistration(ctx, buf, nil)
}

// ReadWithEarlyRegistration implements earlyRegisterReader. For shapes
// without a constructor (every shape this tree's own reflectshape
// provider produces), the zero instance can be allocated and handed to
// register before any member is decoded, so a field that cycles back to
// this same object resolves to the live instance instead of failing with
// an unresolved reference id. Constructor-bound shapes have no instance
// to offer until all arguments are collected, so register is invoked
// only after materialize builds one; a true cycle through a
// constructor-required property remains unsupported.
func (c *objectConverter) ReadWithEarlyRegistration(ctx *SerializationContext, buf *ByteBuffer, register func(any)) (any, error) {
	if err := ctx.Enter(); err != nil {
		return nil, err
	}
	defer ctx.Leave()
	if c.layout == layoutArray {
		return c.readArray(ctx, buf, register)
	}
	return c.readMap(ctx, buf, register)
}

func (c *objectConverter) byWireName(ctx *SerializationContext) map[string]int {
	m := make(map[string]int, len(c.props))
	for i, p := range c.props {
		if p.IsUnusedData {
			continue
		}
		m[wireName(ctx, p)] = i
	}
	return m
}

func (c *objectConverter) readMap(ctx *SerializationContext, buf *ByteBuffer, register func(any)) (any, error) {
	var err Error
	n := buf.ReadMapHeader(&err)
	if err.HasError() {
		return nil, err.CheckError()
	}

	byName := c.byWireName(ctx)
	ctor := c.shape.Constructor()
	var params *objectParamState
	var preset any
	if ctor != nil {
		params = newObjectParamState(len(ctor.Parameters))
	} else {
		preset = c.shape.New()
		if register != nil {
			register(preset)
		}
	}
	setterValues := map[int]any{}
	seen := map[int]bool{}
	var unused map[string]RawMessage

	for i := 0; i < n; i++ {
		key := buf.ReadStr(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		idx, ok := byName[key]
		if !ok {
			if c.unusedData != nil {
				if unused == nil {
					unused = map[string]RawMessage{}
				}
				start := buf.ReaderIndex()
				buf.SkipOneStructure(&err)
				if err.HasError() {
					return nil, err.CheckError()
				}
				unused[key] = RawMessage(append([]byte(nil), buf.Bytes()[start:buf.ReaderIndex()]...))
				continue
			}
			buf.SkipOneStructure(&err)
			if err.HasError() {
				return nil, err.CheckError()
			}
			continue
		}
		p := c.props[idx]
		v, verr := c.readMember(ctx, buf, idx, p)
		if verr != nil {
			return nil, wrapErrPath(verr, p.Name)
		}
		if p.Param != nil && params != nil {
			if aerr := params.assign(p.Param.Position, v, p.Param.Name); aerr != nil {
				return nil, aerr
			}
		} else {
			setterValues[idx] = v
		}
		seen[idx] = true
	}

	obj, err2 := c.materialize(ctx, ctor, params, setterValues, seen, preset, register)
	if err2 != nil {
		return nil, err2
	}
	if c.unusedData != nil && unused != nil {
		if serr := c.unusedData.Set(obj, unused); serr != nil {
			return nil, serr
		}
	}
	return obj, nil
}

func (c *objectConverter) readArray(ctx *SerializationContext, buf *ByteBuffer, register func(any)) (any, error) {
	var err Error
	n := buf.ReadArrayHeader(&err)
	if err.HasError() {
		return nil, err.CheckError()
	}

	ctor := c.shape.Constructor()
	var params *objectParamState
	var preset any
	if ctor != nil {
		params = newObjectParamState(len(ctor.Parameters))
	} else {
		preset = c.shape.New()
		if register != nil {
			register(preset)
		}
	}
	setterValues := map[int]any{}
	seen := map[int]bool{}

	for slot := 0; slot < n; slot++ {
		if slot >= len(c.arraySlots) || c.arraySlots[slot] < 0 {
			buf.SkipOneStructure(&err)
			if err.HasError() {
				return nil, err.CheckError()
			}
			continue
		}
		idx := c.arraySlots[slot]
		p := c.props[idx]
		v, verr := c.readMember(ctx, buf, idx, p)
		if verr != nil {
			return nil, wrapErrPath(verr, p.Name)
		}
		if p.Param != nil && params != nil {
			if aerr := params.assign(p.Param.Position, v, p.Param.Name); aerr != nil {
				return nil, aerr
			}
		} else {
			setterValues[idx] = v
		}
		seen[idx] = true
	}

	return c.materialize(ctx, ctor, params, setterValues, seen, preset, register)
}

func (c *objectConverter) readMember(ctx *SerializationContext, buf *ByteBuffer, idx int, p Property) (any, error) {
	if buf.TryReadNil(new(Error)) {
		if !p.Nullable && !ctx.Policy.DeserializeDefaults.has(AllowNullValuesForNonNullableProperties) {
			return nil, DisallowedNullValueError(p.Name)
		}
		return nil, nil
	}
	return c.propConv[idx].Read(ctx, buf)
}

func (c *objectConverter) materialize(ctx *SerializationContext, ctor *Constructor, params *objectParamState, setterValues map[int]any, seen map[int]bool, preset any, register func(any)) (any, error) {
	var obj any
	var missing []string
	if ctor != nil {
		for i, param := range ctor.Parameters {
			if !params.set[i] {
				if param.HasDefault {
					params.values[i] = param.DefaultValue
					continue
				}
				if param.Required {
					missing = append(missing, param.Name)
				}
			}
		}
		if len(missing) > 0 && !ctx.Policy.DeserializeDefaults.has(AllowMissingValuesForRequiredProperties) {
			return nil, MissingRequiredPropertyError(missing)
		}
		built, err := ctor.Invoke(params.values)
		if err != nil {
			return nil, WrapError(err, ErrKindInvalidData)
		}
		obj = built
		if register != nil {
			register(obj)
		}
	} else {
		obj = preset
	}
	for idx, v := range setterValues {
		p := c.props[idx]
		if p.Set != nil {
			if err := p.Set(obj, v); err != nil {
				return nil, wrapErrPath(err, p.Name)
			}
		}
	}
	for i, p := range c.props {
		if p.IsUnusedData || p.Param != nil {
			continue
		}
		if p.Required && !seen[i] {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 && !ctx.Policy.DeserializeDefaults.has(AllowMissingValuesForRequiredProperties) {
		return nil, MissingRequiredPropertyError(missing)
	}
	return obj, nil
}
