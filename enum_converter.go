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

import (
	"reflect"
	"strings"
)

// enumConverter implements §4.8: ordinal mode emits/accepts the
// underlying integer; by-name mode emits the declared name and accepts
// any case-insensitive variant unless the enum declares case-distinguished
// members, falling back to ordinal when no clean name exists for a value.
type enumConverter struct {
	shape         EnumShape
	byValue       map[int64]string
	byName        map[string]int64 // exact-case lookup
	byNameFolded  map[string]int64 // case-insensitive lookup, used unless CaseSensitive
}

func (b *builder) buildEnum(shape EnumShape) (Converter, error) {
	c := &enumConverter{
		shape:        shape,
		byValue:      map[int64]string{},
		byName:       map[string]int64{},
		byNameFolded: map[string]int64{},
	}
	for _, m := range shape.Members() {
		c.byValue[m.Value] = m.Name
		c.byName[m.Name] = m.Value
		c.byNameFolded[strings.ToLower(m.Name)] = m.Value
	}
	return c, nil
}

func (c *enumConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	v := toInt64(value)
	if !ctx.Policy.SerializeEnumValuesByName {
		buf.WriteInt(v)
		return nil
	}
	name, ok := c.byValue[v]
	if !ok {
		// Best-effort string form unavailable; fall back to ordinal (§4.8).
		buf.WriteInt(v)
		return nil
	}
	buf.WriteStr(name)
	return nil
}

func (c *enumConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	var peekErr Error
	typ := buf.PeekNextType(&peekErr)
	if peekErr.HasError() {
		return nil, peekErr.CheckError()
	}
	if typ == TypeStr {
		var err Error
		name := buf.ReadStr(&err)
		if err.HasError() {
			return nil, err.CheckError()
		}
		if v, ok := c.byName[name]; ok {
			return c.fromInt64(v), nil
		}
		if !c.shape.CaseSensitive() {
			if v, ok := c.byNameFolded[strings.ToLower(name)]; ok {
				return c.fromInt64(v), nil
			}
		}
		return nil, InvalidDataError("unknown enum member name %q", name)
	}
	var err Error
	v := buf.ReadInt(&err)
	if err.HasError() {
		return nil, err.CheckError()
	}
	return c.fromInt64(v), nil
}

func (c *enumConverter) PreferAsync() bool { return false }

// fromInt64 restores the enum's own declared Go type (e.g. `type Status
// int32`), rather than handing callers back a bare int64, so Deserialize
// results and Property.Set assignments both see the type they declared.
func (c *enumConverter) fromInt64(v int64) any {
	rv := reflect.New(c.shape.Type()).Elem()
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(uint64(v))
	default:
		rv.SetInt(v)
	}
	return rv.Interface()
}

// toInt64 reads through a named type's underlying kind via reflect, since
// a plain type switch on int32 etc. does not match a declared `type Status
// int32` value.
func toInt64(v any) int64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	default:
		return 0
	}
}
