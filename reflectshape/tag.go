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

package reflectshape

import (
	"strconv"
	"strings"
)

// fieldTag is the parsed form of a `msgpack:"..."` struct tag, this
// package's struct-tag mini-language: a leading wire-name override
// followed by comma-separated options, mirroring the shape (not the
// name) of encoding/json's tag grammar.
//
//	msgpack:"-"                    // field ignored entirely
//	msgpack:"wireName"             // rename
//	msgpack:",required"            // keep the Go field name, mark required
//	msgpack:"id,index=0,required"  // rename + array-form key index + required
//	msgpack:",nullable"            // explicit nil is accepted for this member
//	msgpack:",unused"              // catch-all bucket for unrecognized keys
//	msgpack:",converter=base64"    // this member uses the named converter
//	                                // registered via shapewire.WithNamedConverter,
//	                                // bypassing the type-driven resolution
//	                                // that would otherwise apply to it
type fieldTag struct {
	ignore    bool
	name      string
	keyIndex  int // -1 if not set
	required  bool
	nullable  bool
	unused    bool
	converter string
}

func parseFieldTag(raw string, fallbackName string) fieldTag {
	t := fieldTag{name: fallbackName, keyIndex: -1}
	if raw == "" {
		return t
	}
	parts := strings.Split(raw, ",")
	if parts[0] == "-" && len(parts) == 1 {
		t.ignore = true
		return t
	}
	if parts[0] != "" {
		t.name = parts[0]
	}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "required":
			t.required = true
		case opt == "nullable":
			t.nullable = true
		case opt == "unused":
			t.unused = true
		case strings.HasPrefix(opt, "index="):
			if n, err := strconv.Atoi(strings.TrimPrefix(opt, "index=")); err == nil {
				t.keyIndex = n
			}
		case strings.HasPrefix(opt, "converter="):
			t.converter = strings.TrimPrefix(opt, "converter=")
		}
	}
	return t
}
