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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFieldTagEmpty(t *testing.T) {
	tag := parseFieldTag("", "Field")
	require.Equal(t, "Field", tag.name)
	require.Equal(t, -1, tag.keyIndex)
	require.False(t, tag.ignore)
	require.False(t, tag.required)
	require.False(t, tag.nullable)
}

func TestParseFieldTagIgnore(t *testing.T) {
	tag := parseFieldTag("-", "Field")
	require.True(t, tag.ignore)
}

func TestParseFieldTagRename(t *testing.T) {
	tag := parseFieldTag("wireName", "Field")
	require.Equal(t, "wireName", tag.name)
}

func TestParseFieldTagKeepNameWithOptions(t *testing.T) {
	tag := parseFieldTag(",required", "Field")
	require.Equal(t, "Field", tag.name)
	require.True(t, tag.required)
}

func TestParseFieldTagFull(t *testing.T) {
	tag := parseFieldTag("id,index=3,required,nullable,unused", "Field")
	require.Equal(t, "id", tag.name)
	require.Equal(t, 3, tag.keyIndex)
	require.True(t, tag.required)
	require.True(t, tag.nullable)
	require.True(t, tag.unused)
}

func TestParseFieldTagBadIndexIgnored(t *testing.T) {
	tag := parseFieldTag("id,index=notanumber", "Field")
	require.Equal(t, -1, tag.keyIndex)
}
