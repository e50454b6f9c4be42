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
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// structFingerprint hashes an ObjectShape's property layout (wire names,
// in declaration order, each paired with its key-index) into a 64-bit
// murmur3 value. No cache or converter in this package calls it.
// Grounded on the teacher's struct.go field hashing, which also feeds
// struct layout hashes through murmur3 for its own compatible-mode hash
// comparison.
func structFingerprint(props []Property) uint64 {
	h := murmur3.New64()
	var scratch [8]byte
	for _, p := range props {
		h.Write([]byte(p.WireName))
		binary.LittleEndian.PutUint32(scratch[:4], uint32(p.KeyIndex))
		h.Write(scratch[:4])
	}
	return h.Sum64()
}
