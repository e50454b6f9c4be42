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

// internTable implements §4.11 String Interning: decoded strings are
// looked up by byte content before allocating a new Go string header,
// and (when combined with reference preservation) the writer suppresses
// re-emitting a string whose bytes were already emitted once in the same
// call.
//
// Go's runtime already shares the backing array for substrings, so
// "weak-referenced" here just means the table is scoped to one
// SerializationContext and discarded with it — nothing pins decoded
// strings alive past the call.
type internTable struct {
	byContent map[string]string

	// write side: id assigned to each distinct string's first emission in
	// this call, keyed by content (strings are value-equal, not
	// pointer-identical, so this mirrors referenceTable.seen without
	// reusing its pointer-identity lookup).
	writeSeen   map[string]int
	nextWriteID int

	// read side: every distinct (non-reference-token) string decoded this
	// call, in emission order, so a later reference token resolves by
	// position against the writer's numbering.
	decoded []string
}

func newInternTable() *internTable {
	return &internTable{byContent: map[string]string{}, writeSeen: map[string]int{}}
}

// Intern returns the canonical string for s, recording s as canonical on
// first sight.
func (t *internTable) Intern(s string) string {
	if existing, ok := t.byContent[s]; ok {
		return existing
	}
	t.byContent[s] = s
	return s
}

// MarkWritten records that s has been fully emitted once in this call,
// returning its assigned id and true if it was already marked (caller
// should suppress re-emission and instead write a reference token
// carrying id).
func (t *internTable) MarkWritten(s string) (id int, alreadyWritten bool) {
	if id, ok := t.writeSeen[s]; ok {
		return id, true
	}
	t.nextWriteID++
	t.writeSeen[s] = t.nextWriteID
	return t.nextWriteID, false
}

// RegisterDecoded records a fully-decoded string under the next
// sequential id, mirroring MarkWritten's write-side numbering.
func (t *internTable) RegisterDecoded(s string) {
	t.decoded = append(t.decoded, s)
}

// ResolveWritten returns the string previously recorded under id (the
// 1-based numbering MarkWritten/RegisterDecoded share).
func (t *internTable) ResolveWritten(id int) (string, bool) {
	if id < 1 || id > len(t.decoded) {
		return "", false
	}
	return t.decoded[id-1], true
}

// internOrRead decodes (or reuses) a string for the given context,
// applying interning when enabled by policy, and resolving a reference
// token in place of the full bytes when interning and reference
// preservation are both enabled (§4.11, write half in writeInternedStr).
func internOrRead(ctx *SerializationContext, buf *ByteBuffer, err *Error) string {
	internOn := ctx.Policy.InternStrings && ctx.interned != nil
	if internOn && ctx.Policy.PreserveReferences != ReferencePreservationOff {
		if s, ok := readInternedStrRef(ctx, buf, err); ok || err.HasError() {
			return s
		}
	}
	s := buf.ReadStr(err)
	if err.HasError() {
		return ""
	}
	if internOn {
		s = ctx.interned.Intern(s)
		ctx.interned.RegisterDecoded(s)
	}
	return s
}

// writeInternedStr implements the write half of §4.11's string dedup:
// once interning and reference preservation are both enabled, a string
// whose bytes were already emitted once in this call is replaced by a
// compact reference token instead of being re-emitted in full.
func writeInternedStr(ctx *SerializationContext, buf *ByteBuffer, s string) error {
	if !ctx.Policy.InternStrings || ctx.Policy.PreserveReferences == ReferencePreservationOff || ctx.interned == nil {
		buf.WriteStr(s)
		return nil
	}
	id, alreadyWritten := ctx.interned.MarkWritten(s)
	if alreadyWritten {
		var payload [8]byte
		n := putUvarint(payload[:], uint64(id))
		buf.WriteExtension(ctx.Policy.ExtensionTypeCodes.ReferenceID, payload[:n])
		return nil
	}
	buf.WriteStr(s)
	return nil
}

// readInternedStrRef peeks for a reference-token extension in place of a
// string's normal bytes. It reports false (with the cursor rewound) when
// no such token is present, so the caller falls through to an ordinary
// read.
func readInternedStrRef(ctx *SerializationContext, buf *ByteBuffer, err *Error) (string, bool) {
	var peekErr Error
	typ := buf.PeekNextType(&peekErr)
	if peekErr.HasError() || typ != TypeExt {
		return "", false
	}
	save := buf.ReaderIndex()
	code, payload := buf.ReadExtension(err)
	if err.HasError() {
		return "", false
	}
	if code != ctx.Policy.ExtensionTypeCodes.ReferenceID {
		buf.SetReaderIndex(save)
		return "", false
	}
	id, _ := getUvarint(payload)
	s, ok := ctx.interned.ResolveWritten(int(id))
	if !ok {
		*err = InvalidDataError("unresolved interned string reference id %d", id)
		return "", false
	}
	return s, true
}
