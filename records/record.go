// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package records

import (
	"reflect"

	"lostluck.dev/flume-go/coders"
)

// Record is a dynamic record whose layout is defined by its Schema:
// the generic variant, with no compiled Go type behind it.
//
// Null fields are tracked in a packed bit field; a set bit marks a null.
// Trailing zero bytes of the bit field are elided on the wire, and
// lookups tolerate the elision.
type Record struct {
	schema    *Schema
	nameToNum map[string]int
	nulls     []byte
	fields    []any
}

var _ coders.GenericRecord = (*Record)(nil)

// New returns an empty record of the given schema. Every field starts
// null if nullable, or at the zero value of its type otherwise.
func New(schema *Schema) *Record {
	r := &Record{
		schema:    schema,
		nameToNum: make(map[string]int, len(schema.Fields)),
		nulls:     make([]byte, (len(schema.Fields)+7)/8),
		fields:    make([]any, len(schema.Fields)),
	}
	for i, f := range schema.Fields {
		r.nameToNum[f.Name] = i
		if f.Type.Nullable {
			r.nulls = setBit(r.nulls, i)
		} else {
			r.fields[i] = zeroValue(f.Type)
		}
	}
	return r
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Set sets the named field's value and updates its null bit. Setting an
// unknown field name panics: the schema is the record's shape contract.
func (r *Record) Set(fieldname string, val any) {
	fnum, ok := r.nameToNum[fieldname]
	if !ok {
		panic("records: no field " + fieldname + " in schema " + r.schema.Name)
	}
	r.fields[fnum] = val
	if val == nil {
		r.nulls = setBit(r.nulls, fnum)
	} else {
		r.nulls = clearBit(r.nulls, fnum)
	}
}

// Get returns the named field's value, nil when the field is null.
func (r *Record) Get(fieldname string) any {
	fnum, ok := r.nameToNum[fieldname]
	if !ok {
		panic("records: no field " + fieldname + " in schema " + r.schema.Name)
	}
	return r.fields[fnum]
}

// EncodeRecord implements coders.GenericRecord: the schema leads the
// field payload so a bare payload is decodable anywhere.
func (r *Record) EncodeRecord(enc *coders.Encoder) {
	EncodeSchema(enc, r.schema)
	encodeRowBody(enc, r)
}

// Equal reports schema aware field by field equality. Used by cmp.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if !reflect.DeepEqual(r.schema, o.schema) {
		return false
	}
	for i := range r.fields {
		if !reflect.DeepEqual(r.fields[i], o.fields[i]) {
			return false
		}
	}
	return true
}

// Sets the bit for field f.
func setBit(nulls []byte, f int) []byte {
	i, pos := f/8, f%8
	for len(nulls) <= i {
		nulls = append(nulls, 0)
	}
	nulls[i] |= 1 << pos
	return nulls
}

// Clears the bit for field f.
func clearBit(nulls []byte, f int) []byte {
	i, pos := f/8, f%8
	if i < len(nulls) {
		nulls[i] &^= 1 << pos
	}
	return nulls
}

// isNull examines the packed bits and reports whether field f was null.
// Trailing zero bytes may have been elided, so out of range means not null.
func isNull(nulls []byte, f int) bool {
	i, pos := f/8, f%8
	return i < len(nulls) && (nulls[i]>>pos)&0x1 == 1
}
