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
	"fmt"

	"lostluck.dev/flume-go/coders"
)

// RecordCoder is a stateless coder from a fixed schema to dynamic Records.
// The schema itself is not written; see Record.EncodeRecord for the self
// describing form.
type RecordCoder struct {
	schema   *Schema
	rawCoder coders.Coder[any]
}

var _ coders.Coder[*Record] = (*RecordCoder)(nil)

// Decode decodes bytes into a Record of this coder's schema.
func (c *RecordCoder) Decode(dec *coders.Decoder) *Record {
	return c.rawCoder.Decode(dec).(*Record)
}

// Encode encodes the record's field payload.
func (c *RecordCoder) Encode(enc *coders.Encoder, val *Record) {
	c.rawCoder.Encode(enc, val)
}

// ToCoder takes a schema and produces a coder for Records of that schema.
func ToCoder(schema *Schema) coders.Coder[*Record] {
	return &RecordCoder{
		schema:   schema,
		rawCoder: buildRowCoder(schema),
	}
}

func buildRowCoder(schema *Schema) coders.Coder[any] {
	c := &rowCoder{schema: schema}
	for _, f := range schema.Fields {
		// At row level nullness lives in the bit field, so fields use
		// their bare coders. The nullable wrap applies only inside
		// list and map containers, which have no bit field.
		c.nullable = append(c.nullable, f.Type.Nullable)
		c.fields = append(c.fields, buildBareFieldCoder(f.Type))
	}
	return c
}

func buildFieldCoder(ft FieldType) coders.Coder[any] {
	fc := buildBareFieldCoder(ft)
	if ft.Nullable {
		return &nullableCoder{wrap: fc}
	}
	return fc
}

func buildBareFieldCoder(ft FieldType) coders.Coder[any] {
	switch {
	case ft.List != nil:
		return &arrayCoder{field: buildFieldCoder(*ft.List)}
	case ft.KeyValue != nil:
		return &mapCoder{
			key:   buildFieldCoder(ft.KeyValue.Key),
			value: buildFieldCoder(ft.KeyValue.Value),
		}
	case ft.Row != nil:
		return buildRowCoder(ft.Row)
	default:
		return buildAtomicCoder(ft.Atomic)
	}
}

func buildAtomicCoder(atype Atomic) coders.Coder[any] {
	switch atype {
	case Bool:
		return wrapCoder(coders.MakeCoder[bool]())
	case Byte:
		return wrapCoder(coders.MakeCoder[byte]())
	case Bytes:
		return wrapCoder(coders.MakeCoder[[]byte]())
	case Int16:
		return wrapCoder(coders.MakeCoder[int16]())
	case Int32:
		return wrapCoder(coders.MakeCoder[int32]())
	case Int64:
		return wrapCoder(coders.MakeCoder[int64]())
	case Float:
		return wrapCoder(coders.MakeCoder[float32]())
	case Double:
		return wrapCoder(coders.MakeCoder[float64]())
	case String:
		return wrapCoder(coders.MakeCoder[string]())
	default:
		panic(fmt.Sprintf("records: unimplemented atomic field type: %v", atype))
	}
}

// zeroValue is the initial value of a non nullable field.
func zeroValue(ft FieldType) any {
	switch {
	case ft.List != nil:
		return []any{}
	case ft.KeyValue != nil:
		return map[any]any{}
	case ft.Row != nil:
		return New(ft.Row)
	}
	switch ft.Atomic {
	case Bool:
		return false
	case Byte:
		return byte(0)
	case Bytes:
		return []byte{}
	case Int16:
		return int16(0)
	case Int32:
		return int32(0)
	case Int64:
		return int64(0)
	case Float:
		return float32(0)
	case Double:
		return float64(0)
	case String:
		return ""
	default:
		return nil
	}
}

func wrapCoder[E any, C coders.Coder[E]](coder C) coders.Coder[any] {
	return &anyCoderAdapter[E, C]{wrapped: coder}
}

type anyCoderAdapter[E any, C coders.Coder[E]] struct {
	wrapped C
}

// Decode implements coders.Coder.
func (c *anyCoderAdapter[E, C]) Decode(dec *coders.Decoder) any {
	return c.wrapped.Decode(dec)
}

// Encode implements coders.Coder.
func (c *anyCoderAdapter[E, C]) Encode(enc *coders.Encoder, v any) {
	c.wrapped.Encode(enc, v.(E))
}

type nullableCoder struct {
	wrap coders.Coder[any]
}

// Decode implements coders.Coder.
func (c *nullableCoder) Decode(dec *coders.Decoder) any {
	if dec.Byte() == 0x00 {
		return nil
	}
	return c.wrap.Decode(dec)
}

// Encode implements coders.Coder.
func (c *nullableCoder) Encode(enc *coders.Encoder, v any) {
	if v == nil {
		enc.Byte(0x00)
		return
	}
	enc.Byte(0x01)
	c.wrap.Encode(enc, v)
}

type arrayCoder struct {
	field coders.Coder[any]
}

// Decode implements coders.Coder.
func (c *arrayCoder) Decode(dec *coders.Decoder) any {
	n := dec.Varint()
	arr := make([]any, 0, n)
	for range n {
		arr = append(arr, c.field.Decode(dec))
	}
	return arr
}

// Encode implements coders.Coder.
func (c *arrayCoder) Encode(enc *coders.Encoder, val any) {
	arr := val.([]any)
	enc.Varint(uint64(len(arr)))
	for _, v := range arr {
		c.field.Encode(enc, v)
	}
}

type mapCoder struct {
	key, value coders.Coder[any]
}

func (c *mapCoder) Decode(dec *coders.Decoder) any {
	n := dec.Varint()
	m := make(map[any]any, n)
	for range n {
		k := c.key.Decode(dec)
		v := c.value.Decode(dec)
		m[k] = v
	}
	return m
}

func (c *mapCoder) Encode(enc *coders.Encoder, val any) {
	m := val.(map[any]any)
	enc.Varint(uint64(len(m)))
	for k, v := range m {
		c.key.Encode(enc, k)
		c.value.Encode(enc, v)
	}
}

// rowCoder is a `coders.Coder[any]` producing *Record wrapped in an interface.
//
// Row layout: varint field count, the null bit field as length prefixed
// bytes with trailing zero bytes elided, then each field in schema order.
// Null fields of nullable type are skipped entirely; the bit field says so.
type rowCoder struct {
	schema   *Schema
	fields   []coders.Coder[any]
	nullable []bool
}

var _ coders.Coder[any] = (*rowCoder)(nil)

// Decode implements coders.Coder.
func (c *rowCoder) Decode(dec *coders.Decoder) any {
	nf := dec.Varint()
	if nf != uint64(len(c.fields)) {
		dec.Fail("row of schema %q: encoded %d fields, schema declares %d", c.schema.Name, nf, len(c.fields))
	}
	nulls := dec.Bytes()

	row := New(c.schema)
	row.nulls = nulls
	for i, fc := range c.fields {
		if c.nullable[i] && isNull(nulls, i) {
			row.fields[i] = nil
			continue
		}
		row.fields[i] = fc.Decode(dec)
	}
	return row
}

// Encode implements coders.Coder.
func (c *rowCoder) Encode(enc *coders.Encoder, v any) {
	encodeRowWith(enc, c, v.(*Record))
}

func encodeRowWith(enc *coders.Encoder, c *rowCoder, row *Record) {
	enc.Varint(uint64(len(row.fields)))
	enc.Bytes(trimZeroBytes(row.nulls))

	for i, fc := range c.fields {
		if c.nullable[i] && isNull(row.nulls, i) {
			continue
		}
		fc.Encode(enc, row.fields[i])
	}
}

// encodeRowBody writes a record's field payload, building the coder tree
// from the record's own schema. Used for the self describing encoding.
func encodeRowBody(enc *coders.Encoder, r *Record) {
	buildRowCoder(r.schema).Encode(enc, r)
}

// decodeRowBody reads a record's field payload for the given schema.
func decodeRowBody(dec *coders.Decoder, schema *Schema) *Record {
	return buildRowCoder(schema).Decode(dec).(*Record)
}

func trimZeroBytes(b []byte) []byte {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return b[:n]
}
