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
	"reflect"

	"lostluck.dev/flume-go/coders"
)

// Specific is a record type that can be resolved from its identity alone.
// Implementations are ordinary structs with value receiver methods; the
// wire form carries only the identity and the schema ordered field values.
//
// [EncodeFields] and [SchemaOf] do the reflective heavy lifting, so a
// minimal implementation is three one-line methods.
type Specific interface {
	coders.SpecificRecord
	// RecordSchema returns the schema that orders the encoded fields.
	RecordSchema() *Schema
}

// Registry maps record identities to their schemas and Go types, and
// implements [coders.RecordResolver] for decode side use. Registries are
// plain values passed where needed; there is no process global registry.
//
// A zero Registry resolves generic records only.
type Registry struct {
	types map[string]specificEntry
}

type specificEntry struct {
	schema *Schema
	rtype  reflect.Type
}

var _ coders.RecordResolver = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]specificEntry{}}
}

// Register adds the record type T to the registry under its own identity.
// T must be a struct type with value receiver methods so its zero value
// can report identity and schema. Re-registering an identity with a
// different type panics.
func Register[T Specific](reg *Registry) {
	var zero T
	id := zero.RecordIdentity()
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("records: Register[%v]: specific record types must be structs", rt))
	}
	if reg.types == nil {
		reg.types = map[string]specificEntry{}
	}
	if prev, ok := reg.types[id]; ok && prev.rtype != rt {
		panic(fmt.Sprintf("records: identity %q already registered to %v, not %v", id, prev.rtype, rt))
	}
	reg.types[id] = specificEntry{schema: zero.RecordSchema(), rtype: rt}
}

// DecodeGenericRecord implements coders.RecordResolver. The schema rides
// inline ahead of the field values, so no lookup is involved.
func (reg *Registry) DecodeGenericRecord(dec *coders.Decoder) (any, error) {
	schema := DecodeSchema(dec)
	return decodeRowBody(dec, schema), nil
}

// DecodeSpecificRecord implements coders.RecordResolver, returning a fresh
// value of the registered type for the identity.
func (reg *Registry) DecodeSpecificRecord(identity string, dec *coders.Decoder) (any, error) {
	entry, ok := reg.types[identity]
	if !ok {
		return nil, &coders.SchemaResolutionError{Identity: identity}
	}
	rv := reflect.New(entry.rtype).Elem()
	decodeStructFields(dec, entry.schema, rv)
	return rv.Interface(), nil
}

// EncodeFields writes v's fields in schema order, matching schema field
// names to exported struct field names. It is the usual body of a
// [Specific] type's EncodeRecordFields method.
func EncodeFields(enc *coders.Encoder, v Specific) {
	encodeStructFields(enc, v.RecordSchema(), reflect.ValueOf(v))
}

// DecodeFields reads fields in schema order into the struct that v points
// to. The inverse of [EncodeFields], for decoding outside a [Registry].
func DecodeFields(dec *coders.Decoder, schema *Schema, v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("records: DecodeFields requires a pointer to struct, got %T", v))
	}
	decodeStructFields(dec, schema, rv.Elem())
}

// SchemaOf derives a schema from a struct type: exported fields in
// declaration order, pointer fields nullable, slices as lists, maps as
// key values, and nested structs as rows. The schema name is the bare
// type name.
func SchemaOf(v any) *Schema {
	rt := reflect.TypeOf(v)
	if rt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("records: SchemaOf requires a struct, got %T", v))
	}
	return schemaOfType(rt)
}

func schemaOfType(rt reflect.Type) *Schema {
	s := &Schema{Name: rt.Name()}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		s.Fields = append(s.Fields, Field{Name: sf.Name, Type: fieldTypeOf(sf.Type)})
	}
	return s
}

func fieldTypeOf(rt reflect.Type) FieldType {
	if rt.Kind() == reflect.Pointer {
		ft := fieldTypeOf(rt.Elem())
		ft.Nullable = true
		return ft
	}
	switch rt.Kind() {
	case reflect.Bool:
		return Atom(Bool)
	case reflect.Uint8:
		return Atom(Byte)
	case reflect.Int16:
		return Atom(Int16)
	case reflect.Int32:
		return Atom(Int32)
	case reflect.Int, reflect.Int64:
		return Atom(Int64)
	case reflect.Float32:
		return Atom(Float)
	case reflect.Float64:
		return Atom(Double)
	case reflect.String:
		return Atom(String)
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return Atom(Bytes)
		}
		return ListOf(fieldTypeOf(rt.Elem()))
	case reflect.Map:
		return MapOf(fieldTypeOf(rt.Key()), fieldTypeOf(rt.Elem()))
	case reflect.Struct:
		return RowOf(schemaOfType(rt))
	default:
		panic(fmt.Sprintf("records: no field type for Go type %v", rt))
	}
}

func encodeStructFields(enc *coders.Encoder, schema *Schema, rv reflect.Value) {
	for _, f := range schema.Fields {
		fv := rv.FieldByName(f.Name)
		if !fv.IsValid() {
			panic(fmt.Sprintf("records: type %v has no field %q from schema %q", rv.Type(), f.Name, schema.Name))
		}
		encodeFieldValue(enc, f.Type, fv)
	}
}

func encodeFieldValue(enc *coders.Encoder, ft FieldType, fv reflect.Value) {
	if ft.Nullable {
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				enc.Byte(0x00)
				return
			}
			fv = fv.Elem()
		}
		enc.Byte(0x01)
	}
	switch {
	case ft.List != nil:
		enc.Varint(uint64(fv.Len()))
		for i := 0; i < fv.Len(); i++ {
			encodeFieldValue(enc, *ft.List, fv.Index(i))
		}
	case ft.KeyValue != nil:
		enc.Varint(uint64(fv.Len()))
		iter := fv.MapRange()
		for iter.Next() {
			encodeFieldValue(enc, ft.KeyValue.Key, iter.Key())
			encodeFieldValue(enc, ft.KeyValue.Value, iter.Value())
		}
	case ft.Row != nil:
		encodeStructFields(enc, ft.Row, fv)
	default:
		encodeAtomValue(enc, ft.Atomic, fv)
	}
}

func encodeAtomValue(enc *coders.Encoder, atype Atomic, fv reflect.Value) {
	switch atype {
	case Bool:
		enc.Bool(fv.Bool())
	case Byte:
		enc.Byte(byte(fv.Uint()))
	case Bytes:
		enc.Bytes(fv.Bytes())
	case Int16:
		enc.Int16(int16(fv.Int()))
	case Int32:
		enc.Int32(int32(fv.Int()))
	case Int64:
		enc.Int64(fv.Int())
	case Float:
		enc.Float(float32(fv.Float()))
	case Double:
		enc.Double(fv.Float())
	case String:
		enc.StringUtf8(fv.String())
	default:
		panic(fmt.Sprintf("records: unimplemented atomic field type: %v", atype))
	}
}

func decodeStructFields(dec *coders.Decoder, schema *Schema, rv reflect.Value) {
	for _, f := range schema.Fields {
		fv := rv.FieldByName(f.Name)
		if !fv.IsValid() {
			panic(fmt.Sprintf("records: type %v has no field %q from schema %q", rv.Type(), f.Name, schema.Name))
		}
		decodeFieldValue(dec, f.Type, fv)
	}
}

func decodeFieldValue(dec *coders.Decoder, ft FieldType, fv reflect.Value) {
	if ft.Nullable {
		if dec.Byte() == 0x00 {
			fv.SetZero()
			return
		}
		if fv.Kind() == reflect.Pointer {
			fv.Set(reflect.New(fv.Type().Elem()))
			fv = fv.Elem()
		}
	}
	switch {
	case ft.List != nil:
		n := int(dec.Varint())
		out := reflect.MakeSlice(fv.Type(), n, n)
		for i := 0; i < n; i++ {
			decodeFieldValue(dec, *ft.List, out.Index(i))
		}
		fv.Set(out)
	case ft.KeyValue != nil:
		n := int(dec.Varint())
		out := reflect.MakeMapWithSize(fv.Type(), n)
		for i := 0; i < n; i++ {
			k := reflect.New(fv.Type().Key()).Elem()
			v := reflect.New(fv.Type().Elem()).Elem()
			decodeFieldValue(dec, ft.KeyValue.Key, k)
			decodeFieldValue(dec, ft.KeyValue.Value, v)
			out.SetMapIndex(k, v)
		}
		fv.Set(out)
	case ft.Row != nil:
		decodeStructFields(dec, ft.Row, fv)
	default:
		decodeAtomValue(dec, ft.Atomic, fv)
	}
}

func decodeAtomValue(dec *coders.Decoder, atype Atomic, fv reflect.Value) {
	switch atype {
	case Bool:
		fv.SetBool(dec.Bool())
	case Byte:
		fv.SetUint(uint64(dec.Byte()))
	case Bytes:
		fv.SetBytes(dec.Bytes())
	case Int16:
		fv.SetInt(int64(dec.Int16()))
	case Int32:
		fv.SetInt(int64(dec.Int32()))
	case Int64:
		fv.SetInt(dec.Int64())
	case Float:
		fv.SetFloat(float64(dec.Float()))
	case Double:
		fv.SetFloat(dec.Double())
	case String:
		fv.SetString(dec.StringUtf8())
	default:
		panic(fmt.Sprintf("records: unimplemented atomic field type: %v", atype))
	}
}
