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

// Package records handles dynamically schematized records: values whose
// field layout is described by a runtime [Schema] rather than by Go's
// static type system.
//
// Two flavors exist. [Record] is the generic variant: its schema travels
// with every encoded payload, so no decode side context is needed.
// The specific variant is an ordinary Go struct implementing [Specific];
// only its identity goes on the wire, and the decode side recovers the
// schema through a [Registry].
package records

import (
	"fmt"

	"lostluck.dev/flume-go/coders"
)

// Atomic enumerates the atomic field types.
type Atomic int

const (
	atomicInvalid Atomic = iota
	Bool
	Byte
	Bytes
	Int16
	Int32
	Int64
	Float
	Double
	String
)

func (a Atomic) String() string {
	switch a {
	case Bool:
		return "BOOL"
	case Byte:
		return "BYTE"
	case Bytes:
		return "BYTES"
	case Int16:
		return "INT16"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case String:
		return "STRING"
	default:
		return fmt.Sprintf("Atomic(%d)", int(a))
	}
}

// FieldType describes the type of a single field. Exactly one of Atomic,
// List, KeyValue, or Row is set.
type FieldType struct {
	Nullable bool
	Atomic   Atomic
	List     *FieldType
	KeyValue *MapType
	Row      *Schema
}

// MapType is the key and value types of a map field.
type MapType struct {
	Key, Value FieldType
}

// Field is a named, typed schema entry.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered field list describing a record's layout.
// Field order is the encoding order.
type Schema struct {
	Name   string
	Fields []Field
}

// FieldIndex returns the positional index of the named field, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Atom returns a non nullable atomic field type.
func Atom(a Atomic) FieldType {
	return FieldType{Atomic: a}
}

// Nullable marks a field type nullable.
func Nullable(ft FieldType) FieldType {
	ft.Nullable = true
	return ft
}

// ListOf returns a list field type with the given element type.
func ListOf(elem FieldType) FieldType {
	return FieldType{List: &elem}
}

// MapOf returns a map field type with the given key and value types.
func MapOf(key, value FieldType) FieldType {
	return FieldType{KeyValue: &MapType{Key: key, Value: value}}
}

// RowOf returns a nested row field type.
func RowOf(s *Schema) FieldType {
	return FieldType{Row: s}
}

// Schema serialization. A generic record payload leads with this so the
// schema need not be known ambient context at decode time.

const (
	ftAtomic byte = iota + 1
	ftList
	ftMap
	ftRow
)

// EncodeSchema writes s in the binary schema layout.
func EncodeSchema(enc *coders.Encoder, s *Schema) {
	enc.StringUtf8(s.Name)
	enc.Varint(uint64(len(s.Fields)))
	for _, f := range s.Fields {
		enc.StringUtf8(f.Name)
		encodeFieldType(enc, f.Type)
	}
}

func encodeFieldType(enc *coders.Encoder, ft FieldType) {
	enc.Bool(ft.Nullable)
	switch {
	case ft.List != nil:
		enc.Byte(ftList)
		encodeFieldType(enc, *ft.List)
	case ft.KeyValue != nil:
		enc.Byte(ftMap)
		encodeFieldType(enc, ft.KeyValue.Key)
		encodeFieldType(enc, ft.KeyValue.Value)
	case ft.Row != nil:
		enc.Byte(ftRow)
		EncodeSchema(enc, ft.Row)
	default:
		enc.Byte(ftAtomic)
		enc.Varint(uint64(ft.Atomic))
	}
}

// DecodeSchema reads a schema written by EncodeSchema. Malformed input
// aborts with the coders package's decode panic.
func DecodeSchema(dec *coders.Decoder) *Schema {
	s := &Schema{Name: dec.StringUtf8()}
	n := dec.Varint()
	for range n {
		f := Field{Name: dec.StringUtf8()}
		f.Type = decodeFieldType(dec)
		s.Fields = append(s.Fields, f)
	}
	return s
}

func decodeFieldType(dec *coders.Decoder) FieldType {
	var ft FieldType
	ft.Nullable = dec.Bool()
	switch kind := dec.Byte(); kind {
	case ftAtomic:
		ft.Atomic = Atomic(dec.Varint())
	case ftList:
		elem := decodeFieldType(dec)
		ft.List = &elem
	case ftMap:
		key := decodeFieldType(dec)
		value := decodeFieldType(dec)
		ft.KeyValue = &MapType{Key: key, Value: value}
	case ftRow:
		ft.Row = DecodeSchema(dec)
	default:
		dec.Fail("unknown field type kind %#x", kind)
	}
	return ft
}
