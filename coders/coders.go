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

// Package coders serializes element values to and from bytes.
//
// Two surfaces are provided. [MakeCoder] builds a statically typed
// [Coder] for a concrete element type, used wherever both sides of the
// encoding agree on the type, such as collection elements flowing through
// a pipeline. [AnyCoder] is the polymorphic flavor: it classifies a value
// of unknown shape (see [Classify]), prefixes a category discriminator
// tag, and recurses, so heterogeneous and dynamically schematized values
// round trip through a single entry point.
//
// Coders hold no mutable state; independent instances produce identical
// bytes, and a value encoded by one instance decodes with a freshly
// constructed one.
package coders

import (
	"fmt"
	"reflect"
	"time"
)

// Coder encodes and decodes values of a single element type.
type Coder[E any] interface {
	Encode(enc *Encoder, v E)
	Decode(dec *Decoder) E
}

// Encode encodes v with c into a fresh buffer.
func Encode[E any](c Coder[E], v E) []byte {
	enc := NewEncoder()
	c.Encode(enc, v)
	return enc.Data()
}

// Decode decodes data with c.
//
// Malformed input aborts with the package's internal decode panic.
// Use [TryDecode] to receive it as a *DecodeError instead.
func Decode[E any](c Coder[E], data []byte) E {
	return c.Decode(NewDecoder(data))
}

// TryDecode decodes data with c, converting a decode abort into an error.
func TryDecode[E any](c Coder[E], data []byte) (out E, err error) {
	defer recoverDecode(&err)
	return c.Decode(NewDecoder(data)), nil
}

// MakeCoder produces a stateless coder for E.
//
// Primitive types get direct implementations. Slices, arrays, maps and
// structs are handled recursively over their element or exported field
// types, in declaration order. Interface element types fall back to the
// polymorphic [AnyCoder]. Unsupported shapes (channels, funcs, pointers)
// panic at construction time, which is a programming error rather than a
// data error.
func MakeCoder[E any]() Coder[E] {
	rt := reflect.TypeFor[E]()
	switch any(*new(E)).(type) {
	case bool:
		return any(boolCoder{}).(Coder[E])
	case int:
		return any(intCoder{}).(Coder[E])
	case int8:
		return any(int8Coder{}).(Coder[E])
	case int16:
		return any(int16Coder{}).(Coder[E])
	case int32:
		return any(int32Coder{}).(Coder[E])
	case int64:
		return any(int64Coder{}).(Coder[E])
	case uint:
		return any(uintCoder{}).(Coder[E])
	case uint8:
		return any(uint8Coder{}).(Coder[E])
	case uint16:
		return any(uint16Coder{}).(Coder[E])
	case uint32:
		return any(uint32Coder{}).(Coder[E])
	case uint64:
		return any(uint64Coder{}).(Coder[E])
	case float32:
		return any(float32Coder{}).(Coder[E])
	case float64:
		return any(float64Coder{}).(Coder[E])
	case complex64:
		return any(complex64Coder{}).(Coder[E])
	case complex128:
		return any(complex128Coder{}).(Coder[E])
	case string:
		return any(stringCoder{}).(Coder[E])
	case []byte:
		return any(bytesCoder{}).(Coder[E])
	case time.Time:
		return any(timeCoder{}).(Coder[E])
	}
	if rt.Kind() == reflect.Interface {
		return any(NewAnyCoder()).(Coder[E])
	}
	return typedCoder[E]{vc: makeValueCoder(rt)}
}

type (
	boolCoder       struct{}
	intCoder        struct{}
	int8Coder       struct{}
	int16Coder      struct{}
	int32Coder      struct{}
	int64Coder      struct{}
	uintCoder       struct{}
	uint8Coder      struct{}
	uint16Coder     struct{}
	uint32Coder     struct{}
	uint64Coder     struct{}
	float32Coder    struct{}
	float64Coder    struct{}
	complex64Coder  struct{}
	complex128Coder struct{}
	stringCoder     struct{}
	bytesCoder      struct{}
	timeCoder       struct{}
)

func (boolCoder) Encode(e *Encoder, v bool)   { e.Bool(v) }
func (boolCoder) Decode(d *Decoder) bool      { return d.Bool() }
func (intCoder) Encode(e *Encoder, v int)     { e.Int64(int64(v)) }
func (intCoder) Decode(d *Decoder) int        { return int(d.Int64()) }
func (int8Coder) Encode(e *Encoder, v int8)   { e.Byte(byte(v)) }
func (int8Coder) Decode(d *Decoder) int8      { return int8(d.Byte()) }
func (int16Coder) Encode(e *Encoder, v int16) { e.Int16(v) }
func (int16Coder) Decode(d *Decoder) int16    { return d.Int16() }
func (int32Coder) Encode(e *Encoder, v int32) { e.Int32(v) }
func (int32Coder) Decode(d *Decoder) int32    { return d.Int32() }
func (int64Coder) Encode(e *Encoder, v int64) { e.Int64(v) }
func (int64Coder) Decode(d *Decoder) int64    { return d.Int64() }

func (uintCoder) Encode(e *Encoder, v uint)     { e.Uint64(uint64(v)) }
func (uintCoder) Decode(d *Decoder) uint        { return uint(d.Uint64()) }
func (uint8Coder) Encode(e *Encoder, v uint8)   { e.Byte(v) }
func (uint8Coder) Decode(d *Decoder) uint8      { return d.Byte() }
func (uint16Coder) Encode(e *Encoder, v uint16) { e.Uint16(v) }
func (uint16Coder) Decode(d *Decoder) uint16    { return d.Uint16() }
func (uint32Coder) Encode(e *Encoder, v uint32) { e.Uint32(v) }
func (uint32Coder) Decode(d *Decoder) uint32    { return d.Uint32() }
func (uint64Coder) Encode(e *Encoder, v uint64) { e.Uint64(v) }
func (uint64Coder) Decode(d *Decoder) uint64    { return d.Uint64() }

func (float32Coder) Encode(e *Encoder, v float32) { e.Float(v) }
func (float32Coder) Decode(d *Decoder) float32    { return d.Float() }
func (float64Coder) Encode(e *Encoder, v float64) { e.Double(v) }
func (float64Coder) Decode(d *Decoder) float64    { return d.Double() }

func (complex64Coder) Encode(e *Encoder, v complex64) {
	e.Float(real(v))
	e.Float(imag(v))
}
func (complex64Coder) Decode(d *Decoder) complex64 {
	re := d.Float()
	im := d.Float()
	return complex(re, im)
}
func (complex128Coder) Encode(e *Encoder, v complex128) {
	e.Double(real(v))
	e.Double(imag(v))
}
func (complex128Coder) Decode(d *Decoder) complex128 {
	re := d.Double()
	im := d.Double()
	return complex(re, im)
}

func (stringCoder) Encode(e *Encoder, v string) { e.StringUtf8(v) }
func (stringCoder) Decode(d *Decoder) string    { return d.StringUtf8() }
func (bytesCoder) Encode(e *Encoder, v []byte)  { e.Bytes(v) }
func (bytesCoder) Decode(d *Decoder) []byte     { return d.Bytes() }

// timeCoder encodes the instant as nanoseconds since the Unix epoch.
// The monotonic reading and the location are not preserved; decoded
// times compare equal to the original under time.Time.Equal.
func (timeCoder) Encode(e *Encoder, v time.Time) { e.Int64(v.UnixNano()) }
func (timeCoder) Decode(d *Decoder) time.Time    { return time.Unix(0, d.Int64()) }

// typedCoder adapts a reflective valueCoder to the typed Coder surface.
type typedCoder[E any] struct {
	vc valueCoder
}

func (c typedCoder[E]) Encode(enc *Encoder, v E) {
	c.vc.encodeValue(enc, reflect.ValueOf(&v).Elem())
}

func (c typedCoder[E]) Decode(dec *Decoder) E {
	return c.vc.decodeValue(dec).Interface().(E)
}

// valueCoder is the reflective backbone shared by the composite coders.
type valueCoder interface {
	encodeValue(enc *Encoder, rv reflect.Value)
	decodeValue(dec *Decoder) reflect.Value
}

func makeValueCoder(rt reflect.Type) valueCoder {
	switch rt.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return primValueCoder{rt: rt}
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return byteSliceValueCoder{rt: rt}
		}
		return sliceValueCoder{rt: rt, elem: makeValueCoder(rt.Elem())}
	case reflect.Array:
		return arrayValueCoder{rt: rt, elem: makeValueCoder(rt.Elem())}
	case reflect.Map:
		return mapValueCoder{rt: rt, key: makeValueCoder(rt.Key()), val: makeValueCoder(rt.Elem())}
	case reflect.Struct:
		if rt == timeRT {
			return timeValueCoder{}
		}
		return makeStructValueCoder(rt)
	case reflect.Interface:
		return anyValueCoder{rt: rt, c: NewAnyCoder()}
	default:
		panic(fmt.Sprintf("coders: no coder for type %v of kind %v", rt, rt.Kind()))
	}
}

// primValueCoder covers the fixed set of primitive kinds over reflect.
type primValueCoder struct {
	rt reflect.Type
}

func (c primValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Bool:
		enc.Bool(rv.Bool())
	case reflect.Int, reflect.Int64:
		enc.Int64(rv.Int())
	case reflect.Int8:
		enc.Byte(byte(rv.Int()))
	case reflect.Int16:
		enc.Int16(int16(rv.Int()))
	case reflect.Int32:
		enc.Int32(int32(rv.Int()))
	case reflect.Uint, reflect.Uint64:
		enc.Uint64(rv.Uint())
	case reflect.Uint8:
		enc.Byte(byte(rv.Uint()))
	case reflect.Uint16:
		enc.Uint16(uint16(rv.Uint()))
	case reflect.Uint32:
		enc.Uint32(uint32(rv.Uint()))
	case reflect.Float32:
		enc.Float(float32(rv.Float()))
	case reflect.Float64:
		enc.Double(rv.Float())
	case reflect.Complex64:
		v := rv.Complex()
		enc.Float(float32(real(v)))
		enc.Float(float32(imag(v)))
	case reflect.Complex128:
		v := rv.Complex()
		enc.Double(real(v))
		enc.Double(imag(v))
	case reflect.String:
		enc.StringUtf8(rv.String())
	}
}

func (c primValueCoder) decodeValue(dec *Decoder) reflect.Value {
	rv := reflect.New(c.rt).Elem()
	switch c.rt.Kind() {
	case reflect.Bool:
		rv.SetBool(dec.Bool())
	case reflect.Int, reflect.Int64:
		rv.SetInt(dec.Int64())
	case reflect.Int8:
		rv.SetInt(int64(int8(dec.Byte())))
	case reflect.Int16:
		rv.SetInt(int64(dec.Int16()))
	case reflect.Int32:
		rv.SetInt(int64(dec.Int32()))
	case reflect.Uint, reflect.Uint64:
		rv.SetUint(dec.Uint64())
	case reflect.Uint8:
		rv.SetUint(uint64(dec.Byte()))
	case reflect.Uint16:
		rv.SetUint(uint64(dec.Uint16()))
	case reflect.Uint32:
		rv.SetUint(uint64(dec.Uint32()))
	case reflect.Float32:
		rv.SetFloat(float64(dec.Float()))
	case reflect.Float64:
		rv.SetFloat(dec.Double())
	case reflect.Complex64:
		re := dec.Float()
		im := dec.Float()
		rv.SetComplex(complex(float64(re), float64(im)))
	case reflect.Complex128:
		re := dec.Double()
		im := dec.Double()
		rv.SetComplex(complex(re, im))
	case reflect.String:
		rv.SetString(dec.StringUtf8())
	}
	return rv
}

type byteSliceValueCoder struct {
	rt reflect.Type
}

func (c byteSliceValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	enc.Bytes(rv.Bytes())
}

func (c byteSliceValueCoder) decodeValue(dec *Decoder) reflect.Value {
	return reflect.ValueOf(dec.Bytes()).Convert(c.rt)
}

type timeValueCoder struct{}

func (timeValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	enc.Int64(rv.Interface().(time.Time).UnixNano())
}

func (timeValueCoder) decodeValue(dec *Decoder) reflect.Value {
	return reflect.ValueOf(time.Unix(0, dec.Int64()))
}

type sliceValueCoder struct {
	rt   reflect.Type
	elem valueCoder
}

func (c sliceValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	enc.Varint(uint64(rv.Len()))
	for i := range rv.Len() {
		c.elem.encodeValue(enc, rv.Index(i))
	}
}

func (c sliceValueCoder) decodeValue(dec *Decoder) reflect.Value {
	n := int(dec.Varint())
	out := reflect.MakeSlice(c.rt, 0, n)
	for range n {
		out = reflect.Append(out, c.elem.decodeValue(dec))
	}
	return out
}

type arrayValueCoder struct {
	rt   reflect.Type
	elem valueCoder
}

func (c arrayValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	for i := range rv.Len() {
		c.elem.encodeValue(enc, rv.Index(i))
	}
}

func (c arrayValueCoder) decodeValue(dec *Decoder) reflect.Value {
	out := reflect.New(c.rt).Elem()
	for i := range c.rt.Len() {
		out.Index(i).Set(c.elem.decodeValue(dec))
	}
	return out
}

type mapValueCoder struct {
	rt       reflect.Type
	key, val valueCoder
}

func (c mapValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	enc.Varint(uint64(rv.Len()))
	iter := rv.MapRange()
	for iter.Next() {
		c.key.encodeValue(enc, iter.Key())
		c.val.encodeValue(enc, iter.Value())
	}
}

func (c mapValueCoder) decodeValue(dec *Decoder) reflect.Value {
	n := int(dec.Varint())
	out := reflect.MakeMapWithSize(c.rt, n)
	for range n {
		k := c.key.decodeValue(dec)
		v := c.val.decodeValue(dec)
		out.SetMapIndex(k, v)
	}
	return out
}

// structValueCoder encodes the exported fields in declaration order.
// Unexported fields are skipped and decode to their zero value.
type structValueCoder struct {
	rt     reflect.Type
	fields []structField
}

type structField struct {
	index int
	vc    valueCoder
}

func makeStructValueCoder(rt reflect.Type) structValueCoder {
	c := structValueCoder{rt: rt}
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		c.fields = append(c.fields, structField{index: i, vc: makeValueCoder(sf.Type)})
	}
	return c
}

func (c structValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	for _, f := range c.fields {
		f.vc.encodeValue(enc, rv.Field(f.index))
	}
}

func (c structValueCoder) decodeValue(dec *Decoder) reflect.Value {
	out := reflect.New(c.rt).Elem()
	for _, f := range c.fields {
		out.Field(f.index).Set(f.vc.decodeValue(dec))
	}
	return out
}

// anyValueCoder routes interface typed fields through the polymorphic coder.
type anyValueCoder struct {
	rt reflect.Type
	c  *AnyCoder
}

func (c anyValueCoder) encodeValue(enc *Encoder, rv reflect.Value) {
	c.c.encodeAny(enc, rv.Interface())
}

func (c anyValueCoder) decodeValue(dec *Decoder) reflect.Value {
	v := c.c.decodeAny(dec, nil)
	if v == nil {
		return reflect.Zero(c.rt)
	}
	return reflect.ValueOf(v)
}
