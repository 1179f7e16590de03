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

package coders

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-json-experiment/json"
)

// Category discriminator tags. Every polymorphic encoding starts with one.
// The decode side rejects unknown tags rather than guessing.
const (
	tagInvalid byte = iota
	tagNil
	tagBool
	tagInt
	tagInt8
	tagInt16
	tagInt32
	tagInt64
	tagUint
	tagUint8
	tagUint16
	tagUint32
	tagUint64
	tagFloat32
	tagFloat64
	tagComplex64
	tagComplex128
	tagString
	tagBytes
	tagTime
	tagList
	tagMap
	tagTuple
	tagProduct
	tagPair
	tagGenericRecord
	tagSpecificRecord
	tagOpaque
)

// AnyCoder encodes values of arbitrary, possibly unknown shape.
//
// Encoding classifies the value (see [Classify]), writes the category's
// discriminator tag, and recurses into the category payload, so nested
// composites of mixed categories compose for free. Encoding is self
// contained: nothing is deposited in a registry that the decode side
// would need, and a freshly constructed AnyCoder decodes any AnyCoder
// output, given the same resolver configuration for dynamic records.
//
// An AnyCoder holds no mutable state and is safe for concurrent use.
type AnyCoder struct {
	resolver RecordResolver
}

var _ Coder[any] = (*AnyCoder)(nil)

// NewAnyCoder returns a polymorphic coder without dynamic record support
// on the decode side. Generic and specific records still encode; decoding
// them requires a resolver, see [NewResolvingCoder].
func NewAnyCoder() *AnyCoder {
	return &AnyCoder{}
}

// NewResolvingCoder returns a polymorphic coder that decodes dynamically
// schematized records through the given resolver.
func NewResolvingCoder(r RecordResolver) *AnyCoder {
	return &AnyCoder{resolver: r}
}

// Encode implements Coder[any]. It never fails for a value that
// classifies, which is every value.
func (c *AnyCoder) Encode(enc *Encoder, v any) {
	c.encodeAny(enc, v)
}

// Decode implements Coder[any], decoding without a type hint. Composite
// values come back in their generic shapes ([]any, map[any]any,
// [DecodedPair]); products and tuples need a hint, see [DecodeAny].
func (c *AnyCoder) Decode(dec *Decoder) any {
	return c.decodeAny(dec, nil)
}

// DecodeAs decodes with an expected type hint, letting collections,
// products and tuples reconstruct their concrete Go types. Aborts with
// the package's decode panic on malformed input; use [DecodeAny] for the
// error returning flavor.
func (c *AnyCoder) DecodeAs(dec *Decoder, hint reflect.Type) any {
	return c.decodeAny(dec, hint)
}

// DecodeAny decodes a polymorphic encoding, converting decode aborts into
// a *DecodeError or *SchemaResolutionError.
func DecodeAny(c *AnyCoder, data []byte, hint reflect.Type) (out any, err error) {
	defer recoverDecode(&err)
	dec := NewDecoder(data)
	v := c.decodeAny(dec, hint)
	if hint == nil {
		return v, nil
	}
	return conform(v, hint, dec).Interface(), nil
}

// DecodedPair is the hint free decoded form of a [Pair] value.
type DecodedPair struct {
	Key, Value any
}

func (p DecodedPair) PairKey() any   { return p.Key }
func (p DecodedPair) PairValue() any { return p.Value }

func (c *AnyCoder) encodeAny(enc *Encoder, v any) {
	switch Classify(v) {
	case KindSpecificRecord:
		sr := v.(SpecificRecord)
		enc.Byte(tagSpecificRecord)
		enc.StringUtf8(sr.RecordIdentity())
		sr.EncodeRecordFields(enc)
	case KindGenericRecord:
		enc.Byte(tagGenericRecord)
		v.(GenericRecord).EncodeRecord(enc)
	case KindPair:
		p := v.(Pair)
		enc.Byte(tagPair)
		c.encodeAny(enc, p.PairKey())
		c.encodeAny(enc, p.PairValue())
	case KindTuple:
		t := v.(tupler)
		enc.Byte(tagTuple)
		enc.Varint(uint64(t.tupleArity()))
		for _, slot := range t.tupleSlots() {
			c.encodeAny(enc, slot)
		}
	case KindProduct:
		c.encodeProduct(enc, reflect.ValueOf(v))
	case KindKeyed:
		rv := reflect.ValueOf(v)
		enc.Byte(tagMap)
		enc.Varint(uint64(rv.Len()))
		iter := rv.MapRange()
		for iter.Next() {
			c.encodeAny(enc, iter.Key().Interface())
			c.encodeAny(enc, iter.Value().Interface())
		}
	case KindOrdered:
		rv := reflect.ValueOf(v)
		enc.Byte(tagList)
		enc.Varint(uint64(rv.Len()))
		for i := range rv.Len() {
			c.encodeAny(enc, rv.Index(i).Interface())
		}
	case KindPrimitive:
		c.encodePrimitive(enc, v)
	default: // KindOpaque
		if v == nil {
			enc.Byte(tagNil)
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			// Encoding of a classified value doesn't fail; an
			// unserializable opaque value is a programming error.
			panic(fmt.Sprintf("coders: opaque value %T not serializable: %v", v, err))
		}
		enc.Byte(tagOpaque)
		enc.Bytes(data)
	}
}

func (c *AnyCoder) encodeProduct(enc *Encoder, rv reflect.Value) {
	rt := rv.Type()
	var fields []int
	for i := range rt.NumField() {
		if rt.Field(i).IsExported() {
			fields = append(fields, i)
		}
	}
	enc.Byte(tagProduct)
	enc.Varint(uint64(len(fields)))
	for _, i := range fields {
		c.encodeAny(enc, rv.Field(i).Interface())
	}
}

func (c *AnyCoder) encodePrimitive(enc *Encoder, v any) {
	switch v := v.(type) {
	case bool:
		enc.Byte(tagBool)
		enc.Bool(v)
	case int:
		enc.Byte(tagInt)
		enc.Int64(int64(v))
	case int8:
		enc.Byte(tagInt8)
		enc.Byte(byte(v))
	case int16:
		enc.Byte(tagInt16)
		enc.Int16(v)
	case int32:
		enc.Byte(tagInt32)
		enc.Int32(v)
	case int64:
		enc.Byte(tagInt64)
		enc.Int64(v)
	case uint:
		enc.Byte(tagUint)
		enc.Uint64(uint64(v))
	case uint8:
		enc.Byte(tagUint8)
		enc.Byte(v)
	case uint16:
		enc.Byte(tagUint16)
		enc.Uint16(v)
	case uint32:
		enc.Byte(tagUint32)
		enc.Uint32(v)
	case uint64:
		enc.Byte(tagUint64)
		enc.Uint64(v)
	case float32:
		enc.Byte(tagFloat32)
		enc.Float(v)
	case float64:
		enc.Byte(tagFloat64)
		enc.Double(v)
	case complex64:
		enc.Byte(tagComplex64)
		enc.Float(real(v))
		enc.Float(imag(v))
	case complex128:
		enc.Byte(tagComplex128)
		enc.Double(real(v))
		enc.Double(imag(v))
	case string:
		enc.Byte(tagString)
		enc.StringUtf8(v)
	case []byte:
		enc.Byte(tagBytes)
		enc.Bytes(v)
	case time.Time:
		enc.Byte(tagTime)
		enc.Int64(v.UnixNano())
	default:
		// Named primitive types (type MyInt int, etc).
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Bool:
			enc.Byte(tagBool)
			enc.Bool(rv.Bool())
		case reflect.String:
			enc.Byte(tagString)
			enc.StringUtf8(rv.String())
		case reflect.Int, reflect.Int64:
			enc.Byte(tagInt64)
			enc.Int64(rv.Int())
		case reflect.Int8:
			enc.Byte(tagInt8)
			enc.Byte(byte(rv.Int()))
		case reflect.Int16:
			enc.Byte(tagInt16)
			enc.Int16(int16(rv.Int()))
		case reflect.Int32:
			enc.Byte(tagInt32)
			enc.Int32(int32(rv.Int()))
		case reflect.Uint, reflect.Uint64:
			enc.Byte(tagUint64)
			enc.Uint64(rv.Uint())
		case reflect.Uint8:
			enc.Byte(tagUint8)
			enc.Byte(byte(rv.Uint()))
		case reflect.Uint16:
			enc.Byte(tagUint16)
			enc.Uint16(uint16(rv.Uint()))
		case reflect.Uint32:
			enc.Byte(tagUint32)
			enc.Uint32(uint32(rv.Uint()))
		case reflect.Float32:
			enc.Byte(tagFloat32)
			enc.Float(float32(rv.Float()))
		case reflect.Float64:
			enc.Byte(tagFloat64)
			enc.Double(rv.Float())
		case reflect.Slice: // named []byte
			enc.Byte(tagBytes)
			enc.Bytes(rv.Bytes())
		default:
			panic(fmt.Sprintf("coders: unhandled primitive %T", v))
		}
	}
}

func (c *AnyCoder) decodeAny(dec *Decoder, hint reflect.Type) any {
	tag := dec.Byte()
	switch tag {
	case tagNil:
		return nil
	case tagBool:
		return dec.Bool()
	case tagInt:
		return int(dec.Int64())
	case tagInt8:
		return int8(dec.Byte())
	case tagInt16:
		return dec.Int16()
	case tagInt32:
		return dec.Int32()
	case tagInt64:
		return dec.Int64()
	case tagUint:
		return uint(dec.Uint64())
	case tagUint8:
		return dec.Byte()
	case tagUint16:
		return dec.Uint16()
	case tagUint32:
		return dec.Uint32()
	case tagUint64:
		return dec.Uint64()
	case tagFloat32:
		return dec.Float()
	case tagFloat64:
		return dec.Double()
	case tagComplex64:
		re := dec.Float()
		im := dec.Float()
		return complex(re, im)
	case tagComplex128:
		re := dec.Double()
		im := dec.Double()
		return complex(re, im)
	case tagString:
		return dec.StringUtf8()
	case tagBytes:
		return dec.Bytes()
	case tagTime:
		return time.Unix(0, dec.Int64())
	case tagList:
		return c.decodeList(dec, hint)
	case tagMap:
		return c.decodeMap(dec, hint)
	case tagTuple:
		return c.decodeTuple(dec, hint)
	case tagProduct:
		return c.decodeProduct(dec, hint)
	case tagPair:
		return c.decodePair(dec, hint)
	case tagGenericRecord:
		if c.resolver == nil {
			dec.Fail("generic record encountered without a record resolver")
		}
		v, err := c.resolver.DecodeGenericRecord(dec)
		if err != nil {
			panic(coderError{err})
		}
		return v
	case tagSpecificRecord:
		identity := dec.StringUtf8()
		if c.resolver == nil {
			panic(coderError{&SchemaResolutionError{Identity: identity}})
		}
		v, err := c.resolver.DecodeSpecificRecord(identity, dec)
		if err != nil {
			panic(coderError{err})
		}
		return v
	case tagOpaque:
		return c.decodeOpaque(dec, hint)
	default:
		dec.Fail("unrecognized discriminator tag %#x", tag)
		return nil
	}
}

func (c *AnyCoder) decodeList(dec *Decoder, hint reflect.Type) any {
	n := int(dec.Varint())
	if hint != nil && hint.Kind() == reflect.Slice {
		out := reflect.MakeSlice(hint, 0, n)
		et := hint.Elem()
		for range n {
			out = reflect.Append(out, conform(c.decodeAny(dec, et), et, dec))
		}
		return out.Interface()
	}
	out := make([]any, 0, n)
	for range n {
		out = append(out, c.decodeAny(dec, nil))
	}
	return out
}

func (c *AnyCoder) decodeMap(dec *Decoder, hint reflect.Type) any {
	n := int(dec.Varint())
	if hint != nil && hint.Kind() == reflect.Map {
		out := reflect.MakeMapWithSize(hint, n)
		kt, vt := hint.Key(), hint.Elem()
		for range n {
			k := conform(c.decodeAny(dec, kt), kt, dec)
			v := conform(c.decodeAny(dec, vt), vt, dec)
			out.SetMapIndex(k, v)
		}
		return out.Interface()
	}
	out := make(map[any]any, n)
	for range n {
		k := c.decodeAny(dec, nil)
		v := c.decodeAny(dec, nil)
		out[k] = v
	}
	return out
}

func (c *AnyCoder) decodeTuple(dec *Decoder, hint reflect.Type) any {
	arity := int(dec.Varint())
	if hint == nil || !hint.Implements(tuplerRT) {
		dec.Fail("tuple decoding requires a tuple type hint, got %v", hint)
	}
	if hint.NumField() != arity {
		dec.Fail("tuple arity mismatch: encoded %d slots, %v expects %d", arity, hint, hint.NumField())
	}
	out := reflect.New(hint).Elem()
	for i := range arity {
		ft := hint.Field(i).Type
		out.Field(i).Set(conform(c.decodeAny(dec, ft), ft, dec))
	}
	return out.Interface()
}

func (c *AnyCoder) decodeProduct(dec *Decoder, hint reflect.Type) any {
	nf := int(dec.Varint())
	if hint == nil || hint.Kind() != reflect.Struct {
		dec.Fail("product decoding requires a struct type hint, got %v", hint)
	}
	var fields []int
	for i := range hint.NumField() {
		if hint.Field(i).IsExported() {
			fields = append(fields, i)
		}
	}
	// Declared shape drift between the encode and decode environments is
	// a hard error, not a best effort field match.
	if len(fields) != nf {
		dec.Fail("product field count mismatch: encoded %d fields, %v declares %d", nf, hint, len(fields))
	}
	out := reflect.New(hint).Elem()
	for _, i := range fields {
		ft := hint.Field(i).Type
		out.Field(i).Set(conform(c.decodeAny(dec, ft), ft, dec))
	}
	return out.Interface()
}

func (c *AnyCoder) decodePair(dec *Decoder, hint reflect.Type) any {
	if hint != nil && hint.Implements(pairRT) && hint.Kind() == reflect.Struct && hint.NumField() == 2 {
		out := reflect.New(hint).Elem()
		kt := hint.Field(0).Type
		vt := hint.Field(1).Type
		out.Field(0).Set(conform(c.decodeAny(dec, kt), kt, dec))
		out.Field(1).Set(conform(c.decodeAny(dec, vt), vt, dec))
		return out.Interface()
	}
	k := c.decodeAny(dec, nil)
	v := c.decodeAny(dec, nil)
	return DecodedPair{Key: k, Value: v}
}

func (c *AnyCoder) decodeOpaque(dec *Decoder, hint reflect.Type) any {
	data := dec.Bytes()
	if hint == nil {
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			dec.Fail("opaque payload: %v", err)
		}
		return out
	}
	out := reflect.New(hint)
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		dec.Fail("opaque payload as %v: %v", hint, err)
	}
	return out.Elem().Interface()
}

// conform adjusts a decoded value to the hinted static type, covering
// primitives that decoded to a compatible but distinct concrete type,
// such as an int64 destined for a named integer field.
func conform(v any, want reflect.Type, dec *Decoder) reflect.Value {
	if v == nil {
		return reflect.Zero(want)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == want {
		return rv
	}
	if want.Kind() == reflect.Interface && rv.Type().Implements(want) {
		return rv
	}
	if rv.Type().ConvertibleTo(want) && kindsConvert(rv.Kind(), want.Kind()) {
		return rv.Convert(want)
	}
	dec.Fail("decoded %T where %v was expected", v, want)
	return reflect.Value{}
}

// kindsConvert guards conversions to kinds of the same family, so named
// integer types accept the wire's int64 but a string never becomes one.
func kindsConvert(from, to reflect.Kind) bool {
	if from == to {
		return true
	}
	family := func(k reflect.Kind) int {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return 1
		case reflect.Float32, reflect.Float64:
			return 2
		case reflect.Complex64, reflect.Complex128:
			return 3
		}
		return 0
	}
	f := family(from)
	return f != 0 && f == family(to)
}
