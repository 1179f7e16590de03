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
	"reflect"
	"time"
)

// Kind is the serialization category of a value, as decided by [Classify].
// Every value maps to exactly one Kind; [KindOpaque] is the universal
// fallback, so classification is total and never fails.
type Kind int

const (
	// KindOpaque values fall back to generic deep serialization with no
	// category specific treatment: pointers, interfaces, and anything
	// else not matched below.
	KindOpaque Kind = iota
	// KindPrimitive covers numeric, bool, text and byte sequence values.
	KindPrimitive
	// KindOrdered covers homogeneous slice and array containers.
	KindOrdered
	// KindKeyed covers map containers.
	KindKeyed
	// KindTuple covers the fixed arity heterogeneous [Tuple2], [Tuple3]
	// and [Tuple4] types.
	KindTuple
	// KindProduct covers named struct types with a static field list.
	KindProduct
	// KindGenericRecord covers dynamically schematized records whose
	// schema travels with the payload.
	KindGenericRecord
	// KindSpecificRecord covers dynamically schematized records whose
	// schema is recoverable from a registered identity.
	KindSpecificRecord
	// KindPair covers designated key/value wrappers, where key and value
	// may independently be of any other Kind.
	KindPair
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindOrdered:
		return "OrderedCollection"
	case KindKeyed:
		return "KeyedCollection"
	case KindTuple:
		return "Tuple"
	case KindProduct:
		return "Product"
	case KindGenericRecord:
		return "GenericRecord"
	case KindSpecificRecord:
		return "SpecificRecord"
	case KindPair:
		return "Pair"
	default:
		return "Opaque"
	}
}

// GenericRecord is a dynamically schematized record that writes its own
// schema ahead of its field values, so no ambient context is needed to
// decode it. Implemented by records.Record.
type GenericRecord interface {
	EncodeRecord(enc *Encoder)
}

// SpecificRecord is a dynamically schematized record whose field layout is
// recoverable from its identity alone. Encoding writes only the identity
// and the schema ordered field values; the decode side environment must
// be able to resolve the identity, via a [RecordResolver].
type SpecificRecord interface {
	// RecordIdentity returns the stable, resolvable name of this record type.
	RecordIdentity() string
	// EncodeRecordFields writes the field values in schema order.
	EncodeRecordFields(enc *Encoder)
}

// Pair is a designated key/value wrapper, distinct from a two slot tuple
// in that key and value are independently reclassified. Implemented by
// flume.KV.
type Pair interface {
	PairKey() any
	PairValue() any
}

// RecordResolver supplies the decode side behavior for dynamically
// schematized records. It is passed explicitly to [NewAnyCoder] rather
// than consulted through any global registry, so decoding is a pure
// function of its inputs.
type RecordResolver interface {
	// DecodeGenericRecord reads an inline schema and its field values.
	DecodeGenericRecord(dec *Decoder) (any, error)
	// DecodeSpecificRecord resolves identity to a schema and decodes the
	// field values. An unknown identity yields a *SchemaResolutionError.
	DecodeSpecificRecord(identity string, dec *Decoder) (any, error)
}

// tupler is implemented by the TupleN types.
type tupler interface {
	tupleArity() int
	tupleSlots() []any
}

var (
	genericRecordRT  = reflect.TypeOf((*GenericRecord)(nil)).Elem()
	specificRecordRT = reflect.TypeOf((*SpecificRecord)(nil)).Elem()
	pairRT           = reflect.TypeOf((*Pair)(nil)).Elem()
	tuplerRT         = reflect.TypeOf((*tupler)(nil)).Elem()
	timeRT           = reflect.TypeOf(time.Time{})
)

// Classify returns the serialization category for v.
//
// Categories are checked in a fixed, non overlapping priority order:
// specific record, generic record, pair, tuple, product, keyed and
// ordered collections, primitives, and finally the opaque fallback.
// The order matters: a dynamic record is structurally also a struct, and
// must not be misfiled as a Product.
func Classify(v any) Kind {
	if v == nil {
		return KindOpaque
	}
	return ClassifyType(reflect.TypeOf(v))
}

// ClassifyType is Classify on a type descriptor instead of a value.
func ClassifyType(rt reflect.Type) Kind {
	switch {
	case rt.Implements(specificRecordRT):
		return KindSpecificRecord
	case rt.Implements(genericRecordRT):
		return KindGenericRecord
	case rt.Implements(pairRT):
		return KindPair
	case rt.Implements(tuplerRT):
		return KindTuple
	}
	switch rt.Kind() {
	case reflect.Struct:
		if rt == timeRT {
			return KindPrimitive
		}
		return KindProduct
	case reflect.Map:
		return KindKeyed
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return KindPrimitive // []byte
		}
		return KindOrdered
	case reflect.Array:
		return KindOrdered
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return KindPrimitive
	default:
		return KindOpaque
	}
}
