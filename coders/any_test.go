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
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// wireUser is a dynamically schematized record resolvable by identity.
type wireUser struct {
	ID   int64
	Name string
}

func (wireUser) RecordIdentity() string { return "coders.test.wireUser" }
func (u wireUser) EncodeRecordFields(enc *Encoder) {
	enc.Int64(u.ID)
	enc.StringUtf8(u.Name)
}

// wireNote carries its schema inline; here the "schema" is just a marker
// byte ahead of the payload.
type wireNote struct {
	Text string
}

func (n wireNote) EncodeRecord(enc *Encoder) {
	enc.Byte(0x01)
	enc.StringUtf8(n.Text)
}

// dualRecord implements both record shapes; identity resolution wins.
type dualRecord struct{}

func (dualRecord) RecordIdentity() string          { return "coders.test.dual" }
func (dualRecord) EncodeRecordFields(enc *Encoder) {}
func (dualRecord) EncodeRecord(enc *Encoder)       {}

// keyedPair is a struct that exposes pair access; pair beats product.
type keyedPair struct {
	K string
	V int64
}

func (p keyedPair) PairKey() any   { return p.K }
func (p keyedPair) PairValue() any { return p.V }

// recordPair is a pair whose value slot is itself a dynamic record.
type recordPair struct {
	K string
	V wireUser
}

func (p recordPair) PairKey() any   { return p.K }
func (p recordPair) PairValue() any { return p.V }

type testResolver struct{}

func (testResolver) DecodeGenericRecord(dec *Decoder) (any, error) {
	if marker := dec.Byte(); marker != 0x01 {
		return nil, errors.New("unexpected schema marker")
	}
	return wireNote{Text: dec.StringUtf8()}, nil
}

func (testResolver) DecodeSpecificRecord(identity string, dec *Decoder) (any, error) {
	if identity != "coders.test.wireUser" {
		return nil, &SchemaResolutionError{Identity: identity}
	}
	return wireUser{ID: dec.Int64(), Name: dec.StringUtf8()}, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		val  any
		want Kind
	}{
		{val: nil, want: KindOpaque},
		{val: true, want: KindPrimitive},
		{val: int32(3), want: KindPrimitive},
		{val: uint(9), want: KindPrimitive},
		{val: 2.5, want: KindPrimitive},
		{val: "text", want: KindPrimitive},
		{val: []byte{1, 2}, want: KindPrimitive},
		{val: time.Now(), want: KindPrimitive},
		{val: []int{1}, want: KindOrdered},
		{val: [2]string{}, want: KindOrdered},
		{val: map[string]int{}, want: KindKeyed},
		{val: T2("a", int64(1)), want: KindTuple},
		{val: T3(1, 2, 3), want: KindTuple},
		{val: struct{ A int }{}, want: KindProduct},
		{val: wireNote{}, want: KindGenericRecord},
		{val: wireUser{}, want: KindSpecificRecord},
		{val: dualRecord{}, want: KindSpecificRecord},
		{val: DecodedPair{}, want: KindPair},
		{val: keyedPair{}, want: KindPair},
		{val: &struct{ A int }{}, want: KindOpaque},
		{val: func() {}, want: KindOpaque},
	}
	for _, test := range tests {
		if got := Classify(test.val); got != test.want {
			t.Errorf("Classify(%T) = %v, want %v", test.val, got, test.want)
		}
	}
}

func TestAnyCoder_roundTrips(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want any // if different from val; untyped decode widens shapes
		hint reflect.Type
	}{
		{name: "nil", val: nil},
		{name: "bool", val: true},
		{name: "int", val: int(-7)},
		{name: "int64", val: int64(1 << 40)},
		{name: "uint16", val: uint16(65535)},
		{name: "float64", val: 6.25},
		{name: "complex128", val: complex(1.5, -2.5)},
		{name: "string", val: "flume"},
		{name: "bytes", val: []byte{0, 1, 2}},
		{name: "time", val: time.Unix(1234, 5678).UTC(), want: time.Unix(1234, 5678)},
		{name: "namedInt", val: Kind(3), hint: reflect.TypeFor[Kind]()},
		{
			name: "list_untyped",
			val:  []int64{1, 2, 3},
			want: []any{int64(1), int64(2), int64(3)},
		},
		{
			name: "list_hinted",
			val:  []string{"a", "b"},
			hint: reflect.TypeFor[[]string](),
		},
		{
			name: "map_untyped",
			val:  map[string]int64{"a": 1},
			want: map[any]any{"a": int64(1)},
		},
		{
			name: "map_hinted",
			val:  map[string][]int64{"a": {1, 2}},
			hint: reflect.TypeFor[map[string][]int64](),
		},
		{
			name: "tuple",
			val:  T2("pos", int64(42)),
			hint: reflect.TypeFor[Tuple2[string, int64]](),
		},
		{
			name: "tuple_nested",
			val:  T3(int64(1), []string{"x"}, T2(true, "y")),
			hint: reflect.TypeFor[Tuple3[int64, []string, Tuple2[bool, string]]](),
		},
		{
			name: "product",
			val:  struct{ A, B string }{A: "1", B: "2"},
			hint: reflect.TypeFor[struct{ A, B string }](),
		},
		{
			name: "pair_untyped",
			val:  keyedPair{K: "k", V: 3},
			want: DecodedPair{Key: "k", Value: int64(3)},
		},
		{
			name: "pair_hinted",
			val:  keyedPair{K: "k", V: 3},
			hint: reflect.TypeFor[keyedPair](),
		},
		{
			name: "opaque_untyped",
			val:  &struct{ X int }{X: 3},
			want: map[string]any{"X": float64(3)},
		},
		{
			name: "opaque_hinted",
			val:  &struct{ X int }{X: 3},
			hint: reflect.TypeFor[*struct{ X int }](),
		},
		{
			name: "list_of_mixed",
			val:  []any{int64(1), "two", []byte{3}},
			want: []any{int64(1), "two", []byte{3}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Encode and decode with independent instances.
			data := Encode[any](NewAnyCoder(), test.val)
			got, err := DecodeAny(NewAnyCoder(), data, test.hint)
			if err != nil {
				t.Fatalf("DecodeAny error: %v", err)
			}
			want := test.want
			if want == nil {
				want = test.val
			}
			if d := cmp.Diff(want, got); d != "" {
				t.Errorf("round trip diff (-want, +got):\n%v", d)
			}
		})
	}
}

func TestAnyCoder_records(t *testing.T) {
	c := NewResolvingCoder(testResolver{})

	t.Run("specific", func(t *testing.T) {
		in := wireUser{ID: 42, Name: "ada"}
		got, err := DecodeAny(NewResolvingCoder(testResolver{}), Encode[any](c, in), nil)
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got); d != "" {
			t.Errorf("specific record diff (-want, +got):\n%v", d)
		}
	})
	t.Run("generic", func(t *testing.T) {
		in := wireNote{Text: "inline schema"}
		got, err := DecodeAny(c, Encode[any](c, in), nil)
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got); d != "" {
			t.Errorf("generic record diff (-want, +got):\n%v", d)
		}
	})
	t.Run("unknownIdentity", func(t *testing.T) {
		data := Encode[any](c, dualRecord{})
		_, err := DecodeAny(c, data, nil)
		var resErr *SchemaResolutionError
		if !errors.As(err, &resErr) {
			t.Fatalf("want *SchemaResolutionError, got %v", err)
		}
		if got, want := resErr.Identity, "coders.test.dual"; got != want {
			t.Errorf("unexpected identity: want %q, got %q", want, got)
		}
	})
	t.Run("noResolver", func(t *testing.T) {
		data := Encode[any](c, wireUser{ID: 1})
		_, err := DecodeAny(NewAnyCoder(), data, nil)
		var resErr *SchemaResolutionError
		if !errors.As(err, &resErr) {
			t.Fatalf("want *SchemaResolutionError, got %v", err)
		}
	})
}

func TestAnyCoder_recordsNested(t *testing.T) {
	c := NewResolvingCoder(testResolver{})

	t.Run("productWithSpecific", func(t *testing.T) {
		type audit struct {
			Owner wireUser
			Label string
		}
		in := audit{Owner: wireUser{ID: 7, Name: "grace"}, Label: "login"}
		got, err := DecodeAny(NewResolvingCoder(testResolver{}), Encode[any](c, in), reflect.TypeFor[audit]())
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
	t.Run("productWithGeneric", func(t *testing.T) {
		type annotated struct {
			Note wireNote
			Seq  int64
		}
		in := annotated{Note: wireNote{Text: "inline"}, Seq: 3}
		got, err := DecodeAny(NewResolvingCoder(testResolver{}), Encode[any](c, in), reflect.TypeFor[annotated]())
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
	t.Run("pairWithRecordValue_hinted", func(t *testing.T) {
		in := recordPair{K: "owner", V: wireUser{ID: 9, Name: "ada"}}
		got, err := DecodeAny(NewResolvingCoder(testResolver{}), Encode[any](c, in), reflect.TypeFor[recordPair]())
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
	t.Run("pairWithRecordValue_untyped", func(t *testing.T) {
		in := recordPair{K: "owner", V: wireUser{ID: 9, Name: "ada"}}
		got, err := DecodeAny(NewResolvingCoder(testResolver{}), Encode[any](c, in), nil)
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		want := DecodedPair{Key: "owner", Value: wireUser{ID: 9, Name: "ada"}}
		if d := cmp.Diff(want, got); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
}

func TestAnyCoder_decodeFailures(t *testing.T) {
	c := NewAnyCoder()
	expectDecodeError := func(t *testing.T, data []byte, hint reflect.Type) {
		t.Helper()
		_, err := DecodeAny(c, data, hint)
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("want *DecodeError, got %v", err)
		}
	}

	t.Run("emptyInput", func(t *testing.T) {
		expectDecodeError(t, nil, nil)
	})
	t.Run("unknownTag", func(t *testing.T) {
		expectDecodeError(t, []byte{0xEE}, nil)
	})
	t.Run("truncated", func(t *testing.T) {
		data := Encode[any](c, []any{"abc", int64(1)})
		for n := range len(data) - 1 {
			expectDecodeError(t, data[:n+1], nil)
		}
	})
	t.Run("tupleNeedsHint", func(t *testing.T) {
		expectDecodeError(t, Encode[any](c, T2(1, 2)), nil)
	})
	t.Run("tupleArityMismatch", func(t *testing.T) {
		data := Encode[any](c, T3(1, 2, 3))
		expectDecodeError(t, data, reflect.TypeFor[Tuple2[int, int]]())
	})
	t.Run("productNeedsHint", func(t *testing.T) {
		expectDecodeError(t, Encode[any](c, struct{ A int }{}), nil)
	})
	t.Run("productFieldDrift", func(t *testing.T) {
		data := Encode[any](c, struct{ A, B int }{A: 1, B: 2})
		expectDecodeError(t, data, reflect.TypeFor[struct{ A int }]())
	})
	t.Run("conformMismatch", func(t *testing.T) {
		data := Encode[any](c, []any{"text"})
		expectDecodeError(t, data, reflect.TypeFor[[]int64]())
	})
}

func TestAnyCoder_stableClassification(t *testing.T) {
	// Equal inputs produce identical bytes across instances.
	vals := []any{
		int64(3), "abc", []int64{1, 2}, T2("k", int64(1)),
		struct{ A string }{A: "x"}, wireUser{ID: 9, Name: "n"},
	}
	for _, v := range vals {
		a := Encode[any](NewAnyCoder(), v)
		b := Encode[any](NewAnyCoder(), v)
		if d := cmp.Diff(a, b); d != "" {
			t.Errorf("Encode(%T) not deterministic, diff:\n%v", v, d)
		}
	}
}
