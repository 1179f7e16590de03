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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"lostluck.dev/flume-go/coders"
)

var (
	strField       = Atom(String)
	nillableString = Nullable(Atom(String))

	suite = []struct {
		name   string
		schema *Schema
		data   []byte
	}{
		{
			name:   "empty",
			schema: &Schema{},
			data:   []byte{0, 0},
		}, {
			name: "oneString",
			schema: &Schema{
				Fields: []Field{
					{Name: "first", Type: strField},
				},
			},
			data: []byte{1, 0, 1, 'a'},
		}, {
			name: "oneNillableString_nil",
			schema: &Schema{
				Fields: []Field{
					{Name: "first", Type: nillableString},
				},
			},
			data: []byte{1, 1, 1},
		}, {
			name: "oneNillableString_val",
			schema: &Schema{
				Fields: []Field{
					{Name: "first", Type: nillableString},
				},
			},
			data: []byte{1, 0, 2, 'a', 'b'},
		}, {
			name: "variousNillableStrings",
			schema: &Schema{
				Fields: []Field{
					{Name: "first", Type: nillableString},
					{Name: "second", Type: nillableString},
					{Name: "third", Type: nillableString},
				},
			},
			data: []byte{3, 1, 2, 2, 'a', 'b', 4, 'f', 'l', 'u', 'm'},
		}, {
			name: "various",
			schema: &Schema{
				Fields: []Field{
					{Name: "boolean", Type: Atom(Bool)},
					{Name: "byte", Type: Atom(Byte)},
					{Name: "bytes", Type: Atom(Bytes)},
					{Name: "double", Type: Atom(Double)},
					{Name: "float", Type: Atom(Float)},
					{Name: "short", Type: Atom(Int16)},
					{Name: "int", Type: Atom(Int32)},
					{Name: "long", Type: Atom(Int64)},
					{Name: "string", Type: Atom(String)},
				},
			},
			data: []byte{9, // 9 fields
				0,           // no nulls
				1,           // true bool
				2,           // single byte
				2, '2', '2', // []byte
				0x3f, 0xf0, 0, 0, 0, 0, 0, 0, // double 1.0
				0x3f, 0xc0, 0, 0, // float 1.5
				0x12, 0x34, // int16
				0x12, 0x34, 0x56, 0x78, // int32
				0, 0, 0, 0, 0, 0, 0, 1, // int64
				4, 'f', 'l', 'u', 'm', // string
			},
		}, {
			name: "listsAndMaps",
			schema: &Schema{
				Fields: []Field{
					{Name: "words", Type: ListOf(Atom(String))},
					{Name: "maybe", Type: ListOf(Nullable(Atom(Int64)))},
				},
			},
			data: []byte{2,
				0,                     // no nulls
				2, 1, 'a', 1, 'b', // two strings
				2, 0, 1, 0, 0, 0, 0, 0, 0, 0, 7, // nil then 7
			},
		},
	}
)

func TestRowCoder(t *testing.T) {
	for _, test := range suite {
		t.Run(test.name, func(t *testing.T) {
			c := ToCoder(test.schema)

			r := coders.Decode(c, test.data)
			if got, want := coders.Encode(c, r), test.data; !cmp.Equal(got, want) {
				t.Errorf("round trip decode-encode not equal: want %v, got %v", want, got)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	test := suite[4]
	c := ToCoder(test.schema)

	t.Run("nilFields", func(t *testing.T) {
		row := coders.Decode(c, test.data)

		row.Set("first", nil)
		row.Set("second", nil)
		row.Set("third", nil)

		want := []byte{3, 1, 7}
		if got := coders.Encode(c, row); !cmp.Equal(got, want) {
			t.Errorf("encoding not equal: want %v, got %v", want, got)
		}
	})
	t.Run("setFields", func(t *testing.T) {
		row := coders.Decode(c, test.data)

		row.Set("first", "do")
		row.Set("second", "ray")
		row.Set("third", "mi")

		want := []byte{3, 1, 0, 2, 'd', 'o', 3, 'r', 'a', 'y', 2, 'm', 'i'}
		if got := coders.Encode(c, row); !cmp.Equal(got, want) {
			t.Errorf("encoding not equal: want %v, got %v", want, got)
		}
	})
	t.Run("mixedFields", func(t *testing.T) {
		row := coders.Decode(c, test.data)

		row.Set("first", nil)
		row.Set("second", "ray")
		row.Set("third", nil)

		want := []byte{3, 1, 5, 3, 'r', 'a', 'y'}
		if got := coders.Encode(c, row); !cmp.Equal(got, want) {
			t.Errorf("encoding not equal: want %v, got %v", want, got)
		}
	})
	t.Run("getFields", func(t *testing.T) {
		row := coders.Decode(c, test.data)

		if got, want := row.Get("first"), "ab"; got != want {
			t.Errorf("unexpected first field value: want %v, got %v", want, got)
		}
		if got, want := row.Get("second"), (any)(nil); got != want {
			t.Errorf("unexpected second field value: want %v, got %v", want, got)
		}
		if got, want := row.Get("third"), "flum"; got != want {
			t.Errorf("unexpected third field value: want %v, got %v", want, got)
		}
	})
	t.Run("unknownField", func(t *testing.T) {
		row := New(test.schema)
		defer func() {
			if recover() == nil {
				t.Errorf("Set of unknown field did not panic")
			}
		}()
		row.Set("nope", 1)
	})
}

func TestRecord_fieldCountMismatch(t *testing.T) {
	c := ToCoder(suite[1].schema)

	// Two encoded fields against a one field schema.
	_, err := coders.TryDecode(c, []byte{2, 0, 1, 'a', 1, 'b'})
	var decErr *coders.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("want *coders.DecodeError, got %v", err)
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	for _, test := range suite {
		t.Run(test.name, func(t *testing.T) {
			enc := coders.NewEncoder()
			EncodeSchema(enc, test.schema)
			got := DecodeSchema(coders.NewDecoder(enc.Data()))
			if d := cmp.Diff(test.schema, got); d != "" {
				t.Errorf("schema round trip diff (-want, +got):\n%v", d)
			}
		})
	}
}

func BenchmarkRoundtrip(b *testing.B) {
	for _, test := range suite {
		b.Run(test.name, func(b *testing.B) {
			c := ToCoder(test.schema)
			b.ReportAllocs()
			b.ResetTimer()
			for range b.N {
				r := coders.Decode(c, test.data)
				if got, want := coders.Encode(c, r), test.data; !cmp.Equal(got, want) {
					b.Errorf("round trip decode-encode not equal: want %v, got %v", want, got)
				}
			}
		})
	}
}
