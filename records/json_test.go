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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordMarshalJSON(t *testing.T) {
	schema := &Schema{
		Name: "person",
		Fields: []Field{
			{Name: "name", Type: Atom(String)},
			{Name: "age", Type: Atom(Int64)},
			{Name: "nickname", Type: Nullable(Atom(String))},
			{Name: "scores", Type: ListOf(Atom(Double))},
			{Name: "tags", Type: MapOf(Atom(String), Atom(Int32))},
		},
	}
	r := New(schema)
	r.Set("name", "ada")
	r.Set("age", int64(36))
	r.Set("scores", []any{float64(1.5), float64(2)})
	r.Set("tags", map[any]any{"b": int32(2), "a": int32(1)})

	got, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	want := `{"name":"ada","age":36,"nickname":null,"scores":[1.5,2],"tags":{"a":1,"b":2}}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}

	back := New(schema)
	if err := back.UnmarshalJSON(got); err != nil {
		t.Fatalf("UnmarshalJSON(%s) error: %v", got, err)
	}
	if d := cmp.Diff(r, back); d != "" {
		t.Errorf("round trip diff (-want, +got):\n%v", d)
	}
}

func TestRecordMarshalJSON_nested(t *testing.T) {
	inner := &Schema{
		Name: "point",
		Fields: []Field{
			{Name: "x", Type: Atom(Double)},
			{Name: "y", Type: Atom(Double)},
		},
	}
	schema := &Schema{
		Name: "shape",
		Fields: []Field{
			{Name: "label", Type: Atom(String)},
			{Name: "origin", Type: RowOf(inner)},
		},
	}
	p := New(inner)
	p.Set("x", float64(3))
	p.Set("y", float64(4))
	r := New(schema)
	r.Set("label", "corner")
	r.Set("origin", p)

	got, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	want := `{"label":"corner","origin":{"x":3,"y":4}}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}

	back := New(schema)
	if err := back.UnmarshalJSON(got); err != nil {
		t.Fatalf("UnmarshalJSON(%s) error: %v", got, err)
	}
	if d := cmp.Diff(r, back); d != "" {
		t.Errorf("round trip diff (-want, +got):\n%v", d)
	}
}

func TestRecordUnmarshalJSON_errors(t *testing.T) {
	schema := &Schema{
		Name: "strict",
		Fields: []Field{
			{Name: "count", Type: Atom(Int64)},
		},
	}

	r := New(schema)
	if err := r.UnmarshalJSON([]byte(`{"bogus":1}`)); err == nil {
		t.Error("UnmarshalJSON with unknown field: expected error, got nil")
	} else if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("UnmarshalJSON unknown field error doesn't name the field: %v", err)
	}

	r = New(schema)
	if err := r.UnmarshalJSON([]byte(`{"count":null}`)); err == nil {
		t.Error("UnmarshalJSON null into non nullable field: expected error, got nil")
	}

	var bare Record
	if err := bare.UnmarshalJSON([]byte(`{}`)); err == nil {
		t.Error("UnmarshalJSON into schemaless record: expected error, got nil")
	}
}
