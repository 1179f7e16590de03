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
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"lostluck.dev/flume-go/coders"
)

type testEvent struct {
	Name  string
	Count int64
	Tags  []string
	Note  *string
}

var testEventSchema = SchemaOf(testEvent{})

func (testEvent) RecordIdentity() string { return "flume.test.Event" }
func (testEvent) RecordSchema() *Schema  { return testEventSchema }
func (e testEvent) EncodeRecordFields(enc *coders.Encoder) {
	EncodeFields(enc, e)
}

func TestRegistry_specificRoundTrip(t *testing.T) {
	reg := NewRegistry()
	Register[testEvent](reg)
	c := coders.NewResolvingCoder(reg)

	note := "checked"
	tests := []testEvent{
		{Name: "a", Count: 3, Tags: []string{"x", "y"}, Note: &note},
		{Name: "b"},
	}
	for _, in := range tests {
		data := coders.Encode[any](c, in)
		got, err := coders.DecodeAny(c, data, nil)
		if err != nil {
			t.Fatalf("DecodeAny(%v) error: %v", in, err)
		}
		if d := cmp.Diff(in, got, cmpopts.EquateEmpty()); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	}
}

func TestRegistry_unknownIdentity(t *testing.T) {
	reg := NewRegistry()
	Register[testEvent](reg)
	data := coders.Encode[any](coders.NewResolvingCoder(reg), testEvent{Name: "a"})

	_, err := coders.DecodeAny(coders.NewResolvingCoder(NewRegistry()), data, nil)
	var resErr *coders.SchemaResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("want *coders.SchemaResolutionError, got %v", err)
	}
	if got, want := resErr.Identity, "flume.test.Event"; got != want {
		t.Errorf("unexpected identity: want %q, got %q", want, got)
	}
}

func TestRegistry_genericRecord(t *testing.T) {
	schema := &Schema{
		Name: "Reading",
		Fields: []Field{
			{Name: "station", Type: Atom(String)},
			{Name: "celsius", Type: Nullable(Atom(Double))},
		},
	}
	in := New(schema)
	in.Set("station", "KPDX")
	in.Set("celsius", 17.5)

	c := coders.NewResolvingCoder(NewRegistry())
	data := coders.Encode[any](c, in)
	got, err := coders.DecodeAny(c, data, nil)
	if err != nil {
		t.Fatalf("DecodeAny error: %v", err)
	}
	rec, ok := got.(*Record)
	if !ok {
		t.Fatalf("want *Record, got %T", got)
	}
	if !in.Equal(rec) {
		t.Errorf("round trip records not equal: want %v, got %v", in, rec)
	}
	if d := cmp.Diff(schema, rec.Schema()); d != "" {
		t.Errorf("schema diff (-want, +got):\n%v", d)
	}
}

// taggedEvent pairs a routing key with a specific record value.
type taggedEvent struct {
	K string
	V testEvent
}

func (p taggedEvent) PairKey() any   { return p.K }
func (p taggedEvent) PairValue() any { return p.V }

func TestRegistry_recordsInsideComposites(t *testing.T) {
	reg := NewRegistry()
	Register[testEvent](reg)
	c := coders.NewResolvingCoder(reg)

	t.Run("productWithSpecific", func(t *testing.T) {
		type auditRow struct {
			Actor string
			Event testEvent
		}
		in := auditRow{Actor: "ops", Event: testEvent{Name: "deploy", Count: 2, Tags: []string{"prod"}}}
		data := coders.Encode[any](c, in)
		got, err := coders.DecodeAny(coders.NewResolvingCoder(reg), data, reflect.TypeFor[auditRow]())
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got, cmpopts.EquateEmpty()); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
	t.Run("productWithGeneric", func(t *testing.T) {
		schema := &Schema{
			Name: "Meta",
			Fields: []Field{
				{Name: "source", Type: Atom(String)},
			},
		}
		rec := New(schema)
		rec.Set("source", "ingest")

		type wrapped struct {
			ID  int64
			Rec *Record
		}
		in := wrapped{ID: 5, Rec: rec}
		data := coders.Encode[any](c, in)
		got, err := coders.DecodeAny(coders.NewResolvingCoder(reg), data, reflect.TypeFor[wrapped]())
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
	t.Run("pairWithSpecificValue", func(t *testing.T) {
		in := taggedEvent{K: "deploys", V: testEvent{Name: "deploy", Count: 4}}
		data := coders.Encode[any](c, in)
		got, err := coders.DecodeAny(coders.NewResolvingCoder(reg), data, reflect.TypeFor[taggedEvent]())
		if err != nil {
			t.Fatalf("DecodeAny error: %v", err)
		}
		if d := cmp.Diff(in, got, cmpopts.EquateEmpty()); d != "" {
			t.Errorf("round trip diff (-want, +got):\n%v", d)
		}
	})
}

func TestSchemaOf(t *testing.T) {
	want := &Schema{
		Name: "testEvent",
		Fields: []Field{
			{Name: "Name", Type: Atom(String)},
			{Name: "Count", Type: Atom(Int64)},
			{Name: "Tags", Type: ListOf(Atom(String))},
			{Name: "Note", Type: Nullable(Atom(String))},
		},
	}
	if d := cmp.Diff(want, SchemaOf(testEvent{})); d != "" {
		t.Errorf("SchemaOf diff (-want, +got):\n%v", d)
	}
}

func TestRegister_conflict(t *testing.T) {
	reg := NewRegistry()
	Register[testEvent](reg)
	Register[testEvent](reg) // same type is fine

	defer func() {
		if recover() == nil {
			t.Errorf("conflicting registration did not panic")
		}
	}()
	Register[collidingEvent](reg)
}

type collidingEvent struct{ Name string }

var collidingSchema = SchemaOf(collidingEvent{})

func (collidingEvent) RecordIdentity() string { return "flume.test.Event" }
func (collidingEvent) RecordSchema() *Schema  { return collidingSchema }
func (e collidingEvent) EncodeRecordFields(enc *coders.Encoder) {
	EncodeFields(enc, e)
}
