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
	"bytes"
	"fmt"
	"sort"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// MarshalJSON renders the record as a JSON object with fields in schema
// order. Null fields render as JSON null. Bytes fields render base64,
// matching the library default. Map fields with non string keys render
// their keys as JSON text of the key value.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.schema.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name, json.DefaultOptionsV2())
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := marshalField(&buf, f.Type, r.fields[i], isNull(r.nulls, i)); err != nil {
			return nil, fmt.Errorf("records: field %q of schema %q: %w", f.Name, r.schema.Name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalField(buf *bytes.Buffer, ft FieldType, v any, null bool) error {
	if null || v == nil {
		buf.WriteString("null")
		return nil
	}
	switch {
	case ft.List != nil:
		buf.WriteByte('[')
		for i, e := range v.([]any) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalField(buf, *ft.List, e, e == nil); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case ft.KeyValue != nil:
		return marshalMapField(buf, ft, v.(map[any]any))
	case ft.Row != nil:
		b, err := v.(*Record).MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	default:
		b, err := json.Marshal(v, json.DefaultOptionsV2())
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// marshalMapField writes map entries in sorted key order so output is
// deterministic. Keys are their JSON text wrapped in quotes when the
// key type isn't already a string.
func marshalMapField(buf *bytes.Buffer, ft FieldType, m map[any]any) error {
	type entry struct {
		name string
		val  any
	}
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		name, err := mapKeyString(k)
		if err != nil {
			return err
		}
		entries = append(entries, entry{name: name, val: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.name, json.DefaultOptionsV2())
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := marshalField(buf, ft.KeyValue.Value, e.val, e.val == nil); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func mapKeyString(k any) (string, error) {
	if s, ok := k.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(k, json.DefaultOptionsV2())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalJSON populates the record from a JSON object. The record's
// schema decides each field's Go type; the object's key order doesn't
// matter. Keys absent from the schema are an error, as is null for a
// non nullable field. Fields absent from the object keep their current
// value.
func (r *Record) UnmarshalJSON(data []byte) error {
	if r.schema == nil {
		return fmt.Errorf("records: cannot unmarshal into a record with no schema; use New")
	}
	var raw map[string]jsontext.Value
	if err := json.Unmarshal(data, &raw, json.DefaultOptionsV2()); err != nil {
		return err
	}
	for name, val := range raw {
		fnum, ok := r.nameToNum[name]
		if !ok {
			return fmt.Errorf("records: no field %q in schema %q", name, r.schema.Name)
		}
		ft := r.schema.Fields[fnum].Type
		v, err := unmarshalField(ft, val)
		if err != nil {
			return fmt.Errorf("records: field %q of schema %q: %w", name, r.schema.Name, err)
		}
		if v == nil && !ft.Nullable {
			return fmt.Errorf("records: field %q of schema %q: null for non nullable field", name, r.schema.Name)
		}
		r.Set(name, v)
	}
	return nil
}

func unmarshalField(ft FieldType, val jsontext.Value) (any, error) {
	if string(val) == "null" {
		return nil, nil
	}
	switch {
	case ft.List != nil:
		var elems []jsontext.Value
		if err := json.Unmarshal(val, &elems, json.DefaultOptionsV2()); err != nil {
			return nil, err
		}
		arr := make([]any, 0, len(elems))
		for _, e := range elems {
			v, err := unmarshalField(*ft.List, e)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case ft.KeyValue != nil:
		var obj map[string]jsontext.Value
		if err := json.Unmarshal(val, &obj, json.DefaultOptionsV2()); err != nil {
			return nil, err
		}
		m := make(map[any]any, len(obj))
		for name, e := range obj {
			k, err := unmarshalMapKey(ft.KeyValue.Key, name)
			if err != nil {
				return nil, err
			}
			v, err := unmarshalField(ft.KeyValue.Value, e)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return m, nil
	case ft.Row != nil:
		row := New(ft.Row)
		if err := row.UnmarshalJSON(val); err != nil {
			return nil, err
		}
		return row, nil
	default:
		return unmarshalAtomic(ft.Atomic, val)
	}
}

func unmarshalAtomic(atype Atomic, val jsontext.Value) (any, error) {
	switch atype {
	case Bool:
		return unmarshalAs[bool](val)
	case Byte:
		return unmarshalAs[byte](val)
	case Bytes:
		return unmarshalAs[[]byte](val)
	case Int16:
		return unmarshalAs[int16](val)
	case Int32:
		return unmarshalAs[int32](val)
	case Int64:
		return unmarshalAs[int64](val)
	case Float:
		return unmarshalAs[float32](val)
	case Double:
		return unmarshalAs[float64](val)
	case String:
		return unmarshalAs[string](val)
	default:
		return nil, fmt.Errorf("unimplemented atomic field type: %v", atype)
	}
}

// unmarshalMapKey converts an object key back into the map's key type.
// Non string keys carry their JSON text in the key, so parsing the key
// text as that type recovers the value.
func unmarshalMapKey(ft FieldType, name string) (any, error) {
	if ft.Atomic == String {
		return name, nil
	}
	return unmarshalAtomic(ft.Atomic, jsontext.Value(name))
}

func unmarshalAs[E any](val jsontext.Value) (any, error) {
	var v E
	if err := json.Unmarshal(val, &v, json.DefaultOptionsV2()); err != nil {
		return nil, err
	}
	return v, nil
}
