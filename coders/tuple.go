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

// Fixed arity heterogeneous tuples. Unlike an ordinary struct, a tuple
// encodes with its arity rather than a field list, and the decode side
// verifies that arity against the expected type. Slots hold any
// classifiable value, including nested tuples.

// Tuple2 is a two slot tuple.
type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

// T2 returns a Tuple2 of the given values.
func T2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{V1: a, V2: b}
}

func (t Tuple2[A, B]) tupleArity() int    { return 2 }
func (t Tuple2[A, B]) tupleSlots() []any  { return []any{t.V1, t.V2} }

// Tuple3 is a three slot tuple.
type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

// T3 returns a Tuple3 of the given values.
func T3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{V1: a, V2: b, V3: c}
}

func (t Tuple3[A, B, C]) tupleArity() int   { return 3 }
func (t Tuple3[A, B, C]) tupleSlots() []any { return []any{t.V1, t.V2, t.V3} }

// Tuple4 is a four slot tuple.
type Tuple4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

// T4 returns a Tuple4 of the given values.
func T4[A, B, C, D any](a A, b B, c C, d D) Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{V1: a, V2: b, V3: c, V4: d}
}

func (t Tuple4[A, B, C, D]) tupleArity() int   { return 4 }
func (t Tuple4[A, B, C, D]) tupleSlots() []any { return []any{t.V1, t.V2, t.V3, t.V4} }
