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

package flume

// KV represents a Key and Value pair, and is the element type consumed
// by key aware transforms like [GBK] and [CombinePerKey].
type KV[K Keys, V Element] struct {
	Key   K
	Value V
}

// PairKey marks KV as a designated key value pair for classification,
// so keys and values are coded independently of each other.
func (kv KV[K, V]) PairKey() any { return kv.Key }

// PairValue returns the value slot for classification.
func (kv KV[K, V]) PairValue() any { return kv.Value }

// Pair is a convenience constructor when type inference needs a nudge.
func Pair[K Keys, V Element](k K, v V) KV[K, V] {
	return KV[K, V]{Key: k, Value: v}
}

// Iter is the value side of a grouped collection. Ranging over it
// replays the grouped values in arrival order.
type Iter[V Element] func(yield func(V) bool)

func sliceIter[V Element](vs []V) Iter[V] {
	return func(yield func(V) bool) {
		for _, v := range vs {
			if !yield(v) {
				return
			}
		}
	}
}
