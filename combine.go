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

import (
	"time"

	"golang.org/x/exp/constraints"
)

// SimpleMerger is the smallest combiner shape: an associative and
// commutative merge where input, accumulator, and output share a type.
type SimpleMerger[A Element] interface {
	MergeAccumulators(a, b A) A
}

// FullCombiner is the general combiner shape, converting inputs into an
// accumulator type, and accumulators into an output type.
type FullCombiner[I, A, O Element] interface {
	AddInput(a A, i I) A
	MergeAccumulators(a, b A) A
	ExtractOutput(a A) O
}

// Combiner adapts user combine logic for [CombinePerKey]. Construct one
// with [SimpleMerge] or [FullCombine].
type Combiner[I, A, O Element] struct {
	lift    func(i I) A
	add     func(a A, i I) A
	extract func(a A) O
}

// SimpleMerge adapts a merge-only combiner.
func SimpleMerge[A Element](m SimpleMerger[A]) Combiner[A, A, A] {
	return Combiner[A, A, A]{
		lift:    func(i A) A { return i },
		add:     m.MergeAccumulators,
		extract: func(a A) A { return a },
	}
}

// FullCombine adapts a combiner with distinct input, accumulator, and
// output types.
func FullCombine[I, A, O Element](c FullCombiner[I, A, O]) Combiner[I, A, O] {
	return Combiner[I, A, O]{
		lift: func(i I) A {
			var a A
			return c.AddInput(a, i)
		},
		add:     c.AddInput,
		extract: c.ExtractOutput,
	}
}

// Sum combines numeric values by addition.
func Sum[N constraints.Integer | constraints.Float]() Combiner[N, N, N] {
	return Combiner[N, N, N]{
		lift:    func(i N) N { return i },
		add:     func(a, i N) N { return a + i },
		extract: func(a N) N { return a },
	}
}

// Min combines values by retaining the smallest.
func Min[N constraints.Ordered]() Combiner[N, N, N] {
	return Combiner[N, N, N]{
		lift: func(i N) N { return i },
		add: func(a, i N) N {
			if i < a {
				return i
			}
			return a
		},
		extract: func(a N) N { return a },
	}
}

// Max combines values by retaining the largest.
func Max[N constraints.Ordered]() Combiner[N, N, N] {
	return Combiner[N, N, N]{
		lift: func(i N) N { return i },
		add: func(a, i N) N {
			if i > a {
				return i
			}
			return a
		},
		extract: func(a N) N { return a },
	}
}

// CombinePerKey combines all values with matching keys, producing one
// output KV per distinct input key.
//
// Accumulation happens eagerly as elements arrive, so only one
// accumulator per key is retained, rather than all values as [GBK]
// requires.
func CombinePerKey[K Keys, I, A, O Element](s *Scope, input PCol[KV[K, I]], comb Combiner[I, A, O], opts ...Options) PCol[KV[K, O]] {
	fn := ParDo(s, input, &combinePerKeyFn[K, I, A, O]{comb: comb}, opts...)
	return fn.Output
}

type combinePerKeyFn[K Keys, I, A, O Element] struct {
	OnBundleFinish
	Output PCol[KV[K, O]]

	comb Combiner[I, A, O]

	accums map[K]A
	order  []K
}

func (fn *combinePerKeyFn[K, I, A, O]) ProcessBundle(dfc *DFC[KV[K, I]]) error {
	fn.accums = map[K]A{}
	fn.OnBundleFinish.Do(dfc, func() error {
		ec := dfc.ToElmC(time.Now())
		for _, k := range fn.order {
			fn.Output.Emit(ec, KV[K, O]{Key: k, Value: fn.comb.extract(fn.accums[k])})
		}
		return nil
	})
	return dfc.Process(func(ec ElmC, kv KV[K, I]) error {
		a, ok := fn.accums[kv.Key]
		if !ok {
			fn.order = append(fn.order, kv.Key)
			a = fn.comb.lift(kv.Value)
		} else {
			a = fn.comb.add(a, kv.Value)
		}
		fn.accums[kv.Key] = a
		return nil
	})
}
