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

// workerfns.go is where execution side transforms and common utility DoFns live.
// Note that they are largely implemented in the same manner as user DoFns.

// multiplex and discard transforms have no explicit edge, and are implicitly added to
// the execution graph when a PCollection is consumed by more than one transform, and zero
// transforms respectively.

// multiplex is a Transform inserted when a PCollection is used as an input into
// multiple downstream Transforms. The same element is emitted to each
// consuming emitter in order.
type multiplex[E Element] struct {
	Outs []PCol[E]
}

func (fn *multiplex[E]) ProcessBundle(dfc *DFC[E]) error {
	return dfc.Process(func(ec ElmC, elm E) error {
		for _, out := range fn.Outs {
			out.Emit(ec, elm)
		}
		return nil
	})
}

// discard is a Transform inserted when a PCollection is unused by a downstream Transform.
// It performs a no-op. This allows execution graphs to avoid branches and checks whether
// a consumer is valid on each element.
type discard[E Element] struct{}

func (fn *discard[E]) ProcessBundle(dfc *DFC[E]) error {
	return dfc.Process(func(ec ElmC, elm E) error {
		return nil
	})
}

// SourceFn emits the integers from 1 through Count on its Output, and is
// a stand in source for tests and examples.
type SourceFn struct {
	Count  int
	Output PCol[int]
}

func (fn *SourceFn) ProcessBundle(dfc *DFC[[]byte]) error {
	return dfc.Process(func(ec ElmC, _ []byte) error {
		for i := 1; i <= fn.Count; i++ {
			fn.Output.Emit(ec, i)
		}
		return nil
	})
}

// DiscardFn is a user visible sink that counts what it receives and
// drops it.
type DiscardFn[E Element] struct {
	Processed CounterInt64
}

func (fn *DiscardFn[E]) ProcessBundle(dfc *DFC[E]) error {
	return dfc.Process(func(ec ElmC, _ E) error {
		fn.Processed.Inc(dfc, 1)
		return nil
	})
}
