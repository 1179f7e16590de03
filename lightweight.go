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

// lightweight.go provides closure based transforms for when a full DoFn
// struct is more ceremony than the logic deserves.

type mapper[I, O Element] struct {
	fn func(I) O

	Output PCol[O]
}

func (fn *mapper[I, O]) ProcessBundle(dfc *DFC[I]) error {
	return dfc.Process(func(ec ElmC, in I) error {
		fn.Output.Emit(ec, fn.fn(in))
		return nil
	})
}

// Map applies the lambda to every element of the input collection.
func Map[I, O Element](s *Scope, input PCol[I], lambda func(I) O, opts ...Options) PCol[O] {
	out := ParDo(s, input, &mapper[I, O]{fn: lambda}, opts...)
	return out.Output
}

type filter[E Element] struct {
	keep func(E) bool

	Output PCol[E]
}

func (fn *filter[E]) ProcessBundle(dfc *DFC[E]) error {
	return dfc.Process(func(ec ElmC, elm E) error {
		if fn.keep(elm) {
			fn.Output.Emit(ec, elm)
		}
		return nil
	})
}

// Filter retains input elements for which keep returns true.
func Filter[E Element](s *Scope, input PCol[E], keep func(E) bool, opts ...Options) PCol[E] {
	out := ParDo(s, input, &filter[E]{keep: keep}, opts...)
	return out.Output
}

// FlatMap applies the lambda to every element of the input collection,
// emitting each element of the returned slice individually.
func FlatMap[I, O Element](s *Scope, input PCol[I], lambda func(I) []O, opts ...Options) PCol[O] {
	out := ParDo(s, input, &flatMapper[I, O]{fn: lambda}, opts...)
	return out.Output
}

type flatMapper[I, O Element] struct {
	fn func(I) []O

	Output PCol[O]
}

func (fn *flatMapper[I, O]) ProcessBundle(dfc *DFC[I]) error {
	return dfc.Process(func(ec ElmC, in I) error {
		for _, out := range fn.fn(in) {
			fn.Output.Emit(ec, out)
		}
		return nil
	})
}
