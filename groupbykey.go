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

	"github.com/pkg/errors"
	"lostluck.dev/flume-go/internal/flumeopts"
)

// GBK produces an output PCollection of values grouped by key.
func GBK[K Keys, V Element](s *Scope, input PCol[KV[K, V]], opts ...Options) PCol[KV[K, Iter[V]]] {
	var opt flumeopts.Struct
	opt.Join(opts...)

	edgeID := s.g.curEdgeIndex()
	nodeID := s.g.curNodeIndex()
	s.g.addConsumer(input.globalIndex, edgeID)

	s.g.edges = append(s.g.edges, &edgeGBK[K, V]{index: edgeID, input: input.globalIndex, output: nodeID, opts: opt})
	s.g.nodes = append(s.g.nodes, &typedNode[KV[K, Iter[V]]]{index: nodeID, parent: edgeID, isBounded: s.g.nodes[input.globalIndex].bounded()})

	return PCol[KV[K, Iter[V]]]{globalIndex: nodeID}
}

// edgeGBK represents a Group By Key transform.
type edgeGBK[K Keys, V Element] struct {
	index edgeIndex

	input, output nodeIndex
	opts          flumeopts.Struct
}

func (e *edgeGBK[K, V]) edgeID() edgeIndex {
	return e.index
}

// inputs for GBKs are one.
func (e *edgeGBK[K, V]) inputs() map[string]nodeIndex {
	return map[string]nodeIndex{"i0": e.input}
}

// outputs for GBKs are one.
func (e *edgeGBK[K, V]) outputs() map[string]nodeIndex {
	return map[string]nodeIndex{"o0": e.output}
}

func (e *edgeGBK[K, V]) prepare(p *plan) error {
	out := p.outputProc(e.output)
	fn := &groupFn[K, V]{}
	fn.Output = PCol[KV[K, Iter[V]]]{valid: true, localDownstreamIndex: 0, globalIndex: e.output}
	dfc := &DFC[KV[K, V]]{id: e.input, edge: e.index, transform: "GroupByKey", dofn: fn, downstream: []processor{out}}
	if err := fn.ProcessBundle(dfc); err != nil {
		return errors.Wrap(err, "starting bundle for GroupByKey")
	}
	p.addConsumer(e.input, dfc)
	p.addBundle(dfc, "GroupByKey")
	return nil
}

var _ multiEdge = (*edgeGBK[int, int])(nil)

// groupFn accumulates all values per key for the bundle, and emits each
// group once the bundle's input is exhausted. Groups are emitted in
// first arrival order of their keys.
type groupFn[K Keys, V Element] struct {
	OnBundleFinish
	Output PCol[KV[K, Iter[V]]]

	groups map[K][]V
	order  []K
}

func (fn *groupFn[K, V]) ProcessBundle(dfc *DFC[KV[K, V]]) error {
	fn.groups = map[K][]V{}
	fn.OnBundleFinish.Do(dfc, func() error {
		ec := dfc.ToElmC(time.Now())
		for _, k := range fn.order {
			fn.Output.Emit(ec, KV[K, Iter[V]]{Key: k, Value: sliceIter(fn.groups[k])})
		}
		return nil
	})
	return dfc.Process(func(ec ElmC, kv KV[K, V]) error {
		if _, ok := fn.groups[kv.Key]; !ok {
			fn.order = append(fn.order, kv.Key)
		}
		fn.groups[kv.Key] = append(fn.groups[kv.Key], kv.Value)
		return nil
	})
}

// Reshuffle inserts a fusion break in the pipeline, preventing a
// producer transform from being fused with the consuming transform.
// The local runner executes it as an identity transform.
func Reshuffle[E Element](s *Scope, input PCol[E], opts ...Options) PCol[E] {
	var opt flumeopts.Struct
	opt.Join(opts...)

	edgeID := s.g.curEdgeIndex()
	nodeID := s.g.curNodeIndex()
	s.g.addConsumer(input.globalIndex, edgeID)

	s.g.edges = append(s.g.edges, &edgeReshuffle[E]{index: edgeID, input: input.globalIndex, output: nodeID, opts: opt})
	s.g.nodes = append(s.g.nodes, &typedNode[E]{index: nodeID, parent: edgeID, isBounded: s.g.nodes[input.globalIndex].bounded()})

	return PCol[E]{globalIndex: nodeID}
}

// edgeReshuffle represents a Reshuffle transform.
type edgeReshuffle[E Element] struct {
	index edgeIndex

	input, output nodeIndex
	opts          flumeopts.Struct
}

func (e *edgeReshuffle[E]) edgeID() edgeIndex {
	return e.index
}

// inputs for Reshuffles are one.
func (e *edgeReshuffle[E]) inputs() map[string]nodeIndex {
	return map[string]nodeIndex{"i0": e.input}
}

// outputs for Reshuffles are one.
func (e *edgeReshuffle[E]) outputs() map[string]nodeIndex {
	return map[string]nodeIndex{"o0": e.output}
}

func (e *edgeReshuffle[E]) prepare(p *plan) error {
	out := p.outputProc(e.output)
	fn := &multiplex[E]{Outs: []PCol[E]{{valid: true, localDownstreamIndex: 0, globalIndex: e.output}}}
	dfc := &DFC[E]{id: e.input, edge: e.index, transform: "Reshuffle", dofn: fn, downstream: []processor{out}}
	if err := fn.ProcessBundle(dfc); err != nil {
		return errors.Wrap(err, "starting bundle for Reshuffle")
	}
	p.addConsumer(e.input, dfc)
	p.addBundle(dfc, "Reshuffle")
	return nil
}

var _ multiEdge = (*edgeReshuffle[int])(nil)
