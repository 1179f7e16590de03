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
	"context"
	"fmt"
	"sort"

	"lostluck.dev/flume-go/internal/flumeopts"
	"lostluck.dev/flume-go/internal/tapstore"
)

// graph.go holds the deferred construction state of a pipeline: the
// append only collection and transform lists built up by Scope methods,
// before execution turns them into a fused plan.

type nodeIndex int
type edgeIndex int

func (i nodeIndex) String() string {
	return fmt.Sprintf("n%d", i)
}

func (i edgeIndex) String() string {
	return fmt.Sprintf("e%d", i)
}

// node is a typed handle to a PCollection in the graph. The concrete
// type retains the element type so execution can build typed processors
// without reflection.
type node interface {
	nodeID() nodeIndex
	parentEdge() edgeIndex
	bounded() bool

	// fuse wires this collection's consuming processors into a single
	// processor for the producing transform to push into.
	fuse(procs []processor) processor
}

type typedNode[E Element] struct {
	index     nodeIndex
	parent    edgeIndex
	isBounded bool
}

func (n *typedNode[E]) nodeID() nodeIndex     { return n.index }
func (n *typedNode[E]) parentEdge() edgeIndex { return n.parent }
func (n *typedNode[E]) bounded() bool         { return n.isBounded }

func (n *typedNode[E]) fuse(procs []processor) processor {
	switch len(procs) {
	case 0:
		// Unconsumed collections sink into a no-op so producers never
		// need to check their downstream on each element.
		fn := &discard[E]{}
		dfc := &DFC[E]{id: n.index, dofn: fn}
		fn.ProcessBundle(dfc)
		return dfc
	case 1:
		return procs[0]
	default:
		fn := &multiplex[E]{}
		for i := range procs {
			fn.Outs = append(fn.Outs, PCol[E]{valid: true, localDownstreamIndex: i})
		}
		dfc := &DFC[E]{id: n.index, dofn: fn, downstream: procs}
		fn.ProcessBundle(dfc)
		return dfc
	}
}

// multiEdge is a transform in the graph between zero or more input and
// output collections.
type multiEdge interface {
	edgeID() edgeIndex
	inputs() map[string]nodeIndex
	outputs() map[string]nodeIndex

	// prepare builds this edge's processor against the given plan.
	// Edges are prepared in reverse construction order, so an edge's
	// output processors always exist before its own.
	prepare(p *plan) error
}

// rootEdge is a multiEdge with no parallel input. Roots are driven by
// the plan to push elements into the graph.
type rootEdge interface {
	multiEdge
	drive(ctx context.Context, p *plan) error
}

type graph struct {
	nodes []node
	edges []multiEdge

	consumers map[nodeIndex][]edgeIndex

	opts  flumeopts.Struct
	store *tapstore.Store

	mets     []*pcollectionMetrics
	counters []*CounterInt64
	tapSinks []tapSink
}

func (g *graph) curNodeIndex() nodeIndex {
	return nodeIndex(len(g.nodes))
}

func (g *graph) curEdgeIndex() edgeIndex {
	return edgeIndex(len(g.edges))
}

func (g *graph) addConsumer(input nodeIndex, e edgeIndex) {
	if g.consumers == nil {
		g.consumers = map[nodeIndex][]edgeIndex{}
	}
	g.consumers[input] = append(g.consumers[input], e)
}

// sortedNodes returns the map's collection indices in ascending order,
// matching the local downstream indices assigned at construction time.
func sortedNodes(m map[string]nodeIndex) []nodeIndex {
	out := make([]nodeIndex, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Scope is used for adding transforms to the pipeline graph during
// construction, within a [Launch] or [LaunchAndWait] closure.
type Scope struct {
	g *graph
}

// String for debugging.
func (s *Scope) String() string {
	return fmt.Sprintf("pipeline %q: %d transforms, %d collections", s.g.opts.Name, len(s.g.edges), len(s.g.nodes))
}
