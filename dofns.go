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
	"fmt"
	"math/rand/v2"

	"lostluck.dev/flume-go/coders"
)

// dofns.go is about the different mix-ins and addons that can be added to DoFns.

// flumeMixin is added to all DoFn flume field types to allow them to bypass
// encoding. Only needed when the value has state and shouldn't be embedded.
type flumeMixin struct{}

func (flumeMixin) flumeBypass() {}

type bypassInterface interface {
	flumeBypass()
}

// PCol or PCollection represents a logical collection of elements produced,
// or consumed by of a DoFn.
//
// At pipeline execution time, they are used in a ProcessBundle method to emit
// elements and pass along per element context, such as the EventTime.
//
// Used as an Exported value field of a DoFn struct, they represent the outputs
// from the DoFn. After the DoFn is added to the graph, the processed DoFn's
// PCol fields are initialized and can be passed around by value, to further
// build the pipeline graph.
type PCol[E Element] struct {
	flumeMixin

	valid                bool
	globalIndex          nodeIndex
	localDownstreamIndex int
	mets                 *pcollectionMetrics
	coder                coders.Coder[E]
}

type emitIface interface {
	setPColKey(global nodeIndex, id int, coder any) *pcollectionMetrics
	newDFC(id nodeIndex) processor
	newNode(global nodeIndex, parent edgeIndex, bounded bool) node
}

var _ emitIface = (*PCol[any])(nil)

func (emt *PCol[E]) setPColKey(global nodeIndex, id int, coder any) *pcollectionMetrics {
	emt.valid = true
	emt.globalIndex = global
	emt.localDownstreamIndex = id
	emt.mets = &pcollectionMetrics{nodeIdx: global, nextSampleIdx: 1}
	if coder != nil {
		emt.coder = coder.(coders.Coder[E])
	} else {
		emt.coder = makeCoderOrNil[E]()
	}
	return emt.mets
}

func (emt *PCol[E]) newDFC(id nodeIndex) processor {
	return &DFC[E]{id: id}
}

func (emt *PCol[E]) newNode(global nodeIndex, parent edgeIndex, bounded bool) node {
	return &typedNode[E]{index: global, parent: parent, isBounded: bounded}
}

// makeCoderOrNil builds the element coder used for size sampling.
// Elements with no valid coder, such as grouped iterators, skip size
// sampling rather than failing construction.
func makeCoderOrNil[E Element]() (c coders.Coder[E]) {
	defer func() { recover() }()
	return coders.MakeCoder[E]()
}

// Emit the element within the current element's context.
//
// The ElmC value is sourced from the [DFC.Process] method.
func (emt *PCol[E]) Emit(ec ElmC, elm E) {
	// IMPLEMENTATION NOTES:
	// Emit is complicated due to manually inlining PCollection metrics gathering,
	// and calling the downstream processElement function directly.
	// These inlines save measurable per element overhead compared to
	// more ordinary factoring to methods.
	// On a per element per dofn scale, the savings are significant.
	if emt.mets != nil {
		cur := emt.mets.elementCount.Add(1)
		if cur == emt.mets.nextSampleIdx {
			// It's not important for code inside the sampling block here to
			// be inlined since it's run infrequently.
			if emt.mets.nextSampleIdx < 4 {
				emt.mets.nextSampleIdx++
			} else {
				emt.mets.nextSampleIdx = cur + rand.Int64N(cur/10+2) + 1
			}
			if emt.coder != nil {
				enc := coders.NewEncoder()
				emt.coder.Encode(enc, elm)
				emt.mets.Sample(int64(len(enc.Data())))
			}
		}
	}
	// Metrics collected, call the downstream function directly to avoid another function layer.
	proc := ec.pcollections[emt.localDownstreamIndex]
	dfc := proc.(*DFC[E])
	if err := dfc.perElm(ElmC{ec.elmContext, dfc.downstream}, elm); err != nil {
		panic(fmt.Errorf("doFn id %v %T failed: %w", dfc.id, dfc.dofn, err))
	}
}

// OnBundleFinish allows a DoFn to register a function that runs just before
// a bundle finishes. Elements may be emitted downstream, if an ElmC is retrieved
// from the DFC.
type OnBundleFinish struct{}

type bundleFinisher interface {
	regBundleFinisher(finishBundle func() error)
}

// Do registers a callback to execute after all bundle elements have been processed.
// Any resources that a DoFn needs cleaned up explicitly rather than implicitly
// via garbage collection, should be called here.
//
// Only a single callback may be registered, and it will be the last one passed to Do.
func (*OnBundleFinish) Do(dfc bundleFinisher, finishBundle func() error) {
	dfc.regBundleFinisher(finishBundle)
}
