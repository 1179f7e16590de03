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
	"reflect"

	"github.com/pkg/errors"
	"lostluck.dev/flume-go/internal/flumeopts"
)

// ParDo takes the user's DoFn and returns the same type for downstream
// pipeline construction.
//
// The returned DoFn's emitter fields can then be used as inputs into other
// DoFns.
func ParDo[E Element, DF Transform[E]](s *Scope, input PCol[E], dofn DF, opts ...Options) DF {
	var opt flumeopts.Struct
	opt.Join(opts...)

	edgeID := s.g.curEdgeIndex()
	name := opt.Name
	if name == "" {
		name = transformName(dofn)
	}
	ins, outs := s.g.deferDoFn(dofn, input.globalIndex, edgeID, name)

	s.g.edges = append(s.g.edges, &edgeDoFn[E]{index: edgeID, transform: name, dofn: dofn, ins: ins, outs: outs, parallelIn: input.globalIndex, opts: opt})

	return dofn
}

// transformName derives a stable default transform name from the DoFn's
// type, used when no Name option was given.
func transformName(dofn any) string {
	rt := reflect.TypeOf(dofn)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.Name()
}

// deferDoFn walks the DoFn struct, initializing emitter fields as graph
// collections and counter fields against the transform name, so the
// value is ready for execution once construction completes.
func (g *graph) deferDoFn(dofn any, input nodeIndex, global edgeIndex, name string) (ins, outs map[string]nodeIndex) {
	g.addConsumer(input, global)

	rv := reflect.ValueOf(dofn)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	ins = map[string]nodeIndex{
		"parallel": input,
	}
	outs = map[string]nodeIndex{}
	efaceRT := reflect.TypeOf((*emitIface)(nil)).Elem()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		fv := rv.Field(i)
		sf := rt.Field(i)
		if !fv.CanAddr() || !sf.IsExported() {
			continue
		}
		switch sf.Type.Kind() {
		case reflect.Array, reflect.Slice:
			ptrEt := reflect.PointerTo(sf.Type.Elem())
			if !ptrEt.Implements(efaceRT) {
				continue
			}
			for j := 0; j < fv.Len(); j++ {
				fvj := fv.Index(j).Addr()
				g.initEmitter(fvj.Interface().(emitIface), global, input, fmt.Sprintf("%s%%%d", sf.Name, j), outs)
			}
		case reflect.Struct:
			fv = fv.Addr()
			switch feature := fv.Interface().(type) {
			case emitIface:
				g.initEmitter(feature, global, input, sf.Name, outs)
			case *CounterInt64:
				feature.initCounter(name + "." + sf.Name)
				g.counters = append(g.counters, feature)
			}
		case reflect.Chan:
			panic(fmt.Sprintf("field %v is a channel", fv))
		default:
			// Don't do anything with pointers, or other types.
		}
	}
	return ins, outs
}

func (g *graph) initEmitter(emt emitIface, global edgeIndex, input nodeIndex, name string, outs map[string]nodeIndex) {
	localIndex := len(outs)
	globalIndex := g.curNodeIndex()
	mets := emt.setPColKey(globalIndex, localIndex, nil)
	g.mets = append(g.mets, mets)
	node := emt.newNode(globalIndex, global, g.nodes[input].bounded())
	g.nodes = append(g.nodes, node)
	outs[name] = globalIndex
}

type edgeDoFn[E Element] struct {
	index     edgeIndex
	transform string

	dofn       Transform[E]
	ins, outs  map[string]nodeIndex // local field names to global collection ids.
	parallelIn nodeIndex

	opts flumeopts.Struct
}

func (e *edgeDoFn[E]) edgeID() edgeIndex {
	return e.index
}

func (e *edgeDoFn[E]) inputs() map[string]nodeIndex {
	return e.ins
}

func (e *edgeDoFn[E]) outputs() map[string]nodeIndex {
	return e.outs
}

// prepare fuses this DoFn against its downstream processors and runs
// ProcessBundle so the per element function is registered before any
// upstream element arrives.
func (e *edgeDoFn[E]) prepare(p *plan) error {
	dfc := &DFC[E]{id: e.parallelIn, edge: e.index, transform: e.transform, dofn: e.dofn}
	for _, out := range sortedNodes(e.outs) {
		dfc.downstream = append(dfc.downstream, p.outputProc(out))
	}
	if err := e.dofn.ProcessBundle(dfc); err != nil {
		return errors.Wrapf(err, "starting bundle for %v", e.transform)
	}
	p.addConsumer(e.parallelIn, dfc)
	p.addBundle(dfc, e.transform)
	return nil
}

var _ multiEdge = (*edgeDoFn[int])(nil)
