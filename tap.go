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
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"lostluck.dev/flume-go/coders"
	"lostluck.dev/flume-go/internal/flumeopts"
	"lostluck.dev/flume-go/internal/tapstore"
)

// tap.go implements materialization taps: durable, replayable captures
// of a collection's elements that outlive the pipeline that produced
// them, and can seed later pipelines.

// ErrResultTimeout is returned by [TapFuture.Result] when its context
// expires before the producing pipeline completes.
var ErrResultTimeout = errors.New("timed out waiting for tap result")

// Tap is a materialized collection. A tap starts pending, and becomes
// ready exactly once, when the pipeline that materialized it succeeds.
// The transition is one way: a ready tap never becomes pending again.
// A failed pipeline moves its taps to a terminal failed state instead;
// their values are never available, and opening one fails the consuming
// pipeline with the producer's error.
//
// Ready taps replay their elements any number of times, via [Tap.Values]
// or by opening them as a source in another pipeline with [Tap.Open].
type Tap[E Element] struct {
	id    uuid.UUID
	key   string
	store *tapstore.Store

	ready  chan struct{}
	failed chan struct{}

	failure error
}

// ID is the unique identity of this tap.
func (t *Tap[E]) ID() string {
	return t.id.String()
}

// Ready reports whether the tap's elements are available.
func (t *Tap[E]) Ready() bool {
	select {
	case <-t.ready:
		return true
	default:
		return false
	}
}

// Values replays the materialized elements in their original order. Each
// returned sequence is an independent pass over the stored elements.
//
// Values panics if the tap isn't ready.
func (t *Tap[E]) Values() iter.Seq[E] {
	if !t.Ready() {
		panic(fmt.Sprintf("tap %v is pending: values are only available after the producing pipeline succeeds", t.id))
	}
	c := coders.MakeCoder[E]()
	return func(yield func(E) bool) {
		frames, err := t.store.Read(context.Background(), t.key)
		if err != nil {
			panic(errors.Wrapf(err, "replaying tap %v", t.id))
		}
		for _, frame := range frames {
			if !yield(coders.Decode(c, frame)) {
				return
			}
		}
	}
}

// Open adds this tap as a source in the given pipeline's graph,
// returning the collection of its replayed elements.
//
// The tap doesn't need to be ready at construction time. Execution
// blocks until it is, so a pipeline may consume taps its launcher is
// still producing. Opening a tap whose producing pipeline failed fails
// the consuming pipeline.
func (t *Tap[E]) Open(s *Scope) PCol[E] {
	edgeID := s.g.curEdgeIndex()
	nodeID := s.g.curNodeIndex()
	s.g.edges = append(s.g.edges, &edgeTapSource[E]{index: edgeID, output: nodeID, tap: t})
	s.g.nodes = append(s.g.nodes, &typedNode[E]{index: nodeID, parent: edgeID, isBounded: true})
	return PCol[E]{globalIndex: nodeID}
}

// TapFuture resolves to a [Tap] when the pipeline run that materializes
// it completes.
type TapFuture[E Element] struct {
	tap *Tap[E]

	done chan struct{}
	err  error
}

// Tap returns the tap this future resolves, which may still be pending.
// Pending taps can be opened in other pipelines ahead of their data, but
// their values can't be inspected until ready.
func (f *TapFuture[E]) Tap() *Tap[E] {
	return f.tap
}

// IsCompleted reports whether the producing pipeline has finished,
// successfully or not, without blocking.
func (f *TapFuture[E]) IsCompleted() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the producing pipeline completes, returning the
// ready tap, or the pipeline's failure.
//
// If the context expires first, Result returns an error matching
// [ErrResultTimeout].
func (f *TapFuture[E]) Result(ctx context.Context) (*Tap[E], error) {
	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		return f.tap, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ErrResultTimeout, "tap %v after %v", f.tap.id, ctx.Err())
	}
}

// Materialize captures the input collection into a durable [Tap], made
// available through the returned future once the pipeline completes.
//
// The tap is stored in the pipeline's tap bucket, and remains readable
// after the run, including from other pipelines.
func Materialize[E Element](s *Scope, input PCol[E], opts ...Options) *TapFuture[E] {
	var opt flumeopts.Struct
	opt.Join(opts...)

	edgeID := s.g.curEdgeIndex()
	s.g.addConsumer(input.globalIndex, edgeID)

	tap := &Tap[E]{
		id:     uuid.New(),
		store:  s.g.store,
		ready:  make(chan struct{}),
		failed: make(chan struct{}),
	}
	tap.key = "taps/" + tap.id.String()
	fut := &TapFuture[E]{tap: tap, done: make(chan struct{})}

	e := &edgeTapSink[E]{
		index:  edgeID,
		input:  input.globalIndex,
		tap:    tap,
		future: fut,
		fn:     &tapSinkFn[E]{coder: coders.MakeCoder[E]()},
	}
	s.g.edges = append(s.g.edges, e)
	s.g.tapSinks = append(s.g.tapSinks, e)
	return fut
}

// tapSink is the type erased handle execution uses to persist and
// resolve materializations.
type tapSink interface {
	persist(ctx context.Context) error
	resolve(err error)
}

// tapSinkFn buffers the encoded frames of a materialized collection
// for the bundle.
type tapSinkFn[E Element] struct {
	coder  coders.Coder[E]
	frames [][]byte
}

func (fn *tapSinkFn[E]) ProcessBundle(dfc *DFC[E]) error {
	return dfc.Process(func(ec ElmC, elm E) error {
		enc := coders.NewEncoder()
		fn.coder.Encode(enc, elm)
		fn.frames = append(fn.frames, enc.Data())
		return nil
	})
}

type edgeTapSink[E Element] struct {
	index edgeIndex
	input nodeIndex

	tap    *Tap[E]
	future *TapFuture[E]
	fn     *tapSinkFn[E]

	resolveOnce sync.Once
}

func (e *edgeTapSink[E]) edgeID() edgeIndex {
	return e.index
}

func (e *edgeTapSink[E]) inputs() map[string]nodeIndex {
	return map[string]nodeIndex{"i0": e.input}
}

func (e *edgeTapSink[E]) outputs() map[string]nodeIndex {
	return nil
}

func (e *edgeTapSink[E]) prepare(p *plan) error {
	dfc := &DFC[E]{id: e.input, edge: e.index, transform: "Materialize", dofn: e.fn}
	if err := e.fn.ProcessBundle(dfc); err != nil {
		return errors.Wrap(err, "starting bundle for Materialize")
	}
	p.addConsumer(e.input, dfc)
	p.addBundle(dfc, "Materialize")
	return nil
}

func (e *edgeTapSink[E]) persist(ctx context.Context) error {
	return e.tap.store.Write(ctx, e.tap.key, e.fn.frames)
}

// resolve completes the tap and its future. A nil error marks the tap
// ready; anything else leaves it pending and surfaces the error through
// the future.
func (e *edgeTapSink[E]) resolve(err error) {
	e.resolveOnce.Do(func() {
		if err == nil {
			close(e.tap.ready)
		} else {
			e.tap.failure = err
			close(e.tap.failed)
		}
		e.future.err = err
		close(e.future.done)
	})
}

var (
	_ multiEdge = (*edgeTapSink[int])(nil)
	_ tapSink   = (*edgeTapSink[int])(nil)
)

// edgeTapSource replays a tap's elements as a root of the graph.
type edgeTapSource[E Element] struct {
	index  edgeIndex
	output nodeIndex

	tap  *Tap[E]
	proc processor
}

func (e *edgeTapSource[E]) edgeID() edgeIndex {
	return e.index
}

func (e *edgeTapSource[E]) inputs() map[string]nodeIndex {
	return nil
}

func (e *edgeTapSource[E]) outputs() map[string]nodeIndex {
	return map[string]nodeIndex{"o0": e.output}
}

func (e *edgeTapSource[E]) prepare(p *plan) error {
	e.proc = p.outputProc(e.output)
	return nil
}

func (e *edgeTapSource[E]) drive(ctx context.Context, p *plan) error {
	t := e.tap
	select {
	case <-t.ready:
	case <-t.failed:
		return errors.Wrapf(t.failure, "tap %v will never be ready", t.id)
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for tap %v", t.id)
	}
	frames, err := t.store.Read(ctx, t.key)
	if err != nil {
		return errors.Wrapf(err, "replaying tap %v", t.id)
	}
	c := coders.MakeCoder[E]()
	dfc := e.proc.(*DFC[E])
	ec := elmContext{eventTime: time.Now()}
	for _, frame := range frames {
		elm, err := coders.TryDecode(c, frame)
		if err != nil {
			return errors.Wrapf(err, "decoding tap %v", t.id)
		}
		if err := dfc.processE(ec, elm); err != nil {
			return err
		}
	}
	return nil
}

var _ rootEdge = (*edgeTapSource[int])(nil)
