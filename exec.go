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
	"log/slog"
	"slices"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"lostluck.dev/flume-go/internal/flumeopts"
	"lostluck.dev/flume-go/internal/joblog"
	"lostluck.dev/flume-go/internal/tapstore"
)

// exec.go turns a constructed graph into a fused plan and runs it.
//
// Preparation walks the transform edges in reverse construction order,
// so every edge's downstream processors exist before its own. Execution
// then drives the root edges, pushing elements through descendant
// processing functions directly, and finishes bundles in construction
// order so upstream finishers may still emit downstream.

// plan is the executable form of a graph.
type plan struct {
	g *graph

	procs map[nodeIndex][]processor
	fused map[nodeIndex]processor

	bundles []bundle
	roots   []rootEdge
}

type bundle struct {
	name string
	proc processor
}

func (g *graph) build() (*plan, error) {
	p := &plan{
		g:     g,
		procs: map[nodeIndex][]processor{},
		fused: map[nodeIndex]processor{},
	}
	for i := len(g.edges) - 1; i >= 0; i-- {
		e := g.edges[i]
		if err := e.prepare(p); err != nil {
			return nil, err
		}
		if r, ok := e.(rootEdge); ok {
			p.roots = append(p.roots, r)
		}
	}
	// The walk collected bundles and roots backwards.
	slices.Reverse(p.bundles)
	slices.Reverse(p.roots)
	return p, nil
}

func (p *plan) addConsumer(input nodeIndex, proc processor) {
	p.procs[input] = append(p.procs[input], proc)
}

func (p *plan) addBundle(proc processor, name string) {
	p.bundles = append(p.bundles, bundle{name: name, proc: proc})
}

// outputProc fuses all consumers of the given collection into the single
// processor its producer pushes into.
func (p *plan) outputProc(n nodeIndex) processor {
	if proc, ok := p.fused[n]; ok {
		return proc
	}
	procs := p.procs[n]
	// Consumers registered in reverse construction order. Restore it so
	// multiplexed elements arrive in the order consumers were added.
	slices.Reverse(procs)
	proc := p.g.nodes[n].fuse(procs)
	p.fused[n] = proc
	return proc
}

func (p *plan) run(ctx context.Context) error {
	for _, r := range p.roots {
		if err := r.drive(ctx, p); err != nil {
			return err
		}
	}
	for _, b := range p.bundles {
		if err := b.proc.finishBundle(); err != nil {
			p.g.opts.Logger.LogAttrs(ctx, slog.LevelError, "bundle failed",
				joblog.WithTransform(b.name), slog.String("error", err.Error()))
			return errors.Wrapf(err, "finishing bundle for %v", b.name)
		}
	}
	return nil
}

// Pipeline is the result of a completed pipeline run.
type Pipeline struct {
	// Name of the pipeline, from the Name option.
	Name string
	// Counters has the final values of user DoFn counters, keyed by
	// "<transform>.<Field>".
	Counters map[string]int64
	// ElementCounts has per collection element counts, keyed by the
	// collection's node id.
	ElementCounts map[string]int64
}

// PipelineRun is a handle to an asynchronously executing pipeline,
// returned by [Launch].
type PipelineRun struct {
	g *graph

	done chan struct{}
	pipe Pipeline
	err  error
}

// Launch begins executing the pipeline built by expand, and returns
// without waiting for it to complete.
//
// Tap futures produced during construction resolve when the run
// completes, so they may be waited on instead of the run itself.
func Launch(ctx context.Context, expand func(s *Scope) error, opts ...Options) (*PipelineRun, error) {
	var opt flumeopts.Struct
	opt.Join(opts...)
	if opt.TapBucket == "" {
		opt.TapBucket = "mem://"
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	store, err := tapstore.Open(ctx, opt.TapBucket)
	if err != nil {
		return nil, errors.Wrapf(err, "opening tap bucket %q", opt.TapBucket)
	}
	g := &graph{opts: opt, store: store}
	if err := expand(&Scope{g: g}); err != nil {
		err = errors.Wrapf(err, "constructing pipeline %q", opt.Name)
		g.resolveTaps(err)
		return nil, err
	}
	run := &PipelineRun{g: g, done: make(chan struct{})}
	go run.execute(ctx)
	return run, nil
}

// LaunchAndWait executes the pipeline built by expand to completion.
func LaunchAndWait(ctx context.Context, expand func(s *Scope) error, opts ...Options) (Pipeline, error) {
	run, err := Launch(ctx, expand, opts...)
	if err != nil {
		return Pipeline{}, err
	}
	return run.Wait(ctx)
}

// Wait blocks until the pipeline completes, or the context is done.
func (r *PipelineRun) Wait(ctx context.Context) (Pipeline, error) {
	select {
	case <-ctx.Done():
		return Pipeline{}, errors.Wrap(ctx.Err(), "waiting for pipeline")
	case <-r.done:
		return r.pipe, r.err
	}
}

func (r *PipelineRun) execute(ctx context.Context) {
	defer close(r.done)
	log := r.g.opts.Logger
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = errors.Errorf("pipeline panicked: %v", rec)
			}
		}()
		p, err := r.g.build()
		if err != nil {
			return err
		}
		return p.run(ctx)
	}()
	if err == nil {
		// Persist taps only for successful runs, so a reader never
		// observes output of a failed pipeline.
		eg, egctx := errgroup.WithContext(ctx)
		for _, sink := range r.g.tapSinks {
			eg.Go(func() error { return sink.persist(egctx) })
		}
		err = eg.Wait()
	}
	r.g.resolveTaps(err)
	r.pipe = Pipeline{Name: r.g.opts.Name}
	r.pipe.Counters, r.pipe.ElementCounts = r.g.collectMetrics()
	r.err = err

	attrs := []slog.Attr{
		slog.String("pipeline", r.g.opts.Name),
		slog.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		log.LogAttrs(ctx, slog.LevelError, "pipeline failed", attrs...)
		return
	}
	log.LogAttrs(ctx, slog.LevelInfo, "pipeline complete", attrs...)
}

func (g *graph) resolveTaps(err error) {
	for _, sink := range g.tapSinks {
		sink.resolve(err)
	}
}

func (g *graph) collectMetrics() (counters, elements map[string]int64) {
	counters = map[string]int64{}
	for _, c := range g.counters {
		counters[c.name] += c.cell.Load()
	}
	elements = map[string]int64{}
	for _, m := range g.mets {
		elements[m.nodeIdx.String()] = m.elementCount.Load()
	}
	return counters, elements
}
