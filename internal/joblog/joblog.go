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

// Package joblog provides the pipeline structured logging handler.
//
// Entries are delivered to a channel rather than a writer, so launchers
// can route them to their own sinks, and tests can assert on them
// directly. Transform attribution travels as a regular attribute via
// [WithTransform], and is lifted onto the entry itself.
package joblog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/jba/slog/withsupport"
)

// transformKey is the attribute key carrying transform attribution.
const transformKey = "flume.transform"

// WithTransform returns the attr that attributes log entries to the
// named transform, for use with Logger.With.
func WithTransform(name string) slog.Attr {
	return slog.String(transformKey, name)
}

// Entry is one structured log record, flattened for delivery.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Source  string

	Pipeline  string
	Transform string

	Attrs map[string]any
}

// HandlerOptions configure a logging handler.
type HandlerOptions struct {
	// Level reports the minimum record level that will be logged.
	// If nil, debug and above are logged.
	Level slog.Leveler

	// Pipeline stamps every entry with the pipeline's name.
	Pipeline string
}

type loggingHandler struct {
	out  chan<- Entry
	opts HandlerOptions

	transform string
	numGroups int
	goa       *withsupport.GroupOrAttrs
}

// NewHandler returns a handler delivering entries to out. Handle blocks
// when out is full.
func NewHandler(out chan<- Entry, opts *HandlerOptions) slog.Handler {
	h := &loggingHandler{out: out}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *loggingHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelDebug
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *loggingHandler) WithGroup(name string) slog.Handler {
	h2 := *h
	h2.numGroups++
	h2.goa = h2.goa.WithGroup(name)
	return &h2
}

func (h *loggingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	if h2.numGroups == 0 {
		// Transform attribution is only meaningful at the top level.
		kept := attrs[:0:0]
		for _, a := range attrs {
			if a.Key == transformKey && a.Value.Kind() == slog.KindString {
				h2.transform = a.Value.String()
				continue
			}
			kept = append(kept, a)
		}
		attrs = kept
	}
	if len(attrs) > 0 {
		h2.goa = h2.goa.WithAttrs(attrs)
	}
	return &h2
}

func (h *loggingHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{
		Time:      r.Time,
		Level:     r.Level,
		Message:   r.Message,
		Pipeline:  h.opts.Pipeline,
		Transform: h.transform,
		Attrs:     map[string]any{},
	}
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		e.Source = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	groups := h.goa.Apply(func(gs []string, a slog.Attr) {
		putAttr(e.Attrs, gs, a)
	})
	r.Attrs(func(a slog.Attr) bool {
		if len(groups) == 0 && a.Key == transformKey && a.Value.Kind() == slog.KindString {
			e.Transform = a.Value.String()
			return true
		}
		putAttr(e.Attrs, groups, a)
		return true
	})
	h.out <- e
	return nil
}

// putAttr resolves the attr and stores it under its group path, opening
// nested maps as needed. Empty attrs and empty groups are elided.
func putAttr(m map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		gas := a.Value.Group()
		if len(gas) == 0 {
			return
		}
		if a.Key != "" {
			groups = append(groups, a.Key)
		}
		for _, ga := range gas {
			putAttr(m, groups, ga)
		}
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}
	for _, g := range groups {
		sub, ok := m[g].(map[string]any)
		if !ok {
			sub = map[string]any{}
			m[g] = sub
		}
		m = sub
	}
	m[a.Key] = a.Value.Any()
}
