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
	"time"
)

// Element represents any user type. Pipeline elements must be serializable
// by the coders package when they cross a materialization boundary, but
// may otherwise be arbitrary values.
type Element interface {
	any
}

// Keys are Elements that are also comparable, for use as grouping keys.
// Distinct keys must have distinct binary encodings.
type Keys interface {
	comparable
	Element
}

// Transform is the only interface a DoFn needs to implement. ProcessBundle
// is called once per bundle at execution time, and must call one of the
// [DFC] Process methods to register per element processing.
type Transform[E Element] interface {
	ProcessBundle(dfc *DFC[E]) error
}

// processor is the type erased handle to a *DFC[E], held as the
// downstream ends of a fused bundle.
type processor interface {
	// finishBundle runs the registered OnBundleFinish callback, if any.
	finishBundle() error
	// metricSource marks DFCs as valid receivers for metric updates.
	metricSource()
}

// DFC is the DoFn Context, the entry point for a DoFn's processing within
// a bundle. Each DoFn instance in an executing pipeline has exactly one.
type DFC[E Element] struct {
	id        nodeIndex
	edge      edgeIndex
	transform string

	dofn       Transform[E]
	downstream []processor

	perElm   func(ec ElmC, elm E) error
	onFinish func() error
}

var _ processor = (*DFC[int])(nil)

func (c *DFC[E]) metricSource() {}

// Process is called during ProcessBundle to register the function
// executed for every element in the bundle.
func (c *DFC[E]) Process(perElm func(ec ElmC, elm E) error) error {
	if c.perElm != nil {
		panic(fmt.Sprintf("transform %v: Process called twice", c.transform))
	}
	c.perElm = perElm
	return nil
}

// processE pushes a single element through this DoFn's registered
// processing function.
func (c *DFC[E]) processE(ec elmContext, elm E) error {
	return c.perElm(ElmC{ec, c.downstream}, elm)
}

// ToElmC produces an [ElmC] for emitting elements outside of a Process
// callback, such as from an OnBundleFinish function. The elements are
// stamped with the given event time.
func (c *DFC[E]) ToElmC(eventTime time.Time) ElmC {
	return ElmC{
		elmContext{eventTime: eventTime},
		c.downstream,
	}
}

func (c *DFC[E]) regBundleFinisher(finishBundle func() error) {
	c.onFinish = finishBundle
}

func (c *DFC[E]) finishBundle() error {
	if c.onFinish == nil {
		return nil
	}
	return c.onFinish()
}

// elmContext is the per element context threaded through a fused bundle.
type elmContext struct {
	eventTime time.Time
}

// ElmC is the per element context passed to a DoFn's process function.
// It provides element metadata, and is required to emit elements to
// the DoFn's output collections.
type ElmC struct {
	elmContext

	pcollections []processor
}

// EventTime returns the timestamp of the current element.
func (e *ElmC) EventTime() time.Time {
	return e.eventTime
}
