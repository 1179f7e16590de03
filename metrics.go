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
	"sync"
	"sync/atomic"
)

// pcollectionMetrics tracks element counts and sampled encoded sizes for
// a single collection. Counting is on the Emit hot path, so the count is
// a bare atomic, and sizes are only sampled at randomized intervals.
type pcollectionMetrics struct {
	nodeIdx nodeIndex

	elementCount  atomic.Int64
	nextSampleIdx int64

	sampleMu               sync.Mutex
	sampleCount, sampleSum int64
	sampleMin, sampleMax   int64
}

// Sample records one observed encoded element size.
func (m *pcollectionMetrics) Sample(size int64) {
	m.sampleMu.Lock()
	m.sampleCount++
	m.sampleSum += size
	if m.sampleCount == 1 {
		m.sampleMin, m.sampleMax = size, size
	} else {
		m.sampleMin = min(m.sampleMin, size)
		m.sampleMax = max(m.sampleMax, size)
	}
	m.sampleMu.Unlock()
}

// MetricSource is implemented by *DFC values, scoping metric updates to
// an executing bundle.
type MetricSource interface {
	metricSource()
}

// CounterInt64 is a DoFn field that accumulates a user counter across
// the pipeline. Counters are keyed by the transform name and field name,
// and reported on the completed [Pipeline].
type CounterInt64 struct {
	flumeMixin

	name string
	cell *atomic.Int64
}

// Inc adds diff to the counter.
func (c *CounterInt64) Inc(_ MetricSource, diff int64) {
	if c.cell != nil {
		c.cell.Add(diff)
	}
}

func (c *CounterInt64) initCounter(name string) {
	c.name = name
	c.cell = &atomic.Int64{}
}
