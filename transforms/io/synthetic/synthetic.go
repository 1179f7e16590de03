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

// Package synthetic provides configurable load generating transforms,
// for exercising pipelines without real sources.
package synthetic

import (
	"math/rand/v2"
	"time"

	"lostluck.dev/flume-go"
)

// StepConfig controls the behavior of a synthetic [Step].
type StepConfig struct {
	PerElementDelay time.Duration // Sleep per input element.
	PerBundleDelay  time.Duration // Minimum wall time for the whole bundle.

	OutputPerInput uint    // Elements emitted per surviving input.
	FilterRatio    float64 // Probability an input produces no output.
}

// Step applies a DoFn with prespecified load characteristics to the
// input collection.
func Step[E flume.Element](s *flume.Scope, input flume.PCol[E], cfg StepConfig, opts ...flume.Options) flume.PCol[E] {
	fn := flume.ParDo(s, input, &syntheticStep[E]{cfg: cfg}, opts...)
	return fn.Output
}

// syntheticStep is a DoFn which can be controlled with prespecified parameters.
type syntheticStep[E flume.Element] struct {
	cfg StepConfig

	flume.OnBundleFinish
	Output flume.PCol[E]
}

func (fn *syntheticStep[E]) ProcessBundle(dfc *flume.DFC[E]) error {
	startTime := time.Now()

	fn.OnBundleFinish.Do(dfc, func() error {
		// The target is for the enclosing stage to take as close to as possible
		// the given duration, so we only sleep enough to make up for
		// overheads not incurred elsewhere.
		toSleep := fn.cfg.PerBundleDelay - (time.Since(startTime))
		time.Sleep(toSleep)
		return nil
	})

	return dfc.Process(func(ec flume.ElmC, e E) error {
		time.Sleep(fn.cfg.PerElementDelay)
		if fn.cfg.FilterRatio > 0 && rand.Float64() < fn.cfg.FilterRatio {
			return nil
		}
		for range fn.cfg.OutputPerInput {
			fn.Output.Emit(ec, e)
		}
		return nil
	})
}

// SourceConfig controls the records produced by a synthetic [Source].
type SourceConfig struct {
	NumRecords          int
	KeySize, ValueSize  int
	SleepPerInputRecord time.Duration
}

// Source produces NumRecords random key value records of the configured
// sizes.
func Source(s *flume.Scope, cfg SourceConfig, opts ...flume.Options) flume.PCol[flume.KV[string, []byte]] {
	imp := flume.Impulse(s)
	fn := flume.ParDo(s, imp, &syntheticSource{cfg: cfg}, opts...)
	return fn.Output
}

type syntheticSource struct {
	cfg SourceConfig

	Output flume.PCol[flume.KV[string, []byte]]
}

func (fn *syntheticSource) ProcessBundle(dfc *flume.DFC[[]byte]) error {
	return dfc.Process(func(ec flume.ElmC, _ []byte) error {
		for i := 0; i < fn.cfg.NumRecords; i++ {
			time.Sleep(fn.cfg.SleepPerInputRecord)
			fn.Output.Emit(ec, flume.KV[string, []byte]{
				Key:   string(randBytes(fn.cfg.KeySize)),
				Value: randBytes(fn.cfg.ValueSize),
			})
		}
		return nil
	})
}

func randBytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte('a' + rand.IntN(26))
	}
	return out
}
