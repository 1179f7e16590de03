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

// Package flume is a generics first dataflow pipeline library. Pipelines
// are built as typed graphs of DoFn transforms, type checked by the Go
// compiler instead of reflection heavy construction code, and executed
// by a fused in process runner.
//
// A pipeline is built and run within a [Launch] or [LaunchAndWait]
// closure, starting from [Impulse] or an opened [Tap], and composed with
// [ParDo], [Map], [GBK], and [CombinePerKey].
//
// Collections can be captured past the end of a run with [Materialize],
// which persists their elements through the coders package into a blob
// bucket. The resulting [Tap] replays those elements on demand, in this
// process or as the source of an entirely separate pipeline.
package flume
