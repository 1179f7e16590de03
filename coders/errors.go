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

package coders

// DecodeError reports a malformed or truncated byte stream, or a shape
// mismatch between the encoded value and the decode side expectation.
// Decoding fails on the first inconsistency; no partial value is returned.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "coders: decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SchemaResolutionError reports a specific record identity that the decode
// side resolver doesn't know. Distinct from DecodeError so callers can
// diagnose environment mismatches rather than corrupt bytes.
type SchemaResolutionError struct {
	Identity string
}

func (e *SchemaResolutionError) Error() string {
	return "coders: unresolvable record identity " + e.Identity
}

// coderError carries a decode failure up through the recursive decode
// call stack. Only this package panics with it, and only entry points
// recover it; anything else propagates as a genuine panic.
type coderError struct {
	err error
}

func recoverDecode(err *error) {
	r := recover()
	if r == nil {
		return
	}
	ce, ok := r.(coderError)
	if !ok {
		panic(r)
	}
	*err = ce.err
}
