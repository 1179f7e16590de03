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

import (
	"encoding/binary"
	"math"
)

// Encoder accumulates the binary encoding of element values.
//
// Multi-byte integers and floats are big endian. Counts, lengths, and
// other sizes are unsigned varints. Strings and byte slices are length
// prefixed so they can be embedded in composite encodings without
// ambiguity.
//
// An Encoder is cheap to create, and must not be shared between
// goroutines.
type Encoder struct {
	data []byte
}

// NewEncoder returns an Encoder ready for use.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Data returns the encoded bytes so far.
func (e *Encoder) Data() []byte {
	return e.data
}

// Reset clears the accumulated bytes, retaining the buffer.
func (e *Encoder) Reset() {
	e.data = e.data[:0]
}

// Byte appends a single raw byte.
func (e *Encoder) Byte(b byte) {
	e.data = append(e.data, b)
}

// Bool encodes a bool as a single byte, 1 for true, 0 for false.
func (e *Encoder) Bool(v bool) {
	if v {
		e.Byte(1)
	} else {
		e.Byte(0)
	}
}

// Varint encodes v as an unsigned LEB128 varint.
func (e *Encoder) Varint(v uint64) {
	e.data = binary.AppendUvarint(e.data, v)
}

// Int16 encodes v as 2 big endian bytes.
func (e *Encoder) Int16(v int16) {
	e.Uint16(uint16(v))
}

// Int32 encodes v as 4 big endian bytes.
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Int64 encodes v as 8 big endian bytes.
func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

// Uint16 encodes v as 2 big endian bytes.
func (e *Encoder) Uint16(v uint16) {
	e.data = binary.BigEndian.AppendUint16(e.data, v)
}

// Uint32 encodes v as 4 big endian bytes.
func (e *Encoder) Uint32(v uint32) {
	e.data = binary.BigEndian.AppendUint32(e.data, v)
}

// Uint64 encodes v as 8 big endian bytes.
func (e *Encoder) Uint64(v uint64) {
	e.data = binary.BigEndian.AppendUint64(e.data, v)
}

// Float encodes v as 4 big endian IEEE 754 bytes.
func (e *Encoder) Float(v float32) {
	e.Uint32(math.Float32bits(v))
}

// Double encodes v as 8 big endian IEEE 754 bytes.
func (e *Encoder) Double(v float64) {
	e.Uint64(math.Float64bits(v))
}

// Bytes encodes v with a varint length prefix.
func (e *Encoder) Bytes(v []byte) {
	e.Varint(uint64(len(v)))
	e.data = append(e.data, v...)
}

// StringUtf8 encodes v's UTF-8 bytes with a varint length prefix.
func (e *Encoder) StringUtf8(v string) {
	e.Varint(uint64(len(v)))
	e.data = append(e.data, v...)
}
