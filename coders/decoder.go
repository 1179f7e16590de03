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
	"fmt"
	"math"
)

// Decoder reads primitive values back out of a byte buffer produced by an
// Encoder.
//
// Decoder methods abort on the first structural inconsistency, such as a
// truncated buffer, via an internal panic. The panic is recovered and
// converted to a [DecodeError] by the package level entry points, so
// malformed input never produces a partial value.
//
// A Decoder must not be shared between goroutines.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder returns a Decoder over the given bytes.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Empty reports whether the decoder has consumed all its input.
func (d *Decoder) Empty() bool {
	return d.pos >= len(d.data)
}

// Fail aborts decoding with a DecodeError, unwinding to the nearest
// package entry point. Exported so Coder implementations in other
// packages share the same deterministic failure path; it must only be
// called beneath an entry point that recovers it, such as [TryDecode].
func (d *Decoder) Fail(format string, args ...any) {
	panic(coderError{&DecodeError{Err: fmt.Errorf(format, args...)}})
}

func (d *Decoder) read(n int) []byte {
	if n < 0 || d.pos+n > len(d.data) {
		d.Fail("truncated input: need %d bytes at offset %d of %d", n, d.pos, len(d.data))
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

// Byte decodes a single raw byte.
func (d *Decoder) Byte() byte {
	return d.read(1)[0]
}

// Bool decodes a single byte bool.
func (d *Decoder) Bool() bool {
	switch b := d.Byte(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		d.Fail("invalid bool byte %#x", b)
		return false
	}
}

// Varint decodes an unsigned LEB128 varint.
func (d *Decoder) Varint() uint64 {
	v, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 {
		d.Fail("truncated or overlong varint at offset %d", d.pos)
	}
	d.pos += n
	return v
}

// Int16 decodes 2 big endian bytes.
func (d *Decoder) Int16() int16 {
	return int16(d.Uint16())
}

// Int32 decodes 4 big endian bytes.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

// Int64 decodes 8 big endian bytes.
func (d *Decoder) Int64() int64 {
	return int64(d.Uint64())
}

// Uint16 decodes 2 big endian bytes.
func (d *Decoder) Uint16() uint16 {
	return binary.BigEndian.Uint16(d.read(2))
}

// Uint32 decodes 4 big endian bytes.
func (d *Decoder) Uint32() uint32 {
	return binary.BigEndian.Uint32(d.read(4))
}

// Uint64 decodes 8 big endian bytes.
func (d *Decoder) Uint64() uint64 {
	return binary.BigEndian.Uint64(d.read(8))
}

// Float decodes 4 big endian IEEE 754 bytes.
func (d *Decoder) Float() float32 {
	return math.Float32frombits(d.Uint32())
}

// Double decodes 8 big endian IEEE 754 bytes.
func (d *Decoder) Double() float64 {
	return math.Float64frombits(d.Uint64())
}

// Bytes decodes a varint length prefixed byte slice.
//
// The returned slice is a copy, valid after the decoder's buffer is reused.
func (d *Decoder) Bytes() []byte {
	n := d.Varint()
	if n > uint64(len(d.data)-d.pos) {
		d.Fail("truncated input: %d byte payload at offset %d of %d", n, d.pos, len(d.data))
	}
	out := make([]byte, n)
	copy(out, d.read(int(n)))
	return out
}

// StringUtf8 decodes a varint length prefixed UTF-8 string.
func (d *Decoder) StringUtf8() string {
	n := d.Varint()
	if n > uint64(len(d.data)-d.pos) {
		d.Fail("truncated input: %d byte string at offset %d of %d", n, d.pos, len(d.data))
	}
	return string(d.read(int(n)))
}
