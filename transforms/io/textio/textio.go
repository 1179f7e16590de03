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

// Package textio reads and writes newline delimited text through
// gocloud blob buckets.
package textio

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"golang.org/x/text/encoding"

	"lostluck.dev/flume-go"
)

// Option configures Read and Write.
type Option func(*config)

type config struct {
	enc encoding.Encoding
}

// WithEncoding sets the character encoding of the file, such as
// [golang.org/x/text/encoding/charmap.ISO8859_1]. Elements are always
// UTF-8 in the pipeline; the encoding applies at the bucket boundary.
func WithEncoding(e encoding.Encoding) Option {
	return func(c *config) {
		c.enc = e
	}
}

// Read emits each line of the blob at key as a string element.
func Read(s *flume.Scope, bucket *blob.Bucket, key string, opts ...Option) flume.PCol[string] {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	imp := flume.Impulse(s)
	fn := flume.ParDo(s, imp, &readFn{bucket: bucket, key: key, enc: cfg.enc}, flume.Name("textio.Read "+key))
	return fn.Output
}

type readFn struct {
	bucket *blob.Bucket
	key    string
	enc    encoding.Encoding

	Output flume.PCol[string]
}

func (fn *readFn) ProcessBundle(dfc *flume.DFC[[]byte]) error {
	return dfc.Process(func(ec flume.ElmC, _ []byte) error {
		data, err := fn.bucket.ReadAll(context.Background(), fn.key)
		if err != nil {
			return errors.Wrapf(err, "reading %q", fn.key)
		}
		if fn.enc != nil {
			data, err = fn.enc.NewDecoder().Bytes(data)
			if err != nil {
				return errors.Wrapf(err, "transcoding %q", fn.key)
			}
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(nil, 16*1024*1024)
		for sc.Scan() {
			fn.Output.Emit(ec, sc.Text())
		}
		return errors.Wrapf(sc.Err(), "scanning %q", fn.key)
	})
}

// Write stores the input collection as newline terminated lines in the
// blob at key, in element arrival order.
func Write(s *flume.Scope, input flume.PCol[string], bucket *blob.Bucket, key string, opts ...Option) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	flume.ParDo(s, input, &writeFn{bucket: bucket, key: key, enc: cfg.enc}, flume.Name("textio.Write "+key))
}

type writeFn struct {
	flume.OnBundleFinish

	bucket *blob.Bucket
	key    string
	enc    encoding.Encoding

	lines []string
}

func (fn *writeFn) ProcessBundle(dfc *flume.DFC[string]) error {
	fn.OnBundleFinish.Do(dfc, func() error {
		var sb strings.Builder
		for _, line := range fn.lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		data := []byte(sb.String())
		if fn.enc != nil {
			var err error
			data, err = fn.enc.NewEncoder().Bytes(data)
			if err != nil {
				return errors.Wrapf(err, "transcoding %q", fn.key)
			}
		}
		return errors.Wrapf(fn.bucket.WriteAll(context.Background(), fn.key, data, nil), "writing %q", fn.key)
	})
	return dfc.Process(func(ec flume.ElmC, line string) error {
		fn.lines = append(fn.lines, line)
		return nil
	})
}
