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

// Package tapstore persists materialized tap output as framed blobs.
//
// A tap's elements are stored under a single key as a list of encoded
// element frames, so readers can replay them without knowing the element
// type. Buckets are addressed by gocloud blob URLs, with the in memory
// and file schemes linked in for local runs.
package tapstore

import (
	"context"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // enable file:// bucket urls
	_ "gocloud.dev/blob/memblob"  // enable mem:// bucket urls

	"lostluck.dev/flume-go/coders"
)

// frameCoder lays out a blob as a count prefixed list of length
// prefixed element frames.
var frameCoder = coders.MakeCoder[[][]byte]()

// Store reads and writes tap frames in a single bucket.
type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket at the given gocloud URL, such as "mem://" or
// "file:///tmp/taps".
func Open(ctx context.Context, url string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %q", url)
	}
	return &Store{bucket: bucket}, nil
}

// Close releases the underlying bucket. Taps read from this store are
// invalid afterwards.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Write persists the element frames under key, replacing any prior
// content.
func (s *Store) Write(ctx context.Context, key string, frames [][]byte) error {
	enc := coders.NewEncoder()
	frameCoder.Encode(enc, frames)
	if err := s.bucket.WriteAll(ctx, key, enc.Data(), nil); err != nil {
		return errors.Wrapf(err, "writing %d frames to %q", len(frames), key)
	}
	return nil
}

// Read returns all element frames stored under key.
func (s *Store) Read(ctx context.Context, key string) ([][]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", key)
	}
	frames, err := coders.TryDecode(frameCoder, data)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt frames at %q", key)
	}
	return frames, nil
}
