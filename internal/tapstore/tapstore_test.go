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

package tapstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	urls := map[string]string{
		"mem":  "mem://",
		"file": "file://" + filepath.ToSlash(t.TempDir()),
	}
	for name, url := range urls {
		t.Run(name, func(t *testing.T) {
			s, err := Open(ctx, url)
			if err != nil {
				t.Fatalf("Open(%q) failed: %v", url, err)
			}
			want := [][]byte{[]byte("one"), {}, []byte("three")}
			if err := s.Write(ctx, "taps/some-id", want); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			got, err := s.Read(ctx, "taps/some-id")
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if d := cmp.Diff(want, got); d != "" {
				t.Errorf("frames differ (-want, +got):\n%v", d)
			}
		})
	}
}

func TestStoreRead_missingKey(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "mem://")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Read(ctx, "taps/never-written"); err == nil {
		t.Error("expected an error reading a missing key")
	}
}

func TestStoreWrite_overwrites(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "mem://")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Write(ctx, "taps/id", [][]byte{[]byte("old")}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Write(ctx, "taps/id", [][]byte{[]byte("new")}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := s.Read(ctx, "taps/id")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 1 || string(got[0]) != "new" {
		t.Errorf("got %q, want single frame %q", got, "new")
	}
}
