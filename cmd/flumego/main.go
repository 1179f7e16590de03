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

// flumego runs a demonstration pipeline, materializing the squares of
// the first N integers into a tap and replaying them as a second
// pipeline that sums them.
//
// Options may also be loaded from a YAML file via -config, with flags
// taking precedence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"lostluck.dev/flume-go"
	"lostluck.dev/flume-go/internal/joblog"
)

var (
	count     = flag.Int("n", 10, "how many integers to square")
	tapBucket = flag.String("tap_bucket", "mem://", "blob bucket url for tap storage")
	config    = flag.String("config", "", "optional YAML file of launch options")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	entries := make(chan joblog.Entry, 100)
	go func() {
		for e := range entries {
			fmt.Fprintf(os.Stderr, "%s %s %s pipeline=%q transform=%q %v\n",
				e.Time.Format("15:04:05.000"), e.Level, e.Message, e.Pipeline, e.Transform, e.Attrs)
		}
	}()
	logger := slog.New(joblog.NewHandler(entries, &joblog.HandlerOptions{Level: slog.LevelInfo}))

	opts := []flume.Options{
		flume.Name("flumego-demo"),
		flume.TapBucket(*tapBucket),
		flume.Logger(logger),
	}
	if *config != "" {
		data, err := os.ReadFile(*config)
		if err != nil {
			fatalf("reading config: %v", err)
		}
		fromYAML, err := flume.OptionsFromYAML(data)
		if err != nil {
			fatalf("parsing config: %v", err)
		}
		opts = append([]flume.Options{fromYAML}, opts...)
	}

	var fut *flume.TapFuture[int]
	if _, err := flume.LaunchAndWait(ctx, func(s *flume.Scope) error {
		imp := flume.Impulse(s)
		src := flume.ParDo(s, imp, &flume.SourceFn{Count: *count})
		squares := flume.Map(s, src.Output, func(v int) int { return v * v })
		fut = flume.Materialize(s, squares)
		return nil
	}, opts...); err != nil {
		fatalf("squares pipeline failed: %v", err)
	}

	tap, err := fut.Result(ctx)
	if err != nil {
		fatalf("tap unavailable: %v", err)
	}

	total := 0
	for v := range tap.Values() {
		total += v
	}
	fmt.Printf("sum of the first %d squares: %d\n", *count, total)
	close(entries)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
