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
	"log/slog"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"lostluck.dev/flume-go/internal/flumeopts"
)

// Options configure Launch, ParDo, and Combine with specific features.
// Each function takes a variadic list of options, where properties
// set in later options override the value of previously set properties.
type Options = flumeopts.Options

// Name sets the name of the pipeline or transform in question, typically
// to make it easier to refer to.
func Name(name string) Options {
	return &flumeopts.Struct{
		Name: name,
	}
}

// Endpoint sets the url when applicable, such as a remote bucket service
// for tap storage.
func Endpoint(endpoint string) Options {
	return &flumeopts.Struct{
		Endpoint: endpoint,
	}
}

// TapBucket sets the blob bucket URL where materialized taps are
// persisted, such as "mem://" or "file:///var/flume/taps".
func TapBucket(url string) Options {
	return &flumeopts.Struct{
		TapBucket: url,
	}
}

// Logger directs the pipeline's structured logs to the given logger,
// instead of [slog.Default].
func Logger(l *slog.Logger) Options {
	return &flumeopts.Struct{
		Logger: l,
	}
}

// OptionsFromYAML parses launch options from a YAML document of the form:
//
//	name: my-pipeline
//	endpoint: https://blobs.example.com
//	tap_bucket: file:///var/flume/taps
//
// Unset fields are left to their defaults, so the result composes with
// other options.
func OptionsFromYAML(data []byte) (Options, error) {
	var cfg struct {
		Name      string `yaml:"name"`
		Endpoint  string `yaml:"endpoint"`
		TapBucket string `yaml:"tap_bucket"`
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing launch options")
	}
	return &flumeopts.Struct{
		Name:      cfg.Name,
		Endpoint:  cfg.Endpoint,
		TapBucket: cfg.TapBucket,
	}, nil
}
