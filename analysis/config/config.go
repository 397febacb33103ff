// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultMaxTraces is the number of witness traces enumerated per
// vulnerability when the problem does not set the maxTraces option.
const DefaultMaxTraces = 3

// Recognised keys of the per-problem option map. Unknown keys fail
// validation.
const (
	// OptionMaxPathLength bounds the number of vertices in an enumerated
	// witness trace. It filters trace enumeration only, never edge
	// production.
	OptionMaxPathLength = "maxPathLength"

	// OptionMaxTraces bounds the number of traces enumerated per
	// vulnerability.
	OptionMaxTraces = "maxTraces"

	// OptionPropagateThroughCalls makes the taint analysis carry taint from
	// call arguments to the call result when stepping over a call. Useful
	// when callees of library stubs cannot be resolved.
	OptionPropagateThroughCalls = "propagateThroughCalls"
)

// Config is the top-level configuration of an analysis run.
// Fields not defined in the config file keep the values set by NewDefault.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// Problems lists the dataflow problems to solve, one engine run each.
	Problems []ProblemSpec `yaml:"problems"`
}

// Options are the run-wide options shared by all problems.
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// MaxAlarms sets a limit for the number of alarms reported by an analysis. If MaxAlarms > 0, then at most
	// MaxAlarms will be reported. Otherwise, if MaxAlarms <= 0, it is ignored.
	MaxAlarms int `yaml:"max-alarms"`
}

// ProblemSpec identifies one dataflow problem: the analysis to run, the unit
// partitioning, the analysis options and the source/sink/sanitizer matchers.
type ProblemSpec struct {
	// Analysis names the analysis, e.g. "taint".
	Analysis string `yaml:"analysis"`

	// Unit selects the unit resolver, one of "method", "class", "package" or
	// "singleton". Empty selects "singleton".
	Unit string `yaml:"unit"`

	// Options is the per-analysis option map. Values are strings; recognised
	// keys are validated at load time.
	Options map[string]string `yaml:"options"`

	// Sources is the list of sources for the taint analysis
	Sources []CodeIdentifier `yaml:"sources"`

	// Sinks is the list of sinks for the taint analysis
	Sinks []CodeIdentifier `yaml:"sinks"`

	// Sanitizers is the list of sanitizers for the taint analysis
	Sanitizers []CodeIdentifier `yaml:"sanitizers"`
}

// MaxPathLength returns the trace-length bound, 0 when unbounded.
func (p ProblemSpec) MaxPathLength() int {
	return p.intOption(OptionMaxPathLength, 0)
}

// MaxTraces returns the per-vulnerability trace cap.
func (p ProblemSpec) MaxTraces() int {
	return p.intOption(OptionMaxTraces, DefaultMaxTraces)
}

// PropagateThroughCalls reports whether taint flows from call arguments to
// results when stepping over calls.
func (p ProblemSpec) PropagateThroughCalls() bool {
	v, ok := p.Options[OptionPropagateThroughCalls]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (p ProblemSpec) intOption(key string, dflt int) int {
	v, ok := p.Options[key]
	if !ok {
		return dflt
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return dflt
	}
	return n
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		Options: Options{
			LogLevel:  int(InfoLevel),
			MaxAlarms: 0,
		},
	}
}

// Load reads a configuration from a yaml file and validates it. Configuration
// errors fail fast: a config that loads is ready to run.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.sourceFile = filename
	return cfg, nil
}

// Parse unmarshals and validates a yaml configuration.
func Parse(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Source returns the file the config was loaded from, if any.
func (c Config) Source() string {
	if c.sourceFile == "" {
		return "unknown"
	}
	return c.sourceFile
}

// Validate checks unit resolver names, option keys and matcher patterns, and
// compiles every code identifier.
func (c *Config) Validate() error {
	for i := range c.Problems {
		p := &c.Problems[i]
		switch p.Unit {
		case "", "method", "class", "package", "singleton":
		default:
			return fmt.Errorf("problem %d: unknown unit resolver %q", i, p.Unit)
		}
		for key, val := range p.Options {
			switch key {
			case OptionMaxPathLength, OptionMaxTraces:
				if _, err := strconv.Atoi(val); err != nil {
					return fmt.Errorf("problem %d: option %s: %q is not an integer", i, key, val)
				}
			case OptionPropagateThroughCalls:
				if _, err := strconv.ParseBool(val); err != nil {
					return fmt.Errorf("problem %d: option %s: %q is not a boolean", i, key, val)
				}
			default:
				return fmt.Errorf("problem %d: unknown option %q", i, key)
			}
		}
		if err := compileCids(p.Sources); err != nil {
			return fmt.Errorf("problem %d: sources: %w", i, err)
		}
		if err := compileCids(p.Sinks); err != nil {
			return fmt.Errorf("problem %d: sinks: %w", i, err)
		}
		if err := compileCids(p.Sanitizers); err != nil {
			return fmt.Errorf("problem %d: sanitizers: %w", i, err)
		}
	}
	return nil
}
