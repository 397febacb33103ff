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

package taint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MchKosticyn/jacodb/analysis/config"
	"github.com/MchKosticyn/jacodb/analysis/ifds"
	"github.com/MchKosticyn/jacodb/internal/funcutil"
)

// Vulnerability is the reported form of a sink hit: the sink, the zero-fact
// sources witnessing it and up to maxTraces witness traces. Each trace
// element renders one (method, line, statement) step.
type Vulnerability struct {
	VulnerabilityType string     `json:"vulnerabilityType"`
	Sources           []string   `json:"sources"`
	Sink              string     `json:"sink"`
	Traces            [][]string `json:"traces"`
}

// Report is the user-facing result of an analysis run.
type Report struct {
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`

	// IncompleteMethods lists methods whose results are partial because the
	// application graph reported an inconsistency.
	IncompleteMethods []string `json:"incompleteMethods,omitempty"`

	// Interrupted is true when the run was cancelled before completion.
	Interrupted bool `json:"interrupted,omitempty"`
}

// WriteJSON serialises the report.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Report) merge(other *Report) {
	r.Vulnerabilities = append(r.Vulnerabilities, other.Vulnerabilities...)
	r.IncompleteMethods = append(r.IncompleteMethods, other.IncompleteMethods...)
	r.Interrupted = r.Interrupted || other.Interrupted
}

// render builds the report for one engine run: a trace graph per sink hit,
// trace enumeration bounded by the problem's maxTraces and maxPathLength
// options.
func render[S, M comparable](
	graph ifds.Graph[S, M],
	info ifds.SourceInfo[S, M],
	spec config.ProblemSpec,
	res *ifds.Result[S, M, Fact],
) *Report {
	report := &Report{Interrupted: res.Interrupted}

	for _, vuln := range res.Vulnerabilities {
		tg := ifds.BuildTraceGraph(res, vuln.Sink)

		sources := map[string]bool{}
		for src := range tg.Sources {
			sources[renderVertex(graph, info, src)] = true
		}

		traces := funcutil.Map(tg.Traces(spec.MaxTraces(), spec.MaxPathLength()),
			func(trace []ifds.Vertex[S, Fact]) []string {
				return funcutil.Map(trace, func(v ifds.Vertex[S, Fact]) string {
					return renderVertex(graph, info, v)
				})
			})

		report.Vulnerabilities = append(report.Vulnerabilities, Vulnerability{
			VulnerabilityType: vuln.Rule,
			Sources:           funcutil.SetToOrderedSlice(sources),
			Sink:              renderVertex(graph, info, vuln.Sink),
			Traces:            traces,
		})
	}

	incomplete := map[string]bool{}
	for m := range res.Incomplete {
		incomplete[qualifiedName(info, m)] = true
	}
	report.IncompleteMethods = funcutil.SetToOrderedSlice(incomplete)
	return report
}

func renderVertex[S, M comparable](graph ifds.Graph[S, M], info ifds.SourceInfo[S, M], v ifds.Vertex[S, Fact]) string {
	method := "?"
	if m, err := graph.MethodOf(v.Stmt); err == nil {
		method = qualifiedName(info, m)
	}
	return fmt.Sprintf("%s:%d: %s", method, info.Line(v.Stmt), info.Text(v.Stmt))
}

func qualifiedName[M comparable](info ifds.MethodInfo[M], m M) string {
	name := info.MethodName(m)
	if cls := info.ClassName(m); cls != "" {
		name = cls + "." + name
	}
	if pkg := info.PackageName(m); pkg != "" {
		name = pkg + "." + name
	}
	return name
}
