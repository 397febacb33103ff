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

// Package taint runs taint-tracking dataflow problems on the ifds engine.
// Sources, sinks and sanitizers come from the configuration; the statement
// representation is abstracted behind Lang.
package taint

import (
	"context"
	"fmt"
	"time"

	"github.com/MchKosticyn/jacodb/analysis/config"
	"github.com/MchKosticyn/jacodb/analysis/ifds"
	"github.com/MchKosticyn/jacodb/internal/funcutil"
)

// AnalysisName is the analysis identifier recognised in problem specs.
const AnalysisName = "taint"

// Analyze solves every taint problem in cfg over the given application graph
// and renders the report. Problems run in parallel; each gets its own engine
// run with its own unit partitioning. Cancelling ctx yields a partial report.
func Analyze[S, M comparable](
	ctx context.Context,
	logger *config.LogGroup,
	cfg *config.Config,
	graph ifds.Graph[S, M],
	lang Lang[S, M],
	info ifds.SourceInfo[S, M],
	entryPoints []M,
) (*Report, error) {
	for _, p := range cfg.Problems {
		if p.Analysis != AnalysisName {
			return nil, fmt.Errorf("unknown analysis %q in %s", p.Analysis, cfg.Source())
		}
	}

	type job struct {
		spec    config.ProblemSpec
		resolve ifds.UnitResolver[M]
	}
	var jobs []job
	for _, p := range cfg.Problems {
		resolve, err := ifds.ResolverByName(p.Unit, info)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{spec: p, resolve: resolve})
	}

	start := time.Now()
	results := funcutil.MapParallel(jobs, func(j job) *Report {
		mgr := ifds.NewManager[S, M, Fact](graph, NewAnalyzer[S, M](lang, j.spec), j.resolve, logger)
		res := mgr.Run(ctx, entryPoints)
		return render(graph, info, j.spec, res)
	}, len(jobs))
	logger.Infof("taint: %d problem(s) solved in %.2f s", len(jobs), time.Since(start).Seconds())

	report := &Report{}
	for _, r := range results {
		report.merge(r)
	}
	if cfg.MaxAlarms > 0 && len(report.Vulnerabilities) > cfg.MaxAlarms {
		logger.Warnf("taint: truncating report to %d of %d alarms", cfg.MaxAlarms, len(report.Vulnerabilities))
		report.Vulnerabilities = report.Vulnerabilities[:cfg.MaxAlarms]
	}
	return report, nil
}
