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

// Taint runs the configured taint-tracking problems on Go packages and
// prints the vulnerability report as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/MchKosticyn/jacodb/analysis/config"
	"github.com/MchKosticyn/jacodb/analysis/format"
	"github.com/MchKosticyn/jacodb/analysis/ssagraph"
	"github.com/MchKosticyn/jacodb/analysis/taint"
	"golang.org/x/tools/go/ssa"
)

var (
	configPath = flag.String("config", "", "Config file path for taint analysis")
)

var buildmode = ssa.BuilderMode(0)

func init() {
	flag.Var(&buildmode, "build", ssa.BuilderModeDoc)
}

const usage = ` Perform taint analysis on your packages.
Usage:
    taint -config config.yaml [options] <package path(s)>
`

func main() {
	flag.Parse()

	if flag.NArg() == 0 || *configPath == "" {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	logger := config.NewLogGroup(cfg)

	logger.Infof(format.Faint("Reading sources"))
	program, err := ssagraph.LoadProgram(nil, buildmode, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load program: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := ssagraph.New(program.Program)
	start := time.Now()
	report, err := taint.Analyze(ctx, logger, cfg, app, app, app, program.Roots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Analysis took %3.4f s", time.Since(start).Seconds())

	if len(report.Vulnerabilities) > 0 {
		logger.Infof(format.Red(fmt.Sprintf("%d vulnerability(ies) found", len(report.Vulnerabilities))))
	} else {
		logger.Infof(format.Green("no vulnerabilities found"))
	}
	if err := report.WriteJSON(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "could not write report: %v\n", err)
		os.Exit(1)
	}
}
