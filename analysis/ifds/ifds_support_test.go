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

package ifds

import (
	"context"
	"fmt"

	"github.com/MchKosticyn/jacodb/analysis/config"
)

// tstmt identifies a statement in a test program: a method name and an index
// within the method.
type tstmt struct {
	m string
	i int
}

func (s tstmt) String() string {
	return fmt.Sprintf("%s:%d", s.m, s.i)
}

// tgraph is a hand-built application graph. Methods are identified by name;
// the helper methods build linear bodies with optional extra branches.
type tgraph struct {
	entries map[string][]tstmt
	exits   map[string][]tstmt
	succs   map[tstmt][]tstmt
	calls   map[tstmt][]string
	isCall  map[tstmt]bool
	isExit  map[tstmt]bool
	classes map[string]string

	// brokenSuccs makes Successors fail for the given statements, simulating
	// an inconsistent application graph.
	brokenSuccs map[tstmt]bool
}

func newTGraph() *tgraph {
	return &tgraph{
		entries:     map[string][]tstmt{},
		exits:       map[string][]tstmt{},
		succs:       map[tstmt][]tstmt{},
		calls:       map[tstmt][]string{},
		isCall:      map[tstmt]bool{},
		isExit:      map[tstmt]bool{},
		classes:     map[string]string{},
		brokenSuccs: map[tstmt]bool{},
	}
}

// linear adds a method with n statements 0..n-1 chained in order; the last
// statement is the only exit.
func (g *tgraph) linear(method string, n int) {
	g.entries[method] = []tstmt{{method, 0}}
	for i := 0; i < n-1; i++ {
		u, v := tstmt{method, i}, tstmt{method, i + 1}
		g.succs[u] = append(g.succs[u], v)
	}
	last := tstmt{method, n - 1}
	g.exits[method] = []tstmt{last}
	g.isExit[last] = true
}

// edge adds an extra control-flow edge.
func (g *tgraph) edge(u, v tstmt) {
	g.succs[u] = append(g.succs[u], v)
}

// exit marks an additional exit statement.
func (g *tgraph) exit(s tstmt) {
	if !g.isExit[s] {
		g.isExit[s] = true
		g.exits[s.m] = append(g.exits[s.m], s)
	}
}

// call marks s as a call site resolving to the given methods. No methods
// means an unresolved call.
func (g *tgraph) call(s tstmt, callees ...string) {
	g.isCall[s] = true
	g.calls[s] = callees
}

func (g *tgraph) EntryPoints(m string) ([]tstmt, error) {
	es, ok := g.entries[m]
	if !ok {
		return nil, fmt.Errorf("unknown method %s", m)
	}
	return es, nil
}

func (g *tgraph) ExitPoints(m string) ([]tstmt, error) {
	if _, ok := g.entries[m]; !ok {
		return nil, fmt.Errorf("unknown method %s", m)
	}
	return g.exits[m], nil
}

func (g *tgraph) Successors(s tstmt) ([]tstmt, error) {
	if g.brokenSuccs[s] {
		return nil, fmt.Errorf("no successors recorded for %v", s)
	}
	return g.succs[s], nil
}

func (g *tgraph) MethodOf(s tstmt) (string, error) {
	if _, ok := g.entries[s.m]; !ok {
		return "", fmt.Errorf("statement %v belongs to no method", s)
	}
	return s.m, nil
}

func (g *tgraph) Callees(s tstmt) ([]string, error) {
	if !g.isCall[s] {
		return nil, fmt.Errorf("statement %v is not a call site", s)
	}
	return g.calls[s], nil
}

func (g *tgraph) IsCall(s tstmt) bool { return g.isCall[s] }
func (g *tgraph) IsExit(s tstmt) bool { return g.isExit[s] }

// tinfo names methods for unit resolvers. Class defaults to the empty
// string, package to "test".
type tinfo struct {
	g *tgraph
}

func (ti tinfo) MethodName(m string) string { return m }
func (ti tinfo) ClassName(m string) string  { return ti.g.classes[m] }
func (ti tinfo) PackageName(string) string  { return "test" }

// zero is the zero fact of all test analyzers.
const zero = "0"

// tanalyzer builds an analyzer from per-hook closures; every hook defaults to
// the identity transfer.
type tanalyzer struct {
	name string
	seq  func(cur, next tstmt, f string) []string
	c2r  func(call, ret tstmt, f string) []string
	c2s  func(call, entry tstmt, f string) []string
	e2r  func(call, ret, exit tstmt, f string) []string
	sink func(v Vertex[tstmt, string]) (string, bool)

	seqErr map[tstmt]error
}

func identity(_, _ tstmt, f string) []string { return []string{f} }

func newTAnalyzer() *tanalyzer {
	return &tanalyzer{
		name: "test",
		seq:  identity,
		c2r:  identity,
		c2s:  identity,
		e2r:  func(_, _, _ tstmt, f string) []string { return []string{f} },
		sink: func(Vertex[tstmt, string]) (string, bool) { return "", false },
	}
}

func (a *tanalyzer) Name() string { return a.name }
func (a *tanalyzer) Zero() string { return zero }

func (a *tanalyzer) Initial(string) ([]string, error) {
	return []string{zero}, nil
}

func (a *tanalyzer) Sequent(cur, next tstmt, f string) ([]string, error) {
	if err := a.seqErr[cur]; err != nil {
		return nil, err
	}
	return a.seq(cur, next, f), nil
}

func (a *tanalyzer) CallToReturn(call, ret tstmt, f string) ([]string, error) {
	return a.c2r(call, ret, f), nil
}

func (a *tanalyzer) CallToStart(call, entry tstmt, f string) ([]string, error) {
	return a.c2s(call, entry, f), nil
}

func (a *tanalyzer) ExitToReturnSite(call, ret, exit tstmt, f string) ([]string, error) {
	return a.e2r(call, ret, exit, f), nil
}

func (a *tanalyzer) IsSink(v Vertex[tstmt, string]) (string, bool) {
	return a.sink(v)
}

// sinkAt declares a single sink vertex.
func (a *tanalyzer) sinkAt(s tstmt, fact string) {
	a.sink = func(v Vertex[tstmt, string]) (string, bool) {
		if v.Stmt == s && v.Fact == fact {
			return fmt.Sprintf("fact %s reaches %v", fact, s), true
		}
		return "", false
	}
}

func testLogger() *config.LogGroup {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	return config.NewLogGroup(cfg)
}

// runSolver runs a manager over the test graph to completion.
func runSolver(g *tgraph, a *tanalyzer, resolve UnitResolver[string], methods ...string) *Result[tstmt, string, string] {
	mgr := NewManager[tstmt, string, string](g, a, resolve, testLogger())
	return mgr.Run(context.Background(), methods)
}

// taintedProgram builds the straight-line program
//
//	main:0  x = source()
//	main:1  y = x
//	main:2  sink(y)
//	main:3  return
//
// with facts named after the tainted variable.
func taintedProgram() (*tgraph, *tanalyzer) {
	g := newTGraph()
	g.linear("main", 4)
	g.call(tstmt{"main", 0})
	g.call(tstmt{"main", 2})

	a := newTAnalyzer()
	a.c2r = func(call, _ tstmt, f string) []string {
		if call == (tstmt{"main", 0}) && f == zero {
			return []string{zero, "x"}
		}
		return []string{f}
	}
	a.seq = func(cur, _ tstmt, f string) []string {
		if cur == (tstmt{"main", 1}) && f == "x" {
			return []string{"x", "y"}
		}
		return []string{f}
	}
	a.sinkAt(tstmt{"main", 2}, "y")
	return g, a
}

// interprocProgram builds
//
//	main:0  x = source()
//	main:1  y = f(x)
//	main:2  sink(y)
//	main:3  return
//	f:0     entry (param a)
//	f:1     return a
func interprocProgram() (*tgraph, *tanalyzer) {
	g := newTGraph()
	g.linear("main", 4)
	g.linear("f", 2)
	g.call(tstmt{"main", 0})
	g.call(tstmt{"main", 1}, "f")
	g.call(tstmt{"main", 2})

	a := newTAnalyzer()
	a.c2r = func(call, _ tstmt, f string) []string {
		if call == (tstmt{"main", 0}) && f == zero {
			return []string{zero, "x"}
		}
		return []string{f}
	}
	a.c2s = func(_, _ tstmt, f string) []string {
		switch f {
		case zero:
			return []string{zero}
		case "x":
			return []string{"a"}
		}
		return nil
	}
	a.e2r = func(_, _, _ tstmt, f string) []string {
		switch f {
		case zero:
			return []string{zero}
		case "a":
			return []string{"y"}
		}
		return nil
	}
	a.sinkAt(tstmt{"main", 2}, "y")
	return g, a
}
