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
	"fmt"

	"github.com/MchKosticyn/jacodb/analysis/config"
	"github.com/MchKosticyn/jacodb/analysis/ifds"
	"github.com/MchKosticyn/jacodb/internal/funcutil"
)

// analyzer implements the taint flow functions over any statement
// representation exposed through Lang. Facts are single tainted variables;
// the zero fact tracks plain reachability.
type analyzer[S, M comparable] struct {
	lang      Lang[S, M]
	spec      config.ProblemSpec
	propagate bool
}

// NewAnalyzer builds the taint analyzer for one problem spec. The spec's
// identifiers must have been compiled (config.Load does this).
func NewAnalyzer[S, M comparable](lang Lang[S, M], spec config.ProblemSpec) ifds.Analyzer[S, M, Fact] {
	return &analyzer[S, M]{
		lang:      lang,
		spec:      spec,
		propagate: spec.PropagateThroughCalls(),
	}
}

func (a *analyzer[S, M]) Name() string {
	return "taint"
}

func (a *analyzer[S, M]) Zero() Fact {
	return Zero
}

func (a *analyzer[S, M]) Initial(M) ([]Fact, error) {
	return []Fact{Zero}, nil
}

// Sequent kills a fact overwritten by an assignment and generates the
// assignee when a tainted variable is read.
func (a *analyzer[S, M]) Sequent(current, next S, fact Fact) ([]Fact, error) {
	if fact == Zero {
		return []Fact{Zero}, nil
	}
	var out []Fact
	asn, hasAsn := a.lang.Assignee(current)
	if !hasAsn || asn != fact.Var {
		out = append(out, fact)
	}
	if hasAsn && funcutil.Contains(a.lang.Operands(current), fact.Var) {
		out = append(out, Fact{Var: asn})
	}
	return dedup(out), nil
}

// CallToReturn steps over a call. Sources generate taint on their result;
// sanitizer results stay clean; a fact naming the call result is killed, the
// callee being the only thing that can regenerate it. With
// propagateThroughCalls, taint additionally flows from arguments to the
// result of non-sanitizer calls.
func (a *analyzer[S, M]) CallToReturn(call, returnSite S, fact Fact) ([]Fact, error) {
	pkg, name, isCall := a.lang.CallName(call)
	if !isCall {
		return nil, fmt.Errorf("call-to-return applied to non-call statement %v", call)
	}
	asn, hasAsn := a.lang.Assignee(call)
	if fact == Zero {
		out := []Fact{Zero}
		if hasAsn && config.MatchesAnyName(a.spec.Sources, pkg, name) {
			out = append(out, Fact{Var: asn})
		}
		return out, nil
	}
	var out []Fact
	if !hasAsn || asn != fact.Var {
		out = append(out, fact)
	}
	if a.propagate && hasAsn && !config.MatchesAnyName(a.spec.Sanitizers, pkg, name) &&
		funcutil.Contains(a.lang.Args(call), fact.Var) {
		out = append(out, Fact{Var: asn})
	}
	return dedup(out), nil
}

// CallToStart renames tainted arguments to the callee's parameters.
func (a *analyzer[S, M]) CallToStart(call, calleeEntry S, fact Fact) ([]Fact, error) {
	if fact == Zero {
		return []Fact{Zero}, nil
	}
	args := a.lang.Args(call)
	params := a.lang.Params(calleeEntry)
	var out []Fact
	for i, arg := range args {
		if arg == fact.Var && i < len(params) {
			out = append(out, Fact{Var: params[i]})
		}
	}
	return dedup(out), nil
}

// ExitToReturnSite maps a tainted return value of the callee to the call
// result in the caller.
func (a *analyzer[S, M]) ExitToReturnSite(call, returnSite, exit S, fact Fact) ([]Fact, error) {
	if fact == Zero {
		return []Fact{Zero}, nil
	}
	asn, hasAsn := a.lang.Assignee(call)
	if hasAsn && funcutil.Contains(a.lang.Returned(exit), fact.Var) {
		return []Fact{{Var: asn}}, nil
	}
	return nil, nil
}

// IsSink reports a vertex passing a tainted variable to a sink call.
func (a *analyzer[S, M]) IsSink(v ifds.Vertex[S, Fact]) (string, bool) {
	if v.Fact == Zero {
		return "", false
	}
	pkg, name, isCall := a.lang.CallName(v.Stmt)
	if !isCall || !config.MatchesAnyName(a.spec.Sinks, pkg, name) {
		return "", false
	}
	if !funcutil.Contains(a.lang.Args(v.Stmt), v.Fact.Var) {
		return "", false
	}
	return fmt.Sprintf("tainted value %s reaches sink %s.%s", v.Fact.Var, pkg, name), true
}

func dedup(facts []Fact) []Fact {
	if len(facts) < 2 {
		return facts
	}
	seen := map[Fact]bool{}
	out := facts[:0]
	for _, f := range facts {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
