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
	"testing"

	"github.com/MchKosticyn/jacodb/analysis/config"
)

// pstmt identifies a statement of the test program by method name and index.
type pstmt struct {
	m string
	i int
}

func (s pstmt) String() string {
	return fmt.Sprintf("%s:%d", s.m, s.i)
}

const (
	opNop = iota
	opAssign
	opCall
	opReturn
)

type pinstr struct {
	kind              int
	def               string
	uses              []string
	callPkg, callName string
	args              []string
	callees           []string
	rets              []string
	text              string
}

type pmethod struct {
	name   string
	class  string
	pkg    string
	params []string
	stmts  []pinstr
}

// prog is a three-address test program implementing the application graph,
// the taint Lang and the source rendering interfaces. Control flow is linear;
// the last statement of each method is its only exit.
type prog struct {
	methods map[string]*pmethod
}

func newProg() *prog {
	return &prog{methods: map[string]*pmethod{}}
}

func (p *prog) method(name, pkg string, params ...string) *pmethod {
	m := &pmethod{name: name, pkg: pkg, params: params}
	p.methods[name] = m
	return m
}

func (m *pmethod) assign(def string, uses ...string) *pmethod {
	m.stmts = append(m.stmts, pinstr{
		kind: opAssign, def: def, uses: uses,
		text: fmt.Sprintf("%s = %v", def, uses),
	})
	return m
}

func (m *pmethod) call(def, pkg, name string, args []string, callees ...string) *pmethod {
	m.stmts = append(m.stmts, pinstr{
		kind: opCall, def: def, callPkg: pkg, callName: name, args: args, callees: callees,
		text: fmt.Sprintf("%s = %s.%s(%v)", def, pkg, name, args),
	})
	return m
}

func (m *pmethod) ret(vars ...string) *pmethod {
	m.stmts = append(m.stmts, pinstr{kind: opReturn, rets: vars, text: fmt.Sprintf("return %v", vars)})
	return m
}

func (p *prog) instr(s pstmt) (*pinstr, error) {
	m, ok := p.methods[s.m]
	if !ok || s.i < 0 || s.i >= len(m.stmts) {
		return nil, fmt.Errorf("no statement %v", s)
	}
	return &m.stmts[s.i], nil
}

// Application graph.

func (p *prog) EntryPoints(m string) ([]pstmt, error) {
	pm, ok := p.methods[m]
	if !ok || len(pm.stmts) == 0 {
		return nil, fmt.Errorf("method %s has no body", m)
	}
	return []pstmt{{m, 0}}, nil
}

func (p *prog) ExitPoints(m string) ([]pstmt, error) {
	pm, ok := p.methods[m]
	if !ok {
		return nil, fmt.Errorf("unknown method %s", m)
	}
	var exits []pstmt
	for i := range pm.stmts {
		if pm.stmts[i].kind == opReturn {
			exits = append(exits, pstmt{m, i})
		}
	}
	return exits, nil
}

func (p *prog) Successors(s pstmt) ([]pstmt, error) {
	pm, ok := p.methods[s.m]
	if !ok {
		return nil, fmt.Errorf("no statement %v", s)
	}
	if s.i+1 < len(pm.stmts) {
		return []pstmt{{s.m, s.i + 1}}, nil
	}
	return nil, nil
}

func (p *prog) MethodOf(s pstmt) (string, error) {
	if _, ok := p.methods[s.m]; !ok {
		return "", fmt.Errorf("no statement %v", s)
	}
	return s.m, nil
}

func (p *prog) Callees(s pstmt) ([]string, error) {
	in, err := p.instr(s)
	if err != nil {
		return nil, err
	}
	return in.callees, nil
}

func (p *prog) IsCall(s pstmt) bool {
	in, err := p.instr(s)
	return err == nil && in.kind == opCall
}

func (p *prog) IsExit(s pstmt) bool {
	in, err := p.instr(s)
	return err == nil && in.kind == opReturn
}

// Lang.

func (p *prog) CallName(s pstmt) (string, string, bool) {
	in, err := p.instr(s)
	if err != nil || in.kind != opCall {
		return "", "", false
	}
	return in.callPkg, in.callName, true
}

func (p *prog) Args(s pstmt) []string {
	in, err := p.instr(s)
	if err != nil {
		return nil
	}
	return in.args
}

func (p *prog) Assignee(s pstmt) (string, bool) {
	in, err := p.instr(s)
	if err != nil || in.def == "" {
		return "", false
	}
	return in.def, true
}

func (p *prog) Operands(s pstmt) []string {
	in, err := p.instr(s)
	if err != nil {
		return nil
	}
	return in.uses
}

func (p *prog) Params(entry pstmt) []string {
	pm, ok := p.methods[entry.m]
	if !ok {
		return nil
	}
	return pm.params
}

func (p *prog) Returned(exit pstmt) []string {
	in, err := p.instr(exit)
	if err != nil {
		return nil
	}
	return in.rets
}

// Source rendering.

func (p *prog) MethodName(m string) string { return m }

func (p *prog) ClassName(m string) string {
	if pm, ok := p.methods[m]; ok {
		return pm.class
	}
	return ""
}

func (p *prog) PackageName(m string) string {
	if pm, ok := p.methods[m]; ok {
		return pm.pkg
	}
	return ""
}

func (p *prog) Line(s pstmt) int { return s.i + 1 }

func (p *prog) Text(s pstmt) string {
	in, err := p.instr(s)
	if err != nil {
		return s.String()
	}
	return in.text
}

func testSpec(t *testing.T, yaml string) (*config.Config, config.ProblemSpec) {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Problems) == 0 {
		t.Fatal("no problems in test config")
	}
	return cfg, cfg.Problems[0]
}

const taintConfig = `
problems:
  - analysis: taint
    unit: singleton
    sources:
      - {package: lib, method: source}
    sinks:
      - {method: sink}
    sanitizers:
      - {method: sanitize}
`
