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

// Package ssagraph adapts an SSA program built with golang.org/x/tools to
// the interfaces of the ifds engine: statements are ssa.Instruction values,
// methods are *ssa.Function.
package ssagraph

import (
	"fmt"

	"golang.org/x/tools/go/ssa"
)

// Program wraps an ssa.Program as an application graph. All methods are
// read-only and safe for concurrent use once the program has been built.
type Program struct {
	Prog *ssa.Program
}

// New returns the application-graph view of prog.
func New(prog *ssa.Program) *Program {
	return &Program{Prog: prog}
}

// EntryPoints returns the first instruction of the function body. Functions
// without a body (external or unreachable by the builder) are reported as an
// inconsistency and end up marked incomplete.
func (p *Program) EntryPoints(f *ssa.Function) ([]ssa.Instruction, error) {
	if len(f.Blocks) == 0 || len(f.Blocks[0].Instrs) == 0 {
		return nil, fmt.Errorf("function %s has no body", f)
	}
	return []ssa.Instruction{f.Blocks[0].Instrs[0]}, nil
}

// ExitPoints returns every return instruction of f.
func (p *Program) ExitPoints(f *ssa.Function) ([]ssa.Instruction, error) {
	if len(f.Blocks) == 0 {
		return nil, fmt.Errorf("function %s has no body", f)
	}
	var exits []ssa.Instruction
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if _, ok := instr.(*ssa.Return); ok {
				exits = append(exits, instr)
			}
		}
	}
	return exits, nil
}

// Successors returns the next instruction in the block, or the first
// instruction of every successor block at a block boundary.
func (p *Program) Successors(s ssa.Instruction) ([]ssa.Instruction, error) {
	b := s.Block()
	if b == nil {
		return nil, fmt.Errorf("instruction %v belongs to no block", s)
	}
	idx := -1
	for i, instr := range b.Instrs {
		if instr == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("instruction %v not found in its block", s)
	}
	if idx+1 < len(b.Instrs) {
		return []ssa.Instruction{b.Instrs[idx+1]}, nil
	}
	var succs []ssa.Instruction
	for _, sb := range b.Succs {
		if len(sb.Instrs) > 0 {
			succs = append(succs, sb.Instrs[0])
		}
	}
	return succs, nil
}

// MethodOf returns the enclosing function.
func (p *Program) MethodOf(s ssa.Instruction) (*ssa.Function, error) {
	f := s.Parent()
	if f == nil {
		return nil, fmt.Errorf("instruction %v has no parent function", s)
	}
	return f, nil
}

// Callees resolves the static callee of a call site. Dynamic dispatch and
// calls to functions without a body resolve to nothing; the engine then falls
// back to the call-to-return approximation.
func (p *Program) Callees(s ssa.Instruction) ([]*ssa.Function, error) {
	call, ok := s.(ssa.CallInstruction)
	if !ok {
		return nil, fmt.Errorf("statement %v is not a call site", s)
	}
	callee := call.Common().StaticCallee()
	if callee == nil || len(callee.Blocks) == 0 {
		return nil, nil
	}
	return []*ssa.Function{callee}, nil
}

// IsCall reports whether s is a call site.
func (p *Program) IsCall(s ssa.Instruction) bool {
	_, ok := s.(ssa.CallInstruction)
	return ok
}

// IsExit reports whether s is a return instruction.
func (p *Program) IsExit(s ssa.Instruction) bool {
	_, ok := s.(*ssa.Return)
	return ok
}
