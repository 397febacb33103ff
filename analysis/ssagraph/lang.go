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

package ssagraph

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/MchKosticyn/jacodb/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// CallName identifies the invoked function of a call site. Interface invokes
// report the abstract method; dynamic calls through a value report the value
// name with no package.
func (p *Program) CallName(s ssa.Instruction) (string, string, bool) {
	call, ok := s.(ssa.CallInstruction)
	if !ok {
		return "", "", false
	}
	common := call.Common()
	if common.IsInvoke() {
		m := common.Method
		pkg := ""
		if m.Pkg() != nil {
			pkg = m.Pkg().Path()
		}
		return pkg, m.Name(), true
	}
	if callee := common.StaticCallee(); callee != nil {
		pkg := ""
		if callee.Pkg != nil {
			pkg = callee.Pkg.Pkg.Path()
		}
		return pkg, callee.Name(), true
	}
	if b, ok := common.Value.(*ssa.Builtin); ok {
		return "", b.Name(), true
	}
	return "", common.Value.Name(), true
}

// Args returns the names of the registers passed at the call site.
func (p *Program) Args(s ssa.Instruction) []string {
	call, ok := s.(ssa.CallInstruction)
	if !ok {
		return nil
	}
	return funcutil.Map(call.Common().Args, func(v ssa.Value) string { return v.Name() })
}

// Assignee returns the register the instruction defines, if any.
func (p *Program) Assignee(s ssa.Instruction) (string, bool) {
	v, ok := s.(ssa.Value)
	if !ok || v.Name() == "" {
		return "", false
	}
	if tup, isTup := v.Type().(*types.Tuple); isTup && tup.Len() == 0 {
		return "", false
	}
	return v.Name(), true
}

// Operands returns the names of the registers the instruction reads.
func (p *Program) Operands(s ssa.Instruction) []string {
	var out []string
	for _, op := range s.Operands(nil) {
		if op == nil || *op == nil {
			continue
		}
		if name := (*op).Name(); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Params returns the parameter names of the function owning entry.
func (p *Program) Params(entry ssa.Instruction) []string {
	f := entry.Parent()
	if f == nil {
		return nil
	}
	return funcutil.Map(f.Params, func(v *ssa.Parameter) string { return v.Name() })
}

// Returned returns the names of the values returned at exit.
func (p *Program) Returned(exit ssa.Instruction) []string {
	ret, ok := exit.(*ssa.Return)
	if !ok {
		return nil
	}
	return funcutil.Map(ret.Results, func(v ssa.Value) string { return v.Name() })
}

// MethodName returns the function's unqualified name.
func (p *Program) MethodName(f *ssa.Function) string {
	return f.Name()
}

// ClassName returns the name of the receiver type of the outermost enclosing
// function, or the empty string for top-level functions.
func (p *Program) ClassName(f *ssa.Function) string {
	base := f
	for base.Parent() != nil {
		base = base.Parent()
	}
	recv := base.Signature.Recv()
	if recv == nil {
		return ""
	}
	t := recv.Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return t.String()
}

// PackageName returns the path of the enclosing package.
func (p *Program) PackageName(f *ssa.Function) string {
	if f.Pkg == nil {
		return ""
	}
	return f.Pkg.Pkg.Path()
}

// Position returns the source position of the instruction when it has one.
func (p *Program) Position(s ssa.Instruction) funcutil.Optional[token.Position] {
	pos := s.Pos()
	if !pos.IsValid() {
		return funcutil.None[token.Position]()
	}
	return funcutil.Some(p.Prog.Fset.Position(pos))
}

// Line returns the source line of the instruction, 0 when unknown.
func (p *Program) Line(s ssa.Instruction) int {
	return p.Position(s).ValueOr(token.Position{}).Line
}

// Text renders the instruction the way ssa printing does, with the defined
// register on the left.
func (p *Program) Text(s ssa.Instruction) string {
	if v, ok := s.(ssa.Value); ok && v.Name() != "" {
		return fmt.Sprintf("%s = %s", v.Name(), s.String())
	}
	return s.String()
}
