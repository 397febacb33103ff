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

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode in the analyses. We load all possible information.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram is a built SSA program together with the packages it was
// loaded from and the analysis roots: the functions with a body defined in
// the loaded packages themselves.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program

	// Packages is a list of all packages in the program.
	Packages []*packages.Package

	// Roots are the functions of the loaded packages.
	Roots []*ssa.Function
}

// LoadProgram loads, type-checks and builds the packages named by args using
// the buildmode provided. To understand how to specify the args, look at the
// documentation of packages.Load.
func LoadProgram(config *packages.Config, buildmode ssa.BuilderMode, args []string) (LoadedProgram, error) {
	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}

	initialPackages, err := packages.Load(config, args...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %v", err)
	}
	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}
	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found, exiting")
	}

	program, ssaPackages := ssautil.AllPackages(initialPackages, buildmode)
	program.Build()

	rootPkgs := map[*ssa.Package]bool{}
	for _, p := range ssaPackages {
		if p != nil {
			rootPkgs[p] = true
		}
	}
	var roots []*ssa.Function
	for f := range ssautil.AllFunctions(program) {
		if f.Pkg != nil && rootPkgs[f.Pkg] && len(f.Blocks) > 0 {
			roots = append(roots, f)
		}
	}

	return LoadedProgram{Program: program, Packages: initialPackages, Roots: roots}, nil
}
