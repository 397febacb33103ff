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
	"regexp"
	"strings"
)

// A CodeIdentifier identifies a code element that is a source, sink or
// sanitizer. A method matches when each non-empty field matches the
// corresponding attribute; an empty field matches anything. Patterns are
// globs: `*` matches any run of characters, everything else is literal, so
// `com.acme.*` covers a whole package tree. Each identifier is compiled once
// at load time and the compiled form is shared by every runner.
type CodeIdentifier struct {
	// Package is the glob matched against the enclosing package of the
	// method.
	Package string `yaml:"package"`

	// Method is the glob matched against the method name.
	Method string `yaml:"method"`

	// This will not be part of the yaml config
	compiled *codeIdentifierRegex
}

type codeIdentifierRegex struct {
	packageRegex *regexp.Regexp
	methodRegex  *regexp.Regexp
}

// compileCids compiles every identifier in the slice in place. It compiles
// all identifiers or none.
func compileCids(cids []CodeIdentifier) error {
	compiled := make([]CodeIdentifier, len(cids))
	for i := range cids {
		c, err := CompileCid(cids[i])
		if err != nil {
			return err
		}
		compiled[i] = c
	}
	copy(cids, compiled)
	return nil
}

// CompileCid compiles the glob patterns of a code identifier.
func CompileCid(cid CodeIdentifier) (CodeIdentifier, error) {
	pkg, err := globRegexp(cid.Package)
	if err != nil {
		return cid, fmt.Errorf("package pattern %q: %w", cid.Package, err)
	}
	method, err := globRegexp(cid.Method)
	if err != nil {
		return cid, fmt.Errorf("method pattern %q: %w", cid.Method, err)
	}
	cid.compiled = &codeIdentifierRegex{packageRegex: pkg, methodRegex: method}
	return cid, nil
}

// globRegexp translates a glob into an anchored regexp. The empty pattern
// compiles to nil and matches anything.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	var sb strings.Builder
	sb.WriteString("^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			sb.WriteString(".*")
		}
		sb.WriteString(regexp.QuoteMeta(part))
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// MatchesName reports whether the identifier covers the method name in the
// package pkg. Identifiers loaded through Load are always compiled;
// uncompiled identifiers compare fields literally.
func (cid *CodeIdentifier) MatchesName(pkg, method string) bool {
	if cid.compiled != nil {
		return matchOrEmpty(cid.compiled.packageRegex, pkg) &&
			matchOrEmpty(cid.compiled.methodRegex, method)
	}
	return (cid.Package == "" || cid.Package == pkg) &&
		(cid.Method == "" || cid.Method == method)
}

func matchOrEmpty(re *regexp.Regexp, s string) bool {
	return re == nil || re.MatchString(s)
}

// MatchesAnyName reports whether any identifier in cids covers (pkg, method).
func MatchesAnyName(cids []CodeIdentifier, pkg, method string) bool {
	for i := range cids {
		if cids[i].MatchesName(pkg, method) {
			return true
		}
	}
	return false
}
