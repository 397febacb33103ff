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

import "testing"

func TestResolverByName(t *testing.T) {
	g := newTGraph()
	g.linear("main", 2)
	g.linear("util", 2)
	g.classes["main"] = "Main"
	g.classes["util"] = "Main"
	info := tinfo{g}

	for _, name := range []string{"method", "class", "package", "singleton", ""} {
		if _, err := ResolverByName(name, info); err != nil {
			t.Errorf("ResolverByName(%q) failed: %v", name, err)
		}
	}
	if _, err := ResolverByName("bogus", info); err == nil {
		t.Error("ResolverByName should reject unknown names")
	}
}

func TestResolverConsistency(t *testing.T) {
	g := newTGraph()
	g.linear("main", 2)
	g.linear("util", 2)
	g.classes["main"] = "Main"
	g.classes["util"] = "Util"
	info := tinfo{g}

	for _, name := range []string{"method", "class", "package", "singleton"} {
		resolve, err := ResolverByName(name, info)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range []string{"main", "util"} {
			if resolve(m) != resolve(m) {
				t.Errorf("%s resolver is inconsistent for %s", name, m)
			}
		}
	}
}

func TestResolverPartitions(t *testing.T) {
	g := newTGraph()
	g.linear("a", 2)
	g.linear("b", 2)
	g.classes["a"] = "C"
	g.classes["b"] = "C"
	info := tinfo{g}

	byMethod := MethodUnitResolver[string](info)
	if byMethod("a") == byMethod("b") {
		t.Error("method resolver must separate distinct methods")
	}
	byClass := ClassUnitResolver[string](info)
	if byClass("a") != byClass("b") {
		t.Error("class resolver must group methods of one class")
	}
	byPackage := PackageUnitResolver[string](info)
	if byPackage("a") != byPackage("b") {
		t.Error("package resolver must group methods of one package")
	}
	single := SingletonUnitResolver[string]()
	if single("a") != single("b") {
		t.Error("singleton resolver must map everything to one unit")
	}
	if single("a").Kind != UnitSingleton {
		t.Errorf("unexpected kind %v", single("a").Kind)
	}
}
