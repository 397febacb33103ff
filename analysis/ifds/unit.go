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

import "fmt"

// UnitKind discriminates the built-in unit partitioning schemes.
type UnitKind uint8

const (
	// UnitUnknown is the zero value; none of the built-in resolvers returns
	// it.
	UnitUnknown UnitKind = iota

	// UnitMethod partitions one unit per method.
	UnitMethod

	// UnitClass partitions one unit per class.
	UnitClass

	// UnitPackage partitions one unit per package.
	UnitPackage

	// UnitSingleton places every method in a single unit.
	UnitSingleton
)

func (k UnitKind) String() string {
	switch k {
	case UnitMethod:
		return "method"
	case UnitClass:
		return "class"
	case UnitPackage:
		return "package"
	case UnitSingleton:
		return "singleton"
	default:
		return "unknown"
	}
}

// UnitID identifies a scheduling shard. Two methods with equal UnitID are
// analysed by the same runner.
type UnitID struct {
	Kind UnitKind
	Name string
}

func (u UnitID) String() string {
	if u.Name == "" {
		return u.Kind.String()
	}
	return fmt.Sprintf("%s:%s", u.Kind, u.Name)
}

// UnitResolver maps a method to its unit. Resolvers must be pure and
// consistent across a run: resolving the same method twice returns equal ids.
type UnitResolver[M comparable] func(m M) UnitID

// MethodInfo exposes the naming attributes of methods that the built-in unit
// resolvers and report rendering rely on.
type MethodInfo[M comparable] interface {
	// MethodName returns a name unique to m within its class.
	MethodName(m M) string

	// ClassName returns the name of the outermost class enclosing m, or the
	// empty string when m is a top-level function.
	ClassName(m M) string

	// PackageName returns the name of the package enclosing m.
	PackageName(m M) string
}

// MethodUnitResolver returns a resolver placing each method in its own unit.
func MethodUnitResolver[M comparable](info MethodInfo[M]) UnitResolver[M] {
	return func(m M) UnitID {
		name := info.PackageName(m) + "." + info.ClassName(m) + "." + info.MethodName(m)
		return UnitID{Kind: UnitMethod, Name: name}
	}
}

// ClassUnitResolver returns a resolver grouping methods by their outermost
// enclosing class. Top-level functions share one unit per package.
func ClassUnitResolver[M comparable](info MethodInfo[M]) UnitResolver[M] {
	return func(m M) UnitID {
		return UnitID{Kind: UnitClass, Name: info.PackageName(m) + "." + info.ClassName(m)}
	}
}

// PackageUnitResolver returns a resolver grouping methods by enclosing
// package.
func PackageUnitResolver[M comparable](info MethodInfo[M]) UnitResolver[M] {
	return func(m M) UnitID {
		return UnitID{Kind: UnitPackage, Name: info.PackageName(m)}
	}
}

// SingletonUnitResolver returns a resolver placing every method in one unit.
func SingletonUnitResolver[M comparable]() UnitResolver[M] {
	return func(M) UnitID {
		return UnitID{Kind: UnitSingleton}
	}
}

// ResolverByName returns the built-in resolver selected by name, one of
// "method", "class", "package" or "singleton". The empty string selects
// "singleton".
func ResolverByName[M comparable](name string, info MethodInfo[M]) (UnitResolver[M], error) {
	switch name {
	case "method":
		return MethodUnitResolver(info), nil
	case "class":
		return ClassUnitResolver(info), nil
	case "package":
		return PackageUnitResolver(info), nil
	case "singleton", "":
		return SingletonUnitResolver[M](), nil
	default:
		return nil, fmt.Errorf("unknown unit resolver %q", name)
	}
}
