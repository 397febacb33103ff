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

// Package ifds implements a sharded IFDS solver: an interprocedural,
// finite-distributive-subset dataflow engine generic over statements, methods
// and facts.
//
// The program under analysis is presented through the Graph interface, the
// analysis through Analyzer (five flow functions, sink declarations and a
// distinguished zero fact). Methods are partitioned into units by a
// UnitResolver; the Manager runs one runner goroutine per unit and routes all
// cross-unit traffic as messages, so no dataflow state is shared between
// runners. The run terminates when every runner has drained its worklist and
// no message is in flight.
//
// The solver records every derivation of every path edge. BuildTraceGraph
// reconstructs witness DAGs from that predecessor index, rooted at zero-fact
// sources and ending at a sink vertex.
package ifds
