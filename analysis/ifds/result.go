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

// Result is the outcome of a solver run: the merged path edges, the global
// predecessor index, the published summaries and the reported
// vulnerabilities. The sets are deterministic for a given application graph
// and analysis; only iteration order varies between runs.
type Result[S, M, F comparable] struct {
	// ZeroFact is the analysis's distinguished zero fact, used by trace
	// construction to recognise sources.
	ZeroFact F

	// Edges is the set of all path edges discovered by any runner.
	Edges map[Edge[S, F]]bool

	// Preds maps each edge to every derivation recorded for it, the primary
	// reason included.
	Preds map[Edge[S, F]]map[Reason[S, F]]bool

	// Summaries is the published per-method summary store.
	Summaries map[M]map[Edge[S, F]]bool

	// Vulnerabilities lists the sink hits in discovery order, deduplicated.
	Vulnerabilities []Vulnerability[S, F]

	// Incomplete marks methods whose results are partial because of an
	// application-graph inconsistency.
	Incomplete map[M]bool

	// Interrupted is true when the run was cancelled before quiescence.
	Interrupted bool

	byTarget map[Vertex[S, F]][]Edge[S, F]
}

// EdgesInto returns every path edge ending at v. The reverse index is built
// on first use; Result is not safe for concurrent use while it is being
// built.
func (res *Result[S, M, F]) EdgesInto(v Vertex[S, F]) []Edge[S, F] {
	if res.byTarget == nil {
		res.byTarget = map[Vertex[S, F]][]Edge[S, F]{}
		for e := range res.Edges {
			res.byTarget[e.To] = append(res.byTarget[e.To], e)
		}
	}
	return res.byTarget[v]
}

// SummariesOf returns the published summaries of m.
func (res *Result[S, M, F]) SummariesOf(m M) map[Edge[S, F]]bool {
	return res.Summaries[m]
}
