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

// TraceGraph is a DAG of vertices witnessing how a sink is reached from
// zero-fact sources. Edges point towards the sink.
type TraceGraph[S, F comparable] struct {
	Sink    Vertex[S, F]
	Sources map[Vertex[S, F]]bool
	Edges   map[Vertex[S, F]]map[Vertex[S, F]]bool
}

// BuildTraceGraph reconstructs the witness DAG for sink from the global
// predecessor index of res. The traversal is cycle-safe: visited states are
// memoised, and a call-to-start predecessor is never followed while a summary
// is being expanded, so the summary's method boundary is not crossed.
func BuildTraceGraph[S, M, F comparable](res *Result[S, M, F], sink Vertex[S, F]) *TraceGraph[S, F] {
	tg := &TraceGraph[S, F]{
		Sink:    sink,
		Sources: map[Vertex[S, F]]bool{},
		Edges:   map[Vertex[S, F]]map[Vertex[S, F]]bool{},
	}
	b := &traceBuilder[S, M, F]{
		res:     res,
		tg:      tg,
		visited: map[traceState[S, F]]bool{},
	}
	b.mark(sink)
	for _, e := range res.EdgesInto(sink) {
		b.explore(e, sink, false)
	}
	return tg
}

// traceState identifies one traversal configuration: the edge whose
// predecessors are being explored, the vertex the next adjacency will attach
// to, and whether the traversal is inside a summary expansion.
type traceState[S, F comparable] struct {
	edge      Edge[S, F]
	last      Vertex[S, F]
	inSummary bool
}

type traceBuilder[S, M, F comparable] struct {
	res     *Result[S, M, F]
	tg      *TraceGraph[S, F]
	visited map[traceState[S, F]]bool
}

// explore walks the predecessor records of e backwards. last is the most
// recently drawn vertex; its fact is the fact currently being chased.
func (b *traceBuilder[S, M, F]) explore(e Edge[S, F], last Vertex[S, F], inSummary bool) {
	state := traceState[S, F]{edge: e, last: last, inSummary: inSummary}
	if b.visited[state] {
		return
	}
	b.visited[state] = true

	recs := b.res.Preds[e]
	if len(recs) == 0 {
		b.source(e.From, last)
		return
	}
	for rec := range recs {
		switch rec.Kind {
		case ReasonInitial, ReasonExternal:
			b.source(e.From, last)
		case ReasonSequent, ReasonCallToReturn:
			b.step(rec.Pred, last, inSummary)
		case ReasonCallToStart, ReasonCrossUnitCall:
			// Crossing into the caller's scope; forbidden while a summary is
			// being expanded. Inside a summary the method entry anchors the
			// callee-side chain instead.
			if !inSummary {
				b.step(rec.Pred, last, false)
			} else {
				b.link(e.From, last)
			}
		case ReasonThroughSummary, ReasonExitToReturnSite:
			b.link(rec.Summary.To, last)
			b.link(rec.Pred.To, rec.Summary.From)
			b.explore(rec.Summary, rec.Summary.To, true)
			b.explore(rec.Pred, rec.Pred.To, inSummary)
		}
	}
}

// step continues the reverse DFS over pred. A predecessor holding the chased
// fact is a pass-through; a predecessor with a different fact is where the
// chased fact was produced, so it is drawn into the graph and becomes the new
// attachment point.
func (b *traceBuilder[S, M, F]) step(pred Edge[S, F], last Vertex[S, F], inSummary bool) {
	if pred.To.Fact == last.Fact {
		b.explore(pred, last, inSummary)
	} else {
		b.link(pred.To, last)
		b.explore(pred, pred.To, inSummary)
	}
}

func (b *traceBuilder[S, M, F]) link(u, v Vertex[S, F]) {
	b.mark(u)
	b.mark(v)
	if u == v {
		return
	}
	succs, ok := b.tg.Edges[u]
	if !ok {
		succs = map[Vertex[S, F]]bool{}
		b.tg.Edges[u] = succs
	}
	succs[v] = true
}

func (b *traceBuilder[S, M, F]) source(v, last Vertex[S, F]) {
	if v != last {
		b.link(v, last)
	}
	b.tg.Sources[v] = true
}

func (b *traceBuilder[S, M, F]) mark(v Vertex[S, F]) {
	if v.Fact == b.res.ZeroFact {
		b.tg.Sources[v] = true
	}
}

// Traces enumerates witness paths from sources to the sink, up to maxTraces
// paths of at most maxPathLength vertices each. Bounds <= 0 are ignored. The
// path-length bound filters enumeration only; it never affected edge
// production.
func (tg *TraceGraph[S, F]) Traces(maxTraces, maxPathLength int) [][]Vertex[S, F] {
	var out [][]Vertex[S, F]
	var path []Vertex[S, F]
	onPath := map[Vertex[S, F]]bool{}

	var dfs func(v Vertex[S, F]) bool
	dfs = func(v Vertex[S, F]) bool {
		if maxTraces > 0 && len(out) >= maxTraces {
			return false
		}
		if onPath[v] {
			return true
		}
		if maxPathLength > 0 && len(path) >= maxPathLength {
			return true
		}
		onPath[v] = true
		path = append(path, v)
		if v == tg.Sink {
			out = append(out, append([]Vertex[S, F]{}, path...))
		} else {
			for w := range tg.Edges[v] {
				if !dfs(w) {
					break
				}
			}
		}
		path = path[:len(path)-1]
		onPath[v] = false
		return maxTraces <= 0 || len(out) < maxTraces
	}

	for src := range tg.Sources {
		if !dfs(src) {
			break
		}
	}
	return out
}
