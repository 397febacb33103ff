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

// Package graphutil bridges graphs over arbitrary vertex types to existing
// graph libraries by numbering vertices with dense int64 ids.
package graphutil

import (
	"fmt"

	ybgraph "github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Digraph is a directed graph over comparable vertices V, backed by a Gonum
// simple.DirectedGraph.
type Digraph[V comparable] struct {
	ids   map[V]int64
	verts []V
	g     *simple.DirectedGraph
}

// NewDigraph returns an empty directed graph.
func NewDigraph[V comparable]() *Digraph[V] {
	return &Digraph[V]{
		ids: map[V]int64{},
		g:   simple.NewDirectedGraph(),
	}
}

// FromAdjacency builds a digraph from an adjacency-set representation.
func FromAdjacency[V comparable](adj map[V]map[V]bool) *Digraph[V] {
	d := NewDigraph[V]()
	for u, succs := range adj {
		d.AddVertex(u)
		for v := range succs {
			d.AddEdge(u, v)
		}
	}
	return d
}

// AddVertex inserts v and returns its id. Reinsertion returns the existing
// id.
func (d *Digraph[V]) AddVertex(v V) int64 {
	if id, ok := d.ids[v]; ok {
		return id
	}
	id := int64(len(d.verts))
	d.ids[v] = id
	d.verts = append(d.verts, v)
	d.g.AddNode(simple.Node(id))
	return id
}

// AddEdge inserts the directed edge u -> v, adding missing vertices.
// Self-loops are ignored.
func (d *Digraph[V]) AddEdge(u, v V) {
	uid := d.AddVertex(u)
	vid := d.AddVertex(v)
	if uid == vid {
		return
	}
	d.g.SetEdge(d.g.NewEdge(simple.Node(uid), simple.Node(vid)))
}

// Len returns the number of vertices.
func (d *Digraph[V]) Len() int {
	return len(d.verts)
}

// Acyclic reports whether the graph has no directed cycle.
func (d *Digraph[V]) Acyclic() bool {
	m := ybgraph.New(len(d.verts))
	it := d.g.Edges()
	for it.Next() {
		e := it.Edge()
		m.Add(int(e.From().ID()), int(e.To().ID()))
	}
	return ybgraph.Acyclic(m)
}

// TopoOrder returns the vertices in a topological order. It fails when the
// graph has a cycle.
func (d *Digraph[V]) TopoOrder() ([]V, error) {
	nodes, err := topo.Sort(d.g)
	if err != nil {
		return nil, fmt.Errorf("graph has a cycle: %w", err)
	}
	out := make([]V, len(nodes))
	for i, n := range nodes {
		out[i] = d.verts[n.ID()]
	}
	return out, nil
}
