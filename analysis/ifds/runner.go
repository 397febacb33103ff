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

import (
	"context"
	"fmt"
	"sync"

	"github.com/MchKosticyn/jacodb/analysis/config"
)

// subscriber is a cross-unit caller registered at a callee entry vertex. The
// record survives until the run ends; every summary published at the entry
// vertex is replayed to it.
type subscriber[S, F comparable] struct {
	edge Edge[S, F]
	unit UnitID
}

// runner is a single-unit IFDS worker. It owns its worklist, edge set,
// summary store and predecessor index exclusively; all cross-unit interaction
// goes through send and inbox. A runner quiesces when its worklist is empty
// and may be reactivated by any later message.
type runner[S, M, F comparable] struct {
	unit     UnitID
	graph    Graph[S, M]
	analyzer Analyzer[S, M, F]
	resolve  UnitResolver[M]
	logger   *config.LogGroup
	inbox    *mailbox[runnerEvent[S, M, F]]
	send     func(managerEvent[S, M, F])

	worklist []Edge[S, F]

	// edges dedups worklist insertion: an edge enters the worklist at most
	// once, so each flow function is applied at most once per edge.
	edges map[Edge[S, F]]bool

	// preds accumulates every derivation of each edge, primary reason
	// included. Records are value-typed; the index holds no references into
	// runner state.
	preds map[Edge[S, F]]map[Reason[S, F]]bool

	// summaries groups discovered summary edges by method.
	summaries map[M]map[Edge[S, F]]bool

	// summariesAt indexes the same summaries by their entry vertex, the key
	// callers and subscribers wait on.
	summariesAt map[Vertex[S, F]]map[Edge[S, F]]bool

	// callers holds local caller edges awaiting summaries at an entry
	// vertex.
	callers map[Vertex[S, F]]map[Edge[S, F]]bool

	// subscribers holds cross-unit callers awaiting summaries at an entry
	// vertex.
	subscribers map[Vertex[S, F]]map[subscriber[S, F]]bool

	// incomplete marks methods whose results are partial because the
	// application graph reported an inconsistency.
	incomplete map[M]bool
}

func newRunner[S, M, F comparable](
	unit UnitID,
	graph Graph[S, M],
	analyzer Analyzer[S, M, F],
	resolve UnitResolver[M],
	logger *config.LogGroup,
	send func(managerEvent[S, M, F]),
) *runner[S, M, F] {
	return &runner[S, M, F]{
		unit:        unit,
		graph:       graph,
		analyzer:    analyzer,
		resolve:     resolve,
		logger:      logger,
		inbox:       newMailbox[runnerEvent[S, M, F]](),
		send:        send,
		edges:       map[Edge[S, F]]bool{},
		preds:       map[Edge[S, F]]map[Reason[S, F]]bool{},
		summaries:   map[M]map[Edge[S, F]]bool{},
		summariesAt: map[Vertex[S, F]]map[Edge[S, F]]bool{},
		callers:     map[Vertex[S, F]]map[Edge[S, F]]bool{},
		subscribers: map[Vertex[S, F]]map[subscriber[S, F]]bool{},
		incomplete:  map[M]bool{},
	}
}

// run is the runner's goroutine body. Each inbox message is handled and the
// worklist drained to quiescence before the message's tracker count is
// released.
func (r *runner[S, M, F]) run(ctx context.Context, wg *sync.WaitGroup, t *tracker) {
	defer wg.Done()
	for {
		ev, ok := r.inbox.take()
		if !ok {
			return
		}
		if ctx.Err() == nil {
			r.handle(ev)
			r.drain(ctx)
		}
		t.done()
	}
}

func (r *runner[S, M, F]) handle(ev runnerEvent[S, M, F]) {
	switch ev := ev.(type) {
	case evSeed[S, M, F]:
		for _, m := range ev.methods {
			r.seed(m)
		}
	case evResolvedCall[S, M, F]:
		r.handleResolvedCall(ev.caller, ev.callee)
	case evSubscription[S, M, F]:
		r.handleSubscription(ev.entry, ev.caller, ev.from)
	case evNotification[S, M, F]:
		r.handleNotification(ev.subscriber, ev.summary)
	}
}

// drain processes the worklist to exhaustion. On cancellation the remaining
// worklist is released; edges published so far stay valid.
func (r *runner[S, M, F]) drain(ctx context.Context) {
	for len(r.worklist) > 0 {
		if ctx.Err() != nil {
			r.worklist = nil
			return
		}
		e := r.worklist[0]
		var zero Edge[S, F]
		r.worklist[0] = zero
		r.worklist = r.worklist[1:]
		r.tick(e)
	}
}

// tick expands a single path edge.
func (r *runner[S, M, F]) tick(e Edge[S, F]) {
	stmt := e.To.Stmt
	switch {
	case r.graph.IsCall(stmt):
		// Callee resolution is delegated to the manager; the call-to-return
		// approximation is applied regardless so unresolved calls still
		// propagate.
		r.send(evUnresolvedCall[S, M, F]{from: r.unit, edge: e})
		r.propagate(e, ReasonCallToReturn)
	case r.graph.IsExit(stmt):
		r.addSummary(e)
	default:
		r.propagate(e, ReasonSequent)
	}
}

// propagate applies the sequent or call-to-return flow function across every
// CFG successor of e.To.
func (r *runner[S, M, F]) propagate(e Edge[S, F], kind ReasonKind) {
	stmt := e.To.Stmt
	succs, err := r.graph.Successors(stmt)
	if err != nil {
		r.markIncomplete(stmt, err)
		return
	}
	for _, succ := range succs {
		succ := succ
		var facts []F
		var ok bool
		if kind == ReasonCallToReturn {
			facts, ok = r.apply("callToReturn", func() ([]F, error) {
				return r.analyzer.CallToReturn(stmt, succ, e.To.Fact)
			})
		} else {
			facts, ok = r.apply("sequent", func() ([]F, error) {
				return r.analyzer.Sequent(stmt, succ, e.To.Fact)
			})
		}
		if !ok {
			continue
		}
		for _, f := range facts {
			r.processNewEdge(
				Edge[S, F]{From: e.From, To: Vertex[S, F]{Stmt: succ, Fact: f}},
				Reason[S, F]{Kind: kind, Pred: e},
			)
		}
	}
}

// addSummary records e as a summary of its method, publishes it, and replays
// it against every caller and subscriber already registered at its entry
// vertex.
func (r *runner[S, M, F]) addSummary(e Edge[S, F]) {
	m, err := r.graph.MethodOf(e.To.Stmt)
	if err != nil {
		r.markIncomplete(e.To.Stmt, err)
		return
	}
	ms, ok := r.summaries[m]
	if !ok {
		ms = map[Edge[S, F]]bool{}
		r.summaries[m] = ms
	}
	if ms[e] {
		return
	}
	ms[e] = true
	at, ok := r.summariesAt[e.From]
	if !ok {
		at = map[Edge[S, F]]bool{}
		r.summariesAt[e.From] = at
	}
	at[e] = true

	r.send(evSummary[S, M, F]{unit: r.unit, method: m, edge: e})
	for caller := range r.callers[e.From] {
		r.applySummary(caller, e, ReasonExitToReturnSite)
	}
	for sub := range r.subscribers[e.From] {
		r.send(evNotify[S, M, F]{target: sub.unit, subscriber: sub.edge, summary: e})
	}
}

// applySummary maps a callee summary back into the caller's scope at every
// return site of the caller's call site. The caller's own fact was consumed
// when the caller registered at the summary's entry vertex; the flow function
// maps the fact the summary ends with.
func (r *runner[S, M, F]) applySummary(caller, summary Edge[S, F], kind ReasonKind) {
	callStmt := caller.To.Stmt
	rets, err := r.graph.Successors(callStmt)
	if err != nil {
		r.markIncomplete(callStmt, err)
		return
	}
	for _, ret := range rets {
		ret := ret
		facts, ok := r.apply("exitToReturnSite", func() ([]F, error) {
			return r.analyzer.ExitToReturnSite(callStmt, ret, summary.To.Stmt, summary.To.Fact)
		})
		if !ok {
			continue
		}
		for _, f := range facts {
			r.processNewEdge(
				Edge[S, F]{From: caller.From, To: Vertex[S, F]{Stmt: ret, Fact: f}},
				Reason[S, F]{Kind: kind, Pred: caller, Summary: summary},
			)
		}
	}
}

// seed creates the initial self-edges of m's entry points.
func (r *runner[S, M, F]) seed(m M) {
	entries, err := r.graph.EntryPoints(m)
	if err != nil {
		r.logger.Warnf("unit %v: cannot seed %v: %v", r.unit, m, err)
		r.incomplete[m] = true
		return
	}
	facts, ok := r.apply("initial", func() ([]F, error) {
		return r.analyzer.Initial(m)
	})
	if !ok {
		return
	}
	for _, entry := range entries {
		for _, f := range facts {
			v := Vertex[S, F]{Stmt: entry, Fact: f}
			r.processNewEdge(Edge[S, F]{From: v, To: v}, Reason[S, F]{Kind: ReasonInitial})
		}
	}
}

// handleResolvedCall opens an interprocedural edge from the caller edge into
// callee. Local callees are registered directly; callees in another unit go
// through a subscription. In both cases the callee entry self-edge is owned
// by the runner of the callee's unit.
func (r *runner[S, M, F]) handleResolvedCall(caller Edge[S, F], callee M) {
	target := r.resolve(callee)
	entries, err := r.graph.EntryPoints(callee)
	if err != nil {
		r.logger.Warnf("unit %v: cannot expand call %v into %v: %v", r.unit, caller, callee, err)
		r.incomplete[callee] = true
		return
	}
	for _, entry := range entries {
		entry := entry
		facts, ok := r.apply("callToStart", func() ([]F, error) {
			return r.analyzer.CallToStart(caller.To.Stmt, entry, caller.To.Fact)
		})
		if !ok {
			continue
		}
		for _, f := range facts {
			v := Vertex[S, F]{Stmt: entry, Fact: f}
			if target == r.unit {
				r.registerCaller(v, caller)
				r.processNewEdge(Edge[S, F]{From: v, To: v}, Reason[S, F]{Kind: ReasonCallToStart, Pred: caller})
			} else {
				r.send(evSubscribe[S, M, F]{target: target, entry: v, caller: caller, from: r.unit})
			}
		}
	}
}

// registerCaller records a local caller at an entry vertex and replays the
// summaries already discovered there.
func (r *runner[S, M, F]) registerCaller(v Vertex[S, F], caller Edge[S, F]) {
	cs, ok := r.callers[v]
	if !ok {
		cs = map[Edge[S, F]]bool{}
		r.callers[v] = cs
	}
	if cs[caller] {
		return
	}
	cs[caller] = true
	for s := range r.summariesAt[v] {
		r.applySummary(caller, s, ReasonThroughSummary)
	}
}

// handleSubscription registers a cross-unit caller at an entry vertex this
// runner owns, replays existing summaries as notifications, and opens the
// callee entry self-edge.
func (r *runner[S, M, F]) handleSubscription(entry Vertex[S, F], caller Edge[S, F], from UnitID) {
	ss, ok := r.subscribers[entry]
	if !ok {
		ss = map[subscriber[S, F]]bool{}
		r.subscribers[entry] = ss
	}
	key := subscriber[S, F]{edge: caller, unit: from}
	if !ss[key] {
		ss[key] = true
		for s := range r.summariesAt[entry] {
			r.send(evNotify[S, M, F]{target: from, subscriber: caller, summary: s})
		}
	}
	r.processNewEdge(Edge[S, F]{From: entry, To: entry}, Reason[S, F]{Kind: ReasonCrossUnitCall, Pred: caller})
}

// handleNotification replays a cross-unit summary against the subscribing
// edge. A notification whose subscriber is unknown indicates a protocol bug;
// it is logged and dropped without affecting any real path.
func (r *runner[S, M, F]) handleNotification(sub, summary Edge[S, F]) {
	if !r.edges[sub] {
		r.logger.Warnf("unit %v: dropping notification for unknown subscription %v", r.unit, sub)
		return
	}
	r.applySummary(sub, summary, ReasonThroughSummary)
}

// processNewEdge inserts e into the worklist unless it is already known, in
// which case only the predecessor record is appended. New edges are checked
// against the analysis's sinks.
func (r *runner[S, M, F]) processNewEdge(e Edge[S, F], reason Reason[S, F]) {
	rs, ok := r.preds[e]
	if !ok {
		rs = map[Reason[S, F]]bool{}
		r.preds[e] = rs
	}
	rs[reason] = true
	if r.edges[e] {
		return
	}
	r.edges[e] = true
	r.worklist = append(r.worklist, e)
	r.logger.Tracef("unit %v: new edge %v (%v)", r.unit, e, reason)
	if msg, hit := r.analyzer.IsSink(e.To); hit {
		r.send(evVulnerability[S, M, F]{vuln: Vulnerability[S, F]{
			Sink:    e.To,
			Message: msg,
			Rule:    r.analyzer.Name(),
		}})
	}
}

// apply runs a flow function, converting an error or panic into a skipped
// edge. Failures abort the offending edge only.
func (r *runner[S, M, F]) apply(op string, f func() ([]F, error)) ([]F, bool) {
	facts, err := func() (out []F, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%s panicked: %v", op, p)
			}
		}()
		return f()
	}()
	if err != nil {
		r.logger.Warnf("unit %v: flow function %s failed: %v", r.unit, op, err)
		return nil, false
	}
	return facts, true
}

func (r *runner[S, M, F]) markIncomplete(stmt S, err error) {
	m, merr := r.graph.MethodOf(stmt)
	if merr != nil {
		r.logger.Warnf("unit %v: inconsistent graph at %v: %v (method unknown: %v)", r.unit, stmt, err, merr)
		return
	}
	r.logger.Warnf("unit %v: results for %v are incomplete: %v", r.unit, m, err)
	r.incomplete[m] = true
}
