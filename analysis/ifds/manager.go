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
	"sync"
	"time"

	"github.com/MchKosticyn/jacodb/analysis/config"
	"github.com/MchKosticyn/jacodb/internal/funcutil"
)

// Manager coordinates one runner per unit. It resolves call sites through the
// application graph, routes subscriptions and notifications between runners,
// accumulates published summaries and vulnerabilities, and detects global
// quiescence.
type Manager[S, M, F comparable] struct {
	graph    Graph[S, M]
	analyzer Analyzer[S, M, F]
	resolve  UnitResolver[M]
	logger   *config.LogGroup

	inbox   *mailbox[managerEvent[S, M, F]]
	tracker *tracker
	wg      sync.WaitGroup

	// runners is written by Run before routing starts and by the routing
	// goroutine afterwards; it is never accessed concurrently.
	runners map[UnitID]*runner[S, M, F]

	summaries  map[M]map[Edge[S, F]]bool
	vulns      []Vulnerability[S, F]
	vulnSeen   map[Vulnerability[S, F]]bool
	incomplete map[M]bool
}

// NewManager returns a manager for the given application graph, analysis and
// unit partitioning. The logger is passed down to every runner.
func NewManager[S, M, F comparable](
	graph Graph[S, M],
	analyzer Analyzer[S, M, F],
	resolve UnitResolver[M],
	logger *config.LogGroup,
) *Manager[S, M, F] {
	return &Manager[S, M, F]{
		graph:      graph,
		analyzer:   analyzer,
		resolve:    resolve,
		logger:     logger,
		inbox:      newMailbox[managerEvent[S, M, F]](),
		tracker:    newTracker(),
		runners:    map[UnitID]*runner[S, M, F]{},
		summaries:  map[M]map[Edge[S, F]]bool{},
		vulnSeen:   map[Vulnerability[S, F]]bool{},
		incomplete: map[M]bool{},
	}
}

// Run analyses the program starting from methods and blocks until global
// quiescence or cancellation. Cancelling ctx is not an error: the returned
// result is partial but internally consistent, and trace construction still
// works over whatever predecessor records exist.
func (m *Manager[S, M, F]) Run(ctx context.Context, methods []M) *Result[S, M, F] {
	start := time.Now()

	type seedJob struct {
		r       *runner[S, M, F]
		methods []M
	}
	var seeds []seedJob
	byUnit := map[UnitID]int{}
	for _, method := range methods {
		u := m.resolve(method)
		i, ok := byUnit[u]
		if !ok {
			i = len(seeds)
			byUnit[u] = i
			seeds = append(seeds, seedJob{r: m.ensureRunner(ctx, u)})
		}
		seeds[i].methods = append(seeds[i].methods, method)
	}
	m.logger.Infof("ifds: starting %d unit(s) for %d entry method(s)", len(seeds), len(methods))

	routeDone := make(chan struct{})
	go func() {
		defer close(routeDone)
		m.route(ctx)
	}()

	for _, s := range seeds {
		m.sendToRunner(s.r, evSeed[S, M, F]{methods: s.methods})
	}

	quiesced := m.tracker.wait(ctx)

	m.inbox.close()
	<-routeDone
	for _, r := range m.runners {
		r.inbox.close()
	}
	m.wg.Wait()

	if quiesced {
		m.logger.Infof("ifds: quiesced after %.2f s", time.Since(start).Seconds())
	} else {
		m.logger.Infof("ifds: cancelled after %.2f s, returning partial result", time.Since(start).Seconds())
	}
	return m.collect(quiesced)
}

// route drains the manager inbox until it is closed.
func (m *Manager[S, M, F]) route(ctx context.Context) {
	for {
		ev, ok := m.inbox.take()
		if !ok {
			return
		}
		if ctx.Err() == nil {
			m.handle(ctx, ev)
		}
		m.tracker.done()
	}
}

func (m *Manager[S, M, F]) handle(ctx context.Context, ev managerEvent[S, M, F]) {
	switch ev := ev.(type) {
	case evUnresolvedCall[S, M, F]:
		m.resolveCall(ev.from, ev.edge)
	case evSubscribe[S, M, F]:
		target := m.ensureRunner(ctx, ev.target)
		m.sendToRunner(target, evSubscription[S, M, F]{entry: ev.entry, caller: ev.caller, from: ev.from})
	case evNotify[S, M, F]:
		target, ok := m.runners[ev.target]
		if !ok {
			m.logger.Warnf("ifds: dropping notification for unknown unit %v", ev.target)
			return
		}
		m.sendToRunner(target, evNotification[S, M, F]{subscriber: ev.subscriber, summary: ev.summary})
	case evSummary[S, M, F]:
		ms, ok := m.summaries[ev.method]
		if !ok {
			ms = map[Edge[S, F]]bool{}
			m.summaries[ev.method] = ms
		}
		ms[ev.edge] = true
	case evVulnerability[S, M, F]:
		if !m.vulnSeen[ev.vuln] {
			m.vulnSeen[ev.vuln] = true
			m.vulns = append(m.vulns, ev.vuln)
			m.logger.Infof("ifds: %s: %s at %v", ev.vuln.Rule, ev.vuln.Message, ev.vuln.Sink)
		}
	}
}

// resolveCall enumerates callees of the call site of edge and replies to the
// originating runner. A call with zero callees degenerates to the
// call-to-return approximation the runner has already applied.
func (m *Manager[S, M, F]) resolveCall(from UnitID, edge Edge[S, F]) {
	origin := m.runners[from]
	callees, err := m.graph.Callees(edge.To.Stmt)
	if err != nil {
		method, merr := m.graph.MethodOf(edge.To.Stmt)
		if merr == nil {
			m.incomplete[method] = true
		}
		m.logger.Warnf("ifds: cannot resolve callees at %v: %v", edge.To, err)
		return
	}
	for _, callee := range callees {
		m.sendToRunner(origin, evResolvedCall[S, M, F]{caller: edge, callee: callee})
	}
}

// ensureRunner returns the runner owning unit, spawning it on first use. A
// subscription may target a unit no entry method belongs to.
func (m *Manager[S, M, F]) ensureRunner(ctx context.Context, unit UnitID) *runner[S, M, F] {
	if r, ok := m.runners[unit]; ok {
		return r
	}
	r := newRunner(unit, m.graph, m.analyzer, m.resolve, m.logger, m.post)
	m.runners[unit] = r
	m.wg.Add(1)
	go r.run(ctx, &m.wg, m.tracker)
	return r
}

// post is the counted send used by runners to reach the manager.
func (m *Manager[S, M, F]) post(ev managerEvent[S, M, F]) {
	m.tracker.add(1)
	if !m.inbox.put(ev) {
		m.tracker.done()
	}
}

// sendToRunner is the counted send used to reach a runner.
func (m *Manager[S, M, F]) sendToRunner(r *runner[S, M, F], ev runnerEvent[S, M, F]) {
	m.tracker.add(1)
	if !r.inbox.put(ev) {
		m.tracker.done()
	}
}

// collect merges runner-owned state into the final result. It runs after
// every runner goroutine has exited.
func (m *Manager[S, M, F]) collect(quiesced bool) *Result[S, M, F] {
	res := &Result[S, M, F]{
		ZeroFact:        m.analyzer.Zero(),
		Edges:           map[Edge[S, F]]bool{},
		Preds:           map[Edge[S, F]]map[Reason[S, F]]bool{},
		Summaries:       m.summaries,
		Vulnerabilities: m.vulns,
		Incomplete:      map[M]bool{},
		Interrupted:     !quiesced,
	}
	funcutil.Union(res.Incomplete, m.incomplete)
	for _, r := range m.runners {
		funcutil.Union(res.Edges, r.edges)
		for e, rs := range r.preds {
			dst, ok := res.Preds[e]
			if !ok {
				dst = map[Reason[S, F]]bool{}
				res.Preds[e] = dst
			}
			funcutil.Union(dst, rs)
		}
		funcutil.Union(res.Incomplete, r.incomplete)
	}
	return res
}
