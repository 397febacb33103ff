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

// Cross-unit interaction is exclusively by messages. Runners talk only to the
// manager; the manager routes by target unit id. Each variant's payload is
// immutable once sent.

// runnerEvent is a message delivered to a runner's inbox.
type runnerEvent[S, M, F comparable] interface {
	isRunnerEvent()
}

// evSeed asks a runner to seed the initial edges of the given methods.
type evSeed[S, M, F comparable] struct {
	methods []M
}

// evResolvedCall tells a runner that callee is invoked at the call site of
// the caller edge.
type evResolvedCall[S, M, F comparable] struct {
	caller Edge[S, F]
	callee M
}

// evSubscription registers a cross-unit caller at a callee entry vertex owned
// by the receiving runner. from identifies the subscribing runner so
// notifications can be routed back.
type evSubscription[S, M, F comparable] struct {
	entry  Vertex[S, F]
	caller Edge[S, F]
	from   UnitID
}

// evNotification delivers a summary published at the entry vertex the
// subscriber edge subscribed to.
type evNotification[S, M, F comparable] struct {
	subscriber Edge[S, F]
	summary    Edge[S, F]
}

func (evSeed[S, M, F]) isRunnerEvent()         {}
func (evResolvedCall[S, M, F]) isRunnerEvent() {}
func (evSubscription[S, M, F]) isRunnerEvent() {}
func (evNotification[S, M, F]) isRunnerEvent() {}

// managerEvent is a message delivered to the manager's inbox.
type managerEvent[S, M, F comparable] interface {
	isManagerEvent()
}

// evUnresolvedCall asks the manager to enumerate the callees of the call site
// of edge and reply with one evResolvedCall per callee.
type evUnresolvedCall[S, M, F comparable] struct {
	from UnitID
	edge Edge[S, F]
}

// evSubscribe asks the manager to route a subscription to the runner owning
// target.
type evSubscribe[S, M, F comparable] struct {
	target UnitID
	entry  Vertex[S, F]
	caller Edge[S, F]
	from   UnitID
}

// evNotify asks the manager to route a summary notification back to the
// subscribing runner.
type evNotify[S, M, F comparable] struct {
	target     UnitID
	subscriber Edge[S, F]
	summary    Edge[S, F]
}

// evSummary publishes a summary edge to the shared per-method store.
type evSummary[S, M, F comparable] struct {
	unit   UnitID
	method M
	edge   Edge[S, F]
}

// evVulnerability reports a sink hit.
type evVulnerability[S, M, F comparable] struct {
	vuln Vulnerability[S, F]
}

func (evUnresolvedCall[S, M, F]) isManagerEvent() {}
func (evSubscribe[S, M, F]) isManagerEvent()      {}
func (evNotify[S, M, F]) isManagerEvent()         {}
func (evSummary[S, M, F]) isManagerEvent()        {}
func (evVulnerability[S, M, F]) isManagerEvent()  {}
