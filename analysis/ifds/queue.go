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
)

// mailbox is an unbounded FIFO queue with blocking receive. Message volume is
// bounded by the number of path edges, so no backpressure is applied on the
// sending side.
type mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func newMailbox[T any]() *mailbox[T] {
	q := &mailbox[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// put enqueues x. It reports false when the mailbox has been closed.
func (q *mailbox[T]) put(x T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, x)
	q.cond.Signal()
	return true
}

// take blocks until an item is available or the mailbox is closed.
func (q *mailbox[T]) take() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	x := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return x, true
}

// close wakes all receivers; pending items are still delivered before take
// starts reporting false.
func (q *mailbox[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// tracker counts messages that are queued or being handled, across the
// manager and all runners. A count is acquired before a message is enqueued
// and released only after its handler has run to completion, including the
// full worklist drain it triggered. Any send therefore happens while the
// sender still holds a count, so a zero reading is stable: no handler is
// active and no message is queued anywhere.
type tracker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

func newTracker() *tracker {
	t := &tracker{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *tracker) add(n int) {
	t.mu.Lock()
	t.pending += n
	t.mu.Unlock()
}

func (t *tracker) done() {
	t.mu.Lock()
	t.pending--
	if t.pending == 0 {
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

// wait blocks until global quiescence or cancellation, reporting true on
// quiescence. The check is two-phase: a zero observation is confirmed on a
// second read before termination is declared; a message delivered in between
// restarts the wait.
func (t *tracker) wait(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		for t.pending != 0 && ctx.Err() == nil {
			t.cond.Wait()
		}
		if ctx.Err() != nil {
			return false
		}
		if t.pending == 0 {
			return true
		}
	}
}
