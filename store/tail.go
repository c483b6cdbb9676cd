// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package store

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/internal/atomicext"
)

// tail is the single mutable open block receiving new ingests (spec
// section 3: "Open tail"). It is not entity-indexed -- scans over it
// are linear. Guarded by a single-writer lock per spec section 5;
// readers take a short read lock to snapshot the row count and clone
// the incrementally-maintained aggregate states, then scan under that
// snapshot so the writer may only append beyond it.
type tail struct {
	mu sync.RWMutex

	events []Event

	aggs []agg.Aggregate // parallel to the registry snapshot at time of creation

	// tMaxNano mirrors the tail's current maximum event time so a
	// reader can cheaply check block-range overlap (store.Range) with
	// a lock-free load before deciding whether it needs the full read
	// lock to snapshot rows.
	tMaxNano int64
}

func newTail() *tail {
	return &tail{
		tMaxNano: math.MinInt64,
	}
}

// len reports the number of events currently in the tail (read-locked).
func (t *tail) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

// maxTimeHint is a lock-free fast-path check using the atomically
// maintained high-water mark; it may be used to skip a tail scan
// entirely for windows strictly before any tail event.
func (t *tail) maxTimeHint() int64 {
	return atomic.LoadInt64(&t.tMaxNano)
}

// append adds ev to the tail's event list under the write lock and
// updates the incrementally-maintained aggregate states for the
// aggregates currently registered. inputs supplies the
// float/key/value inputs already resolved per AggregateSpec, computed
// by the caller (Store.Insert) against the event and its schema.
func (t *tail) append(ev Event, specs []AggregateSpec, inputs []agg.Input) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, ev)
	atomicext.MaxInt64(&t.tMaxNano, ev.EventTime)

	for len(t.aggs) < len(specs) {
		t.aggs = append(t.aggs, agg.New(specs[len(t.aggs)].Kind))
	}
	for i, in := range inputs {
		t.aggs[i].Update(in)
	}
}

// snapshot returns a read-locked, point-in-time copy of the tail's
// row count and cloned aggregate states, safe to use without holding
// any lock afterward.
func (t *tail) snapshot() (rows int, aggs []agg.Aggregate) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows = len(t.events)
	aggs = make([]agg.Aggregate, len(t.aggs))
	for i, a := range t.aggs {
		aggs[i] = a.Clone()
	}
	return rows, aggs
}

// eventsUpTo returns a copy of the first n events, read-locked. n
// must not exceed a previously observed snapshot's row count.
func (t *tail) eventsUpTo(n int) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, n)
	copy(out, t.events[:n])
	return out
}

// resetAfterSeal clears the tail's events and aggregate state after
// its contents have been frozen into a sealed Block. Must be called
// under the write lock by the caller (Store.sealLocked, Store.Flush).
func (t *tail) resetAfterSeal(specs []AggregateSpec) {
	t.events = nil
	t.aggs = make([]agg.Aggregate, len(specs))
	for i, s := range specs {
		t.aggs[i] = agg.New(s.Kind)
	}
	t.tMaxNano = math.MinInt64
}
