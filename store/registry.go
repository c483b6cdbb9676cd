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
	"sync/atomic"

	"github.com/streamfeat/engine/agg"
)

// AggregateSpec names one maintained aggregate: the attribute path it
// reads and the kind of aggregate to compute over it. Specs are plain
// values: the tail keeps its aggregate states in a slice parallel to
// the registry snapshot, and each sealed block keys its frozen states
// by AggregateSpec.
type AggregateSpec struct {
	Attribute string
	Kind      agg.Kind
}

// registry is the copy-on-write table of AggregateSpec the store has
// been asked to maintain (spec section 5: "aggregate registration is
// copy-on-write -- registering a new aggregate snapshots the block
// list, backfills frozen states, and publishes the extended registry
// atomically"). Published via atomic.Pointer so readers never observe
// a torn slice, mirroring the internal/atomicext package's lock-free
// update pattern one level up (at slice-pointer granularity instead
// of per-field CAS).
type registry struct {
	specs atomic.Pointer[[]AggregateSpec]
}

func newRegistry() *registry {
	r := &registry{}
	empty := []AggregateSpec{}
	r.specs.Store(&empty)
	return r
}

// Snapshot returns the current spec list. The caller must not mutate it.
func (r *registry) Snapshot() []AggregateSpec {
	return *r.specs.Load()
}

// indexOf returns the position of spec within specs, or -1.
func indexOf(specs []AggregateSpec, spec AggregateSpec) int {
	for i, s := range specs {
		if s == spec {
			return i
		}
	}
	return -1
}

// register adds spec to the registry if not already present, and
// returns its index plus whether it was newly added.
func (r *registry) register(spec AggregateSpec) (idx int, added bool) {
	for {
		oldPtr := r.specs.Load()
		old := *oldPtr
		if i := indexOf(old, spec); i >= 0 {
			return i, false
		}
		next := make([]AggregateSpec, len(old)+1)
		copy(next, old)
		next[len(old)] = spec
		if r.specs.CompareAndSwap(oldPtr, &next) {
			return len(old), true
		}
		// lost the race with a concurrent registration; retry.
	}
}
