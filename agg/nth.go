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

package agg

import (
	"sort"

	"github.com/streamfeat/engine/value"
)

type nthEntry struct {
	key float64
	seq uint64
	val value.Value
}

// Nth implements Nth<T>: the value at zero-indexed position n when
// all inputs in the window are sorted by Key, ties broken by
// insertion order. Unlike most aggregates in this package Nth keeps
// its whole partition in memory; spec section 4.C does not require a
// bounded partial-aggregate size, only the uniform New/Update/Merge/
// Evaluate contract, and a window's row count is bounded by the
// engine's block size in practice.
//
// Does not implement Subtract: removing an arbitrary row from a
// sorted order is not expressible as folding in a second aggregate's
// state.
type Nth struct {
	n       int
	seq     uint64
	entries []nthEntry
}

// NewNth returns an Nth aggregate selecting the zero-indexed position n.
func NewNth(n int) *Nth {
	return &Nth{n: n}
}

func (a *Nth) Update(in Input) {
	a.entries = append(a.entries, nthEntry{key: in.Key, seq: a.seq, val: in.Val})
	a.seq++
}

func (a *Nth) Merge(other Aggregate) {
	o := other.(*Nth)
	base := a.seq
	for _, e := range o.entries {
		a.entries = append(a.entries, nthEntry{key: e.key, seq: base + e.seq, val: e.val})
	}
	a.seq += o.seq
}

func (a *Nth) Evaluate() any {
	if a.n < 0 || a.n >= len(a.entries) {
		return nil
	}
	sorted := make([]nthEntry, len(a.entries))
	copy(sorted, a.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].key != sorted[j].key {
			return sorted[i].key < sorted[j].key
		}
		return sorted[i].seq < sorted[j].seq
	})
	return sorted[a.n].val
}

func (a *Nth) Clone() Aggregate {
	cp := *a
	cp.entries = append([]nthEntry(nil), a.entries...)
	return &cp
}
