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
	"math/rand/v2"
	"sort"
)

// ApproxMedian implements ApproxMedian [float] using reservoir
// sampling (Algorithm R), grounded on
// original_source/fexpress/fexpress-core/partial_aggregates/approx_median.rs,
// which keeps a fixed-size reservoir and reports the middle of the
// sorted sample as an approximation of the true median. evaluate() is
// none for an empty window.
//
// Does not implement Subtract: a reservoir sample cannot be
// un-sampled once an element has displaced another.
type ApproxMedian struct {
	size      int
	seen      uint64
	reservoir []float64
}

// NewApproxMedian returns an ApproxMedian aggregate with the given
// reservoir capacity (spec default 1000).
func NewApproxMedian(size int) *ApproxMedian {
	return &ApproxMedian{size: size}
}

func (a *ApproxMedian) Update(in Input) {
	a.seen++
	if len(a.reservoir) < a.size {
		a.reservoir = append(a.reservoir, in.Num)
		return
	}
	j := rand.IntN(int(a.seen))
	if j < a.size {
		a.reservoir[j] = in.Num
	}
}

// Merge combines reservoirs using weighted random displacement: each
// element of other's reservoir is offered a slot in the receiver's
// reservoir with probability proportional to the combined sample
// count seen so far, which keeps the merged reservoir an
// approximately uniform sample of the union.
func (a *ApproxMedian) Merge(other Aggregate) {
	o := other.(*ApproxMedian)
	if o.seen == 0 {
		return
	}
	if a.size == 0 {
		a.size = o.size
	}
	for _, v := range o.reservoir {
		a.seen++
		if len(a.reservoir) < a.size {
			a.reservoir = append(a.reservoir, v)
			continue
		}
		j := rand.IntN(int(a.seen))
		if j < a.size {
			a.reservoir[j] = v
		}
	}
}

func (a *ApproxMedian) Evaluate() any {
	if len(a.reservoir) == 0 {
		return nil
	}
	sorted := append([]float64(nil), a.reservoir...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func (a *ApproxMedian) Clone() Aggregate {
	cp := *a
	cp.reservoir = append([]float64(nil), a.reservoir...)
	return &cp
}
