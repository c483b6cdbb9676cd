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

import "github.com/streamfeat/engine/value"

// ArgMin implements ArgMin<Key> and (with min=false) ArgMax<Key>: the
// Key (Input.Val) associated with the minimum/maximum Input.Num seen.
// Ties are broken by insertion order (spec section 4.C), which holds
// naturally here because Update only replaces the incumbent on a
// strict improvement, and Merge treats the receiver as preceding
// other in ingest order (the store always merges blocks in time
// order). Grounded on
// original_source/fexpress-main/fexpress-core/partial_aggregates/argmin.rs.
//
// Does not implement Subtract: once a losing partition's extremum is
// discarded there is no way to recover the next-best candidate.
type ArgMin struct {
	min     bool
	n       uint64
	hasVal  bool
	bestNum float64
	bestVal value.Value
}

func (a *ArgMin) better(num float64) bool {
	if a.min {
		return num < a.bestNum
	}
	return num > a.bestNum
}

func (a *ArgMin) Update(in Input) {
	a.n++
	if !a.hasVal || a.better(in.Num) {
		a.hasVal = true
		a.bestNum = in.Num
		a.bestVal = in.Val
	}
}

func (a *ArgMin) Merge(other Aggregate) {
	o := other.(*ArgMin)
	a.n += o.n
	if !o.hasVal {
		return
	}
	if !a.hasVal || a.better(o.bestNum) {
		a.hasVal = true
		a.bestNum = o.bestNum
		a.bestVal = o.bestVal
	}
}

func (a *ArgMin) Evaluate() any {
	if !a.hasVal {
		return nil
	}
	return a.bestVal
}

func (a *ArgMin) Clone() Aggregate { cp := *a; return &cp }
