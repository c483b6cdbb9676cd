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

// FirstLast implements First<T> and (with first=false) Last<T>: the
// Val ordered by Key (event_time by default). On a Key tie, First
// keeps whichever arrived earlier and Last takes whichever arrived
// later, which is what the strict-less/non-strict-greater-or-equal
// comparisons below give for data folded in ingest order.
//
// Does not implement Subtract: the incumbent value is discarded once
// beaten, so a partition's contribution cannot be un-folded.
type FirstLast struct {
	first   bool
	n       uint64
	hasVal  bool
	bestKey float64
	bestVal value.Value
}

func (f *FirstLast) takes(key float64) bool {
	if !f.hasVal {
		return true
	}
	if f.first {
		return key < f.bestKey
	}
	return key >= f.bestKey
}

func (f *FirstLast) Update(in Input) {
	f.n++
	if f.takes(in.Key) {
		f.hasVal = true
		f.bestKey = in.Key
		f.bestVal = in.Val
	}
}

func (f *FirstLast) Merge(other Aggregate) {
	o := other.(*FirstLast)
	f.n += o.n
	if !o.hasVal {
		return
	}
	if f.takes(o.bestKey) {
		f.hasVal = true
		f.bestKey = o.bestKey
		f.bestVal = o.bestVal
	}
}

func (f *FirstLast) Evaluate() any {
	if !f.hasVal {
		return nil
	}
	return f.bestVal
}

func (f *FirstLast) Clone() Aggregate { cp := *f; return &cp }
