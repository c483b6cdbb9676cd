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

import "math"

// RootMeanSquare implements RootMeanSquare [float]. The underlying
// state is a plain sum of squares, a commutative group under
// addition, so unlike Skewness/Kurtosis the nonlinear sqrt transform
// at evaluate time does not block Subtract.
type RootMeanSquare struct {
	n      uint64
	sumSq  float64
}

func (r *RootMeanSquare) Update(in Input) {
	r.n++
	r.sumSq += in.Num * in.Num
}

func (r *RootMeanSquare) Merge(other Aggregate) {
	o := other.(*RootMeanSquare)
	r.n += o.n
	r.sumSq += o.sumSq
}

func (r *RootMeanSquare) Subtract(other Aggregate) {
	o := other.(*RootMeanSquare)
	r.n -= o.n
	r.sumSq -= o.sumSq
}

func (r *RootMeanSquare) Evaluate() any {
	if r.n == 0 {
		return nil
	}
	return math.Sqrt(r.sumSq / float64(r.n))
}

func (r *RootMeanSquare) Clone() Aggregate { cp := *r; return &cp }

var _ Subtractable = (*RootMeanSquare)(nil)

// AbsoluteEnergy implements AbsoluteEnergy [float]: the sum of
// squares, the commutative-group state RootMeanSquare is built on.
type AbsoluteEnergy struct {
	n     uint64
	total float64
}

func (e *AbsoluteEnergy) Update(in Input) {
	e.n++
	e.total += in.Num * in.Num
}

func (e *AbsoluteEnergy) Merge(other Aggregate) {
	o := other.(*AbsoluteEnergy)
	e.n += o.n
	e.total += o.total
}

func (e *AbsoluteEnergy) Subtract(other Aggregate) {
	o := other.(*AbsoluteEnergy)
	e.n -= o.n
	e.total -= o.total
}

func (e *AbsoluteEnergy) Evaluate() any {
	if e.n == 0 {
		return nil
	}
	return e.total
}

func (e *AbsoluteEnergy) Clone() Aggregate { cp := *e; return &cp }

var _ Subtractable = (*AbsoluteEnergy)(nil)

// AbsoluteSumOfChanges implements AbsoluteSumOfChanges [float]: the
// sum of |x_i - x_{i-1}| across inputs in ingest order. Keeps only
// the partition's first/last value and the running sum, bridging the
// join at a partition boundary the same way AverageTimeBetween does.
//
// Must not implement Subtract (spec section 4.C): the join-term
// contribution at a partition boundary cannot be separated back out
// once folded into the running sum, even though merge itself is well
// defined.
type AbsoluteSumOfChanges struct {
	hasPrev  bool
	first    float64
	last     float64
	sum      float64
	n        uint64
}

func (a *AbsoluteSumOfChanges) Update(in Input) {
	if a.hasPrev {
		a.sum += math.Abs(in.Num - a.last)
	} else {
		a.first = in.Num
		a.hasPrev = true
	}
	a.last = in.Num
	a.n++
}

func (a *AbsoluteSumOfChanges) Merge(other Aggregate) {
	o := other.(*AbsoluteSumOfChanges)
	if o.n == 0 {
		return
	}
	if a.n == 0 {
		*a = *o
		return
	}
	a.sum += math.Abs(o.first - a.last)
	a.sum += o.sum
	a.last = o.last
	a.n += o.n
}

func (a *AbsoluteSumOfChanges) Evaluate() any {
	if a.n == 0 {
		return nil
	}
	return a.sum
}

func (a *AbsoluteSumOfChanges) Clone() Aggregate { cp := *a; return &cp }
