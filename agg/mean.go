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

// Mean implements the Mean [float] aggregate using Welford's online
// algorithm, which keeps merge numerically stable (spec section 4.C).
// evaluate() is defined for n >= 1.
type Mean struct {
	n    uint64
	mean float64
}

func (m *Mean) Update(in Input) {
	m.n++
	m.mean += (in.Num - m.mean) / float64(m.n)
}

// mergeMeanCount combines two (count, mean) pairs using the Chan
// parallel formula: mu_ab = (n_a*mu_a + n_b*mu_b) / (n_a+n_b).
func mergeMeanCount(na uint64, mua float64, nb uint64, mub float64) (n uint64, mu float64) {
	n = na + nb
	if n == 0 {
		return 0, 0
	}
	mu = (float64(na)*mua + float64(nb)*mub) / float64(n)
	return n, mu
}

func (m *Mean) Merge(other Aggregate) {
	o := other.(*Mean)
	m.n, m.mean = mergeMeanCount(m.n, m.mean, o.n, o.mean)
}

func (m *Mean) Evaluate() any {
	if m.n == 0 {
		return nil
	}
	return m.mean
}

func (m *Mean) Clone() Aggregate { cp := *m; return &cp }

// Variance implements both Variance and StandardDeviation [float]
// (the std field toggles the final sqrt). Uses the Welford/Chan
// parallel recombination formulas from spec section 4.C:
//
//	delta  = mu_b - mu_a
//	M2_ab  = M2_a + M2_b + delta^2 * n_a*n_b/(n_a+n_b)
//	mu_ab  = (n_a*mu_a + n_b*mu_b) / (n_a+n_b)
//
// evaluate() returns nil (none) when n < 2, per spec section 4.C.
type Variance struct {
	std  bool
	n    uint64
	mean float64
	m2   float64
}

func (v *Variance) Update(in Input) {
	v.n++
	delta := in.Num - v.mean
	v.mean += delta / float64(v.n)
	delta2 := in.Num - v.mean
	v.m2 += delta * delta2
}

func (v *Variance) Merge(other Aggregate) {
	o := other.(*Variance)
	if o.n == 0 {
		return
	}
	if v.n == 0 {
		v.n, v.mean, v.m2 = o.n, o.mean, o.m2
		return
	}
	na, nb := v.n, o.n
	delta := o.mean - v.mean
	n := na + nb
	m2 := v.m2 + o.m2 + delta*delta*float64(na)*float64(nb)/float64(n)
	mean := (float64(na)*v.mean + float64(nb)*o.mean) / float64(n)
	v.n, v.mean, v.m2 = n, mean, m2
}

func (v *Variance) Evaluate() any {
	if v.n < 2 {
		return nil
	}
	// sample variance (n-1 denominator), matching the original
	// implementation's convention (original_source variance.rs).
	variance := v.m2 / float64(v.n-1)
	if v.std {
		return math.Sqrt(variance)
	}
	return variance
}

func (v *Variance) Clone() Aggregate { cp := *v; return &cp }
