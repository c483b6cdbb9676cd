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

// Sum implements the Sum [float] aggregate.
type Sum struct {
	n     uint64
	total float64
}

func (s *Sum) Update(in Input) {
	s.n++
	s.total += in.Num
}

func (s *Sum) Merge(other Aggregate) {
	o := other.(*Sum)
	s.n += o.n
	s.total += o.total
}

func (s *Sum) Evaluate() any {
	if s.n == 0 {
		return nil
	}
	return s.total
}

func (s *Sum) Clone() Aggregate { cp := *s; return &cp }

func (s *Sum) Subtract(other Aggregate) {
	o := other.(*Sum)
	s.n -= o.n
	s.total -= o.total
}

var _ Subtractable = (*Sum)(nil)

// Product implements the Product [float] aggregate. Product does not
// implement Subtract: dividing out a factor of zero is ill-defined,
// and float division is not guaranteed to exactly invert
// multiplication, so merge-inverse is not safe in general.
type Product struct {
	n     uint64
	total float64
}

func (p *Product) Update(in Input) {
	if p.n == 0 {
		p.total = 1
	}
	p.n++
	p.total *= in.Num
}

func (p *Product) Merge(other Aggregate) {
	o := other.(*Product)
	if p.n == 0 {
		p.total = 1
	}
	if o.n == 0 {
		return
	}
	p.total *= o.total
	p.n += o.n
}

func (p *Product) Evaluate() any {
	if p.n == 0 {
		return nil
	}
	return p.total
}

func (p *Product) Clone() Aggregate { cp := *p; return &cp }
