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

// Min implements the Min [float] aggregate. Min/Max do not implement
// Subtract: a merged min/max cannot recover the removed partition's
// contribution once the winning value has been discarded.
type Min struct {
	n   uint64
	val float64
}

func (m *Min) Update(in Input) {
	if m.n == 0 || in.Num < m.val {
		m.val = in.Num
	}
	m.n++
}

func (m *Min) Merge(other Aggregate) {
	o := other.(*Min)
	if o.n == 0 {
		return
	}
	if m.n == 0 || o.val < m.val {
		m.val = o.val
	}
	m.n += o.n
}

func (m *Min) Evaluate() any {
	if m.n == 0 {
		return nil
	}
	return m.val
}

func (m *Min) Clone() Aggregate { cp := *m; return &cp }

// Max implements the Max [float] aggregate.
type Max struct {
	n   uint64
	val float64
}

func (m *Max) Update(in Input) {
	if m.n == 0 || in.Num > m.val {
		m.val = in.Num
	}
	m.n++
}

func (m *Max) Merge(other Aggregate) {
	o := other.(*Max)
	if o.n == 0 {
		return
	}
	if m.n == 0 || o.val > m.val {
		m.val = o.val
	}
	m.n += o.n
}

func (m *Max) Evaluate() any {
	if m.n == 0 {
		return nil
	}
	return m.val
}

func (m *Max) Clone() Aggregate { cp := *m; return &cp }
