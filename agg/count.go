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

// Count implements the Count [u64] aggregate. Per the resolution of
// spec section 9's open question, Count always evaluates to a value
// (never absent): an empty window counts to zero.
type Count struct {
	n uint64
}

func (c *Count) Update(Input)         { c.n++ }
func (c *Count) Merge(other Aggregate) { c.n += other.(*Count).n }
func (c *Count) Evaluate() any        { return c.n }
func (c *Count) Clone() Aggregate     { cp := *c; return &cp }

// Subtract implements Subtractable: Count forms a commutative group
// under addition.
func (c *Count) Subtract(other Aggregate) { c.n -= other.(*Count).n }

var _ Subtractable = (*Count)(nil)
