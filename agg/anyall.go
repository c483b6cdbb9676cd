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

// Any implements the Any [bool] aggregate: true once any input is
// true. Like Count, Any never evaluates to none — an empty window's
// typed zero is false, per spec section 7.
type Any struct {
	val bool
}

func (a *Any) Update(in Input)       { a.val = a.val || in.Bool }
func (a *Any) Merge(other Aggregate) { a.val = a.val || other.(*Any).val }
func (a *Any) Evaluate() any         { return a.val }
func (a *Any) Clone() Aggregate      { cp := *a; return &cp }

// All implements the All [bool] aggregate: true unless some input is
// false. The typed zero for an empty window is true, per spec
// section 7, so New(KindAll) must construct All{val: true} rather
// than relying on Go's zero value.
type All struct {
	val bool
}

func (a *All) Update(in Input)       { a.val = a.val && in.Bool }
func (a *All) Merge(other Aggregate) { a.val = a.val && other.(*All).val }
func (a *All) Evaluate() any         { return a.val }
func (a *All) Clone() Aggregate      { cp := *a; return &cp }
