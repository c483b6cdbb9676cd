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

package plan

import (
	"testing"

	"github.com/streamfeat/engine/expr"
	"github.com/streamfeat/engine/fxerr"
)

func varRef(name string) expr.Node { return &expr.VarRef{Name: name} }

func position(order []expr.Binding, name string) int {
	for i, b := range order {
		if b.Name == name {
			return i
		}
	}
	return -1
}

func TestOrderRespectsDependencies(t *testing.T) {
	// c depends on b, b depends on a.
	bindings := []expr.Binding{
		{Name: "c", Expr: varRef("b")},
		{Name: "a", Expr: &expr.Literal{Int: int64ptr(1)}},
		{Name: "b", Expr: varRef("a")},
	}
	order, err := Order(bindings)
	if err != nil {
		t.Fatal(err)
	}
	if position(order, "a") >= position(order, "b") {
		t.Error("a must come before b")
	}
	if position(order, "b") >= position(order, "c") {
		t.Error("b must come before c")
	}
}

func TestOrderDetectsCycle(t *testing.T) {
	bindings := []expr.Binding{
		{Name: "a", Expr: varRef("b")},
		{Name: "b", Expr: varRef("a")},
	}
	_, err := Order(bindings)
	if !fxerr.Is(err, fxerr.CyclicBinding) {
		t.Fatalf("got %v, want CyclicBinding", err)
	}
}

func TestOrderIndependentBindingsKeepOriginalOrder(t *testing.T) {
	bindings := []expr.Binding{
		{Name: "a", Expr: &expr.Literal{Int: int64ptr(1)}},
		{Name: "b", Expr: &expr.Literal{Int: int64ptr(2)}},
	}
	order, err := Order(bindings)
	if err != nil {
		t.Fatal(err)
	}
	if order[0].Name != "a" || order[1].Name != "b" {
		t.Fatalf("got %v, want [a b]", order)
	}
}

func int64ptr(n int64) *int64 { return &n }
