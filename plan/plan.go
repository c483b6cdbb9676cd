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

// Package plan orders a query's @variable bindings so that each
// binding is evaluated only after every binding it references (spec
// section 4.G), via Kahn's algorithm.
package plan

import (
	"golang.org/x/exp/slices"

	"github.com/streamfeat/engine/expr"
	"github.com/streamfeat/engine/fxerr"
)

// dependencies collects the set of binding names n's expression
// directly references via @name.
func dependencies(n expr.Node, known map[string]bool) []string {
	var deps []string
	seen := make(map[string]bool)
	var v depVisitor
	v.visit = func(node expr.Node) {
		if ref, ok := node.(*expr.VarRef); ok && known[ref.Name] && !seen[ref.Name] {
			seen[ref.Name] = true
			deps = append(deps, ref.Name)
		}
	}
	expr.Walk(&v, n)
	return deps
}

// depVisitor recurses into every node, reporting each one to visit
// before continuing into its children.
type depVisitor struct {
	visit func(expr.Node)
}

func (v *depVisitor) Visit(n expr.Node) expr.Visitor {
	v.visit(n)
	return v
}

// Order returns bindings in an order where every @name reference
// inside a binding's expression resolves to a binding already placed
// earlier in the result, using Kahn's algorithm (incoming-edge counts
// plus a queue of ready nodes) directly following
// fexpress-core/algo/topo_sort.rs's structure. Ties among
// simultaneously-ready bindings are broken by original binding index
// for determinism (golang.org/x/exp/slices.Sort/SortFunc).
func Order(bindings []expr.Binding) ([]expr.Binding, error) {
	n := len(bindings)
	indexOf := make(map[string]int, n)
	known := make(map[string]bool, n)
	for i, b := range bindings {
		indexOf[b.Name] = i
		known[b.Name] = true
	}

	// edges[from] = list of binding indices that depend on `from`.
	edges := make([][]int, n)
	incoming := make([]int, n)
	for i, b := range bindings {
		for _, dep := range dependencies(b.Expr, known) {
			from := indexOf[dep]
			edges[from] = append(edges[from], i)
			incoming[i]++
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if incoming[i] == 0 {
			ready = append(ready, i)
		}
	}
	slices.Sort(ready)

	result := make([]expr.Binding, 0, n)
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b int) bool { return a < b })
		node := ready[0]
		ready = ready[1:]
		result = append(result, bindings[node])

		for _, neighbor := range edges[node] {
			incoming[neighbor]--
			if incoming[neighbor] == 0 {
				ready = append(ready, neighbor)
			}
		}
	}

	if len(result) != n {
		return nil, fxerr.New(fxerr.CyclicBinding, "plan: binding graph contains a cycle")
	}
	return result, nil
}
