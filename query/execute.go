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

// Package query runs a parsed expr.Query end to end: it orders the
// query's @variable bindings with plan.Order (spec section 4.G) and
// evaluates the SELECT list against the resulting variable
// environment. expr cannot import plan itself (plan depends on expr's
// AST), so this is the layer that wires the two together.
package query

import (
	"github.com/streamfeat/engine/expr"
	"github.com/streamfeat/engine/plan"
	"github.com/streamfeat/engine/value"
)

// Result is one query's output: alias -> evaluated value, in the
// order the SELECT list names them.
type Result struct {
	Alias string
	Value value.Value
}

// Execute orders q's bindings, evaluates each in turn into ctx.Vars,
// then evaluates every SELECT item against the bound context
// (spec section 4.F/4.G, scenario S5). A binding cycle surfaces as
// fxerr.CyclicBinding from plan.Order.
func Execute(ctx *expr.Context, q *expr.Query) ([]Result, error) {
	ordered, err := plan.Order(q.Bindings)
	if err != nil {
		return nil, err
	}

	if ctx.Vars == nil {
		ctx.Vars = make(map[string]value.Value, len(ordered))
	}
	for _, b := range ordered {
		v, err := expr.Eval(b.Expr, ctx)
		if err != nil {
			return nil, err
		}
		ctx.Vars[b.Name] = v
	}

	results := make([]Result, len(q.Selects))
	for i, sel := range q.Selects {
		v, err := expr.Eval(sel.Expr, ctx)
		if err != nil {
			return nil, err
		}
		results[i] = Result{Alias: sel.Alias, Value: v}
	}
	return results, nil
}
