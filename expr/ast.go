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

// Package expr implements the narrow surface expression language of
// spec section 6: literals, identifiers, attribute paths, function
// calls, and aggregate calls lowered to window evaluation.
package expr

import (
	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/window"
)

// Node is any AST node. Walk/Rewrite mirror the shape of a visitor
// pattern over a small closed set of node kinds rather than a full
// extensible grammar.
type Node interface {
	Walk(Visitor)
}

// Visitor is called once per node encountered by Walk, matching Go's
// ast.Visitor convention: if the returned Visitor is non-nil, Walk
// continues into the node's children with it.
type Visitor interface {
	Visit(Node) Visitor
}

func walkChildren(v Visitor, children ...Node) {
	for _, c := range children {
		if c != nil {
			Walk(v, c)
		}
	}
}

// Walk traverses n depth-first, calling v.Visit at each node.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	w := v.Visit(n)
	if w == nil {
		return
	}
	n.Walk(w)
}

// Literal is a constant int/float/string/bool/null value.
type Literal struct {
	Int    *int64
	Float  *float64
	Str    *string
	Bool   *bool
	IsNull bool
}

func (l *Literal) Walk(Visitor) {}

// Ident is a bare (dot-free) identifier. obs_dt, event_type and
// event_time have their own meaning; any other name is looked up as an
// event attribute.
type Ident struct {
	Name string
}

func (i *Ident) Walk(Visitor) {}

// AttrPath is a dot-separated attribute reference, e.g. a.b.c.
type AttrPath struct {
	Path string
}

func (a *AttrPath) Walk(Visitor) {}

// EntityRef is entities.<type>.
type EntityRef struct {
	EntityType string
}

func (e *EntityRef) Walk(Visitor) {}

// VarRef is @name, a reference to a stored variable binding.
type VarRef struct {
	Name string
}

func (v *VarRef) Walk(Visitor) {}

// Tuple is a parenthesized expression list: (a, b, c).
type Tuple struct {
	Items []Node
}

func (t *Tuple) Walk(v Visitor) { walkChildren(v, t.Items...) }

// Unary is a prefix operator: NOT x, -x.
type Unary struct {
	Op string
	X  Node
}

func (u *Unary) Walk(v Visitor) { walkChildren(v, u.X) }

// Binary is an infix operator: arithmetic, comparison, boolean,
// string concatenation, IN/NOT IN.
type Binary struct {
	Op   string
	L, R Node
}

func (b *Binary) Walk(v Visitor) { walkChildren(v, b.L, b.R) }

// IsNullCheck is `x IS NULL` / `x IS NOT NULL`, the one operator that
// does not itself propagate null (spec section 4.F).
type IsNullCheck struct {
	X      Node
	Negate bool
}

func (n *IsNullCheck) Walk(v Visitor) { walkChildren(v, n.X) }

// Call is a scalar function call: f(args...).
type Call struct {
	Name string
	Args []Node
}

func (c *Call) Walk(v Visitor) { walkChildren(v, c.Args...) }

// HavingKind picks the extreme group out of a GROUP BY partition
// (spec section 6: `HAVING MIN|MAX <expr>`).
type HavingKind int

const (
	HavingNone HavingKind = iota
	HavingMin
	HavingMax
)

// AggCall is an aggregate call lowered to a window evaluation (spec
// section 4.F: "Aggregate calls are not evaluated row-wise").
type AggCall struct {
	Agg      agg.Kind
	Arg      Node // expression to fold, evaluated per row (an attribute path here also names the store's AggregateSpec)
	Scope    window.Scope
	Interval window.Interval
	Where    Node // optional predicate, nil if absent
	GroupBy  Node // optional grouping key expression, nil if absent
	Having   HavingKind
	HavingOn Node // expression ranked by Having across groups; nil means the aggregate result itself
}

func (a *AggCall) Walk(v Visitor) { walkChildren(v, a.Arg, a.Where, a.GroupBy, a.HavingOn) }

// Binding is a `@name := expr` statement.
type Binding struct {
	Name string
	Expr Node
}

// SelectItem is one `<expr> AS <alias>` projection.
type SelectItem struct {
	Expr  Node
	Alias string
}

// Query is a full `[FOR type, ...] [@name := expr;]... SELECT expr [AS alias], ...` statement.
type Query struct {
	Bindings []Binding
	Selects  []SelectItem
	ForTypes []string // entity types named in the FOR clause, if any
}
