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

package expr

import (
	"context"
	"strings"
	"time"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/date"
	"github.com/streamfeat/engine/fxerr"
	"github.com/streamfeat/engine/store"
	"github.com/streamfeat/engine/value"
	"github.com/streamfeat/engine/window"
)

// Context carries everything Eval needs: the store to read from, the
// observation time every OVER clause resolves against (spec section
// 4.E), the event the expression is currently being evaluated for (if
// any -- top-level per-entity expressions have one, nested aggregate
// recomputation does not), and the @variable bindings established by
// prior statements in the same query (spec section 4.F).
type Context struct {
	Ctx   context.Context
	Store *store.Store
	ObsMs int64
	Event *store.Event
	Vars  map[string]value.Value
}

func (c *Context) background() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

// Eval evaluates node against ctx, applying the type-coercion and
// null-propagation rules of spec section 4.F.
func Eval(node Node, ctx *Context) (value.Value, error) {
	switch n := node.(type) {
	case *Literal:
		return evalLiteral(n), nil
	case *Ident:
		return evalIdent(n, ctx)
	case *AttrPath:
		return evalAttrPath(n, ctx)
	case *EntityRef:
		return evalEntityRef(n, ctx)
	case *VarRef:
		v, ok := ctx.Vars[n.Name]
		if !ok {
			return value.Value{}, fxerr.Newf(fxerr.UnknownAttribute, "expr: undefined variable @%s", n.Name)
		}
		return v, nil
	case *Unary:
		return evalUnary(n, ctx)
	case *Binary:
		return evalBinary(n, ctx)
	case *IsNullCheck:
		x, err := Eval(n.X, ctx)
		if err != nil {
			return value.Value{}, err
		}
		isNull := x.IsNull()
		if n.Negate {
			isNull = !isNull
		}
		return value.Bool(isNull), nil
	case *Call:
		return evalCall(n, ctx)
	case *AggCall:
		return evalAggCall(n, ctx)
	case *Tuple:
		return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: tuple may only appear on the right side of IN")
	}
	return value.Value{}, fxerr.Newf(fxerr.TypeMismatch, "expr: unsupported node %T", node)
}

func evalLiteral(l *Literal) value.Value {
	switch {
	case l.IsNull:
		return value.Value{}
	case l.Int != nil:
		return value.Int(int32(*l.Int))
	case l.Float != nil:
		return value.Float(*l.Float)
	case l.Str != nil:
		return value.String(*l.Str)
	case l.Bool != nil:
		return value.Bool(*l.Bool)
	}
	return value.Value{}
}

func evalIdent(n *Ident, ctx *Context) (value.Value, error) {
	switch strings.ToLower(n.Name) {
	case "obs_dt":
		return value.DateTime(date.Unix(ctx.ObsMs/1000, (ctx.ObsMs%1000)*1_000_000)), nil
	case "event_type":
		if ctx.Event == nil {
			return value.Value{}, fxerr.New(fxerr.UnknownAttribute, "expr: event_type referenced outside a row context")
		}
		return value.String(ctx.Event.EventType), nil
	case "event_time":
		if ctx.Event == nil {
			return value.Value{}, fxerr.New(fxerr.UnknownAttribute, "expr: event_time referenced outside a row context")
		}
		ms := ctx.Event.EventTime
		return value.DateTime(date.Unix(ms/1000, (ms%1000)*1_000_000)), nil
	}
	return evalAttrPath(&AttrPath{Path: n.Name}, ctx)
}

func evalAttrPath(n *AttrPath, ctx *Context) (value.Value, error) {
	if ctx.Event == nil {
		return value.Value{}, fxerr.Newf(fxerr.UnknownAttribute, "expr: attribute %q referenced outside a row context", n.Path)
	}
	if ctx.Store != nil {
		if sc := ctx.Store.Schema(ctx.Event.EventType); sc != nil && sc.Ambiguous(n.Path) {
			return value.Value{}, fxerr.Newf(fxerr.AttributeKindAmbiguous, "expr: attribute %q has inconsistent types across events", n.Path)
		}
	}
	v, ok := ctx.Event.Attr(n.Path)
	if !ok {
		return value.Value{}, nil // absent attribute evaluates to null, not an error
	}
	return v, nil
}

func evalEntityRef(n *EntityRef, ctx *Context) (value.Value, error) {
	if ctx.Event == nil {
		return value.Value{}, fxerr.Newf(fxerr.UnknownAttribute, "expr: entities.%s referenced outside a row context", n.EntityType)
	}
	id, ok := ctx.Event.Entities.Get(n.EntityType)
	if !ok {
		return value.Value{}, nil
	}
	return value.String(id), nil
}

func evalUnary(n *Unary, ctx *Context) (value.Value, error) {
	x, err := Eval(n.X, ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case "not":
		b, ok := x.Bool()
		if !ok {
			if x.IsNull() {
				return value.Value{}, nil
			}
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: NOT requires a boolean operand")
		}
		return value.Bool(!b), nil
	case "-":
		if x.IsNull() {
			return value.Value{}, nil
		}
		f, ok := x.AsFloat()
		if !ok {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: unary '-' requires a numeric operand")
		}
		if i, isInt := x.Int(); isInt {
			return value.Int(-i), nil
		}
		return value.Float(-f), nil
	}
	return value.Value{}, fxerr.Newf(fxerr.TypeMismatch, "expr: unknown unary operator %q", n.Op)
}

func evalBinary(n *Binary, ctx *Context) (value.Value, error) {
	if n.Op == "in" || n.Op == "not in" {
		return evalIn(n, ctx)
	}
	if n.Op == "and" || n.Op == "or" {
		return evalBoolShortCircuit(n, ctx)
	}

	l, err := Eval(n.L, ctx)
	if err != nil {
		return value.Value{}, err
	}
	r, err := Eval(n.R, ctx)
	if err != nil {
		return value.Value{}, err
	}
	// null propagates through every operator except IS [NOT] NULL
	// (spec section 4.F).
	if l.IsNull() || r.IsNull() {
		return value.Value{}, nil
	}

	switch n.Op {
	case "=", "!=", "<>", "<", "<=", ">", ">=":
		return evalCompare(n.Op, l, r)
	case "+", "-", "*", "/", "%":
		return evalArith(n.Op, l, r)
	}
	return value.Value{}, fxerr.Newf(fxerr.TypeMismatch, "expr: unknown binary operator %q", n.Op)
}

func evalBoolShortCircuit(n *Binary, ctx *Context) (value.Value, error) {
	l, err := Eval(n.L, ctx)
	if err != nil {
		return value.Value{}, err
	}
	lb, lNull := boolOrNull(l)
	if n.Op == "and" && !lNull && !lb {
		return value.Bool(false), nil
	}
	if n.Op == "or" && !lNull && lb {
		return value.Bool(true), nil
	}
	r, err := Eval(n.R, ctx)
	if err != nil {
		return value.Value{}, err
	}
	rb, rNull := boolOrNull(r)
	if lNull || rNull {
		return value.Value{}, nil
	}
	if n.Op == "and" {
		return value.Bool(lb && rb), nil
	}
	return value.Bool(lb || rb), nil
}

func boolOrNull(v value.Value) (b bool, isNull bool) {
	if v.IsNull() {
		return false, true
	}
	b, _ = v.Bool()
	return b, false
}

func evalIn(n *Binary, ctx *Context) (value.Value, error) {
	l, err := Eval(n.L, ctx)
	if err != nil {
		return value.Value{}, err
	}
	tup, ok := n.R.(*Tuple)
	if !ok {
		return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: right side of IN must be a literal list")
	}
	if l.IsNull() {
		return value.Value{}, nil
	}
	found := false
	for _, item := range tup.Items {
		v, err := Eval(item, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if l.Equal(v) {
			found = true
			break
		}
	}
	if n.Op == "not in" {
		found = !found
	}
	return value.Bool(found), nil
}

// evalCompare implements spec section 4.F's comparison coercions:
// numeric operands compare by value across Int/Float, strings compare
// lexicographically, dates/datetimes compare by instant.
func evalCompare(op string, l, r value.Value) (value.Value, error) {
	var cmp int
	switch {
	case isNumeric(l) && isNumeric(r):
		lf, _ := l.AsFloat()
		rf, _ := r.AsFloat()
		cmp = compareFloat(lf, rf)
	case l.Kind() == value.KindString && r.Kind() == value.KindString:
		ls, _ := l.Str()
		rs, _ := r.Str()
		cmp = strings.Compare(ls, rs)
	case isTemporal(l) && isTemporal(r):
		lt, _ := l.Time()
		rt, _ := r.Time()
		switch {
		case lt.Before(rt):
			cmp = -1
		case lt.After(rt):
			cmp = 1
		default:
			cmp = 0
		}
	case l.Kind() == value.KindBool && r.Kind() == value.KindBool:
		if op != "=" && op != "!=" && op != "<>" {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: boolean operands only support equality comparisons")
		}
		lb, _ := l.Bool()
		rb, _ := r.Bool()
		eq := lb == rb
		if op == "=" {
			return value.Bool(eq), nil
		}
		return value.Bool(!eq), nil
	default:
		return value.Value{}, fxerr.Newf(fxerr.TypeMismatch, "expr: cannot compare %s and %s", l.Kind(), r.Kind())
	}
	switch op {
	case "=":
		return value.Bool(cmp == 0), nil
	case "!=", "<>":
		return value.Bool(cmp != 0), nil
	case "<":
		return value.Bool(cmp < 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	case ">=":
		return value.Bool(cmp >= 0), nil
	}
	return value.Value{}, fxerr.Newf(fxerr.TypeMismatch, "expr: unknown comparison operator %q", op)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isNumeric(v value.Value) bool { return v.Kind() == value.KindInt || v.Kind() == value.KindFloat }
func isTemporal(v value.Value) bool {
	return v.Kind() == value.KindDate || v.Kind() == value.KindDateTime
}

// evalArith implements spec section 4.F's arithmetic coercions:
// int+int stays int, any float operand widens the result to float,
// boolean operands are rejected outright, and a date or datetime
// +/- a number adds or subtracts that many whole days and keeps the
// operand's kind.
func evalArith(op string, l, r value.Value) (value.Value, error) {
	if l.Kind() == value.KindBool || r.Kind() == value.KindBool {
		return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: arithmetic is not defined over boolean operands")
	}
	if isTemporal(l) && isNumeric(r) && (op == "+" || op == "-") {
		return dateArith(l, r, op)
	}
	if l.Kind() == value.KindString && r.Kind() == value.KindString && op == "+" {
		ls, _ := l.Str()
		rs, _ := r.Str()
		return value.String(ls + rs), nil
	}
	if !isNumeric(l) || !isNumeric(r) {
		return value.Value{}, fxerr.Newf(fxerr.TypeMismatch, "expr: arithmetic requires numeric operands, got %s and %s", l.Kind(), r.Kind())
	}
	li, lIsInt := l.Int()
	ri, rIsInt := r.Int()
	if lIsInt && rIsInt {
		iv, err := intArith(op, int64(li), int64(ri))
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(int32(iv)), nil
	}
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	fv, err := floatArith(op, lf, rf)
	if err != nil {
		return value.Value{}, err
	}
	return value.Float(fv), nil
}

func intArith(op string, l, r int64) (int64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fxerr.New(fxerr.DivisionByZero, "expr: division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fxerr.New(fxerr.DivisionByZero, "expr: modulo by zero")
		}
		return l % r, nil
	}
	return 0, fxerr.Newf(fxerr.TypeMismatch, "expr: unknown arithmetic operator %q", op)
}

func floatArith(op string, l, r float64) (float64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fxerr.New(fxerr.DivisionByZero, "expr: division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fxerr.New(fxerr.DivisionByZero, "expr: modulo by zero")
		}
		return float64(int64(l) % int64(r)), nil
	}
	return 0, fxerr.Newf(fxerr.TypeMismatch, "expr: unknown arithmetic operator %q", op)
}

func dateArith(t, n value.Value, op string) (value.Value, error) {
	tv, _ := t.Time()
	days, _ := n.AsFloat()
	delta := time.Duration(int64(days)) * 24 * time.Hour
	if op == "-" {
		delta = -delta
	}
	out := tv.Add(delta)
	if t.Kind() == value.KindDate {
		return value.DateVal(out), nil
	}
	return value.DateTime(out), nil
}

func evalCall(n *Call, ctx *Context) (value.Value, error) {
	if strings.ToLower(n.Name) == "if" {
		return evalIf(n, ctx)
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	switch strings.ToLower(n.Name) {
	case "abs":
		if len(args) != 1 {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: abs() takes exactly one argument")
		}
		if args[0].IsNull() {
			return value.Value{}, nil
		}
		f, ok := args[0].AsFloat()
		if !ok {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: abs() requires a numeric argument")
		}
		if f < 0 {
			f = -f
		}
		if i, isInt := args[0].Int(); isInt {
			if i < 0 {
				i = -i
			}
			return value.Int(i), nil
		}
		return value.Float(f), nil
	case "length":
		if len(args) != 1 || args[0].Kind() != value.KindString {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: length() requires a single string argument")
		}
		s, _ := args[0].Str()
		return value.Int(int32(len(s))), nil
	case "upper":
		s, ok := args[0].Str()
		if !ok {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: upper() requires a string argument")
		}
		return value.String(strings.ToUpper(s)), nil
	case "lower":
		s, ok := args[0].Str()
		if !ok {
			return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: lower() requires a string argument")
		}
		return value.String(strings.ToLower(s)), nil
	case "concat":
		var sb strings.Builder
		for _, a := range args {
			s, ok := a.Str()
			if !ok {
				return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: concat() requires string arguments")
			}
			sb.WriteString(s)
		}
		return value.String(sb.String()), nil
	}
	return value.Value{}, fxerr.Newf(fxerr.UnknownAttribute, "expr: unknown function %q", n.Name)
}

// evalIf evaluates if(cond, whenTrue, whenFalse), evaluating only the
// selected branch (spec section 4.G's @w := if(...) binding example
// assumes short-circuit evaluation, not eager evaluation of both
// branches). A null condition propagates null rather than choosing
// either branch.
func evalIf(n *Call, ctx *Context) (value.Value, error) {
	if len(n.Args) != 3 {
		return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: if() takes exactly three arguments")
	}
	cond, err := Eval(n.Args[0], ctx)
	if err != nil {
		return value.Value{}, err
	}
	if cond.IsNull() {
		return value.Value{}, nil
	}
	b, ok := cond.Bool()
	if !ok {
		return value.Value{}, fxerr.New(fxerr.TypeMismatch, "expr: if() condition must be boolean")
	}
	if b {
		return Eval(n.Args[1], ctx)
	}
	return Eval(n.Args[2], ctx)
}

// evalAggCall lowers an aggregate call to a window.Evaluate invocation
// over the store (spec section 4.F: aggregate calls are not evaluated
// row-wise).
func evalAggCall(n *AggCall, ctx *Context) (value.Value, error) {
	scope := n.Scope
	if scope.EntityID == "@self" {
		if ctx.Event == nil {
			return value.Value{}, fxerr.Newf(fxerr.UnknownAttribute, "expr: FOR entities.%s requires a row context", scope.EntityType)
		}
		id, ok := ctx.Event.Entities.Get(scope.EntityType)
		if !ok {
			return value.Value{}, nil
		}
		scope.EntityID = id
	}

	tLo, tHi := window.Resolve(n.Interval, ctx.ObsMs)

	attrPath := ""
	if ap, ok := n.Arg.(*AttrPath); ok {
		attrPath = ap.Path
	} else if id, ok := n.Arg.(*Ident); ok {
		attrPath = id.Name
	}
	spec := store.AggregateSpec{Attribute: attrPath, Kind: n.Agg}

	resolve := func(ev *store.Event) (agg.Input, bool) {
		if n.Arg == nil {
			return agg.Input{Key: float64(ev.EventTime)}, true
		}
		rowCtx := &Context{Ctx: ctx.Ctx, Store: ctx.Store, ObsMs: ctx.ObsMs, Event: ev, Vars: ctx.Vars}
		v, err := Eval(n.Arg, rowCtx)
		if err != nil || v.IsNull() {
			return agg.Input{}, false
		}
		f, _ := v.AsFloat()
		return agg.Input{Num: f, Key: float64(ev.EventTime), Val: v}, true
	}

	var predicate window.Predicate
	if n.Where != nil {
		predicate = func(ev *store.Event) (bool, error) {
			rowCtx := &Context{Ctx: ctx.Ctx, Store: ctx.Store, ObsMs: ctx.ObsMs, Event: ev, Vars: ctx.Vars}
			v, err := Eval(n.Where, rowCtx)
			if err != nil {
				return false, err
			}
			b, _ := v.Bool()
			return b, nil
		}
	}

	if n.GroupBy != nil {
		return evalGroupedAggCall(n, ctx, scope, tLo, tHi, spec, resolve, predicate)
	}

	result, err := window.Evaluate(ctx.background(), ctx.Store, spec, resolve, scope, tLo, tHi, predicate)
	if err != nil {
		return value.Value{}, err
	}
	return wrapAggResult(result), nil
}

// evalGroupedAggCall implements `AGG(expr) OVER <interval> GROUP BY
// <key> [HAVING MIN|MAX <expr>]` (spec section 6). Every matching row
// is bucketed by key, AGG is folded independently per bucket, and
// HAVING picks out the bucket whose ranking expression (HavingOn if
// given, otherwise the row values AGG itself folds) is extreme; the
// call's result is the winning bucket's AGG value. Without a HAVING
// clause the group with the lexicographically smallest key wins, so
// the call still has a single, well-defined result.
func evalGroupedAggCall(n *AggCall, ctx *Context, scope window.Scope, tLo, tHi int64, spec store.AggregateSpec, resolve window.Resolver, predicate window.Predicate) (value.Value, error) {
	keyFn := func(ev *store.Event) (string, bool) {
		rowCtx := &Context{Ctx: ctx.Ctx, Store: ctx.Store, ObsMs: ctx.ObsMs, Event: ev, Vars: ctx.Vars}
		v, err := Eval(n.GroupBy, rowCtx)
		if err != nil || v.IsNull() {
			return "", false
		}
		return v.String(), true
	}

	groups, err := window.EvaluateGrouped(ctx.background(), ctx.Store, resolve, scope, tLo, tHi, predicate, n.Agg, keyFn)
	if err != nil {
		return value.Value{}, err
	}
	if len(groups) == 0 {
		return wrapAggResult(emptyGroupedResult(n.Agg)), nil
	}

	rankExpr := n.HavingOn
	if rankExpr == nil {
		rankExpr = n.Arg
	}
	rankResolve := func(ev *store.Event) (agg.Input, bool) {
		if rankExpr == nil {
			return agg.Input{Key: float64(ev.EventTime)}, true
		}
		rowCtx := &Context{Ctx: ctx.Ctx, Store: ctx.Store, ObsMs: ctx.ObsMs, Event: ev, Vars: ctx.Vars}
		v, err := Eval(rankExpr, rowCtx)
		if err != nil || v.IsNull() {
			return agg.Input{}, false
		}
		f, _ := v.AsFloat()
		return agg.Input{Num: f, Key: float64(ev.EventTime), Val: v}, true
	}
	ranks, err := window.EvaluateGrouped(ctx.background(), ctx.Store, rankResolve, scope, tLo, tHi, predicate, n.Agg, keyFn)
	if err != nil {
		return value.Value{}, err
	}

	winner := ""
	var winnerRank float64
	haveWinner := false
	for key, raw := range ranks {
		f, ok := asRankFloat(raw)
		if !ok {
			continue
		}
		take := !haveWinner
		if haveWinner {
			switch n.Having {
			case HavingMin:
				take = f < winnerRank
			case HavingMax:
				take = f > winnerRank
			default:
				take = key < winner
			}
		}
		if take {
			winner = key
			winnerRank = f
			haveWinner = true
		}
	}
	if !haveWinner {
		// no numeric ranking value anywhere; fall back to the
		// lexicographically smallest key so the call still resolves.
		for key := range groups {
			if !haveWinner || key < winner {
				winner = key
				haveWinner = true
			}
		}
	}
	return wrapAggResult(groups[winner]), nil
}

func asRankFloat(v any) (float64, bool) {
	switch r := v.(type) {
	case nil:
		return 0, false
	case uint64:
		return float64(r), true
	case int64:
		return float64(r), true
	case float64:
		return r, true
	case value.Value:
		return r.AsFloat()
	}
	return 0, false
}

func emptyGroupedResult(kind agg.Kind) any {
	return agg.New(kind).Evaluate()
}

func wrapAggResult(result any) value.Value {
	switch v := result.(type) {
	case nil:
		return value.Value{}
	case uint64:
		return value.Int(int32(v))
	case int64:
		return value.Int(int32(v))
	case float64:
		return value.Float(v)
	case bool:
		return value.Bool(v)
	case string:
		return value.String(v)
	case value.Value:
		return v
	}
	return value.Value{}
}
