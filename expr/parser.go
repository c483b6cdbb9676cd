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

// This file implements a small hand-rolled recursive-descent parser
// for the narrow expression grammar of spec section 6. The grammar is
// specific enough (aggregate-call OVER/WHERE/GROUP BY/HAVING clauses,
// @variable bindings) that no library in the pack models it; every
// other surface of the engine prefers a pack dependency over
// hand-rolled code (see DESIGN.md).
package expr

import (
	"strconv"
	"strings"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/fxerr"
	"github.com/streamfeat/engine/window"
)

type parser struct {
	toks []token
	pos  int
}

// Parse parses a single expression (no SELECT/FOR wrapper).
func Parse(src string) (Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().text)
	}
	return n, nil
}

// ParseQuery parses a full `[FOR <types>] SELECT item [, item ...]`
// statement, with optional leading `@name := expr ;` bindings.
func ParseQuery(src string) (*Query, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	q := &Query{}

	for p.curIsKeyword("for") {
		p.advance()
		for {
			id, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			q.ForTypes = append(q.ForTypes, id)
			if p.curIsPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	for p.cur().kind == tokVar {
		save := p.pos
		name := p.cur().text
		p.advance()
		if !p.curIsPunct(":=") {
			p.pos = save
			break
		}
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q.Bindings = append(q.Bindings, Binding{Name: name, Expr: e})
		if p.curIsPunct(";") {
			p.advance()
		}
	}

	if !p.curIsKeyword("select") {
		return nil, p.errorf("expected SELECT, got %q", p.cur().text)
	}
	p.advance()
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		alias := ""
		if p.curIsKeyword("as") {
			p.advance()
			alias, err = p.expectIdent()
			if err != nil {
				return nil, err
			}
		}
		q.Selects = append(q.Selects, SelectItem{Expr: e, Alias: alias})
		if p.curIsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().text)
	}
	return q, nil
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fxerr.Newf(fxerr.ParseError, "expr: "+format, args...)
}

func (p *parser) curIsKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) curIsPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.curIsPunct(s) {
		return p.errorf("expected %q, got %q", s, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.cur().kind != tokIdent {
		return "", p.errorf("expected identifier, got %q", p.cur().text)
	}
	return p.advance().text, nil
}

// parseExpr is the grammar's entry point: a full boolean expression.
func (p *parser) parseExpr() (Node, error) { return p.parseOr() }

func (p *parser) parseOr() (Node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIsKeyword("or") {
		p.advance()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "or", L: l, R: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (Node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.curIsKeyword("and") {
		p.advance()
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "and", L: l, R: r}
	}
	return l, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.curIsKeyword("not") {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", X: x}, nil
	}
	return p.parseIs()
}

func (p *parser) parseIs() (Node, error) {
	x, err := p.parseIn()
	if err != nil {
		return nil, err
	}
	if p.curIsKeyword("is") {
		p.advance()
		negate := false
		if p.curIsKeyword("not") {
			negate = true
			p.advance()
		}
		if !p.curIsKeyword("null") {
			return nil, p.errorf("expected NULL after IS, got %q", p.cur().text)
		}
		p.advance()
		return &IsNullCheck{X: x, Negate: negate}, nil
	}
	return x, nil
}

func (p *parser) parseIn() (Node, error) {
	x, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	negate := false
	if p.curIsKeyword("not") {
		save := p.pos
		p.advance()
		if !p.curIsKeyword("in") {
			p.pos = save
			return x, nil
		}
		negate = true
	}
	if !p.curIsKeyword("in") {
		return x, nil
	}
	p.advance()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var items []Node
	for {
		it, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if p.curIsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	op := "in"
	if negate {
		op = "not in"
	}
	return &Binary{Op: op, L: x, R: &Tuple{Items: items}}, nil
}

var cmpOps = map[string]bool{"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseCmp() (Node, error) {
	l, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokPunct && cmpOps[p.cur().text] {
		op := p.advance().text
		r, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, L: l, R: r}, nil
	}
	return l, nil
}

func (p *parser) parseAdd() (Node, error) {
	l, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.curIsPunct("+") || p.curIsPunct("-") {
		op := p.advance().text
		r, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *parser) parseMul() (Node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIsPunct("*") || p.curIsPunct("/") || p.curIsPunct("%") {
		op := p.advance().text
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.curIsPunct("-") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.advance()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf("bad integer literal %q", t.text)
		}
		return &Literal{Int: &n}, nil
	case tokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("bad float literal %q", t.text)
		}
		return &Literal{Float: &f}, nil
	case tokString:
		p.advance()
		s := t.text
		return &Literal{Str: &s}, nil
	case tokVar:
		p.advance()
		return &VarRef{Name: t.text}, nil
	case tokPunct:
		if t.text == "(" {
			p.advance()
			items := []Node{}
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				items = append(items, e)
				if p.curIsPunct(",") {
					p.advance()
					continue
				}
				break
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if len(items) == 1 {
				return items[0], nil
			}
			return &Tuple{Items: items}, nil
		}
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			p.advance()
			b := true
			return &Literal{Bool: &b}, nil
		case "false":
			p.advance()
			b := false
			return &Literal{Bool: &b}, nil
		case "null":
			p.advance()
			return &Literal{IsNull: true}, nil
		}
		if k, ok := aggKindByName(t.text); ok {
			return p.parseAggCall(k)
		}
		return p.parseIdentOrCall()
	}
	return nil, p.errorf("unexpected token %q", t.text)
}

func (p *parser) parseIdentOrCall() (Node, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.curIsPunct("(") {
		p.advance()
		var args []Node
		if !p.curIsPunct(")") {
			for {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.curIsPunct(",") {
					p.advance()
					continue
				}
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &Call{Name: name, Args: args}, nil
	}
	if strings.HasPrefix(name, "entities.") {
		return &EntityRef{EntityType: strings.TrimPrefix(name, "entities.")}, nil
	}
	if strings.Contains(name, ".") {
		return &AttrPath{Path: name}, nil
	}
	return &Ident{Name: name}, nil
}

var aggKindNames = map[string]agg.Kind{
	"count": agg.KindCount, "sum": agg.KindSum, "mean": agg.KindMean, "avg": agg.KindMean,
	"product": agg.KindProduct, "min": agg.KindMin, "max": agg.KindMax,
	"argmin": agg.KindArgMin, "argmax": agg.KindArgMax, "first": agg.KindFirst, "last": agg.KindLast,
	"stddev": agg.KindStdDev, "variance": agg.KindVariance, "skewness": agg.KindSkewness,
	"kurtosis": agg.KindKurtosis, "rms": agg.KindRootMeanSquare, "absenergy": agg.KindAbsoluteEnergy,
	"abssumofchanges": agg.KindAbsoluteSumOfChanges, "any": agg.KindAny, "all": agg.KindAll,
	"hasduplicate": agg.KindHasDuplicate, "hasduplicatemin": agg.KindHasDuplicateMin,
	"hasduplicatemax": agg.KindHasDuplicateMax, "mode": agg.KindMode, "nunique": agg.KindNUnique,
	"nth": agg.KindNth, "avgtimebetween": agg.KindAverageTimeBetween, "approxmedian": agg.KindApproxMedian,
}

func aggKindByName(name string) (agg.Kind, bool) {
	k, ok := aggKindNames[strings.ToLower(name)]
	return k, ok
}

var intervalUnits = map[string]window.Unit{
	"ms": window.Millisecond, "millisecond": window.Millisecond, "milliseconds": window.Millisecond,
	"s": window.Second, "second": window.Second, "seconds": window.Second,
	"m": window.Minute, "minute": window.Minute, "minutes": window.Minute,
	"h": window.Hour, "hour": window.Hour, "hours": window.Hour,
	"d": window.Day, "day": window.Day, "days": window.Day,
	"w": window.Week, "week": window.Week, "weeks": window.Week,
	"month": window.Month, "months": window.Month,
	"quarter": window.Quarter, "quarters": window.Quarter,
	"y": window.Year, "year": window.Year, "years": window.Year,
}

var intervalKeywords = map[string]window.Keyword{
	"ytd": window.YTD, "mtd": window.MTD, "wtd": window.WTD,
	"last_week": window.LastWeek, "last_month": window.LastMonth,
	"last_quarter": window.LastQuarter, "last_year": window.LastYear,
	"next_week": window.NextWeek, "next_month": window.NextMonth,
	"next_quarter": window.NextQuarter, "next_year": window.NextYear,
	"same_day_last_week": window.SameDayLastWeek, "same_day_last_month": window.SameDayLastMonth,
	"same_day_last_year": window.SameDayLastYear, "same_day_next_week": window.SameDayNextWeek,
	"same_day_next_month": window.SameDayNextMonth, "same_day_next_year": window.SameDayNextYear,
	"next_workday": window.NextWorkDay, "previous_workday": window.PreviousWorkDay,
}

// parseAggCall parses `KIND(arg) [FOR entities.<type>] OVER <interval>
// [WHERE pred]`, spec section 6's aggregate-call surface.
func (p *parser) parseAggCall(k agg.Kind) (Node, error) {
	p.advance() // the kind name
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var arg Node
	if !p.curIsPunct(")") {
		var err error
		arg, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	call := &AggCall{Agg: k, Arg: arg}

	if p.curIsKeyword("for") {
		p.advance()
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(id, "entities.") {
			call.Scope = window.Scope{EntityType: strings.TrimPrefix(id, "entities."), EntityID: "@self"}
		} else {
			return nil, p.errorf("expected entities.<type> in FOR clause, got %q", id)
		}
	}

	if !p.curIsKeyword("over") {
		return nil, p.errorf("expected OVER after aggregate call, got %q", p.cur().text)
	}
	p.advance()

	interval, err := p.parseInterval()
	if err != nil {
		return nil, err
	}
	call.Interval = interval

	if p.curIsKeyword("where") {
		p.advance()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Where = w
	}

	if p.curIsKeyword("group") {
		p.advance()
		if !p.curIsKeyword("by") {
			return nil, p.errorf("expected BY after GROUP, got %q", p.cur().text)
		}
		p.advance()
		g, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.GroupBy = g
	}

	if p.curIsKeyword("having") {
		if call.GroupBy == nil {
			return nil, p.errorf("HAVING requires a preceding GROUP BY clause")
		}
		p.advance()
		switch {
		case p.curIsKeyword("min"):
			call.Having = HavingMin
		case p.curIsKeyword("max"):
			call.Having = HavingMax
		default:
			return nil, p.errorf("expected MIN or MAX after HAVING, got %q", p.cur().text)
		}
		p.advance()
		on, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.HavingOn = on
	}
	return call, nil
}

// parseInterval parses `PAST <n> <unit>`, `NEXT <n> <unit>`, or a bare
// calendar keyword such as YTD / LAST_WEEK.
func (p *parser) parseInterval() (window.Interval, error) {
	if p.curIsKeyword("past") || p.curIsKeyword("next") {
		dir := window.Past
		if p.curIsKeyword("next") {
			dir = window.Future
		}
		p.advance()
		if p.cur().kind != tokInt {
			return window.Interval{}, p.errorf("expected integer count after PAST/NEXT, got %q", p.cur().text)
		}
		n, _ := strconv.ParseInt(p.advance().text, 10, 64)
		if p.cur().kind != tokIdent {
			return window.Interval{}, p.errorf("expected time unit, got %q", p.cur().text)
		}
		unitName := p.advance().text
		unit, ok := intervalUnits[strings.ToLower(unitName)]
		if !ok {
			return window.Interval{}, p.errorf("unknown time unit %q", unitName)
		}
		return window.FixedInterval(dir, n, unit), nil
	}
	if p.cur().kind != tokIdent {
		return window.Interval{}, p.errorf("expected interval, got %q", p.cur().text)
	}
	name := p.advance().text
	kw, ok := intervalKeywords[strings.ToLower(name)]
	if !ok {
		return window.Interval{}, p.errorf("unknown interval keyword %q", name)
	}
	return window.KeywordInterval(kw), nil
}
