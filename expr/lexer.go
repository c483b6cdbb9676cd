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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/streamfeat/engine/fxerr"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokVar    // @name
	tokInt
	tokFloat
	tokString
	tokPunct // one of the fixed punctuation/operator tokens below
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// keywords lists the grammar's keywords. The parser recognizes them
// case-insensitively by text (parser.curIsKeyword) and does not consult
// this map, so these words are not rejected as plain identifiers.
var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"null": true, "true": true, "false": true, "over": true,
	"where": true, "group": true, "by": true, "having": true,
	"min": true, "max": true, "as": true, "select": true, "for": true,
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) errorf(format string, args ...any) error {
	return fxerr.Newf(fxerr.ParseError, "expr: "+format, args...)
}

func (l *lexer) peekRune() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	r, sz := utf8.DecodeRuneInString(l.src[l.pos:])
	return r, sz
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, sz := l.peekRune()
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += sz
	}
}

// twoCharPuncts must be checked before their single-character prefix.
var twoCharPuncts = []string{":=", "<=", ">=", "!=", "<>"}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	r, sz := l.peekRune()

	switch {
	case r == '@':
		l.pos += sz
		nameStart := l.pos
		for l.pos < len(l.src) {
			c, csz := l.peekRune()
			if !isIdentRune(c) {
				break
			}
			l.pos += csz
		}
		if l.pos == nameStart {
			return token{}, l.errorf("bare '@' at position %d", start)
		}
		return token{kind: tokVar, text: l.src[nameStart:l.pos], pos: start}, nil

	case r == '\'' || r == '"':
		return l.lexString(r, start)

	case unicode.IsDigit(r):
		return l.lexNumber(start)

	case isIdentStart(r):
		for l.pos < len(l.src) {
			c, csz := l.peekRune()
			if !isIdentRune(c) {
				break
			}
			l.pos += csz
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	}

	for _, p := range twoCharPuncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return token{kind: tokPunct, text: p, pos: start}, nil
		}
	}
	l.pos += sz
	return token{kind: tokPunct, text: string(r), pos: start}, nil
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentRune(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' }

func (l *lexer) lexString(quote rune, start int) (token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf("unterminated string literal starting at %d", start)
		}
		r, sz := l.peekRune()
		if r == quote {
			l.pos += sz
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		if r == '\\' && l.pos+sz < len(l.src) {
			l.pos += sz
			r2, sz2 := l.peekRune()
			sb.WriteRune(r2)
			l.pos += sz2
			continue
		}
		sb.WriteRune(r)
		l.pos += sz
	}
}

func (l *lexer) lexNumber(start int) (token, error) {
	isFloat := false
	for l.pos < len(l.src) {
		r, sz := l.peekRune()
		if unicode.IsDigit(r) {
			l.pos += sz
			continue
		}
		if r == '.' && !isFloat {
			isFloat = true
			l.pos += sz
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if isFloat {
		return token{kind: tokFloat, text: text, pos: start}, nil
	}
	return token{kind: tokInt, text: text, pos: start}, nil
}

// tokenize returns every token in src, EOF-terminated.
func tokenize(src string) ([]token, error) {
	l := newLexer(src)
	var out []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if t.kind == tokEOF {
			return out, nil
		}
	}
}
