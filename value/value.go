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

// Package value implements the tagged-union Value type shared by
// events, columns, and the expression evaluator.
package value

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/streamfeat/engine/date"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindDateTime
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("<kind=%d>", uint8(k))
	}
}

// A Value is a tagged union over the value kinds an Event's
// attributes may hold. The zero Value is KindNone (SQL null).
type Value struct {
	kind Kind

	b    bool
	i    int32
	f    float64
	s    string
	t    date.Time
	list []Value
	m    *Map
}

// Map is an ordered mapping from attribute name to Value, used for
// nested attributes (dot-path resolution walks through Map values).
type Map struct {
	names  []string
	values []Value
}

// NewMap builds a Map from parallel name/value slices. The caller
// must not reuse the slices afterward.
func NewMap(names []string, values []Value) *Map {
	return &Map{names: names, values: values}
}

// Get looks up a single field by name.
func (m *Map) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for i, n := range m.names {
		if n == name {
			return m.values[i], true
		}
	}
	return Value{}, false
}

// Len returns the number of fields in m.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// Each calls fn for every (name, value) pair in m in insertion order.
func (m *Map) Each(fn func(name string, v Value)) {
	if m == nil {
		return
	}
	for i, n := range m.names {
		fn(n, m.values[i])
	}
}

// None is the canonical null Value.
var None = Value{kind: KindNone}

func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Int(i int32) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func DateVal(t date.Time) Value {
	return Value{kind: KindDate, t: t}
}
func DateTime(t date.Time) Value {
	return Value{kind: KindDateTime, t: t}
}
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }
func MapVal(m *Map) Value   { return Value{kind: KindMap, m: m} }

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the none/null variant.
func (v Value) IsNull() bool { return v.kind == KindNone }

func (v Value) Bool() (bool, bool)         { return v.b, v.kind == KindBool }
func (v Value) Int() (int32, bool)         { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool)     { return v.f, v.kind == KindFloat }
func (v Value) Str() (string, bool)        { return v.s, v.kind == KindString }
func (v Value) Date() (date.Time, bool)    { return v.t, v.kind == KindDate }
func (v Value) Time() (date.Time, bool)    { return v.t, v.kind == KindDateTime || v.kind == KindDate }
func (v Value) List() ([]Value, bool)      { return v.list, v.kind == KindList }
func (v Value) Map() (*Map, bool)          { return v.m, v.kind == KindMap }

// AsFloat coerces numeric kinds (Int, Float) to float64, per the
// integer+float -> float coercion rule in spec section 4.F.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Path resolves a dot-separated attribute path against v, walking
// through Map values left to right, per spec section 3.
func (v Value) Path(path string) (Value, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.Map()
		if !ok {
			return Value{}, false
		}
		cur, ok = m.Get(part)
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// Equal reports whether v and w hold the same kind and value.
// NaN floats canonicalize to a single representative so that
// Equal(NaN, NaN) is true, matching OrderedFloat's use as a map key
// (design note section 9).
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool:
		return v.b == w.b
	case KindInt:
		return v.i == w.i
	case KindFloat:
		return v.f == w.f || (math.IsNaN(v.f) && math.IsNaN(w.f))
	case KindString:
		return v.s == w.s
	case KindDate, KindDateTime:
		return v.t.Equal(w.t)
	case KindList:
		if len(v.list) != len(w.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(w.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if v.m.Len() != w.m.Len() {
			return false
		}
		eq := true
		v.m.Each(func(name string, a Value) {
			b, ok := w.m.Get(name)
			if !ok || !a.Equal(b) {
				eq = false
			}
		})
		return eq
	default:
		return false
	}
}

// Less gives a total order over Values of the same kind, used for
// Mode's tie-break and HasDuplicateMin/HasDuplicateMax's extremes.
// Values of differing kind compare by Kind.
func (v Value) Less(w Value) bool {
	if v.kind != w.kind {
		return v.kind < w.kind
	}
	switch v.kind {
	case KindBool:
		return !v.b && w.b
	case KindInt:
		return v.i < w.i
	case KindFloat:
		return OrderedFloat(v.f).Less(OrderedFloat(w.f))
	case KindString:
		return v.s < w.s
	case KindDate, KindDateTime:
		return v.t.Before(w.t)
	default:
		return false
	}
}

// OrderedFloat is a total-order wrapper over float64 that
// canonicalizes every NaN bit pattern to one representative, so that
// floats can be used as keys in ordered maps (design note section 9).
// Ordering is: -Inf < ... < -0 < +0 < ... < +Inf < NaN.
type OrderedFloat float64

// cmpKey implements a total order consistent with IEEE-754 except that
// NaN sorts after +Inf instead of being unordered.
func (o OrderedFloat) cmpKey() (isNaN bool, bits uint64) {
	f := float64(o)
	if math.IsNaN(f) {
		return true, 0
	}
	bits = math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return false, bits
}

func (o OrderedFloat) Less(p OrderedFloat) bool {
	oNaN, oBits := o.cmpKey()
	pNaN, pBits := p.cmpKey()
	if oNaN != pNaN {
		return pNaN // non-NaN < NaN
	}
	if oNaN && pNaN {
		return false
	}
	return oBits < pBits
}

// String renders v for debugging.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindDate, KindDateTime:
		return v.t.String()
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		var sb strings.Builder
		sb.WriteByte('{')
		first := true
		v.m.Each(func(name string, e Value) {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&sb, "%s: %s", name, e.String())
		})
		sb.WriteByte('}')
		return sb.String()
	default:
		return "<?>"
	}
}

// SortKinds returns the distinct kinds in ks in a stable, deterministic
// order, used when reporting AttributeKindAmbiguous errors.
func SortKinds(ks map[Kind]struct{}) []Kind {
	out := make([]Kind, 0, len(ks))
	for k := range ks {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
