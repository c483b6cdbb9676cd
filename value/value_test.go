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

package value

import (
	"math"
	"testing"
)

func TestPath(t *testing.T) {
	inner := NewMap([]string{"points"}, []Value{Int(42)})
	outer := NewMap([]string{"home_stats"}, []Value{MapVal(inner)})
	v := MapVal(outer)

	got, ok := v.Path("home_stats.points")
	if !ok {
		t.Fatal("expected path to resolve")
	}
	if i, _ := got.Int(); i != 42 {
		t.Fatalf("got %v, want 42", got)
	}

	if _, ok := v.Path("home_stats.missing"); ok {
		t.Fatal("expected unknown path to fail")
	}
}

func TestOrderedFloatNaN(t *testing.T) {
	nan1 := OrderedFloat(math.NaN())
	nan2 := OrderedFloat(math.Float64frombits(math.Float64bits(math.NaN()) ^ 1))
	if nan1.Less(nan2) || nan2.Less(nan1) {
		t.Fatal("distinct NaN bit patterns must compare equal")
	}
	if !OrderedFloat(1.0).Less(nan1) {
		t.Fatal("every non-NaN float must sort before NaN")
	}
	if !OrderedFloat(-1.0).Less(OrderedFloat(1.0)) {
		t.Fatal("basic ordering broken")
	}
	if !OrderedFloat(math.Inf(-1)).Less(OrderedFloat(-1.0)) {
		t.Fatal("-Inf must sort first")
	}
}

func TestValueEqualNull(t *testing.T) {
	if !None.Equal(Value{}) {
		t.Fatal("zero value must equal None")
	}
	if None.Equal(Int(0)) {
		t.Fatal("null must not equal zero int")
	}
}

func TestSchemaWidensNeverNarrows(t *testing.T) {
	s := NewSchema()
	s.Observe("score", KindInt)
	if s.Ambiguous("score") {
		t.Fatal("single kind must not be ambiguous")
	}
	s.Observe("score", KindFloat)
	if !s.Ambiguous("score") {
		t.Fatal("two disjoint kinds must be ambiguous")
	}
	kinds := s.Kinds("score")
	if _, ok := kinds[KindInt]; !ok {
		t.Fatal("schema narrowed away KindInt")
	}
}

func TestSymtabIntern(t *testing.T) {
	st := NewSymtab()
	a := st.Intern("home")
	b := st.Intern("away")
	c := st.Intern("home")
	if a != c {
		t.Fatalf("re-interning must return the same id: %d != %d", a, c)
	}
	if a == b {
		t.Fatal("distinct names must get distinct ids")
	}
	if st.Name(a) != "home" {
		t.Fatalf("Name(%d) = %q, want home", a, st.Name(a))
	}
}
