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

package query

import (
	"testing"

	"github.com/streamfeat/engine/expr"
	"github.com/streamfeat/engine/fxerr"
	"github.com/streamfeat/engine/store"
	"github.com/streamfeat/engine/value"
)

// TestExecuteOrdersBindingsBeforeSelect is scenario S5's binding
// example end to end: the SELECT list reads @w, so Execute must
// evaluate the @w binding (which reads the event's result attribute)
// before evaluating the SELECT list.
func TestExecuteOrdersBindingsBeforeSelect(t *testing.T) {
	st := store.New()
	ev := store.Event{
		EventType: "match",
		EventTime: 1000,
		Entities:  store.NewEntities([]string{"home", "away"}, []string{"A", "B"}),
		Attrs:     value.NewMap([]string{"result"}, []value.Value{value.String("home")}),
	}

	q, err := expr.ParseQuery(`@w := if(result = "away", entities.away, entities.home); select @w as winner`)
	if err != nil {
		t.Fatal(err)
	}

	ctx := &expr.Context{Store: st, Event: &ev}
	results, err := Execute(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Alias != "winner" {
		t.Fatalf("results = %+v", results)
	}
	if s, _ := results[0].Value.Str(); s != "A" {
		t.Fatalf("winner = %q, want A", s)
	}
}

// TestExecuteDetectsCyclicBinding confirms plan's cycle detection is
// actually reachable through Execute, not just plan's own unit tests.
func TestExecuteDetectsCyclicBinding(t *testing.T) {
	st := store.New()
	q, err := expr.ParseQuery("@a := @b + 1; @b := @a + 1; select @a")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Execute(&expr.Context{Store: st}, q)
	if !fxerr.Is(err, fxerr.CyclicBinding) {
		t.Fatalf("got %v, want CyclicBinding", err)
	}
}

func TestExecuteMultipleSelectItems(t *testing.T) {
	st := store.New()
	q, err := expr.ParseQuery("@x := 1 + 1; select @x as doubled, @x + 1 as next")
	if err != nil {
		t.Fatal(err)
	}
	results, err := Execute(&expr.Context{Store: st}, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if i, _ := results[0].Value.Int(); i != 2 {
		t.Fatalf("doubled = %v, want 2", results[0].Value)
	}
	if i, _ := results[1].Value.Int(); i != 3 {
		t.Fatalf("next = %v, want 3", results[1].Value)
	}
}
