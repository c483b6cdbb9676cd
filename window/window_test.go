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

package window

import (
	"context"
	"testing"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/heap"
	"github.com/streamfeat/engine/store"
)

const day = 24 * 60 * 60 * 1000

func countInput(*store.Event) (agg.Input, bool) { return agg.Input{}, true }

func alwaysTrue(*store.Event) (bool, error) { return true, nil }

func mkEvent(ms int64, home, away string) store.Event {
	return store.Event{
		EventType: "match",
		EventTime: ms,
		Entities:  store.NewEntities([]string{"home", "away"}, []string{home, away}),
	}
}

// TestEvaluatePastFixedWindowSpansBlocks verifies a past-7-day window
// that spans a sealed block and the open tail counts every event in
// range exactly once (spec section 8, scenario S1-style coverage).
func TestEvaluatePastFixedWindowSpansBlocks(t *testing.T) {
	s := store.New(store.WithBlockSize(3))
	resolveInputs := func(ev *store.Event, specs []store.AggregateSpec) []agg.Input {
		return make([]agg.Input, len(specs))
	}
	for i := int64(0); i < 10; i++ {
		ev := mkEvent(i*day, "A", "B")
		if err := s.Insert(ev, resolveInputs); err != nil {
			t.Fatal(err)
		}
	}

	spec := store.AggregateSpec{Attribute: "event_time", Kind: agg.KindCount}
	s.RegisterAggregate(spec, countInput)

	interval := FixedInterval(Past, 4, Day)
	lo, hi := Resolve(interval, 9*day)
	if lo != 5*day || hi != 9*day {
		t.Fatalf("Resolve(past 4d, obs=9d) = [%d, %d], want [%d, %d]", lo, hi, 5*day, 9*day)
	}

	got, err := Evaluate(context.Background(), s, spec, countInput, Scope{}, lo, hi, alwaysTrue)
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint64) != 5 {
		t.Fatalf("Count over [%d,%d] = %v, want 5 (days 5..9 inclusive)", lo, hi, got)
	}
}

// TestEvaluateEntityScoped verifies scoping a window to a single
// entity id (spec section 8, scenario S4).
func TestEvaluateEntityScoped(t *testing.T) {
	s := store.New(store.WithBlockSize(100))
	resolveInputs := func(ev *store.Event, specs []store.AggregateSpec) []agg.Input {
		return make([]agg.Input, len(specs))
	}
	if err := s.Insert(mkEvent(1*day, "A", "B"), resolveInputs); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(mkEvent(2*day, "B", "A"), resolveInputs); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(mkEvent(3*day, "A", "C"), resolveInputs); err != nil {
		t.Fatal(err)
	}

	spec := store.AggregateSpec{Attribute: "event_time", Kind: agg.KindCount}
	s.RegisterAggregate(spec, countInput)

	got, err := Evaluate(context.Background(), s, spec, countInput, Scope{EntityType: "home", EntityID: "A"}, 0, 10*day, alwaysTrue)
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint64) != 2 {
		t.Fatalf("Count scoped to home=A = %v, want 2", got)
	}
}

// TestEvaluateEmptyWindowTypedZero checks the empty-window contract:
// Count returns 0, never nil, when nothing matches (spec section 7).
func TestEvaluateEmptyWindowTypedZero(t *testing.T) {
	s := store.New(store.WithBlockSize(100))
	spec := store.AggregateSpec{Attribute: "event_time", Kind: agg.KindCount}
	s.RegisterAggregate(spec, countInput)

	got, err := Evaluate(context.Background(), s, spec, countInput, Scope{}, 0, 100, alwaysTrue)
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint64) != 0 {
		t.Fatalf("Count over empty store = %v, want 0", got)
	}
}

// TestEvaluatePredicateFiltersRows confirms the predicate is applied
// per event before folding into the aggregate.
func TestEvaluatePredicateFiltersRows(t *testing.T) {
	s := store.New(store.WithBlockSize(100))
	resolveInputs := func(ev *store.Event, specs []store.AggregateSpec) []agg.Input {
		return make([]agg.Input, len(specs))
	}
	for i := int64(0); i < 5; i++ {
		if err := s.Insert(mkEvent(i*day, "A", "B"), resolveInputs); err != nil {
			t.Fatal(err)
		}
	}
	spec := store.AggregateSpec{Attribute: "event_time", Kind: agg.KindCount}
	s.RegisterAggregate(spec, countInput)

	evenDays := func(ev *store.Event) (bool, error) {
		return (ev.EventTime/day)%2 == 0, nil
	}
	got, err := Evaluate(context.Background(), s, spec, countInput, Scope{}, 0, 5*day, evenDays)
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint64) != 3 {
		t.Fatalf("Count with even-day predicate = %v, want 3 (days 0,2,4)", got)
	}
}

// TestEvaluatePredicateSkipsFrozenFastPath is a regression test: a
// fully-sealed block's frozen aggregate is folded over every row in
// the block (spec section 3 invariant), so a query with a predicate
// must not merge it directly -- it has to recompute row by row even
// when the block lies entirely inside [tLo, tHi].
func TestEvaluatePredicateSkipsFrozenFastPath(t *testing.T) {
	s := store.New(store.WithBlockSize(3))
	resolveInputs := func(ev *store.Event, specs []store.AggregateSpec) []agg.Input {
		return make([]agg.Input, len(specs))
	}
	for i := int64(0); i < 3; i++ {
		if err := s.Insert(mkEvent(i*day, "A", "B"), resolveInputs); err != nil {
			t.Fatal(err)
		}
	}
	spec := store.AggregateSpec{Attribute: "event_time", Kind: agg.KindCount}
	s.RegisterAggregate(spec, countInput)

	evenDays := func(ev *store.Event) (bool, error) {
		return (ev.EventTime/day)%2 == 0, nil
	}
	// the block [0,3) is entirely inside [0, 2*day] and unscoped, so
	// the frozen-merge fast path would fire here if predicate weren't
	// checked.
	got, err := Evaluate(context.Background(), s, spec, countInput, Scope{}, 0, 2*day, evenDays)
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint64) != 2 {
		t.Fatalf("Count with predicate over sealed block = %v, want 2 (days 0,2)", got)
	}
}

// TestEvaluateOrdersBoundaryFragmentsByTime is a regression test for
// an evaluator that treated heap.OrderSlice's output as fully sorted.
// OrderSlice only guarantees the minimum lands at index 0; draining it
// via PopSlice is what actually produces a time-ordered pass, which
// First/Last-style aggregates require.
func TestEvaluateOrdersBoundaryFragmentsByTime(t *testing.T) {
	events := []store.Event{
		mkEvent(5*day, "A", "B"),
		mkEvent(1*day, "A", "B"),
		mkEvent(9*day, "A", "B"),
		mkEvent(3*day, "A", "B"),
		mkEvent(7*day, "A", "B"),
	}
	fragments := make([]fragmentRow, len(events))
	for i := range events {
		fragments[i] = fragmentRow{ev: &events[i]}
	}

	heap.OrderSlice(fragments, lessFragmentRow)
	ordered := make([]fragmentRow, 0, len(fragments))
	for len(fragments) > 0 {
		ordered = append(ordered, heap.PopSlice(&fragments, lessFragmentRow))
	}

	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].ev.EventTime > ordered[i].ev.EventTime {
			t.Fatalf("fragments not time-ordered: %v before %v", ordered[i-1].ev.EventTime, ordered[i].ev.EventTime)
		}
	}
}

func TestResolveKeywordIntervals(t *testing.T) {
	// obs at 2024-03-15 00:00:00 UTC (a Friday); compute expected
	// bounds relative to fastdate's truncation functions rather than
	// hand-computed constants, so this test documents Resolve's
	// contract rather than fastdate's internals.
	obsMs := int64(1710460800000) // 2024-03-15T00:00:00Z

	ytdLo, ytdHi := Resolve(KeywordInterval(YTD), obsMs)
	if ytdHi != obsMs {
		t.Fatalf("YTD hi = %d, want obs %d", ytdHi, obsMs)
	}
	if ytdLo >= obsMs {
		t.Fatalf("YTD lo = %d, want strictly before obs", ytdLo)
	}

	wtdLo, wtdHi := Resolve(KeywordInterval(WTD), obsMs)
	if wtdHi != obsMs {
		t.Fatalf("WTD hi = %d, want obs %d", wtdHi, obsMs)
	}
	if wtdLo > obsMs {
		t.Fatalf("WTD lo = %d, want <= obs", wtdLo)
	}

	sameDayLo, sameDayHi := Resolve(KeywordInterval(SameDayLastWeek), obsMs)
	if sameDayLo != sameDayHi {
		t.Fatalf("SameDayLastWeek should be a single point, got [%d,%d]", sameDayLo, sameDayHi)
	}
	if obsMs-sameDayLo != 7*day {
		t.Fatalf("SameDayLastWeek = %d, want exactly 7 days before %d", sameDayLo, obsMs)
	}
}
