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

package store

import (
	"context"
	"testing"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/fxerr"
)

func noopInputs(ev *Event, specs []AggregateSpec) []agg.Input {
	return make([]agg.Input, len(specs))
}

func mkEvent(ms int64, home, away string) Event {
	return Event{
		EventType: "match",
		EventTime: ms,
		Entities:  NewEntities([]string{"home", "away"}, []string{home, away}),
	}
}

func TestOutOfOrderIngestRejected(t *testing.T) {
	s := New(WithBlockSize(100))
	if err := s.Insert(mkEvent(2000, "A", "B"), noopInputs); err != nil {
		t.Fatal(err)
	}
	err := s.Insert(mkEvent(1000, "A", "B"), noopInputs)
	if !fxerr.Is(err, fxerr.OutOfOrderIngest) {
		t.Fatalf("Insert out-of-order = %v, want OutOfOrderIngest", err)
	}
	// a rejected insert must leave the tail unchanged (spec section 7).
	if n := s.tail.len(); n != 1 {
		t.Fatalf("tail length after rejected insert = %d, want 1", n)
	}
}

func TestSealAtBlockSize(t *testing.T) {
	s := New(WithBlockSize(3))
	for i := int64(0); i < 7; i++ {
		if err := s.Insert(mkEvent(i*1000, "A", "B"), noopInputs); err != nil {
			t.Fatal(err)
		}
	}
	blocks := s.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("len(Blocks()) = %d, want 2 (7 events / block size 3)", len(blocks))
	}
	if s.tail.len() != 1 {
		t.Fatalf("tail length = %d, want 1 (7 mod 3)", s.tail.len())
	}
	for _, b := range blocks {
		if b.Len() != 3 {
			t.Fatalf("sealed block length = %d, want 3", b.Len())
		}
	}
}

func TestEntityRangeScoping(t *testing.T) {
	// scenario S4: scoping to entities.home = A matches only the
	// first event; scoping to entities.away = A matches only the
	// second.
	s := New(WithBlockSize(100))
	if err := s.Insert(mkEvent(1000, "A", "B"), noopInputs); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(mkEvent(2000, "B", "A"), noopInputs); err != nil {
		t.Fatal(err)
	}

	homeRows, tailEvents, err := s.EntityRange(context.Background(), "home", "A", 0, 3000)
	if err != nil {
		t.Fatal(err)
	}
	total := len(tailEvents)
	for _, br := range homeRows {
		total += len(br.Rows)
	}
	if total != 1 {
		t.Fatalf("entities.home=A matched %d rows, want 1", total)
	}

	awayRows, tailEvents2, err := s.EntityRange(context.Background(), "away", "A", 0, 3000)
	if err != nil {
		t.Fatal(err)
	}
	total = len(tailEvents2)
	for _, br := range awayRows {
		total += len(br.Rows)
	}
	if total != 1 {
		t.Fatalf("entities.away=A matched %d rows, want 1", total)
	}
}

func TestEntityRangeMultiIntersection(t *testing.T) {
	// scenario S6: scoping to entities.home = A AND entities.away = B
	// is a set-intersection of the two per-entity-type index lists --
	// only the event carrying both matches, not either alone.
	s := New(WithBlockSize(4))
	if err := s.Insert(mkEvent(1000, "A", "B"), noopInputs); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(mkEvent(2000, "A", "C"), noopInputs); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(mkEvent(3000, "D", "B"), noopInputs); err != nil {
		t.Fatal(err)
	}
	// the fourth insert seals the block (block size 4), so the rows
	// above live in a sealed block's entity index rather than the
	// open tail.
	if err := s.Insert(mkEvent(4000, "Z", "Z"), noopInputs); err != nil {
		t.Fatal(err)
	}

	rowsByBlock, tailEvents, err := s.EntityRangeMulti(context.Background(), map[string]string{"home": "A", "away": "B"}, 0, 5000)
	if err != nil {
		t.Fatal(err)
	}
	total := len(tailEvents)
	for _, br := range rowsByBlock {
		total += len(br.Rows)
	}
	if total != 1 {
		t.Fatalf("entities.home=A AND entities.away=B matched %d rows, want 1", total)
	}
}

func TestFlushDropsAllBlocks(t *testing.T) {
	s := New(WithBlockSize(2))
	for i := int64(0); i < 4; i++ {
		if err := s.Insert(mkEvent(i*1000, "A", "B"), noopInputs); err != nil {
			t.Fatal(err)
		}
	}
	if len(s.Blocks()) == 0 {
		t.Fatal("expected at least one sealed block before flush")
	}
	s.Flush()
	if len(s.Blocks()) != 0 {
		t.Fatalf("Blocks() after Flush() = %d, want 0", len(s.Blocks()))
	}
	if s.tail.len() != 0 {
		t.Fatalf("tail length after Flush() = %d, want 0", s.tail.len())
	}
}

func TestFlushExperimentKeepsNonExperimentBlocks(t *testing.T) {
	s := New(WithBlockSize(1))
	tagged := mkEvent(1000, "A", "B")
	tagged.ExperimentID = "exp1"
	untagged := mkEvent(2000, "A", "B")

	if err := s.Insert(tagged, noopInputs); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(untagged, noopInputs); err != nil {
		t.Fatal(err)
	}
	if len(s.Blocks()) != 2 {
		t.Fatalf("len(Blocks()) = %d, want 2", len(s.Blocks()))
	}

	s.FlushExperiment("exp1")
	blocks := s.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("len(Blocks()) after FlushExperiment = %d, want 1", len(blocks))
	}
	if blocks[0].HasExperiment("exp1") {
		t.Fatal("remaining block should not carry the flushed experiment id")
	}
}

func TestRegisterAggregateBackfills(t *testing.T) {
	s := New(WithBlockSize(2))
	for i := int64(0); i < 4; i++ {
		if err := s.Insert(mkEvent(i*1000, "A", "B"), noopInputs); err != nil {
			t.Fatal(err)
		}
	}
	spec := AggregateSpec{Attribute: "event_time", Kind: agg.KindCount}
	resolve := func(ev *Event) (agg.Input, bool) { return agg.Input{Key: float64(ev.EventTime)}, true }
	s.RegisterAggregate(spec, resolve)

	for _, b := range s.Blocks() {
		a, ok := b.Frozen(spec)
		if !ok {
			t.Fatal("expected backfilled aggregate to be present")
		}
		if got := a.Evaluate().(uint64); got != uint64(b.Len()) {
			t.Fatalf("backfilled Count = %d, want %d", got, b.Len())
		}
	}
}
