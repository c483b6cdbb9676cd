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
	"github.com/RoaringBitmap/roaring"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/column"
	"github.com/streamfeat/engine/date"
	"github.com/streamfeat/engine/value"
)

// eventTimeValue renders an event_time (milliseconds since the Unix
// epoch) as a DateTime Value. Value.Int is 32-bit (spec section 3),
// far too narrow for a millisecond timestamp, so event_time columns
// use the DateTime kind rather than Int.
func eventTimeValue(ms int64) value.Value {
	return value.DateTime(date.Unix(ms/1000, (ms%1000)*1_000_000))
}

// Block is a sealed, immutable batch of events (spec section 3). Once
// built it is never mutated; concurrent readers share it freely.
type Block struct {
	TMin, TMax int64

	events []Event // retained so boundary-fragment recomputation can decode without re-parsing columns; see window.Evaluate

	cols map[string]column.Encoded // attribute path (or "event_time"/"event_type"/"entities.<type>") -> encoded column

	// entityIndex[entityType][entityID] is the set of row indices
	// within this block holding that entity (spec section 3 invariant:
	// "the entity index for a block exactly covers the rows present in
	// that block"), stored as a compressed bitmap since a block's
	// entity cardinality is typically far smaller than its row count.
	entityIndex map[string]map[string]*roaring.Bitmap

	experimentIDs map[string]struct{} // distinct experiment_id values present, for flushExperiment

	frozen map[AggregateSpec]agg.Aggregate
}

// sealTail builds an immutable Block from the tail's current events
// and aggregate snapshot. encode selects whether each column's
// encoding is picked by column.SealWithHash (spec section 6 knob
// enable_compression); when false, every column is stored with
// column.BlockCompressed (s2), so no column is kept uncompressed.
func sealTail(events []Event, specs []AggregateSpec, frozenAggs []agg.Aggregate, encode bool, hash column.HashFunc) (*Block, error) {
	b := &Block{
		entityIndex:   make(map[string]map[string]*roaring.Bitmap),
		experimentIDs: make(map[string]struct{}),
		frozen:        make(map[AggregateSpec]agg.Aggregate, len(specs)),
		cols:          make(map[string]column.Encoded),
		events:        events,
	}
	if len(events) == 0 {
		return b, nil
	}
	b.TMin, b.TMax = events[0].EventTime, events[len(events)-1].EventTime

	rawCols := make(map[string]*column.Raw)
	ensureCol := func(name string, kind value.Kind) *column.Raw {
		c, ok := rawCols[name]
		if !ok {
			c = column.NewRaw(kind)
			rawCols[name] = c
		}
		return c
	}

	for i, ev := range events {
		ensureCol("event_time", value.KindDateTime).Append(eventTimeValue(ev.EventTime))
		ensureCol("event_type", value.KindString).Append(value.String(ev.EventType))

		ev.Entities.Each(func(entityType, entityID string) {
			ensureCol("entities."+entityType, value.KindString).Append(value.String(entityID))
			byID, ok := b.entityIndex[entityType]
			if !ok {
				byID = make(map[string]*roaring.Bitmap)
				b.entityIndex[entityType] = byID
			}
			rows, ok := byID[entityID]
			if !ok {
				rows = roaring.New()
				byID[entityID] = rows
			}
			rows.Add(uint32(i))
		})

		if ev.ExperimentID != "" {
			b.experimentIDs[ev.ExperimentID] = struct{}{}
		}

		if ev.Attrs != nil {
			ev.Attrs.Each(func(name string, v value.Value) {
				ensureCol("attrs."+name, v.Kind()).Append(v)
			})
		}
	}

	for name, raw := range rawCols {
		var enc column.Encoded
		var err error
		if encode {
			enc, err = column.SealWithHash(raw, hash)
		} else {
			enc, err = (column.BlockCompressed{}).Encode(raw)
		}
		if err != nil {
			return nil, err
		}
		b.cols[name] = enc
	}

	for i, spec := range specs {
		b.frozen[spec] = frozenAggs[i]
	}

	return b, nil
}

// Column decodes and returns the named column's raw values. Sealed
// blocks decode on demand rather than caching, since window
// evaluation over fully-covered blocks uses only the frozen
// aggregates (spec section 4.E) -- decoding is needed only for the
// two boundary blocks of any given window.
func (b *Block) Column(name string) (*column.Raw, error) {
	enc, ok := b.cols[name]
	if !ok {
		return nil, nil
	}
	return enc.Decode()
}

// Frozen returns the block's pre-materialized partial aggregate for
// spec, or false if the block holds no state for spec (it was sealed
// before spec was registered); BackfillAggregate computes that state.
func (b *Block) Frozen(spec AggregateSpec) (agg.Aggregate, bool) {
	a, ok := b.frozen[spec]
	return a, ok
}

// BackfillAggregate computes and freezes spec's state for this block
// by folding resolve's inputs over the block's retained events in
// ingest order, used
// when a query references an aggregate registered after this block
// was sealed (spec section 4.D, "Aggregate registration").
func (b *Block) BackfillAggregate(spec AggregateSpec, resolve func(ev *Event) (agg.Input, bool)) agg.Aggregate {
	a := agg.New(spec.Kind)
	for i := range b.events {
		in, ok := resolve(&b.events[i])
		if ok {
			a.Update(in)
		}
	}
	b.frozen[spec] = a
	return a
}

// Len returns the number of rows sealed into the block.
func (b *Block) Len() int { return len(b.events) }

// EventAt returns the event at row i within the block.
func (b *Block) EventAt(i int) *Event { return &b.events[i] }

// EntityRows returns the sorted row indices holding entityID for
// entityType, or nil if there are none.
func (b *Block) EntityRows(entityType, entityID string) []int {
	byID, ok := b.entityIndex[entityType]
	if !ok {
		return nil
	}
	bm, ok := byID[entityID]
	if !ok {
		return nil
	}
	rows := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		rows = append(rows, int(it.Next()))
	}
	return rows
}

// EntityRowsMulti returns the sorted row indices matching every
// (entityType, entityID) pair in entities, via roaring-bitmap
// intersection across the block's per-entity-type indices (spec
// section 3: a query scoped to several entity types at once matches
// iff the event's entity matches for *every* named type -- a plain
// set intersection). Returns nil as soon as any named type/id pair has
// no matching rows in this block, since the intersection is then
// necessarily empty.
func (b *Block) EntityRowsMulti(entities map[string]string) []int {
	if len(entities) == 0 {
		return nil
	}
	bitmaps := make([]*roaring.Bitmap, 0, len(entities))
	for typ, id := range entities {
		byID, ok := b.entityIndex[typ]
		if !ok {
			return nil
		}
		bm, ok := byID[id]
		if !ok {
			return nil
		}
		bitmaps = append(bitmaps, bm)
	}
	merged := roaring.FastAnd(bitmaps...)
	rows := make([]int, 0, merged.GetCardinality())
	it := merged.Iterator()
	for it.HasNext() {
		rows = append(rows, int(it.Next()))
	}
	return rows
}

// HasExperiment reports whether any row in the block carries
// experimentID, used by Store.FlushExperiment.
func (b *Block) HasExperiment(experimentID string) bool {
	_, ok := b.experimentIDs[experimentID]
	return ok
}
