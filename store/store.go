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
	"sync"
	"sync/atomic"

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/column"
	"github.com/streamfeat/engine/fxerr"
	"github.com/streamfeat/engine/value"
)

// Store is the chunked columnar event store (spec section 4.D),
// single-writer multi-reader per spec section 5.
type Store struct {
	blockSize         int
	enableCompression bool
	hashFunc          column.HashFunc // dictionary-encoding hash_backend (spec section 6); nil means XXHash64

	writeMu sync.Mutex // serializes Insert; matches "store permits exactly one ingest operation at a time"

	blocks atomic.Pointer[[]*Block] // published copy-on-write; sealing appends a new slice

	tail *tail

	registry *registry

	lastIngestTime int64
	hasIngested    bool

	schemas  map[string]*value.Schema // event_type -> schema
	schemaMu sync.Mutex
}

// Option configures a new Store.
type Option func(*Store)

// WithBlockSize overrides the default seal threshold (spec section 6,
// default 1024, must be >= 1).
func WithBlockSize(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.blockSize = n
		}
	}
}

// WithCompression toggles whether sealed blocks pick each column's
// encoding with the seal heuristic (spec section 6 knob
// enable_compression). When disabled, every column is block-compressed
// with s2; there is no uncompressed column encoding.
func WithCompression(enabled bool) Option {
	return func(s *Store) { s.enableCompression = enabled }
}

// WithHashBackend selects the dictionary-encoding hash function (spec
// section 6 knob hash_backend), e.g. column.XXHash64 or
// column.SipHash64.
func WithHashBackend(h column.HashFunc) Option {
	return func(s *Store) { s.hashFunc = h }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		blockSize:         1024,
		enableCompression: true,
		tail:              newTail(),
		registry:          newRegistry(),
		schemas:           make(map[string]*value.Schema),
	}
	empty := []*Block{}
	s.blocks.Store(&empty)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Blocks returns a snapshot of the sealed block list. Safe to use
// without holding any lock; the returned slice is never mutated.
func (s *Store) Blocks() []*Block {
	return *s.blocks.Load()
}

// RegisterAggregate ensures spec is maintained going forward and
// backfills frozen states for every already-sealed block (spec
// section 4.D, "Aggregate registration"; section 5, copy-on-write
// publication).
func (s *Store) RegisterAggregate(spec AggregateSpec, resolve func(ev *Event) (agg.Input, bool)) {
	_, added := s.registry.register(spec)
	if !added {
		return
	}
	for _, b := range s.Blocks() {
		if _, ok := b.Frozen(spec); !ok {
			b.BackfillAggregate(spec, resolve)
		}
	}
}

// schemaFor returns (creating if needed) the schema for eventType.
func (s *Store) schemaFor(eventType string) *value.Schema {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	sc, ok := s.schemas[eventType]
	if !ok {
		sc = value.NewSchema()
		s.schemas[eventType] = sc
	}
	return sc
}

// Schema returns the widened schema observed so far for eventType, or
// nil if no event of that type has been ingested.
func (s *Store) Schema(eventType string) *value.Schema {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	return s.schemas[eventType]
}

// Insert appends ev to the open tail (spec section 4.D: "insert(event)
// requires event.event_time >= last_ingested_time"). resolveInputs
// computes each registered aggregate's Input against ev; it is called
// under the write lock so schema/registry state observed is
// consistent with the insert being performed.
func (s *Store) Insert(ev Event, resolveInputs func(ev *Event, specs []AggregateSpec) []agg.Input) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.hasIngested && ev.EventTime < s.lastIngestTime {
		return fxerr.Newf(fxerr.OutOfOrderIngest, "event_time %d precedes last ingested time %d", ev.EventTime, s.lastIngestTime)
	}
	assignEventID(&ev)

	sc := s.schemaFor(ev.EventType)
	if ev.Attrs != nil {
		ev.Attrs.Each(func(name string, v value.Value) { sc.Observe(name, v.Kind()) })
	}

	specs := s.registry.Snapshot()
	inputs := resolveInputs(&ev, specs)

	s.tail.append(ev, specs, inputs)
	s.lastIngestTime = ev.EventTime
	s.hasIngested = true

	if s.tail.len() >= s.blockSize {
		if err := s.sealLocked(); err != nil {
			return err
		}
	}
	return nil
}

// sealLocked moves the tail into a new immutable Block and rotates in
// a fresh tail. Must be called with writeMu held.
func (s *Store) sealLocked() error {
	specs := s.registry.Snapshot()
	rows, aggs := s.tail.snapshot()
	events := s.tail.eventsUpTo(rows)

	b, err := sealTail(events, specs, aggs, s.enableCompression, s.hashFunc)
	if err != nil {
		return fxerr.Wrap(fxerr.EncodingRoundTripFailed, "seal: column encoding failed", err)
	}

	s.tail.mu.Lock()
	s.tail.resetAfterSeal(specs)
	s.tail.mu.Unlock()

	for {
		old := s.blocks.Load()
		next := make([]*Block, len(*old)+1)
		copy(next, *old)
		next[len(*old)] = b
		if s.blocks.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// Flush atomically drops every sealed block and resets the tail (spec
// section 3: "Flush drops all blocks atomically").
func (s *Store) Flush() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	empty := []*Block{}
	s.blocks.Store(&empty)
	s.tail.mu.Lock()
	s.tail.resetAfterSeal(s.registry.Snapshot())
	s.tail.mu.Unlock()
	s.hasIngested = false
}

// FlushExperiment drops only sealed blocks containing a row tagged
// with experimentID; non-experiment events are never dropped (spec
// section 3). The tail is not touched -- experiment rows still
// pending in the tail are sealed normally and then subject to a later
// FlushExperiment call.
func (s *Store) FlushExperiment(experimentID string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	old := s.Blocks()
	next := make([]*Block, 0, len(old))
	for _, b := range old {
		if !b.HasExperiment(experimentID) {
			next = append(next, b)
		}
	}
	s.blocks.Store(&next)
}

// Range returns every sealed block whose [t_min, t_max] overlaps
// [tLo, tHi], plus whether the tail overlaps (so the caller knows to
// also scan it). Cancellation is polled at each block boundary per
// spec section 5.
func (s *Store) Range(ctx context.Context, tLo, tHi int64) ([]*Block, bool, error) {
	var out []*Block
	for _, b := range s.Blocks() {
		select {
		case <-ctx.Done():
			return nil, false, fxerr.New(fxerr.Cancelled, "range scan cancelled")
		default:
		}
		if b.Len() == 0 {
			continue
		}
		if b.TMax < tLo || b.TMin > tHi {
			continue
		}
		out = append(out, b)
	}
	tailOverlap := s.tail.maxTimeHint() >= tLo
	return out, tailOverlap, nil
}

// EntityRange narrows Range to rows holding entityID for entityType,
// using each block's entity index to skip non-matching blocks
// entirely (spec section 4.D).
func (s *Store) EntityRange(ctx context.Context, entityType, entityID string, tLo, tHi int64) ([]EntityBlockRows, []Event, error) {
	blocks, tailOverlap, err := s.Range(ctx, tLo, tHi)
	if err != nil {
		return nil, nil, err
	}
	var out []EntityBlockRows
	for _, b := range blocks {
		rows := b.EntityRows(entityType, entityID)
		if len(rows) == 0 {
			continue
		}
		out = append(out, EntityBlockRows{Block: b, Rows: rows})
	}
	var tailEvents []Event
	if tailOverlap {
		rows, _ := s.tail.snapshot()
		for _, ev := range s.tail.eventsUpTo(rows) {
			if id, ok := ev.Entities.Get(entityType); ok && id == entityID && ev.EventTime >= tLo && ev.EventTime <= tHi {
				tailEvents = append(tailEvents, ev)
			}
		}
	}
	return out, tailEvents, nil
}

// EntityBlockRows pairs a sealed block with the row indices within it
// matching an entity scan.
type EntityBlockRows struct {
	Block *Block
	Rows  []int
}

// EntityRangeMulti narrows Range to rows matching every (entityType,
// entityID) pair in entities simultaneously (spec section 3:
// set-intersection across entity types), using each block's entity
// index to skip non-matching blocks entirely.
func (s *Store) EntityRangeMulti(ctx context.Context, entities map[string]string, tLo, tHi int64) ([]EntityBlockRows, []Event, error) {
	blocks, tailOverlap, err := s.Range(ctx, tLo, tHi)
	if err != nil {
		return nil, nil, err
	}
	var out []EntityBlockRows
	for _, b := range blocks {
		rows := b.EntityRowsMulti(entities)
		if len(rows) == 0 {
			continue
		}
		out = append(out, EntityBlockRows{Block: b, Rows: rows})
	}
	var tailEvents []Event
	if tailOverlap {
		rows, _ := s.tail.snapshot()
		for _, ev := range s.tail.eventsUpTo(rows) {
			if ev.EventTime < tLo || ev.EventTime > tHi {
				continue
			}
			if entityMatchesAll(&ev, entities) {
				tailEvents = append(tailEvents, ev)
			}
		}
	}
	return out, tailEvents, nil
}

func entityMatchesAll(ev *Event, entities map[string]string) bool {
	for typ, id := range entities {
		got, ok := ev.Entities.Get(typ)
		if !ok || got != id {
			return false
		}
	}
	return true
}

// Filter applies predicate to every event reachable from blocks plus
// (if tailOverlap) the tail, returning the events for which predicate
// returned true. predicate must be free of side effects (spec section
// 4.D).
func (s *Store) Filter(ctx context.Context, blocks []*Block, tailOverlap bool, predicate func(*Event) (bool, error)) ([]Event, error) {
	var out []Event
	for _, b := range blocks {
		select {
		case <-ctx.Done():
			return nil, fxerr.New(fxerr.Cancelled, "filter scan cancelled")
		default:
		}
		for i := 0; i < b.Len(); i++ {
			ev := b.EventAt(i)
			ok, err := predicate(ev)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, *ev)
			}
		}
	}
	if tailOverlap {
		rows, _ := s.tail.snapshot()
		for _, ev := range s.tail.eventsUpTo(rows) {
			ev := ev
			ok, err := predicate(&ev)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}
