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

	"github.com/streamfeat/engine/agg"
	"github.com/streamfeat/engine/fxerr"
	"github.com/streamfeat/engine/heap"
	"github.com/streamfeat/engine/store"
)

// Scope narrows a window evaluation to one or more entities. A zero
// Scope matches every event. EntityType/EntityID name a single
// entity (the common FOR entities.<type> case); Entities, when
// non-empty, names several entity-type/id pairs that must ALL match
// (spec section 3: per-entity query semantics are a set-intersection
// across entity types) and takes precedence over EntityType/EntityID.
type Scope struct {
	EntityType string
	EntityID   string
	Entities   map[string]string
}

func (s Scope) matches(ev *store.Event) bool {
	if len(s.Entities) > 0 {
		for typ, id := range s.Entities {
			got, ok := ev.Entities.Get(typ)
			if !ok || got != id {
				return false
			}
		}
		return true
	}
	if s.EntityType == "" {
		return true
	}
	id, ok := ev.Entities.Get(s.EntityType)
	return ok && id == s.EntityID
}

func (s Scope) scoped() bool {
	return len(s.Entities) > 0 || s.EntityType != ""
}

// Predicate filters events within a window; it must be free of side
// effects (spec section 4.D).
type Predicate func(*store.Event) (bool, error)

// Resolver computes an aggregate's Input for an event, or reports
// false to skip it (e.g. the attribute is absent or of the wrong
// kind).
type Resolver func(*store.Event) (agg.Input, bool)

// fragmentRow pairs an event with a sort key so boundary fragments
// from different blocks and the tail can be walked in a single
// time-ordered pass (spec section 4.E: "boundary fragment"), matching
// the key each order-sensitive aggregate already compares against.
type fragmentRow struct {
	ev *store.Event
}

func lessFragmentRow(a, b fragmentRow) bool {
	return a.ev.EventTime < b.ev.EventTime
}

// scanBlocksAndTail resolves the blocks and tail rows that overlap
// [tLo, tHi] under scope, routing through the multi-entity or
// single-entity index scan when scoped (spec section 3).
func scanBlocksAndTail(ctx context.Context, st *store.Store, scope Scope, tLo, tHi int64) ([]*store.Block, map[*store.Block][]int, []store.Event, error) {
	var blocks []*store.Block
	var boundaryRowsByBlock map[*store.Block][]int
	var tailRows []store.Event

	if scope.scoped() {
		var rowsByBlock []store.EntityBlockRows
		var err error
		if len(scope.Entities) > 0 {
			rowsByBlock, tailRows, err = st.EntityRangeMulti(ctx, scope.Entities, tLo, tHi)
		} else {
			rowsByBlock, tailRows, err = st.EntityRange(ctx, scope.EntityType, scope.EntityID, tLo, tHi)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		boundaryRowsByBlock = make(map[*store.Block][]int, len(rowsByBlock))
		for _, br := range rowsByBlock {
			blocks = append(blocks, br.Block)
			boundaryRowsByBlock[br.Block] = br.Rows
		}
	} else {
		tailOverlap, err := func() (bool, error) {
			var overlap bool
			var err error
			blocks, overlap, err = st.Range(ctx, tLo, tHi)
			return overlap, err
		}()
		if err != nil {
			return nil, nil, nil, err
		}
		if tailOverlap {
			var err error
			tailRows, err = st.Filter(ctx, nil, true, func(ev *store.Event) (bool, error) {
				return ev.EventTime >= tLo && ev.EventTime <= tHi, nil
			})
			if err != nil {
				return nil, nil, nil, err
			}
		}
	}
	return blocks, boundaryRowsByBlock, tailRows, nil
}

// Evaluate computes spec over the window [tLo, tHi] scoped by scope,
// filtered by predicate, merging fully-covered blocks' frozen partial
// states and recomputing only the boundary fragments (spec section
// 4.E).
func Evaluate(ctx context.Context, st *store.Store, spec store.AggregateSpec, resolve Resolver, scope Scope, tLo, tHi int64, predicate Predicate) (any, error) {
	hasPredicate := predicate != nil
	if predicate == nil {
		predicate = func(*store.Event) (bool, error) { return true, nil }
	}

	blocks, boundaryRowsByBlock, tailRows, err := scanBlocksAndTail(ctx, st, scope, tLo, tHi)
	if err != nil {
		return nil, err
	}

	// A block's frozen aggregate is folded unconditionally over every
	// row in the block (spec section 3 invariant), so it can only
	// stand in for an unscoped, predicate-free window.
	fullyCovered := func(b *store.Block) bool {
		return b.TMin >= tLo && b.TMax <= tHi && !scope.scoped() && !hasPredicate
	}

	result := agg.New(spec.Kind)
	haveFully := false
	for _, b := range blocks {
		select {
		case <-ctx.Done():
			return nil, fxerr.New(fxerr.Cancelled, "window evaluation cancelled")
		default:
		}
		if !fullyCovered(b) {
			continue
		}
		frozen, ok := b.Frozen(spec)
		if !ok {
			frozen = b.BackfillAggregate(spec, resolve)
		}
		result.Merge(frozen)
		haveFully = true
	}

	fragments := gatherFragments(blocks, boundaryRowsByBlock, tailRows, scope, tLo, tHi, fullyCovered)
	ordered := orderFragments(fragments)

	matchedAny := false
	for _, fr := range ordered {
		ok, err := predicate(fr.ev)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		in, ok := resolve(fr.ev)
		if !ok {
			continue
		}
		result.Update(in)
		matchedAny = true
	}

	if !haveFully && !matchedAny {
		return emptyWindowResult(spec.Kind), nil
	}
	return result.Evaluate(), nil
}

// gatherFragments collects every row across blocks and the tail that
// falls in [tLo, tHi] and matches scope, skipping blocks for which
// skip returns true (Evaluate's fully-covered blocks, already merged
// from their frozen aggregate).
func gatherFragments(blocks []*store.Block, boundaryRowsByBlock map[*store.Block][]int, tailRows []store.Event, scope Scope, tLo, tHi int64, skip func(*store.Block) bool) []fragmentRow {
	var fragments []fragmentRow
	for _, b := range blocks {
		if skip(b) {
			continue
		}
		rows := boundaryRowsByBlock[b]
		if rows == nil && !scope.scoped() {
			n := b.Len()
			rows = make([]int, n)
			for i := range rows {
				rows[i] = i
			}
		}
		for _, i := range rows {
			ev := b.EventAt(i)
			if ev.EventTime < tLo || ev.EventTime > tHi {
				continue
			}
			if !scope.matches(ev) {
				continue
			}
			fragments = append(fragments, fragmentRow{ev: ev})
		}
	}
	for i := range tailRows {
		ev := &tailRows[i]
		if ev.EventTime < tLo || ev.EventTime > tHi {
			continue
		}
		if !scope.matches(ev) {
			continue
		}
		fragments = append(fragments, fragmentRow{ev: ev})
	}
	return fragments
}

// orderFragments drains fragments through the heap to completion.
// heap.OrderSlice only guarantees fragments[0] is the minimum; a full
// drain is what actually produces a time-ordered pass, which
// First/Last/ArgMin/ArgMax/AbsoluteSumOfChanges depend on (spec
// section 4.E, scenario S3).
func orderFragments(fragments []fragmentRow) []fragmentRow {
	heap.OrderSlice(fragments, lessFragmentRow)
	ordered := make([]fragmentRow, 0, len(fragments))
	for len(fragments) > 0 {
		ordered = append(ordered, heap.PopSlice(&fragments, lessFragmentRow))
	}
	return ordered
}

// GroupKeyFunc computes a grouping key for an event, or reports false
// to exclude the event from every group (spec section 6's `GROUP BY
// <expr>` clause).
type GroupKeyFunc func(*store.Event) (string, bool)

// EvaluateGrouped computes one independent kind aggregate per GROUP BY
// key over [tLo, tHi] (spec section 6). Unlike Evaluate it never
// merges a block's frozen aggregate -- that value covers the whole
// block and cannot be decomposed per group -- so every matching row is
// recomputed individually.
func EvaluateGrouped(ctx context.Context, st *store.Store, resolve Resolver, scope Scope, tLo, tHi int64, predicate Predicate, kind agg.Kind, key GroupKeyFunc) (map[string]any, error) {
	if predicate == nil {
		predicate = func(*store.Event) (bool, error) { return true, nil }
	}

	blocks, boundaryRowsByBlock, tailRows, err := scanBlocksAndTail(ctx, st, scope, tLo, tHi)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, fxerr.New(fxerr.Cancelled, "window evaluation cancelled")
	default:
	}

	fragments := gatherFragments(blocks, boundaryRowsByBlock, tailRows, scope, tLo, tHi, func(*store.Block) bool { return false })
	ordered := orderFragments(fragments)

	buckets := make(map[string]agg.Aggregate)
	for _, fr := range ordered {
		ok, err := predicate(fr.ev)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		k, ok := key(fr.ev)
		if !ok {
			continue
		}
		in, ok := resolve(fr.ev)
		if !ok {
			continue
		}
		b, exists := buckets[k]
		if !exists {
			b = agg.New(kind)
			buckets[k] = b
		}
		b.Update(in)
	}

	out := make(map[string]any, len(buckets))
	for k, b := range buckets {
		out[k] = b.Evaluate()
	}
	return out, nil
}

// emptyWindowResult mirrors agg.New(kind).Evaluate() for a window that
// matched zero rows and had no fully-covered block to merge from --
// most aggregates yield nil, Count yields 0, All yields true (spec
// section 7).
func emptyWindowResult(kind agg.Kind) any {
	return agg.New(kind).Evaluate()
}
