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

package agg

import "github.com/streamfeat/engine/value"

type modeEntry struct {
	val   value.Value
	count uint64
}

// Mode implements Mode<T>: the most frequently occurring value. Ties
// are broken deterministically by value.Less so merges and
// re-evaluations are reproducible. evaluate() is none for an empty
// window.
//
// Does not implement Subtract for the same reason as HasDuplicate:
// Merge's map-union does not preserve which partition contributed
// which counts.
type Mode struct {
	counts map[string]*modeEntry
}

func (m *Mode) Update(in Input) {
	if m.counts == nil {
		m.counts = make(map[string]*modeEntry)
	}
	k := valueKey(in.Val)
	e, ok := m.counts[k]
	if !ok {
		e = &modeEntry{val: in.Val}
		m.counts[k] = e
	}
	e.count++
}

func (m *Mode) Merge(other Aggregate) {
	o := other.(*Mode)
	if m.counts == nil {
		m.counts = make(map[string]*modeEntry)
	}
	for k, oe := range o.counts {
		e, ok := m.counts[k]
		if !ok {
			e = &modeEntry{val: oe.val}
			m.counts[k] = e
		}
		e.count += oe.count
	}
}

func (m *Mode) Evaluate() any {
	var best *modeEntry
	for _, e := range m.counts {
		if best == nil || e.count > best.count ||
			(e.count == best.count && e.val.Less(best.val)) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.val
}

func (m *Mode) Clone() Aggregate {
	cp := Mode{counts: make(map[string]*modeEntry, len(m.counts))}
	for k, e := range m.counts {
		ce := *e
		cp.counts[k] = &ce
	}
	return &cp
}

// NUnique implements NUnique<T> [usize]: the count of distinct
// values seen. Like Count, NUnique's empty-window typed zero is 0,
// never none.
//
// Does not implement Subtract: a distinct-value set cannot be
// un-folded once merged, since a value might have been contributed
// by both partitions.
type NUnique struct {
	seen map[string]struct{}
}

func (u *NUnique) Update(in Input) {
	if u.seen == nil {
		u.seen = make(map[string]struct{})
	}
	u.seen[valueKey(in.Val)] = struct{}{}
}

func (u *NUnique) Merge(other Aggregate) {
	o := other.(*NUnique)
	if u.seen == nil {
		u.seen = make(map[string]struct{})
	}
	for k := range o.seen {
		u.seen[k] = struct{}{}
	}
}

func (u *NUnique) Evaluate() any { return uint64(len(u.seen)) }

func (u *NUnique) Clone() Aggregate {
	cp := NUnique{seen: make(map[string]struct{}, len(u.seen))}
	for k := range u.seen {
		cp.seen[k] = struct{}{}
	}
	return &cp
}
