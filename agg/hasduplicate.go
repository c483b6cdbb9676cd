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

type dupMode uint8

const (
	dupAny dupMode = iota
	dupMin
	dupMax
)

// HasDuplicate implements HasDuplicate, HasDuplicateMin, and
// HasDuplicateMax [bool] (selected by mode). dupAny reports whether
// any value repeats; dupMin/dupMax narrow the check to whether the
// minimum/maximum value observed repeats. Counts are kept per
// distinct value so merge is a plain map-union, and the running
// min/max value is tracked alongside so Evaluate never needs to
// rescan the whole partition.
//
// Does not implement Subtract: removing one occurrence from a
// frequency map requires knowing exactly which keys the other
// partition contributed, which Merge's map-union does not preserve
// separately.
type HasDuplicate struct {
	mode   dupMode
	counts map[string]uint64
	hasMin bool
	min    value.Value
	max    value.Value
}

func (h *HasDuplicate) observe(v value.Value) {
	if h.counts == nil {
		h.counts = make(map[string]uint64)
	}
	h.counts[valueKey(v)]++
	if !h.hasMin {
		h.hasMin = true
		h.min, h.max = v, v
		return
	}
	if v.Less(h.min) {
		h.min = v
	}
	if h.max.Less(v) {
		h.max = v
	}
}

func (h *HasDuplicate) Update(in Input) { h.observe(in.Val) }

func (h *HasDuplicate) Merge(other Aggregate) {
	o := other.(*HasDuplicate)
	for k, c := range o.counts {
		if h.counts == nil {
			h.counts = make(map[string]uint64)
		}
		h.counts[k] += c
	}
	if o.hasMin {
		if !h.hasMin {
			h.hasMin, h.min, h.max = true, o.min, o.max
		} else {
			if o.min.Less(h.min) {
				h.min = o.min
			}
			if h.max.Less(o.max) {
				h.max = o.max
			}
		}
	}
}

func (h *HasDuplicate) Evaluate() any {
	switch h.mode {
	case dupMin:
		if !h.hasMin {
			return false
		}
		return h.counts[valueKey(h.min)] > 1
	case dupMax:
		if !h.hasMin {
			return false
		}
		return h.counts[valueKey(h.max)] > 1
	default:
		for _, c := range h.counts {
			if c > 1 {
				return true
			}
		}
		return false
	}
}

func (h *HasDuplicate) Clone() Aggregate {
	cp := *h
	cp.counts = make(map[string]uint64, len(h.counts))
	for k, v := range h.counts {
		cp.counts[k] = v
	}
	return &cp
}
