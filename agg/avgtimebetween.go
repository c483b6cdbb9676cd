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

import "time"

// AverageTimeBetween implements AverageTimeBetween [duration]: the
// mean gap between consecutive event times in ingest order. Keeps
// only the partition's first/last Key and the running sum of
// consecutive gaps, so merge just needs to bridge the join between
// the receiver's last event and other's first event, assuming
// (as the store's merge order guarantees) that other's events all
// follow the receiver's in time. Grounded on
// original_source/fexpress-main/fexpress-core/partial_aggregates/average_time_between.rs.
//
// Does not implement Subtract: the join-term contribution at a
// partition boundary cannot be separated back out once folded into
// sumDiff.
type AverageTimeBetween struct {
	count      uint64
	hasStart   bool
	startKey   float64
	hasEnd     bool
	endKey     float64
	sumDiffMs  float64
}

func (a *AverageTimeBetween) Update(in Input) {
	if a.hasEnd {
		a.sumDiffMs += in.Key - a.endKey
	} else {
		a.startKey = in.Key
		a.hasStart = true
	}
	a.endKey = in.Key
	a.hasEnd = true
	a.count++
}

func (a *AverageTimeBetween) Merge(other Aggregate) {
	o := other.(*AverageTimeBetween)
	if o.count == 0 {
		return
	}
	if a.count == 0 {
		*a = *o
		return
	}
	if a.hasEnd && o.hasStart {
		a.sumDiffMs += o.startKey - a.endKey
	}
	a.sumDiffMs += o.sumDiffMs
	if o.hasEnd {
		a.endKey = o.endKey
		a.hasEnd = true
	}
	a.count += o.count
}

func (a *AverageTimeBetween) Evaluate() any {
	if a.count < 2 {
		return nil
	}
	avgMs := a.sumDiffMs / float64(a.count-1)
	return time.Duration(avgMs * float64(time.Millisecond))
}

func (a *AverageTimeBetween) Clone() Aggregate { cp := *a; return &cp }
