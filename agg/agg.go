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

// Package agg implements the partial-aggregate algebra from spec
// section 4.C: a uniform New/Update/Merge/Evaluate contract, with an
// optional Subtract extension for aggregates whose algebra forms a
// commutative group. Dispatch is by Kind, switched once per block,
// following the tagged-variant-over-concrete-types pattern in
// vm/aggregate.go's AggregateOpFn.
package agg

import (
	"fmt"

	"github.com/streamfeat/engine/value"
)

// Kind identifies one of the concrete aggregates required by spec
// section 4.C.
type Kind uint8

const (
	KindCount Kind = iota
	KindSum
	KindMean
	KindProduct
	KindMin
	KindMax
	KindArgMin
	KindArgMax
	KindFirst
	KindLast
	KindStdDev
	KindVariance
	KindSkewness
	KindKurtosis
	KindRootMeanSquare
	KindAbsoluteEnergy
	KindAbsoluteSumOfChanges
	KindAny
	KindAll
	KindHasDuplicate
	KindHasDuplicateMin
	KindHasDuplicateMax
	KindMode
	KindNUnique
	KindNth
	KindAverageTimeBetween
	KindApproxMedian
)

func (k Kind) String() string {
	names := [...]string{
		"Count", "Sum", "Mean", "Product", "Min", "Max", "ArgMin", "ArgMax",
		"First", "Last", "StandardDeviation", "Variance", "Skewness", "Kurtosis",
		"RootMeanSquare", "AbsoluteEnergy", "AbsoluteSumOfChanges", "Any", "All",
		"HasDuplicate", "HasDuplicateMin", "HasDuplicateMax", "Mode", "NUnique",
		"Nth", "AverageTimeBetween", "ApproxMedian",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("<Kind=%d>", uint8(k))
}

// Input is the uniform per-row payload passed to Update. Each
// concrete aggregate reads only the fields relevant to it: Num for
// purely numeric aggregates, Key+Val for order-sensitive ones
// (First/Last/Nth), Num+Val for ArgMin/ArgMax, Key alone for AverageTimeBetween,
// Val alone for Mode/NUnique/HasDuplicate*, Bool for Any/All.
type Input struct {
	Num  float64
	Key  float64 // event_time in milliseconds since epoch, used as the default order key
	Val  value.Value
	Bool bool
}

// Aggregate is the capability every partial aggregate implements.
type Aggregate interface {
	// Update folds one input into the state (monoid injection).
	Update(in Input)
	// Merge combines other's state into the receiver. Merge must be
	// associative; for Welford-style aggregates this uses the
	// Chan/Pébay parallel recombination formulas from spec section 4.C.
	Merge(other Aggregate)
	// Evaluate produces the aggregate's output, or nil if the sample
	// count is below the aggregate's defined minimum.
	Evaluate() any
	// Clone returns an independent copy of the current state.
	Clone() Aggregate
}

// Subtractable is implemented by aggregates whose merge forms a
// commutative group, i.e. merge has a well-defined inverse. Per spec
// section 4.C, aggregates such as AbsoluteSumOfChanges, Skewness, and
// Kurtosis (without Welford-pair recombination) must not implement
// this interface.
type Subtractable interface {
	Aggregate
	// Subtract removes other's contribution from the receiver. other
	// must have been produced by merging into (a superset of) the
	// receiver's current state.
	Subtract(other Aggregate)
}

// New constructs a fresh, empty aggregate of the given kind.
func New(k Kind) Aggregate {
	switch k {
	case KindCount:
		return &Count{}
	case KindSum:
		return &Sum{}
	case KindMean:
		return &Mean{}
	case KindProduct:
		return &Product{}
	case KindMin:
		return &Min{}
	case KindMax:
		return &Max{}
	case KindArgMin:
		return &ArgMin{min: true}
	case KindArgMax:
		return &ArgMin{min: false}
	case KindFirst:
		return &FirstLast{first: true}
	case KindLast:
		return &FirstLast{first: false}
	case KindStdDev:
		return &Variance{std: true}
	case KindVariance:
		return &Variance{}
	case KindSkewness:
		return &Skewness{}
	case KindKurtosis:
		return &Kurtosis{}
	case KindRootMeanSquare:
		return &RootMeanSquare{}
	case KindAbsoluteEnergy:
		return &AbsoluteEnergy{}
	case KindAbsoluteSumOfChanges:
		return &AbsoluteSumOfChanges{hasPrev: false}
	case KindAny:
		return &Any{}
	case KindAll:
		return &All{val: true}
	case KindHasDuplicate:
		return &HasDuplicate{mode: dupAny}
	case KindHasDuplicateMin:
		return &HasDuplicate{mode: dupMin}
	case KindHasDuplicateMax:
		return &HasDuplicate{mode: dupMax}
	case KindMode:
		return &Mode{}
	case KindNUnique:
		return &NUnique{}
	case KindNth:
		return &Nth{n: 0}
	case KindAverageTimeBetween:
		return &AverageTimeBetween{}
	case KindApproxMedian:
		return NewApproxMedian(1000)
	default:
		panic(fmt.Sprintf("agg: unknown kind %v", k))
	}
}
