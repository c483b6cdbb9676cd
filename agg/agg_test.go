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

import (
	"math"
	"testing"

	"github.com/streamfeat/engine/value"
)

const tol = 1e-9

func closeEnough(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	d := math.Abs(a - b)
	return d <= tol || d <= tol*math.Max(math.Abs(a), math.Abs(b))
}

func numsOf(xs []float64) []Input {
	in := make([]Input, len(xs))
	for i, x := range xs {
		in[i] = Input{Num: x, Key: float64(i)}
	}
	return in
}

// fold applies inputs one at a time (incremental evaluation).
func fold(k Kind, ins []Input) Aggregate {
	a := New(k)
	for _, in := range ins {
		a.Update(in)
	}
	return a
}

// foldSplit folds the first n inputs into one aggregate and the rest
// into a second, then merges — exercising the merge-equals-fold
// invariant (spec section 8, invariant 3).
func foldSplit(k Kind, ins []Input, n int) Aggregate {
	a := fold(k, ins[:n])
	b := fold(k, ins[n:])
	a.Merge(b)
	return a
}

func TestStdDevStreamingStability(t *testing.T) {
	// scenario S2: stddev of [1,2,3,4,5] is stable whether computed
	// incrementally or via split-then-merge [1,2,3]+[4,5].
	xs := []float64{1, 2, 3, 4, 5}
	want := 1.5811388300841898

	whole := fold(KindStdDev, numsOf(xs))
	got, ok := whole.Evaluate().(float64)
	if !ok || !closeEnough(got, want) {
		t.Fatalf("incremental stddev = %v, want %v", whole.Evaluate(), want)
	}

	split := foldSplit(KindStdDev, numsOf(xs), 3)
	gotSplit, ok := split.Evaluate().(float64)
	if !ok || !closeEnough(gotSplit, want) {
		t.Fatalf("split-merge stddev = %v, want %v", split.Evaluate(), want)
	}
}

func TestMergeAssociativityAcrossAggregates(t *testing.T) {
	xs := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	kinds := []Kind{
		KindSum, KindMean, KindVariance, KindStdDev,
		KindSkewness, KindKurtosis, KindMin, KindMax,
		KindRootMeanSquare, KindAbsoluteEnergy, KindProduct,
	}
	for _, k := range kinds {
		whole := fold(k, numsOf(xs))
		for split := 1; split < len(xs); split++ {
			got := foldSplit(k, numsOf(xs), split)
			wv, wok := whole.Evaluate().(float64)
			gv, gok := got.Evaluate().(float64)
			if wok != gok {
				t.Fatalf("%v: presence mismatch at split %d", k, split)
			}
			if wok && !closeEnough(wv, gv) {
				t.Fatalf("%v: split %d merge = %v, whole = %v", k, split, gv, wv)
			}
		}
	}
}

func TestSubtractInverse(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6}
	kinds := []Kind{KindSum, KindCount, KindRootMeanSquare, KindAbsoluteEnergy}
	for _, k := range kinds {
		all := fold(k, numsOf(xs)).(Subtractable)
		head := fold(k, numsOf(xs[:2]))
		all.Subtract(head)
		tail := fold(k, numsOf(xs[2:]))

		av, aok := all.Evaluate().(float64)
		tv, tok := tail.Evaluate().(float64)
		if k == KindCount {
			cv := all.Evaluate().(uint64)
			tv2 := tail.Evaluate().(uint64)
			if cv != tv2 {
				t.Fatalf("Count subtract = %v, want %v", cv, tv2)
			}
			continue
		}
		if aok != tok || (aok && !closeEnough(av, tv)) {
			t.Fatalf("%v: all-minus-head = %v, tail = %v", k, all.Evaluate(), tail.Evaluate())
		}
	}
}

func TestCountNeverNone(t *testing.T) {
	c := New(KindCount)
	if got := c.Evaluate(); got == nil {
		t.Fatalf("empty Count.Evaluate() = nil, want 0")
	}
	if got := c.Evaluate().(uint64); got != 0 {
		t.Fatalf("empty Count.Evaluate() = %v, want 0", got)
	}
}

func TestAllAndAnyTypedZero(t *testing.T) {
	all := New(KindAll)
	if got := all.Evaluate(); got != true {
		t.Fatalf("empty All.Evaluate() = %v, want true", got)
	}
	any_ := New(KindAny)
	if got := any_.Evaluate(); got != false {
		t.Fatalf("empty Any.Evaluate() = %v, want false", got)
	}
}

func TestVarianceSkewnessKurtosisMinSamples(t *testing.T) {
	one := fold(KindVariance, numsOf([]float64{1}))
	if got := one.Evaluate(); got != nil {
		t.Fatalf("Variance with n=1 = %v, want nil", got)
	}
	two := fold(KindSkewness, numsOf([]float64{1, 2}))
	if got := two.Evaluate(); got != nil {
		t.Fatalf("Skewness with n=2 = %v, want nil", got)
	}
	three := fold(KindKurtosis, numsOf([]float64{1, 2, 3}))
	if got := three.Evaluate(); got != nil {
		t.Fatalf("Kurtosis with n=3 = %v, want nil", got)
	}
}

func TestLastOrderedByKey(t *testing.T) {
	// scenario S3: Last picks the value with the greatest Key
	// regardless of Update order.
	last := New(KindLast)
	last.Update(Input{Key: 5, Val: value.String("mid")})
	last.Update(Input{Key: 10, Val: value.String("latest")})
	last.Update(Input{Key: 1, Val: value.String("earliest")})
	got, _ := last.Evaluate().(value.Value)
	if s, _ := got.Str(); s != "latest" {
		t.Fatalf("Last.Evaluate() = %v, want \"latest\"", got)
	}

	first := New(KindFirst)
	first.Update(Input{Key: 5, Val: value.String("mid")})
	first.Update(Input{Key: 10, Val: value.String("latest")})
	first.Update(Input{Key: 1, Val: value.String("earliest")})
	got, _ = first.Evaluate().(value.Value)
	if s, _ := got.Str(); s != "earliest" {
		t.Fatalf("First.Evaluate() = %v, want \"earliest\"", got)
	}
}

func TestArgMinArgMax(t *testing.T) {
	argmin := New(KindArgMin)
	argmin.Update(Input{Num: 3, Val: value.String("a")})
	argmin.Update(Input{Num: 1, Val: value.String("b")})
	argmin.Update(Input{Num: 2, Val: value.String("c")})
	got, _ := argmin.Evaluate().(value.Value)
	if s, _ := got.Str(); s != "b" {
		t.Fatalf("ArgMin.Evaluate() = %v, want \"b\"", got)
	}

	argmax := New(KindArgMax)
	argmax.Update(Input{Num: 3, Val: value.String("a")})
	argmax.Update(Input{Num: 1, Val: value.String("b")})
	argmax.Update(Input{Num: 2, Val: value.String("c")})
	got, _ = argmax.Evaluate().(value.Value)
	if s, _ := got.Str(); s != "a" {
		t.Fatalf("ArgMax.Evaluate() = %v, want \"a\"", got)
	}
}

func TestNUniqueAndMode(t *testing.T) {
	u := New(KindNUnique)
	for _, s := range []string{"a", "b", "a", "c", "b", "a"} {
		u.Update(Input{Val: value.String(s)})
	}
	if got := u.Evaluate().(uint64); got != 3 {
		t.Fatalf("NUnique.Evaluate() = %v, want 3", got)
	}

	m := New(KindMode)
	for _, s := range []string{"a", "b", "a", "c", "b", "a"} {
		m.Update(Input{Val: value.String(s)})
	}
	got, _ := m.Evaluate().(value.Value)
	if s, _ := got.Str(); s != "a" {
		t.Fatalf("Mode.Evaluate() = %v, want \"a\"", got)
	}
}

func TestHasDuplicateModes(t *testing.T) {
	vals := []value.Value{value.Int(1), value.Int(2), value.Int(2), value.Int(5)}

	any_ := New(KindHasDuplicate)
	for _, v := range vals {
		any_.Update(Input{Val: v})
	}
	if got := any_.Evaluate().(bool); !got {
		t.Fatalf("HasDuplicate.Evaluate() = %v, want true", got)
	}

	min_ := New(KindHasDuplicateMin)
	for _, v := range vals {
		min_.Update(Input{Val: v})
	}
	if got := min_.Evaluate().(bool); got {
		t.Fatalf("HasDuplicateMin.Evaluate() = %v, want false (min=1 is unique)", got)
	}

	max_ := New(KindHasDuplicateMax)
	for _, v := range vals {
		max_.Update(Input{Val: v})
	}
	if got := max_.Evaluate().(bool); got {
		t.Fatalf("HasDuplicateMax.Evaluate() = %v, want false (max=5 is unique)", got)
	}
}

func TestAbsoluteSumOfChangesNotSubtractable(t *testing.T) {
	a := New(KindAbsoluteSumOfChanges)
	if _, ok := a.(Subtractable); ok {
		t.Fatalf("AbsoluteSumOfChanges must not implement Subtractable")
	}
	a.Update(Input{Num: 1})
	a.Update(Input{Num: 3})
	a.Update(Input{Num: 2})
	if got := a.Evaluate().(float64); !closeEnough(got, 3) {
		t.Fatalf("AbsoluteSumOfChanges.Evaluate() = %v, want 3 (|3-1|+|2-3|)", got)
	}
}

func TestApproxMedianWithinReservoir(t *testing.T) {
	m := NewApproxMedian(1000)
	for i := 1; i <= 999; i++ {
		m.Update(Input{Num: float64(i)})
	}
	got, ok := m.Evaluate().(float64)
	if !ok {
		t.Fatalf("ApproxMedian.Evaluate() = nil, want a value")
	}
	if got < 400 || got > 600 {
		t.Fatalf("ApproxMedian.Evaluate() = %v, want roughly 500 for 1..999 with a full reservoir", got)
	}
}
