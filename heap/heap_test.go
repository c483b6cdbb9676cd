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

package heap

import (
	"math/rand"
	"slices"
	"testing"
)

func TestOrderSliceMinimumOnly(t *testing.T) {
	less := func(x, y int) bool { return x < y }
	x := make([]int, 1000)
	for i := range x {
		x[i] = rand.Int()
	}
	want := slices.Min(x)
	OrderSlice(x, less)
	if x[0] != want {
		t.Fatalf("x[0] = %d, want minimum %d", x[0], want)
	}
}

func TestPopSliceDrainsInOrder(t *testing.T) {
	less := func(x, y int) bool { return x < y }
	x := make([]int, 1000)
	for i := range x {
		x[i] = rand.Int()
	}
	OrderSlice(x, less)

	sorted := make([]int, 0, len(x))
	for len(x) > 0 {
		sorted = append(sorted, PopSlice(&x, less))
	}
	if !slices.IsSorted(sorted) {
		t.Fatal("draining the heap via PopSlice did not produce sorted output")
	}
}
