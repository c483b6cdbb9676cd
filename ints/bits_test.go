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

package ints

import "testing"

func TestSetAndTestBit(t *testing.T) {
	bits := make([]uint64, 2)
	for _, k := range []int{0, 1, 63, 64, 127} {
		if TestBit(bits, k) {
			t.Fatalf("bit %d set before SetBit", k)
		}
		SetBit(bits, k)
		if !TestBit(bits, k) {
			t.Fatalf("bit %d not set after SetBit", k)
		}
	}
}

func TestSetBitLeavesOthersUntouched(t *testing.T) {
	bits := make([]uint64, 1)
	SetBit(bits, 5)
	for k := 0; k < 64; k++ {
		want := k == 5
		if got := TestBit(bits, k); got != want {
			t.Fatalf("bit %d = %v, want %v", k, got, want)
		}
	}
}
