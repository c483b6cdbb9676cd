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

package atomicext

import (
	"sync"
	"testing"
)

func TestMaxInt64KeepsLargest(t *testing.T) {
	v := int64(10)
	MaxInt64(&v, 5)
	if v != 10 {
		t.Fatalf("MaxInt64 lowered value to %d", v)
	}
	MaxInt64(&v, 20)
	if v != 20 {
		t.Fatalf("MaxInt64 = %d, want 20", v)
	}
}

func TestMaxInt64Concurrent(t *testing.T) {
	var v int64
	var wg sync.WaitGroup
	for i := int64(1); i <= 100; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			MaxInt64(&v, n)
		}(i)
	}
	wg.Wait()
	if v != 100 {
		t.Fatalf("MaxInt64 concurrent result = %d, want 100", v)
	}
}
