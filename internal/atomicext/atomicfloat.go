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

// Package atomicext provides extensions complementing the built-in atomic package
package atomicext

import "sync/atomic"

func MaxInt64(ptr *int64, value int64) {
	for {
		before := atomic.LoadInt64(ptr)

		if before >= value {
			return
		}

		if atomic.CompareAndSwapInt64(ptr, before, value) {
			return
		}
	}
}
