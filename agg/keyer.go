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

// valueKey produces a hashable map key for a Value, for use by the
// distinct-counting aggregates (Mode, NUnique, HasDuplicate*). These
// aggregates are defined over scalar attribute values in practice
// (ids, categories, counters); the kind tag prevents cross-kind
// collisions such as the string "1" and the int 1 hashing equal.
func valueKey(v value.Value) string {
	return v.Kind().String() + "\x00" + v.String()
}
