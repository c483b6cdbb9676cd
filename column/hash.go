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

package column

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// HashFunc hashes a string key for dictionary-encoding dedup. The
// hash_backend configuration knob (spec section 6) selects between
// them; either is safe to switch per build since the hash only ever
// backs an in-memory map, never a persisted key.
type HashFunc func(string) uint64

// XXHash64 is the "standard" hash_backend: a fast non-cryptographic
// hash tuned for short keys.
func XXHash64(s string) uint64 { return xxhash.Sum64String(s) }

// SipHash64 is the "open-addressing" hash_backend: SipHash-2-4 with a
// fixed zero key, chosen for its flatter bucket distribution under
// adversarial input at a modest throughput cost relative to xxhash.
func SipHash64(s string) uint64 { return siphash.Hash(0, 0, []byte(s)) }
