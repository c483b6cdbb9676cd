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

import "github.com/streamfeat/engine/value"

// Seal picks an encoding for raw per the heuristic in spec section
// 4.A: run-length when the column is dominated by repeats, dictionary
// when cardinality is low relative to row count, bit-packing for
// KindInt columns with a narrow value range, and block-compression
// as the fallback for everything else (free text, nested maps/lists).
func Seal(raw *Raw) (Encoded, error) {
	return SealWithHash(raw, nil)
}

// SealWithHash is Seal with an explicit dictionary-encoding hash
// (spec section 6's hash_backend knob); a nil hash defaults to
// XXHash64.
func SealWithHash(raw *Raw, hash HashFunc) (Encoded, error) {
	n := raw.Len()
	if n == 0 {
		return RunLength{}.Encode(raw)
	}

	distinct := make(map[string]struct{}, n)
	runs := 0
	var prev value.Value
	havePrev := false
	var lo, hi int64
	haveInt := false
	for i := 0; i < n; i++ {
		v := raw.At(i)
		distinct[valueDedupKey(v)] = struct{}{}
		if !havePrev || !prev.Equal(v) {
			runs++
		}
		prev, havePrev = v, true
		if iv, ok := v.Int(); ok {
			if !haveInt || int64(iv) < lo {
				lo = int64(iv)
			}
			if !haveInt || int64(iv) > hi {
				hi = int64(iv)
			}
			haveInt = true
		}
	}

	avgRunLen := float64(n) / float64(runs)
	if avgRunLen >= 4 {
		return RunLength{}.Encode(raw)
	}

	cardinalityRatio := float64(len(distinct)) / float64(n)
	if cardinalityRatio <= 0.2 {
		return Dictionary{Hash: hash}.Encode(raw)
	}

	if raw.Kind == value.KindInt && hi-lo < 1<<24 {
		return BitPacked{}.Encode(raw)
	}

	return BlockCompressed{}.Encode(raw)
}

func valueDedupKey(v value.Value) string {
	return v.Kind().String() + "\x00" + v.String()
}
