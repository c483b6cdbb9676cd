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
	"github.com/streamfeat/engine/value"
)

// Dictionary implements spec section 4.A's dictionary encoding,
// suited to low-cardinality string/attribute columns (entity types,
// categorical attributes). Distinct values are deduplicated by
// hashing their string form and then comparing with Equal against the
// values already under that hash, so a hash collision never merges two
// distinct values. Hash
// selects the hash_backend (spec section 6); the zero value defaults
// to XXHash64.
type Dictionary struct {
	Hash HashFunc
}

func (Dictionary) Name() string { return "dictionary" }

func (d Dictionary) Encode(raw *Raw) (Encoded, error) {
	hash := d.Hash
	if hash == nil {
		hash = XXHash64
	}
	e := &dictColumn{kind: raw.Kind, n: raw.Len()}
	byHash := make(map[uint64][]int)
	codes := make([]int32, raw.Len())
	for i := 0; i < raw.Len(); i++ {
		v := raw.At(i)
		h := hash(v.Kind().String() + "\x00" + v.String())
		code := -1
		for _, c := range byHash[h] {
			if e.dict[c].Equal(v) {
				code = c
				break
			}
		}
		if code < 0 {
			code = len(e.dict)
			e.dict = append(e.dict, v)
			byHash[h] = append(byHash[h], code)
		}
		codes[i] = int32(code)
	}
	e.codes = codes
	return e, nil
}

type dictColumn struct {
	kind  value.Kind
	n     int
	dict  []value.Value
	codes []int32
}

func (c *dictColumn) Name() string     { return "dictionary" }
func (c *dictColumn) Len() int         { return c.n }
func (c *dictColumn) Kind() value.Kind { return c.kind }

func (c *dictColumn) Decode() (*Raw, error) {
	raw := NewRaw(c.kind)
	for _, code := range c.codes {
		raw.Append(c.dict[code])
	}
	return raw, nil
}
