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

// Package column implements the sealed block's columnar storage:
// a raw per-attribute vector of value.Value plus a nullable presence
// bitmap, and the four reversible encodings from spec section 4.A
// (run-length, dictionary, bit-packed, block-compressed) chosen by a
// seal-time heuristic. Grounded on the block/column split in
// ion/blockfmt's trailer shape (conceptual only — the codec itself is
// new, since the Ion wire format was dropped, see DESIGN.md) and on
// spec section 4.A directly.
package column

import (
	"github.com/streamfeat/engine/ints"
	"github.com/streamfeat/engine/value"
)

// Raw is a column's uncompressed, mutable representation: one Value
// per row plus a presence bitmap (a row with presence bit unset holds
// SQL null regardless of its Values entry).
type Raw struct {
	Kind     value.Kind
	Values   []value.Value
	presence []uint64
}

// NewRaw allocates an empty raw column for the given attribute kind.
func NewRaw(kind value.Kind) *Raw {
	return &Raw{Kind: kind}
}

// Append adds v to the end of the column. A null Value (v.IsNull())
// clears the presence bit but still reserves a Values slot so row
// indices stay aligned across sibling columns in the same block.
func (r *Raw) Append(v value.Value) {
	idx := len(r.Values)
	r.Values = append(r.Values, v)
	r.growPresence(idx)
	if !v.IsNull() {
		ints.SetBit(r.presence, idx)
	}
}

func (r *Raw) growPresence(idx int) {
	need := idx/64 + 1
	for len(r.presence) < need {
		r.presence = append(r.presence, 0)
	}
}

// Len reports the number of rows in the column.
func (r *Raw) Len() int { return len(r.Values) }

// Present reports whether row i holds a non-null value.
func (r *Raw) Present(i int) bool {
	if i/64 >= len(r.presence) {
		return false
	}
	return ints.TestBit(r.presence, i)
}

// At returns the value at row i, or value.None if the row is null.
func (r *Raw) At(i int) value.Value {
	if !r.Present(i) {
		return value.None
	}
	return r.Values[i]
}

// Clone returns a deep, independent copy of r.
func (r *Raw) Clone() *Raw {
	cp := &Raw{Kind: r.Kind}
	cp.Values = append([]value.Value(nil), r.Values...)
	cp.presence = append([]uint64(nil), r.presence...)
	return cp
}

// Encoding is the capability a sealed-block column encoding
// implements: reversible compression of a Raw column satisfying
// spec section 8 invariant 1, decode(encode(x)) == x.
type Encoding interface {
	// Name identifies the encoding for diagnostics and the seal
	// heuristic's choice log.
	Name() string
	// Encode compresses raw into the encoding's internal form.
	Encode(raw *Raw) (Encoded, error)
}

// Encoded is a column in one of the four sealed encodings. Decode
// always fully materializes a Raw column; sealed blocks do not
// support decoding a sub-range in place (store.Block.Column decodes
// the whole column on every call and does not cache the result).
type Encoded interface {
	Name() string
	Len() int
	Kind() value.Kind
	Decode() (*Raw, error)
}
