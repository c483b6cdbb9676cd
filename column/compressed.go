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
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/streamfeat/engine/compr"
	"github.com/streamfeat/engine/date"
	"github.com/streamfeat/engine/value"
)

// BlockCompressed implements spec section 4.A's block-compression
// encoding: the column is serialized to a flat byte buffer and
// compressed wholesale with the compr package (s2 by
// default; the algorithm name travels with the encoded column so a
// block written with one algorithm decodes correctly even if the
// process default later changes). Suited to high-cardinality
// free-text or JSON-shaped attribute columns where neither RLE nor
// dictionary encoding helps.
type BlockCompressed struct {
	Algorithm string // "s2" or "zstd"; defaults to "s2"
}

func (b BlockCompressed) Name() string { return "compressed" }

func (b BlockCompressed) Encode(raw *Raw) (Encoded, error) {
	algo := b.Algorithm
	if algo == "" {
		algo = "s2"
	}
	flat, err := marshalRaw(raw)
	if err != nil {
		return nil, err
	}
	c := compr.Compression(algo)
	if c == nil {
		return nil, fmt.Errorf("column: unknown compression algorithm %q", algo)
	}
	packed := c.Compress(flat, nil)
	return &compressedColumn{
		kind:      raw.Kind,
		n:         raw.Len(),
		algorithm: algo,
		rawLen:    len(flat),
		packed:    packed,
	}, nil
}

type compressedColumn struct {
	kind      value.Kind
	n         int
	algorithm string
	rawLen    int
	packed    []byte
}

func (c *compressedColumn) Name() string     { return "compressed" }
func (c *compressedColumn) Len() int         { return c.n }
func (c *compressedColumn) Kind() value.Kind { return c.kind }

func (c *compressedColumn) Decode() (*Raw, error) {
	d := compr.Decompression(c.algorithm)
	if d == nil {
		return nil, fmt.Errorf("column: unknown compression algorithm %q", c.algorithm)
	}
	flat := make([]byte, c.rawLen)
	if err := d.Decompress(c.packed, flat); err != nil {
		return nil, err
	}
	return unmarshalRaw(flat)
}

// wireValue is the JSON-serializable mirror of value.Value used by
// the block-compression codec's flat intermediate representation.
type wireValue struct {
	Kind int8        `json:"k"`
	Null bool        `json:"n,omitempty"`
	Bool bool        `json:"b,omitempty"`
	Int  int32       `json:"i,omitempty"`
	Flt  float64     `json:"f,omitempty"`
	Str  string      `json:"s,omitempty"`
	Ms   int64       `json:"t,omitempty"`
}

func toWire(v value.Value) wireValue {
	w := wireValue{Kind: int8(v.Kind())}
	if v.IsNull() {
		w.Null = true
		return w
	}
	switch v.Kind() {
	case value.KindBool:
		w.Bool, _ = v.Bool()
	case value.KindInt:
		w.Int, _ = v.Int()
	case value.KindFloat:
		w.Flt, _ = v.Float()
	case value.KindString:
		w.Str, _ = v.Str()
	case value.KindDate, value.KindDateTime:
		t, _ := v.Time()
		w.Ms = t.UnixMicro()
	}
	return w
}

func fromWire(w wireValue, kind value.Kind) value.Value {
	if w.Null {
		return value.None
	}
	switch kind {
	case value.KindBool:
		return value.Bool(w.Bool)
	case value.KindInt:
		return value.Int(w.Int)
	case value.KindFloat:
		return value.Float(w.Flt)
	case value.KindString:
		return value.String(w.Str)
	case value.KindDate:
		return value.DateVal(dateFromWire(w.Ms))
	case value.KindDateTime:
		return value.DateTime(dateFromWire(w.Ms))
	default:
		return value.None
	}
}

func marshalRaw(raw *Raw) ([]byte, error) {
	wire := make([]wireValue, raw.Len())
	for i := 0; i < raw.Len(); i++ {
		wire[i] = toWire(raw.At(i))
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	header := make([]byte, 9)
	header[0] = byte(raw.Kind)
	binary.LittleEndian.PutUint64(header[1:], uint64(raw.Len()))
	return append(header, body...), nil
}

func dateFromWire(us int64) date.Time {
	return date.UnixMicro(us)
}

func unmarshalRaw(flat []byte) (*Raw, error) {
	if len(flat) < 9 {
		return nil, fmt.Errorf("column: truncated block-compressed payload")
	}
	kind := value.Kind(flat[0])
	n := binary.LittleEndian.Uint64(flat[1:9])
	var wire []wireValue
	if err := json.Unmarshal(flat[9:], &wire); err != nil {
		return nil, err
	}
	if uint64(len(wire)) != n {
		return nil, fmt.Errorf("column: row count mismatch: header says %d, payload has %d", n, len(wire))
	}
	raw := NewRaw(kind)
	for _, w := range wire {
		raw.Append(fromWire(w, kind))
	}
	return raw, nil
}
