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
	"testing"

	"github.com/streamfeat/engine/value"
)

func sameRaw(t *testing.T, want, got *Raw) {
	t.Helper()
	if want.Len() != got.Len() {
		t.Fatalf("length mismatch: want %d, got %d", want.Len(), got.Len())
	}
	for i := 0; i < want.Len(); i++ {
		if !want.At(i).Equal(got.At(i)) {
			t.Fatalf("row %d: want %v, got %v", i, want.At(i), got.At(i))
		}
	}
}

func buildRaw(kind value.Kind, vals ...value.Value) *Raw {
	r := NewRaw(kind)
	for _, v := range vals {
		r.Append(v)
	}
	return r
}

func TestRunLengthRoundTrip(t *testing.T) {
	raw := buildRaw(value.KindString,
		value.String("a"), value.String("a"), value.String("a"),
		value.String("b"), value.String("b"), value.None)
	enc, err := RunLength{}.Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := enc.Decode()
	if err != nil {
		t.Fatal(err)
	}
	sameRaw(t, raw, got)
}

func TestDictionaryRoundTrip(t *testing.T) {
	raw := buildRaw(value.KindString,
		value.String("us"), value.String("uk"), value.String("us"),
		value.String("de"), value.String("uk"), value.String("us"))
	enc, err := Dictionary{}.Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	dc := enc.(*dictColumn)
	if len(dc.dict) != 3 {
		t.Fatalf("dictionary size = %d, want 3", len(dc.dict))
	}
	got, err := enc.Decode()
	if err != nil {
		t.Fatal(err)
	}
	sameRaw(t, raw, got)
}

func TestBitPackedRoundTrip(t *testing.T) {
	raw := buildRaw(value.KindInt,
		value.Int(100), value.Int(103), value.None,
		value.Int(107), value.Int(100), value.Int(107))
	enc, err := BitPacked{}.Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := enc.Decode()
	if err != nil {
		t.Fatal(err)
	}
	sameRaw(t, raw, got)
}

func TestBlockCompressedRoundTrip(t *testing.T) {
	raw := buildRaw(value.KindFloat,
		value.Float(1.5), value.Float(-3.25), value.None, value.Float(0))
	enc, err := (BlockCompressed{}).Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := enc.Decode()
	if err != nil {
		t.Fatal(err)
	}
	sameRaw(t, raw, got)
}

func TestSealPicksEncodingByShape(t *testing.T) {
	repeated := buildRaw(value.KindString,
		value.String("x"), value.String("x"), value.String("x"), value.String("x"), value.String("x"))
	enc, err := Seal(repeated)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Name() != "rle" {
		t.Fatalf("Seal(long runs) picked %q, want rle", enc.Name())
	}

	lowCard := buildRaw(value.KindString,
		value.String("a"), value.String("b"), value.String("a"), value.String("b"),
		value.String("a"), value.String("b"), value.String("a"), value.String("a"),
		value.String("b"), value.String("a"))
	enc, err = Seal(lowCard)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Name() != "dictionary" {
		t.Fatalf("Seal(low cardinality) picked %q, want dictionary", enc.Name())
	}
}

func TestEncodeDecodeInvariantAcrossEncodings(t *testing.T) {
	raw := buildRaw(value.KindInt, value.Int(1), value.Int(2), value.Int(3), value.Int(2), value.Int(1))
	encodings := []Encoding{RunLength{}, Dictionary{}, BitPacked{}, BlockCompressed{}}
	for _, e := range encodings {
		enc, err := e.Encode(raw)
		if err != nil {
			t.Fatalf("%s: encode: %v", e.Name(), err)
		}
		got, err := enc.Decode()
		if err != nil {
			t.Fatalf("%s: decode: %v", e.Name(), err)
		}
		sameRaw(t, raw, got)
	}
}
