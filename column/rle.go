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

type run struct {
	val   value.Value
	count int
}

// RunLength implements spec section 4.A's run-length encoding,
// suited to columns dominated by long repeats (e.g. a constant
// event_type within a block).
type RunLength struct{}

func (RunLength) Name() string { return "rle" }

func (RunLength) Encode(raw *Raw) (Encoded, error) {
	e := &runLengthColumn{kind: raw.Kind, n: raw.Len()}
	for i := 0; i < raw.Len(); i++ {
		v := raw.At(i)
		if len(e.runs) > 0 && e.runs[len(e.runs)-1].val.Equal(v) {
			e.runs[len(e.runs)-1].count++
			continue
		}
		e.runs = append(e.runs, run{val: v, count: 1})
	}
	return e, nil
}

type runLengthColumn struct {
	kind value.Kind
	n    int
	runs []run
}

func (c *runLengthColumn) Name() string      { return "rle" }
func (c *runLengthColumn) Len() int          { return c.n }
func (c *runLengthColumn) Kind() value.Kind  { return c.kind }

func (c *runLengthColumn) Decode() (*Raw, error) {
	raw := NewRaw(c.kind)
	for _, r := range c.runs {
		for i := 0; i < r.count; i++ {
			raw.Append(r.val)
		}
	}
	return raw, nil
}
