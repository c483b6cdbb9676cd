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

package ingest

import (
	"encoding/json"
	"io"

	"github.com/streamfeat/engine/fxerr"
	"github.com/streamfeat/engine/store"
	"github.com/streamfeat/engine/value"
)

// record mirrors the wire shape of one event (spec section 6).
type record struct {
	EventType    string            `json:"event_type"`
	EventTime    string            `json:"event_time"`
	Entities     map[string]string `json:"entities"`
	EventID      string            `json:"event_id"`
	ExperimentID string            `json:"experiment_id"`
	Attrs        map[string]any    `json:"attrs"`
}

// Decoder reads newline-delimited JSON event records (spec section 6)
// one at a time, in the shape the jsonrl package streams for its own
// NDJSON ingest path, minus the parallel-splitting machinery that
// exists there to shard input across worker goroutines -- out of
// scope here, since the store itself is single-writer (spec
// section 5).
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next decodes the next event record, or returns io.EOF when the
// input is exhausted.
func (d *Decoder) Next() (store.Event, error) {
	var rec record
	if err := d.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return store.Event{}, io.EOF
		}
		return store.Event{}, fxerr.Wrap(fxerr.ParseError, "ingest: malformed JSON event record", err)
	}
	return toEvent(rec)
}

func toEvent(rec record) (store.Event, error) {
	ms, err := ParseTimestamp(rec.EventTime)
	if err != nil {
		return store.Event{}, err
	}

	types := make([]string, 0, len(rec.Entities))
	ids := make([]string, 0, len(rec.Entities))
	for typ, id := range rec.Entities {
		types = append(types, typ)
		ids = append(ids, id)
	}

	ev := store.Event{
		EventID:      rec.EventID,
		EventType:    rec.EventType,
		EventTime:    ms,
		Entities:     store.NewEntities(types, ids),
		ExperimentID: rec.ExperimentID,
	}
	if len(rec.Attrs) > 0 {
		names := make([]string, 0, len(rec.Attrs))
		values := make([]value.Value, 0, len(rec.Attrs))
		for name, raw := range rec.Attrs {
			v, err := fromJSON(raw)
			if err != nil {
				return store.Event{}, err
			}
			names = append(names, name)
			values = append(values, v)
		}
		ev.Attrs = value.NewMap(names, values)
	}
	return ev, nil
}

// fromJSON converts a decoded JSON value (string, float64, bool, nil,
// []any, map[string]any -- encoding/json's default unmarshal targets)
// into a value.Value.
func fromJSON(raw any) (value.Value, error) {
	switch x := raw.(type) {
	case nil:
		return value.None, nil
	case bool:
		return value.Bool(x), nil
	case float64:
		return value.Float(x), nil
	case string:
		return value.String(x), nil
	case []any:
		vs := make([]value.Value, len(x))
		for i, e := range x {
			v, err := fromJSON(e)
			if err != nil {
				return value.None, err
			}
			vs[i] = v
		}
		return value.List(vs), nil
	case map[string]any:
		names := make([]string, 0, len(x))
		values := make([]value.Value, 0, len(x))
		for name, e := range x {
			v, err := fromJSON(e)
			if err != nil {
				return value.None, err
			}
			names = append(names, name)
			values = append(values, v)
		}
		return value.MapVal(value.NewMap(names, values)), nil
	default:
		return value.None, fxerr.Newf(fxerr.ParseError, "ingest: unsupported attribute value %T", raw)
	}
}
