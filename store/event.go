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

// Package store implements the chunked columnar event store from
// spec section 4.D: sealed encoded blocks plus a mutable open tail,
// with per-block pre-materialized partial aggregates and an
// entity-type/entity-id row index. Grounded on the block/trailer
// split in ion/blockfmt's layout (the sparse time index and
// per-column-per-block shape are reused conceptually; the Ion
// wire codec itself was dropped, see DESIGN.md) and directly on spec
// section 4.D/5.
package store

import (
	"github.com/google/uuid"

	"github.com/streamfeat/engine/value"
)

// Entities is the ordered entity-type -> entity-id mapping an Event
// carries (spec section 3: "one event may belong to multiple entity
// kinds, e.g. home and away").
type Entities struct {
	types []string
	ids   []string
}

// NewEntities builds an Entities mapping from parallel type/id slices.
func NewEntities(types, ids []string) Entities {
	return Entities{types: append([]string(nil), types...), ids: append([]string(nil), ids...)}
}

// Get returns the entity id registered for entityType, if any.
func (e Entities) Get(entityType string) (string, bool) {
	for i, t := range e.types {
		if t == entityType {
			return e.ids[i], true
		}
	}
	return "", false
}

// Each calls fn for every (type, id) pair in insertion order.
func (e Entities) Each(fn func(entityType, entityID string)) {
	for i, t := range e.types {
		fn(t, e.ids[i])
	}
}

// Types returns the entity types present, in insertion order.
func (e Entities) Types() []string { return e.types }

// Event is the store's immutable unit of ingest (spec section 3).
// event_time is milliseconds since the Unix epoch with no timezone,
// matching the wire format's explicit timezone rejection (spec
// section 6).
type Event struct {
	EventID      string // empty if not supplied
	EventType    string
	EventTime    int64
	Entities     Entities
	ExperimentID string // empty if not scoped to an experiment
	Attrs        *value.Map
}

// Attr resolves a dot-separated attribute path against the event's
// attrs, per spec section 3.
func (e *Event) Attr(path string) (value.Value, bool) {
	if e.Attrs == nil {
		return value.Value{}, false
	}
	return value.MapVal(e.Attrs).Path(path)
}

// assignEventID fills in a random event id for events whose wire
// record omitted one (spec section 6: "event_id (optional string)").
func assignEventID(e *Event) {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
}
