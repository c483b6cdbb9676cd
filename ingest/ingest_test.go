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
	"io"
	"strings"
	"testing"

	"github.com/streamfeat/engine/fxerr"
)

func TestParseTimestampSupportedPatterns(t *testing.T) {
	cases := []string{
		"2023-06-10T15:30:00.123",
		"2023-06-10 15:30:00.123",
		"2023-06-10T15:30:00",
		"2023-06-10 15:30:00",
		"2023-06-10 15:30",
		"2023-06-10",
	}
	for _, c := range cases {
		if _, err := ParseTimestamp(c); err != nil {
			t.Errorf("ParseTimestamp(%q) = %v, want success", c, err)
		}
	}
}

func TestParseTimestampRejectsTimezone(t *testing.T) {
	cases := []string{
		"2023-06-10T15:30:00Z",
		"2023-06-10T15:30:00+02:00",
		"2023-06-10T15:30:00-08:00",
	}
	for _, c := range cases {
		_, err := ParseTimestamp(c)
		if !fxerr.Is(err, fxerr.TimestampWithTimezone) {
			t.Errorf("ParseTimestamp(%q) = %v, want TimestampWithTimezone", c, err)
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("not-a-date")
	if !fxerr.Is(err, fxerr.InvalidTimestamp) {
		t.Errorf("ParseTimestamp(garbage) = %v, want InvalidTimestamp", err)
	}
}

func TestDecoderReadsEvents(t *testing.T) {
	input := `{"event_type":"purchase","event_time":"2023-06-10T15:30:00","entities":{"user":"u1"},"attrs":{"amount":42.5,"tags":["a","b"]}}
{"event_type":"purchase","event_time":"2023-06-10T15:31:00","entities":{"user":"u1"}}
`
	dec := NewDecoder(strings.NewReader(input))

	ev1, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ev1.EventType != "purchase" {
		t.Errorf("EventType = %q, want purchase", ev1.EventType)
	}
	if id, ok := ev1.Entities.Get("user"); !ok || id != "u1" {
		t.Errorf("entities.user = (%q, %v), want (u1, true)", id, ok)
	}
	amt, ok := ev1.Attr("amount")
	if !ok {
		t.Fatal("expected attrs.amount to resolve")
	}
	if f, ok := amt.Float(); !ok || f != 42.5 {
		t.Errorf("attrs.amount = %v, want 42.5", amt)
	}

	ev2, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ev2.EventTime <= ev1.EventTime {
		t.Errorf("second event_time %d should exceed first %d", ev2.EventTime, ev1.EventTime)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("Next() at end of input = %v, want io.EOF", err)
	}
}

func TestDecoderRejectsBadTimestamp(t *testing.T) {
	input := `{"event_type":"x","event_time":"2023-06-10T15:30:00Z","entities":{}}`
	dec := NewDecoder(strings.NewReader(input))
	_, err := dec.Next()
	if !fxerr.Is(err, fxerr.TimestampWithTimezone) {
		t.Errorf("Next() = %v, want TimestampWithTimezone", err)
	}
}
