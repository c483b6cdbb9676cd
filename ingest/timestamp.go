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

// Package ingest decodes newline-delimited JSON event records into
// store.Event values (spec section 6, "Event ingest wire format").
package ingest

import (
	"strings"
	"time"

	"github.com/streamfeat/engine/fxerr"
)

// timestampLayouts lists the supported patterns, most specific first,
// mirroring datetime_utils.rs's deserialize_naive_date_time (spec
// section 6: "YYYY-MM-DDTHH:MM:SS[.fff], YYYY-MM-DD HH:MM:SS[.fff],
// YYYY-MM-DD HH:MM, YYYY-MM-DD").
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// hasTimezoneSuffix reports whether s carries explicit timezone
// information -- a 'Z', or a '+'/'-' offset appearing after the
// date portion (only the text past the 10-character YYYY-MM-DD prefix
// is searched for a sign, so the prefix's '-' separators are not
// taken for an offset).
func hasTimezoneSuffix(s string) bool {
	if strings.ContainsRune(s, 'Z') {
		return true
	}
	if len(s) <= 10 {
		return false
	}
	rest := s[10:]
	return strings.ContainsAny(rest, "+-")
}

// ParseTimestamp parses s as an event_time per spec section 6,
// returning milliseconds since the Unix epoch (UTC). A timezone
// suffix is rejected outright with TimestampWithTimezone rather than
// honored, since the engine's timestamps are timezone-agnostic.
func ParseTimestamp(s string) (int64, error) {
	if hasTimezoneSuffix(s) {
		return 0, fxerr.Newf(fxerr.TimestampWithTimezone, "event_time %q carries explicit timezone information; only timezone-agnostic timestamps are accepted", s)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fxerr.Newf(fxerr.InvalidTimestamp, "event_time %q does not match any supported pattern", s)
}
