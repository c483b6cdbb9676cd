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

// Package window resolves interval specifications against an
// observation timestamp and evaluates aggregates over the resulting
// event range.
package window

import "github.com/streamfeat/engine/fastdate"

// Direction selects whether a fixed interval looks backward or
// forward from the observation time.
type Direction uint8

const (
	Past Direction = iota
	Future
)

// Unit is the granularity of a fixed interval's N.
type Unit uint8

const (
	Millisecond Unit = iota
	Second
	Minute
	Hour
	Day
	Week
	Month
	Quarter
	Year
)

// Keyword names a calendar-relative interval.
type Keyword uint8

const (
	YTD Keyword = iota
	MTD
	WTD
	LastWeek
	LastMonth
	LastQuarter
	LastYear
	NextWeek
	NextMonth
	NextQuarter
	NextYear
	SameDayLastWeek
	SameDayLastMonth
	SameDayLastYear
	SameDayNextWeek
	SameDayNextMonth
	SameDayNextYear
	NextWorkDay
	PreviousWorkDay
)

// Interval is either a fixed (direction, N, unit) offset or a
// calendar keyword (spec section 4.E).
type Interval struct {
	Fixed   bool
	Dir     Direction
	N       int64
	Unit    Unit
	Keyword Keyword
}

// FixedInterval builds a past/future N-unit interval.
func FixedInterval(dir Direction, n int64, unit Unit) Interval {
	return Interval{Fixed: true, Dir: dir, N: n, Unit: unit}
}

// KeywordInterval builds a calendar-keyword interval.
func KeywordInterval(k Keyword) Interval {
	return Interval{Fixed: false, Keyword: k}
}

// toMicros converts an event_time (milliseconds since the epoch, the
// unit store.Event.EventTime uses) to a fastdate.Timestamp
// (microseconds), and back.
func toMicros(ms int64) fastdate.Timestamp { return fastdate.Timestamp(ms * 1000) }
func toMillis(ts fastdate.Timestamp) int64 { return int64(ts) / 1000 }

func addUnit(ts fastdate.Timestamp, n int64, u Unit) fastdate.Timestamp {
	var out fastdate.Timestamp
	var ok bool
	switch u {
	case Millisecond:
		out, ok = ts.AddMillisecond(n)
	case Second:
		out, ok = ts.AddSecond(n)
	case Minute:
		out, ok = ts.AddMinute(n)
	case Hour:
		out, ok = ts.AddHour(n)
	case Day:
		out, ok = ts.AddDay(n)
	case Week:
		out, ok = ts.AddDay(n * 7)
	case Month:
		out, ok = ts.AddMonth(n)
	case Quarter:
		out, ok = ts.AddQuarter(n)
	case Year:
		out, ok = ts.AddYear(n)
	default:
		out, ok = ts, true
	}
	if !ok {
		return ts
	}
	return out
}

// mondayDOW matches fastdate.TruncDOW's convention: 1 == Monday.
const mondayDOW = 1

// isWeekday reports whether ts falls on Monday through Friday.
func isWeekday(ts fastdate.Timestamp) bool {
	dow := ts.ExtractDOW()
	return dow >= 1 && dow <= 5
}

// nextWorkDay walks forward from ts (exclusive) to the next Mon-Fri day.
func nextWorkDay(ts fastdate.Timestamp) fastdate.Timestamp {
	day := ts.TruncDay()
	for {
		day, _ = day.AddDay(1)
		if isWeekday(day) {
			return day
		}
	}
}

// previousWorkDay walks backward from ts (exclusive) to the previous
// Mon-Fri day.
func previousWorkDay(ts fastdate.Timestamp) fastdate.Timestamp {
	day := ts.TruncDay()
	for {
		day, _ = day.AddDay(-1)
		if isWeekday(day) {
			return day
		}
	}
}

// Resolve computes the closed interval [tLo, tHi] (in event_time
// milliseconds) that interval denotes relative to observation time
// obsMs (spec section 4.E).
func Resolve(interval Interval, obsMs int64) (tLo, tHi int64) {
	obs := toMicros(obsMs)

	if interval.Fixed {
		switch interval.Dir {
		case Past:
			return toMillis(addUnit(obs, -interval.N, interval.Unit)), obsMs
		default:
			return obsMs, toMillis(addUnit(obs, interval.N, interval.Unit))
		}
	}

	switch interval.Keyword {
	case YTD:
		return toMillis(obs.TruncYear()), obsMs
	case MTD:
		return toMillis(obs.TruncMonth()), obsMs
	case WTD:
		return toMillis(obs.TruncDOW(mondayDOW)), obsMs
	case LastWeek:
		start := obs.TruncDOW(mondayDOW)
		prevStart, _ := start.AddDay(-7)
		return toMillis(prevStart), toMillis(start) - 1
	case LastMonth:
		start := obs.TruncMonth()
		prevStart, _ := start.AddMonth(-1)
		return toMillis(prevStart), toMillis(start) - 1
	case LastQuarter:
		start := obs.TruncQuarter()
		prevStart, _ := start.AddQuarter(-1)
		return toMillis(prevStart), toMillis(start) - 1
	case LastYear:
		start := obs.TruncYear()
		prevStart, _ := start.AddYear(-1)
		return toMillis(prevStart), toMillis(start) - 1
	case NextWeek:
		start, _ := obs.TruncDOW(mondayDOW).AddDay(7)
		end, _ := start.AddDay(7)
		return toMillis(start), toMillis(end) - 1
	case NextMonth:
		start, _ := obs.TruncMonth().AddMonth(1)
		end, _ := start.AddMonth(1)
		return toMillis(start), toMillis(end) - 1
	case NextQuarter:
		start, _ := obs.TruncQuarter().AddQuarter(1)
		end, _ := start.AddQuarter(1)
		return toMillis(start), toMillis(end) - 1
	case NextYear:
		start, _ := obs.TruncYear().AddYear(1)
		end, _ := start.AddYear(1)
		return toMillis(start), toMillis(end) - 1
	case SameDayLastWeek:
		d, _ := obs.TruncDay().AddDay(-7)
		return toMillis(d), toMillis(d)
	case SameDayLastMonth:
		d, _ := obs.TruncDay().AddMonth(-1)
		return toMillis(d), toMillis(d)
	case SameDayLastYear:
		d, _ := obs.TruncDay().AddYear(-1)
		return toMillis(d), toMillis(d)
	case SameDayNextWeek:
		d, _ := obs.TruncDay().AddDay(7)
		return toMillis(d), toMillis(d)
	case SameDayNextMonth:
		d, _ := obs.TruncDay().AddMonth(1)
		return toMillis(d), toMillis(d)
	case SameDayNextYear:
		d, _ := obs.TruncDay().AddYear(1)
		return toMillis(d), toMillis(d)
	case NextWorkDay:
		d := nextWorkDay(obs)
		return toMillis(d), toMillis(d)
	case PreviousWorkDay:
		d := previousWorkDay(obs)
		return toMillis(d), toMillis(d)
	default:
		return obsMs, obsMs
	}
}
