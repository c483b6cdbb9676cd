// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package fastdate

// DateTime composition and decomposition is based on the following article:
//
//   https://howardhinnant.github.io/date_algorithms.html

const daysPer400YearCycle = 146097
const millisecondsPerSecond = 1000
const microsecondsPerSecond = 1000000
const microsecondsPerMinute = 60 * microsecondsPerSecond
const microsecondsPerHour = 60 * microsecondsPerMinute
const microsecondsPerDay = 24 * microsecondsPerHour // 86400000000

const unixDaysToYear0Delta = 719468

var truncQuarterPredicate = [12]byte{
	10, // March     -> January (previous year of the internal format)
	1,  // April     -> April
	1,  // May       -> April
	1,  // June      -> April
	4,  // July      -> July
	4,  // August    -> July
	4,  // September -> July
	7,  // October   -> October
	7,  // November  -> October
	7,  // December  -> October
	10, // January   -> January
	10, // February  -> January
}

type Timestamp int64

type DecomposedDate struct {
	year  int32
	month uint16 // from 0 to 11 (starting from zero)
	day   uint16 // from 0 to 30 (starting from zero)
}

func floorDivInt32(x, y int32) int32 {
	if x < 0 {
		x = x - y + 1
	}
	return x / y
}

func floorDivInt64(x, y int64) int64 {
	if x < 0 {
		x = x - y + 1
	}
	return x / y
}

func dateFromUnixDays(days int64) DecomposedDate {
	days += unixDaysToYear0Delta

	era := floorDivInt64(days, daysPer400YearCycle)
	doe := uint32(days - era*daysPer400YearCycle)
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365

	y := int32(yoe) + int32(era)*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	m := (5*doy + 2) / 153
	d := doy - (153*m+2)/5

	return DecomposedDate{
		year:  y,
		month: uint16(m),
		day:   uint16(d),
	}
}

func unixDaysFromDate(dd DecomposedDate) int64 {
	y := dd.year
	m := uint32(dd.month)
	d := uint32(dd.day)

	era := floorDivInt32(y, 400)
	yoe := uint32(y - era*400)             // [0..399]
	doy := (153*(m)+2)/5 + d               // [0..365]
	doe := yoe*365 + yoe/4 - yoe/100 + doy // [0..146096]

	return int64(era)*daysPer400YearCycle + int64(doe) - unixDaysToYear0Delta
}

func extractNumDaysAndTimeFromUnixTime(ts Timestamp) (int64, uint64) {
	days := floorDivInt64(int64(ts), microsecondsPerDay)
	return days, uint64(int64(ts) - days*microsecondsPerDay)
}

func dateTimeFromTimestamp(ts Timestamp) (DecomposedDate, uint64) {
	days, time := extractNumDaysAndTimeFromUnixTime(ts)
	return dateFromUnixDays(days), time
}

func unixTimeFromDateTime(dd DecomposedDate, time uint64) Timestamp {
	days := unixDaysFromDate(dd)
	return Timestamp(days*microsecondsPerDay + int64(time))
}

func (ts Timestamp) AddMillisecond(val int64) (Timestamp, bool) {
	return Timestamp(int64(ts) + val*1000), true
}

func (ts Timestamp) AddSecond(val int64) (Timestamp, bool) {
	return Timestamp(int64(ts) + val*1000000), true
}

func (ts Timestamp) AddMinute(val int64) (Timestamp, bool) {
	return Timestamp(int64(ts) + val*microsecondsPerMinute), true
}

func (ts Timestamp) AddHour(val int64) (Timestamp, bool) {
	return Timestamp(int64(ts) + val*microsecondsPerHour), true
}

func (ts Timestamp) AddDay(val int64) (Timestamp, bool) {
	return Timestamp(int64(ts) + val*microsecondsPerDay), true
}

func (ts Timestamp) AddMonth(val int64) (Timestamp, bool) {
	dd, time := dateTimeFromTimestamp(ts)

	m := int64(dd.month) + val

	yDiff := floorDivInt64(m, 12)
	y := int64(dd.year) + yDiff

	dd.month = uint16(m - yDiff*12)
	dd.year = int32(y)

	return Timestamp(unixTimeFromDateTime(dd, time)), true
}

func (ts Timestamp) AddQuarter(val int64) (Timestamp, bool) {
	return ts.AddMonth(val * 3)
}

func (ts Timestamp) AddYear(val int64) (Timestamp, bool) {
	dd, time := dateTimeFromTimestamp(ts)
	y := int64(dd.year) + val
	dd.year = int32(y)
	return unixTimeFromDateTime(dd, time), true
}

func (ts Timestamp) ExtractDOW() uint32 {
	dow := int32(floorDivInt64(int64(ts), microsecondsPerDay)+4) % 7
	if dow < 0 {
		dow += 7
	}
	return uint32(dow)
}

func (ts Timestamp) TruncDay() Timestamp {
	return Timestamp(floorDivInt64(int64(ts), microsecondsPerDay) * microsecondsPerDay)
}

func (ts Timestamp) TruncDOW(dow uint32) Timestamp {
	days, _ := extractNumDaysAndTimeFromUnixTime(ts)
	off := days + 4 - int64(dow)
	adj := floorDivInt64(off, 7) * 7
	return Timestamp((adj - 4 + int64(dow)) * microsecondsPerDay)
}

func (ts Timestamp) TruncMonth() Timestamp {
	dd, _ := dateTimeFromTimestamp(ts)
	dd.day = 0
	return unixTimeFromDateTime(dd, 0)
}

func (ts Timestamp) TruncQuarter() Timestamp {
	dd, _ := dateTimeFromTimestamp(ts)
	if dd.month == 0 {
		dd.year--
	}
	dd.month = uint16(truncQuarterPredicate[dd.month])
	dd.day = 0
	return unixTimeFromDateTime(dd, 0)
}

func (ts Timestamp) TruncYear() Timestamp {
	dd, _ := dateTimeFromTimestamp(ts)
	if dd.month < 10 {
		dd.year--
	}
	dd.month = 10
	dd.day = 0
	return unixTimeFromDateTime(dd, 0)
}
