/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package enrich

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Fixed-length calendar units. Every year is 365 days and every month is 30
// days; no leap years, no variable month lengths.
const (
	secondsPerMinute = 60
	secondsPerHour   = 3_600
	secondsPerDay    = 86_400
	secondsPerMonth  = 2_592_000
	secondsPerYear   = 31_536_000

	epochYear = 1970

	fixedTimeFields = 6
)

var (
	ErrFixedTimeTooFewFields = errors.New("timestamp has fewer than six fields")
	ErrFixedTimeField        = errors.New("timestamp field is not an unsigned integer")
	ErrFixedTimeRange        = errors.New("timestamp field out of range")
)

// FixedInstant counts seconds since 1970-01-01T00:00:00 on the fixed-unit
// calendar. It drifts from real UTC and must not be mixed with time.Time.
type FixedInstant uint64

// ParseFixedTime parses timestamps such as "2024-06-15T10:30:00" or
// "2024-06-15T10:30:00.123". The input is split on 'T', '-', ':' and '.', and
// the first six fields are read as year, month, day, hour, minute, second.
// Anything after the sixth field is ignored.
func ParseFixedTime(s string) (FixedInstant, error) {
	fields := splitTimestamp(s)
	if len(fields) < fixedTimeFields {
		return 0, fmt.Errorf("%w: %q", ErrFixedTimeTooFewFields, s)
	}

	var v [fixedTimeFields]uint64

	for i := 0; i < fixedTimeFields; i++ {
		n, err := parseField(fields[i])
		if err != nil {
			return 0, fmt.Errorf("%w: field %d of %q", ErrFixedTimeField, i, s)
		}

		v[i] = n
	}

	year, month, day, hour, minute, second := v[0], v[1], v[2], v[3], v[4], v[5]

	if year < epochYear || month == 0 || day == 0 {
		return 0, fmt.Errorf("%w: %q", ErrFixedTimeRange, s)
	}

	var (
		total    uint64
		overflow bool
	)

	for _, term := range [...][2]uint64{
		{year - epochYear, secondsPerYear},
		{month - 1, secondsPerMonth},
		{day - 1, secondsPerDay},
		{hour, secondsPerHour},
		{minute, secondsPerMinute},
		{second, 1},
	} {
		hi, lo := bits.Mul64(term[0], term[1])
		if hi != 0 {
			overflow = true
			break
		}

		var carry uint64

		total, carry = bits.Add64(total, lo, 0)
		if carry != 0 {
			overflow = true
			break
		}
	}

	if overflow {
		return 0, fmt.Errorf("%w: %q", ErrFixedTimeRange, s)
	}

	return FixedInstant(total), nil
}

// parseField reads a base-10 unsigned field. One leading '+' is accepted.
func parseField(f string) (uint64, error) {
	if len(f) > 1 && f[0] == '+' && f[1] != '+' {
		f = f[1:]
	}

	return strconv.ParseUint(f, 10, 64)
}

// splitTimestamp splits on any of the four delimiters and keeps empty fields,
// so "2024--01" yields an empty (and therefore invalid) month.
func splitTimestamp(s string) []string {
	fields := make([]string, 0, 8)
	start := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'T', '-', ':', '.':
			fields = append(fields, s[start:i])
			start = i + 1
		}
	}

	return append(fields, s[start:])
}

// Format renders the instant as YYYY-MM-DDTHH:MM:SS using the same fixed
// units ParseFixedTime uses.
func (t FixedInstant) Format() string {
	secs := uint64(t)

	year := epochYear + secs/secondsPerYear
	inYear := secs % secondsPerYear
	month := inYear/secondsPerMonth + 1
	inMonth := inYear % secondsPerMonth
	day := inMonth/secondsPerDay + 1
	hour := (secs % secondsPerDay) / secondsPerHour
	minute := (secs % secondsPerHour) / secondsPerMinute
	second := secs % secondsPerMinute

	var b strings.Builder

	b.Grow(len("0000-00-00T00:00:00"))
	fmt.Fprintf(&b, "%04d-%02d-%02dT%02d:%02d:%02d", year, month, day, hour, minute, second)

	return b.String()
}

func (t FixedInstant) String() string {
	return t.Format()
}
