// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package pgtype

import (
	"time"

	"github.com/grove/pgoutput-decoder/internal/wire"
	"github.com/pkg/errors"
)

// timestampLayouts covers the text forms pgoutput emits for
// timestamp/timestamptz/date/time columns; timezone-aware layouts are
// tried first so the result is UTC-normalised per spec.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05.999999",
	"15:04:05",
}

// decodeTimeText parses a date/time/timestamp(tz) column's text form,
// preserving microsecond precision and normalising to UTC.
func decodeTimeText(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, errors.Wrapf(firstErr, "pgtype: unrecognised time text %q", s)
}

// decodeTimestampBinary decodes the binary form of timestamp/timestamptz:
// a big-endian int64 of microseconds since 2000-01-01 UTC.
func decodeTimestampBinary(raw []byte) (time.Time, error) {
	r := wire.NewReader(raw)
	micros, err := r.Timestamp()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "pgtype: timestamp binary")
	}
	return time.UnixMicro(micros).UTC(), nil
}

// decodeDateBinary decodes the binary form of date: a big-endian int32
// of days since 2000-01-01.
func decodeDateBinary(raw []byte) (time.Time, error) {
	r := wire.NewReader(raw)
	days, err := r.Int32()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "pgtype: date binary")
	}
	epoch := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return epoch.AddDate(0, 0, int(days)), nil
}
