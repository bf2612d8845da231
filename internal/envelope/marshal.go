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

package envelope

import (
	"bytes"
	"encoding/json"

	"github.com/grove/pgoutput-decoder/internal/pgtype"
	"github.com/pkg/errors"
)

// MarshalOptions controls JSON rendering of an Envelope.
type MarshalOptions struct {
	// Indent is the number of spaces to pretty-print with; 0 means
	// compact output. Only 0, 2, and 4 are meaningful, matching the
	// original implementation's indent parameter.
	Indent int

	// IncludeUs/IncludeNs add the optional ts_us/ts_ns fields.
	IncludeUs bool
	IncludeNs bool
}

// Marshal renders env as JSON per opts, with top-level keys ordered
// op, before, after, source, ts_ms[, ts_us, ts_ns] and before/after keyed
// by column in the relation's declared column order.
func Marshal(env Envelope, opts MarshalOptions) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "envelope: marshal")
	}
	if opts.Indent <= 0 {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", spaces(opts.Indent)); err != nil {
		return nil, errors.Wrap(err, "envelope: indent")
	}
	return buf.Bytes(), nil
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// valueToAny converts a decoded pgtype.Value into the representation
// Go's encoding/json will render for it. Numeric columns stay
// decimal.Decimal rather than collapsing to a float64; Object.MarshalJSON
// writes them as numbers with their scale preserved.
func valueToAny(v pgtype.Value) any {
	switch v.Kind {
	case pgtype.KindNull:
		return nil
	case pgtype.KindBool:
		return v.Bool
	case pgtype.KindInt:
		return v.Int
	case pgtype.KindDecimal:
		return v.Decimal
	case pgtype.KindText:
		return v.Text
	case pgtype.KindBytes:
		return v.Bytes
	case pgtype.KindTime:
		return v.Time
	case pgtype.KindDocument:
		return v.Document
	case pgtype.KindRaw:
		return v.Raw
	default:
		return nil
	}
}
