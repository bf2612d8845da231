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
	"strings"

	"github.com/grove/pgoutput-decoder/internal/wire"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	numericPosSign = 0x0000
	numericNegSign = 0x4000
	numericNaNSign = 0xC000
	numericDigits  = 10000
)

// decodeNumericText parses PostgreSQL's text representation of NUMERIC,
// e.g. "-12345.67" or "NaN", preserving the declared scale.
func decodeNumericText(s string) (decimal.Decimal, error) {
	if strings.EqualFold(s, "NaN") {
		return decimal.Decimal{}, errors.New("pgtype: NaN numeric has no decimal representation")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "pgtype: invalid numeric text")
	}
	return d, nil
}

// decodeNumericBinary decodes PostgreSQL's binary NUMERIC wire format: a
// header of (ndigits, weight, sign, dscale) followed by ndigits base-10000
// digit groups, each a big-endian uint16. weight is the base-10000
// exponent of the first digit group.
func decodeNumericBinary(raw []byte) (decimal.Decimal, error) {
	r := wire.NewReader(raw)

	ndigitsU, err := r.Uint16()
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "pgtype: numeric ndigits")
	}
	ndigits := int(ndigitsU)

	weightU, err := r.Uint16()
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "pgtype: numeric weight")
	}
	weight := int16(weightU)

	sign, err := r.Uint16()
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "pgtype: numeric sign")
	}

	dscaleU, err := r.Uint16()
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "pgtype: numeric dscale")
	}
	dscale := int(dscaleU)

	if sign == numericNaNSign {
		return decimal.Decimal{}, errors.New("pgtype: NaN numeric has no decimal representation")
	}
	if sign != numericPosSign && sign != numericNegSign {
		return decimal.Decimal{}, errors.Errorf("pgtype: invalid numeric sign %#x", sign)
	}

	// Accumulate as an integer coefficient scaled to 4*ndigits fractional
	// base-10000 digits, then rescale to the declared dscale.
	coeff := decimal.Zero
	base := decimal.NewFromInt(numericDigits)
	for i := 0; i < ndigits; i++ {
		digitU, err := r.Uint16()
		if err != nil {
			return decimal.Decimal{}, errors.Wrap(err, "pgtype: numeric digit")
		}
		coeff = coeff.Mul(base).Add(decimal.NewFromInt(int64(digitU)))
	}

	// The value is coeff * 10000^(weight - (ndigits - 1)).
	exp := (int(weight) - (ndigits - 1)) * 4
	value := coeff.Shift(int32(exp))
	if sign == numericNegSign {
		value = value.Neg()
	}
	return value.Round(int32(dscale)), nil
}
