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
	"encoding/hex"
	"strings"

	"github.com/grove/pgoutput-decoder/internal/wire"
	"github.com/pkg/errors"
)

// decodeIntBinary decodes a fixed-width big-endian signed integer of 2,
// 4, or 8 bytes.
func decodeIntBinary(raw []byte) (Value, error) {
	r := wire.NewReader(raw)
	switch len(raw) {
	case 2:
		v, err := r.Uint16()
		return Value{Kind: KindInt, Int: int64(int16(v))}, errors.Wrap(err, "int2 binary")
	case 4:
		v, err := r.Int32()
		return Value{Kind: KindInt, Int: int64(v)}, errors.Wrap(err, "int4 binary")
	case 8:
		v, err := r.Int64()
		return Value{Kind: KindInt, Int: v}, errors.Wrap(err, "int8 binary")
	default:
		return Value{}, errors.Errorf("unexpected integer binary width %d", len(raw))
	}
}

// decodeByteaHexText decodes PostgreSQL's "\x"-prefixed hex text encoding
// of bytea. Older servers may instead use the escape format, which is not
// produced by pgoutput and is therefore not supported here.
func decodeByteaHexText(raw []byte) ([]byte, error) {
	s := string(raw)
	if !strings.HasPrefix(s, "\\x") {
		return nil, errors.Errorf("unsupported bytea text encoding (want \\x-prefixed hex)")
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, errors.Wrap(err, "invalid bytea hex")
	}
	return b, nil
}
