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

package pgoutput

import (
	"github.com/grove/pgoutput-decoder/internal/pgtype"
	"github.com/grove/pgoutput-decoder/internal/relation"
	"github.com/grove/pgoutput-decoder/internal/wire"
)

// SlotState is the three-way state of one column slot within a Tuple
// (spec §3, T).
type SlotState int

// The three slot states a tuple column may be in.
const (
	SlotPresent SlotState = iota
	SlotNull
	SlotUnchangedTOAST
)

// Slot is one column of a decoded Tuple.
type Slot struct {
	State SlotState
	Value pgtype.Value
}

// Tuple is an ordered list of column slots, one per column of the owning
// Relation, in the relation's declared column order.
type Tuple struct {
	Slots []Slot
}

// decodeTuple reads a tuple's column-count header followed by that many
// (kind, payload) pairs, converting each present value with reg according
// to cols[i]'s OID. cols and the tuple's column count are expected to
// agree; a mismatch does not fail the event, since Relation
// re-announcement races are a normal occurrence. The Tuple always has the
// column count read from the wire, and slots beyond len(cols) are decoded
// with OID 0, which falls back to KindRaw.
func decodeTuple(r *wire.Reader, cols []relation.Column, reg *pgtype.Registry) (*Tuple, error) {
	count, err := r.Uint16()
	if err != nil {
		return nil, wire.Truncated("tuple column count")
	}

	t := &Tuple{Slots: make([]Slot, count)}
	for i := 0; i < int(count); i++ {
		kind, err := r.Uint8()
		if err != nil {
			return nil, wire.Truncated("tuple column kind")
		}

		var oid uint32
		if i < len(cols) {
			oid = cols[i].OID
		}

		switch kind {
		case 'n':
			t.Slots[i] = Slot{State: SlotNull, Value: pgtype.Null}
		case 'u':
			t.Slots[i] = Slot{State: SlotUnchangedTOAST}
		case 't':
			payload, err := readLengthPrefixed(r)
			if err != nil {
				return nil, err
			}
			v, err := reg.Decode(oid, pgtype.FormatText, payload)
			if err != nil {
				return nil, err
			}
			t.Slots[i] = Slot{State: SlotPresent, Value: v}
		case 'b':
			payload, err := readLengthPrefixed(r)
			if err != nil {
				return nil, err
			}
			v, err := reg.Decode(oid, pgtype.FormatBinary, payload)
			if err != nil {
				return nil, err
			}
			t.Slots[i] = Slot{State: SlotPresent, Value: v}
		default:
			return nil, wire.Malformed("tuple column kind", kind)
		}
	}
	return t, nil
}

func readLengthPrefixed(r *wire.Reader) ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, wire.Truncated("column value length")
	}
	return r.CopyBytes(int(n))
}
