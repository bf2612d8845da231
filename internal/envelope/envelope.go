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

// Package envelope converts a decoded pgoutput event into the canonical
// Debezium-shaped CDC envelope (spec §3, V) and its JSON serialisation.
package envelope

import (
	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/grove/pgoutput-decoder/internal/relation"
)

// Op is the envelope's single-character operation code.
type Op string

// The four operation codes the envelope format defines. OpRead is
// reserved for format compatibility with snapshot/initial-scan producers
// and is never emitted by this decoder.
const (
	OpCreate Op = "c"
	OpUpdate Op = "u"
	OpDelete Op = "d"
	OpRead   Op = "r"
)

// Source is the envelope's "source" object.
type Source struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	LSN    uint64 `json:"lsn"`
	TxID   uint32 `json:"txId"`
	TsMs   int64  `json:"ts_ms"`
}

// Envelope is the user-visible event shape (spec §3, V). Before/After use
// Object rather than a plain map so that column order in the serialised
// JSON matches the relation's declared column order (spec §4.8) instead
// of encoding/json's alphabetical map-key ordering.
type Envelope struct {
	Op     Op      `json:"op"`
	Before *Object `json:"before"`
	After  *Object `json:"after"`
	Source Source  `json:"source"`
	TsMs   int64   `json:"ts_ms"`
	TsUs   *int64  `json:"ts_us,omitempty"`
	TsNs   *int64  `json:"ts_ns,omitempty"`
}

// FromEvent builds an Envelope from a decoded Insert/Update/Delete event.
// Any other kind (Truncate, logical Message) has no envelope
// representation: FromEvent then returns a zero Envelope and false.
func FromEvent(ev pgoutput.Event, opts MarshalOptions) (Envelope, bool) {
	var op Op
	switch ev.Kind {
	case pgoutput.EventInsert:
		op = OpCreate
	case pgoutput.EventUpdate:
		op = OpUpdate
	case pgoutput.EventDelete:
		op = OpDelete
	default:
		return Envelope{}, false
	}

	tsMs := ev.Txn.CommitAt.UnixMilli()
	out := Envelope{
		Op:     op,
		Before: tupleToObject(ev.Before, ev.Relation.Columns),
		After:  tupleToObject(ev.After, ev.Relation.Columns),
		Source: Source{
			Schema: ev.Relation.Namespace,
			Table:  ev.Relation.Name,
			LSN:    ev.Txn.CommitLSN,
			TxID:   ev.Txn.XID,
			TsMs:   tsMs,
		},
		TsMs: tsMs,
	}
	if opts.IncludeUs || opts.IncludeNs {
		us := ev.Txn.CommitAt.UnixMicro()
		if opts.IncludeUs {
			out.TsUs = &us
		}
		if opts.IncludeNs {
			ns := us * 1000
			out.TsNs = &ns
		}
	}
	return out, true
}

// tupleToObject converts a Tuple to the column-name-keyed object the
// envelope serialises, preserving the relation's declared column order.
// Unchanged-TOAST slots are omitted entirely (the key is absent),
// distinct from an explicit null; a nil Tuple (no row image, e.g. an
// Insert's "before") yields a nil *Object, which renders as `null`.
func tupleToObject(t *pgoutput.Tuple, cols []relation.Column) *Object {
	if t == nil {
		return nil
	}
	obj := &Object{Fields: make([]Field, 0, len(t.Slots))}
	for i, slot := range t.Slots {
		name := columnName(cols, i)
		switch slot.State {
		case pgoutput.SlotUnchangedTOAST:
			continue
		case pgoutput.SlotNull:
			obj.Fields = append(obj.Fields, Field{Name: name, Value: nil})
		default:
			obj.Fields = append(obj.Fields, Field{Name: name, Value: valueToAny(slot.Value)})
		}
	}
	return obj
}

func columnName(cols []relation.Column, i int) string {
	if i < len(cols) {
		return cols[i].Name
	}
	return ""
}
