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

// Package pgoutput decodes the binary logical-decoding message stream
// produced by the pgoutput output plugin (protocol version 1) into
// structured row-change events.
package pgoutput

import (
	"time"

	"github.com/grove/pgoutput-decoder/internal/relation"
)

// Tag is the one-byte message-type discriminant at the head of every
// pgoutput message.
type Tag byte

// The message tags pgoutput protocol version 1 defines.
const (
	TagBegin    Tag = 'B'
	TagCommit   Tag = 'C'
	TagRelation Tag = 'R'
	TagType     Tag = 'Y'
	TagOrigin   Tag = 'O'
	TagInsert   Tag = 'I'
	TagUpdate   Tag = 'U'
	TagDelete   Tag = 'D'
	TagTruncate Tag = 'T'
	TagMessage  Tag = 'M'
)

// EventKind discriminates the sum type of decoded events (spec §3, E).
type EventKind int

// The event kinds a Decoder can emit.
const (
	EventInsert EventKind = iota
	EventUpdate
	EventDelete
	EventTruncate
	EventLogicalMessage
)

// Txn is the transaction context established by Begin and closed by
// Commit (spec §3, X). Every row event between them inherits it.
type Txn struct {
	XID       uint32
	CommitLSN uint64
	CommitAt  time.Time
}

// Event is a decoded, user-visible row-change (Insert/Update/Delete),
// Truncate, or logical Message. Every event except a non-transactional
// Message carries the Txn it occurred in; that one has a zero Txn.
type Event struct {
	Kind EventKind
	Txn  Txn

	// Relation is populated for Insert/Update/Delete. A Truncate names its
	// relations by id only, in TruncateRelations.
	Relation *relation.Relation

	// Before/After are populated per spec §3 (Tuple or nil, depending on
	// Kind and the relation's replica identity).
	Before *Tuple
	After  *Tuple

	// TruncateRelations holds every relation-id named by a Truncate
	// message sharing this event's commit.
	TruncateRelations []uint32
	TruncateCascade    bool
	TruncateRestart    bool

	// MessagePrefix/MessageContent carry an opaque logical Message
	// (TagMessage); Transactional reports the flags byte's low bit.
	MessageTransactional bool
	MessagePrefix        string
	MessageContent       []byte
	MessageLSN           uint64
}
