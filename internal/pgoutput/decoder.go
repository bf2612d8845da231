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
	"time"

	"github.com/grove/pgoutput-decoder/internal/pgtype"
	"github.com/grove/pgoutput-decoder/internal/relation"
	"github.com/grove/pgoutput-decoder/internal/wire"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	truncateCascadeFlag = 1 << 0
	truncateRestartFlag = 1 << 1
	messageTxFlag       = 1 << 0
)

// Decoder is a stateful parser of one replication session's pgoutput
// message stream. It is not safe for concurrent use; exactly one
// goroutine (the session's receive loop) should call Parse.
type Decoder struct {
	reg       *pgtype.Registry
	relations *relation.Cache

	txn     *Txn
	pending []Event
	origin  string
}

// New returns a Decoder using the default type-converter registry and a
// fresh relation cache, as required at the start of every session
// (relation caches never survive a reconnect).
func New() *Decoder {
	return &Decoder{
		reg:       pgtype.NewRegistry(),
		relations: relation.NewCache(),
	}
}

// WithRegistry overrides the type converter registry, e.g. to register
// additional OIDs before the session starts.
func (d *Decoder) WithRegistry(reg *pgtype.Registry) *Decoder {
	d.reg = reg
	return d
}

// Relations exposes the decoder's relation cache, e.g. so the envelope
// formatter can look up schema/table names for an event.
func (d *Decoder) Relations() *relation.Cache { return d.relations }

// Parse decodes one logical-decoding message (the payload of a single
// XLogData frame, tag byte included) and returns the user-visible events
// it completes, if any. Begin/Relation/Type/Origin never return events.
// Insert/Update/Delete/Truncate/transactional-Message are buffered until
// the enclosing Commit, at which point the whole transaction's events are
// returned together, in server emission order, stamped with the
// transaction's commit LSN and timestamp.
//
// Truncated, Malformed, UnknownRelation, ConversionFailed,
// ErrOutsideTransaction, and ErrCommitWithoutBegin are recoverable: the
// caller should log them, drop the in-flight transaction's buffered
// events, and continue parsing at the next Begin.
func (d *Decoder) Parse(raw []byte) ([]Event, error) {
	if len(raw) == 0 {
		return nil, wire.Truncated("message tag")
	}
	tag := Tag(raw[0])
	r := wire.NewReader(raw[1:])

	switch tag {
	case TagBegin:
		return nil, d.parseBegin(r)
	case TagCommit:
		return d.parseCommit(r)
	case TagRelation:
		return nil, d.parseRelation(r)
	case TagType:
		return nil, d.parseType(r)
	case TagOrigin:
		return nil, d.parseOrigin(r)
	case TagInsert:
		return nil, d.parseInsert(r)
	case TagUpdate:
		return nil, d.parseUpdate(r)
	case TagDelete:
		return nil, d.parseDelete(r)
	case TagTruncate:
		return nil, d.parseTruncate(r)
	case TagMessage:
		return d.parseMessage(r)
	default:
		return nil, wire.Malformed("message tag", raw[0])
	}
}

// Abort discards any buffered, uncommitted transaction state. Callers
// use this after a recoverable decode error to resume parsing cleanly at
// the next Begin, per spec §4.4 failure semantics.
func (d *Decoder) Abort() {
	d.txn = nil
	d.pending = nil
}

func (d *Decoder) parseBegin(r *wire.Reader) error {
	finalLSN, err := r.LSN()
	if err != nil {
		return wire.Truncated("begin.final_lsn")
	}
	commitMicros, err := r.Timestamp()
	if err != nil {
		return wire.Truncated("begin.commit_timestamp")
	}
	xid, err := r.Uint32()
	if err != nil {
		return wire.Truncated("begin.xid")
	}

	if d.txn != nil {
		log.WithField("prior_xid", d.txn.XID).
			Warn("pgoutput: BEGIN received with a transaction already open; discarding it")
		d.pending = nil
	}
	d.txn = &Txn{XID: xid, CommitLSN: finalLSN, CommitAt: time.UnixMicro(commitMicros).UTC()}
	d.pending = d.pending[:0]
	return nil
}

func (d *Decoder) parseCommit(r *wire.Reader) ([]Event, error) {
	if _, err := r.Uint8(); err != nil { // flags, reserved
		return nil, wire.Truncated("commit.flags")
	}
	commitLSN, err := r.LSN()
	if err != nil {
		return nil, wire.Truncated("commit.lsn")
	}
	if _, err := r.LSN(); err != nil { // end_lsn, unused
		return nil, wire.Truncated("commit.end_lsn")
	}
	if _, err := r.Timestamp(); err != nil { // commit_timestamp, redundant with Begin's
		return nil, wire.Truncated("commit.timestamp")
	}

	if d.txn == nil {
		return nil, errors.WithStack(ErrCommitWithoutBegin)
	}

	d.txn.CommitLSN = commitLSN
	for i := range d.pending {
		d.pending[i].Txn = *d.txn
	}
	out := d.pending
	d.pending = nil
	d.txn = nil
	return out, nil
}

func (d *Decoder) parseRelation(r *wire.Reader) error {
	id, err := r.Uint32()
	if err != nil {
		return wire.Truncated("relation.id")
	}
	ns, err := r.CString()
	if err != nil {
		return wire.Truncated("relation.namespace")
	}
	name, err := r.CString()
	if err != nil {
		return wire.Truncated("relation.name")
	}
	identByte, err := r.Uint8()
	if err != nil {
		return wire.Truncated("relation.replica_identity")
	}
	numCols, err := r.Uint16()
	if err != nil {
		return wire.Truncated("relation.num_columns")
	}

	cols := make([]relation.Column, numCols)
	for i := range cols {
		flags, err := r.Uint8()
		if err != nil {
			return wire.Truncated("relation.column.flags")
		}
		colName, err := r.CString()
		if err != nil {
			return wire.Truncated("relation.column.name")
		}
		oid, err := r.Uint32()
		if err != nil {
			return wire.Truncated("relation.column.type_oid")
		}
		modifier, err := r.Int32()
		if err != nil {
			return wire.Truncated("relation.column.type_modifier")
		}
		cols[i] = relation.Column{
			Name:      colName,
			OID:       oid,
			Modifier:  modifier,
			PartOfKey: flags&0x1 != 0,
		}
	}

	d.relations.Upsert(&relation.Relation{
		ID:        id,
		Namespace: ns,
		Name:      name,
		Identity:  relation.Identity(identByte),
		Columns:   cols,
	})
	return nil
}

func (d *Decoder) parseType(r *wire.Reader) error {
	if _, err := r.Uint32(); err != nil { // data type id
		return wire.Truncated("type.oid")
	}
	if _, err := r.CString(); err != nil { // namespace
		return wire.Truncated("type.namespace")
	}
	if _, err := r.CString(); err != nil { // name
		return wire.Truncated("type.name")
	}
	// Advisory only: custom type announcements don't change how this
	// decoder converts values, since conversion keys off the column OID
	// already carried by Relation messages.
	return nil
}

func (d *Decoder) parseOrigin(r *wire.Reader) error {
	if _, err := r.LSN(); err != nil {
		return wire.Truncated("origin.lsn")
	}
	name, err := r.CString()
	if err != nil {
		return wire.Truncated("origin.name")
	}
	d.origin = name
	return nil
}

func (d *Decoder) relationFor(id uint32) (*relation.Relation, error) {
	rel, err := d.relations.Get(id)
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func (d *Decoder) parseInsert(r *wire.Reader) error {
	if d.txn == nil {
		return errors.WithStack(ErrOutsideTransaction)
	}
	relID, err := r.Uint32()
	if err != nil {
		return wire.Truncated("insert.relation_id")
	}
	rel, err := d.relationFor(relID)
	if err != nil {
		return err
	}
	marker, err := r.Uint8()
	if err != nil {
		return wire.Truncated("insert.tuple_marker")
	}
	if marker != 'N' {
		return wire.Malformed("insert.tuple_marker", marker)
	}
	after, err := decodeTuple(r, rel.Columns, d.reg)
	if err != nil {
		return err
	}
	d.pending = append(d.pending, Event{Kind: EventInsert, Relation: rel, After: after})
	return nil
}

func (d *Decoder) parseUpdate(r *wire.Reader) error {
	if d.txn == nil {
		return errors.WithStack(ErrOutsideTransaction)
	}
	relID, err := r.Uint32()
	if err != nil {
		return wire.Truncated("update.relation_id")
	}
	rel, err := d.relationFor(relID)
	if err != nil {
		return err
	}
	marker, err := r.Uint8()
	if err != nil {
		return wire.Truncated("update.marker")
	}

	var before *Tuple
	if marker == 'K' || marker == 'O' {
		before, err = decodeTuple(r, rel.Columns, d.reg)
		if err != nil {
			return err
		}
		marker, err = r.Uint8()
		if err != nil {
			return wire.Truncated("update.new_marker")
		}
	}
	if marker != 'N' {
		return wire.Malformed("update.new_marker", marker)
	}
	after, err := decodeTuple(r, rel.Columns, d.reg)
	if err != nil {
		return err
	}
	d.pending = append(d.pending, Event{Kind: EventUpdate, Relation: rel, Before: before, After: after})
	return nil
}

func (d *Decoder) parseDelete(r *wire.Reader) error {
	if d.txn == nil {
		return errors.WithStack(ErrOutsideTransaction)
	}
	relID, err := r.Uint32()
	if err != nil {
		return wire.Truncated("delete.relation_id")
	}
	rel, err := d.relationFor(relID)
	if err != nil {
		return err
	}
	marker, err := r.Uint8()
	if err != nil {
		return wire.Truncated("delete.marker")
	}
	if marker != 'K' && marker != 'O' {
		return wire.Malformed("delete.marker", marker)
	}
	before, err := decodeTuple(r, rel.Columns, d.reg)
	if err != nil {
		return err
	}
	d.pending = append(d.pending, Event{Kind: EventDelete, Relation: rel, Before: before})
	return nil
}

func (d *Decoder) parseTruncate(r *wire.Reader) error {
	if d.txn == nil {
		return errors.WithStack(ErrOutsideTransaction)
	}
	n, err := r.Uint32()
	if err != nil {
		return wire.Truncated("truncate.count")
	}
	flags, err := r.Uint8()
	if err != nil {
		return wire.Truncated("truncate.flags")
	}
	ids := make([]uint32, n)
	for i := range ids {
		ids[i], err = r.Uint32()
		if err != nil {
			return wire.Truncated("truncate.relation_id")
		}
	}
	d.pending = append(d.pending, Event{
		Kind:              EventTruncate,
		TruncateRelations: ids,
		TruncateCascade:   flags&truncateCascadeFlag != 0,
		TruncateRestart:   flags&truncateRestartFlag != 0,
	})
	return nil
}

func (d *Decoder) parseMessage(r *wire.Reader) ([]Event, error) {
	flags, err := r.Uint8()
	if err != nil {
		return nil, wire.Truncated("message.flags")
	}
	lsn, err := r.LSN()
	if err != nil {
		return nil, wire.Truncated("message.lsn")
	}
	prefix, err := r.CString()
	if err != nil {
		return nil, wire.Truncated("message.prefix")
	}
	length, err := r.Uint32()
	if err != nil {
		return nil, wire.Truncated("message.length")
	}
	content, err := r.CopyBytes(int(length))
	if err != nil {
		return nil, wire.Truncated("message.content")
	}

	ev := Event{
		Kind:                 EventLogicalMessage,
		MessageTransactional: flags&messageTxFlag != 0,
		MessagePrefix:        prefix,
		MessageContent:       content,
		MessageLSN:           lsn,
	}
	if !ev.MessageTransactional {
		return []Event{ev}, nil
	}
	if d.txn == nil {
		return nil, errors.WithStack(ErrOutsideTransaction)
	}
	d.pending = append(d.pending, ev)
	return nil, nil
}
