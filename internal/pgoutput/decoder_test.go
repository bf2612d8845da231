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

package pgoutput_test

import (
	"encoding/binary"
	"testing"

	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/grove/pgoutput-decoder/internal/relation"
	"github.com/stretchr/testify/require"
)

// frameBuilder assembles synthetic pgoutput messages for tests, mirroring
// the byte layout internal/pgoutput/decoder.go parses.
type frameBuilder struct{ buf []byte }

func newFrame(tag byte) *frameBuilder { return &frameBuilder{buf: []byte{tag}} }

func (f *frameBuilder) u8(v byte) *frameBuilder  { f.buf = append(f.buf, v); return f }
func (f *frameBuilder) u16(v uint16) *frameBuilder {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	f.buf = append(f.buf, b[:]...)
	return f
}
func (f *frameBuilder) u32(v uint32) *frameBuilder {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	f.buf = append(f.buf, b[:]...)
	return f
}
func (f *frameBuilder) u64(v uint64) *frameBuilder {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	f.buf = append(f.buf, b[:]...)
	return f
}
func (f *frameBuilder) cstr(s string) *frameBuilder {
	f.buf = append(f.buf, []byte(s)...)
	f.buf = append(f.buf, 0)
	return f
}
func (f *frameBuilder) text(s string) *frameBuilder {
	f.u32(uint32(len(s)))
	f.buf = append(f.buf, []byte(s)...)
	return f
}
func (f *frameBuilder) bytes() []byte { return f.buf }

func beginFrame(xid uint32, finalLSN uint64) []byte {
	return newFrame('B').u64(finalLSN).u64(0).u32(xid).bytes()
}

func commitFrame(commitLSN uint64) []byte {
	return newFrame('C').u8(0).u64(commitLSN).u64(commitLSN).u64(0).bytes()
}

func relationFrame(id uint32, ns, name string, identity byte, cols []struct {
	name string
	oid  uint32
	key  bool
}) []byte {
	f := newFrame('R').u32(id).cstr(ns).cstr(name).u8(identity).u16(uint16(len(cols)))
	for _, c := range cols {
		flags := byte(0)
		if c.key {
			flags = 1
		}
		f.u8(flags).cstr(c.name).u32(c.oid).u32(0)
	}
	return f.bytes()
}

func insertFrame(relID uint32, values []string) []byte {
	f := newFrame('I').u32(relID).u8('N').u16(uint16(len(values)))
	for _, v := range values {
		f.u8('t').text(v)
	}
	return f.bytes()
}

func deleteFrame(relID uint32, marker byte, values []string) []byte {
	f := newFrame('D').u32(relID).u8(marker).u16(uint16(len(values)))
	for _, v := range values {
		f.u8('t').text(v)
	}
	return f.bytes()
}

const textOID uint32 = 25
const int4OID uint32 = 23
const boolOID uint32 = 16

func customersCols() []struct {
	name string
	oid  uint32
	key  bool
} {
	return []struct {
		name string
		oid  uint32
		key  bool
	}{
		{"_id", textOID, true},
		{"name", textOID, false},
		{"credit_limit", int4OID, false},
		{"_deleted", boolOID, false},
	}
}

func TestInsertRoundTrip(t *testing.T) {
	d := pgoutput.New()

	_, err := d.Parse(beginFrame(100, 1000))
	require.NoError(t, err)

	err2 := mustParseNoEvents(t, d, relationFrame(1, "public", "customers", 'f', customersCols()))
	require.NoError(t, err2)

	noEvents, err := d.Parse(insertFrame(1, []string{"CUST001", "Alice Johnson", "5000", "f"}))
	require.NoError(t, err)
	require.Empty(t, noEvents)

	events, err := d.Parse(commitFrame(2000))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, pgoutput.EventInsert, ev.Kind)
	require.Nil(t, ev.Before)
	require.NotNil(t, ev.After)
	require.EqualValues(t, 2000, ev.Txn.CommitLSN)
	require.EqualValues(t, 100, ev.Txn.XID)
	require.Equal(t, "public.customers", ev.Relation.QualifiedName())

	require.Equal(t, "CUST001", ev.After.Slots[0].Value.Text)
	require.Equal(t, "Alice Johnson", ev.After.Slots[1].Value.Text)
	require.EqualValues(t, 5000, ev.After.Slots[2].Value.Int)
	require.False(t, ev.After.Slots[3].Value.Bool)
}

func TestDeleteCapturesBeforeOnly(t *testing.T) {
	d := pgoutput.New()
	_, err := d.Parse(beginFrame(1, 10))
	require.NoError(t, err)
	require.NoError(t, mustParseNoEvents(t, d, relationFrame(1, "public", "customers", 'f', customersCols())))

	noEvents, err := d.Parse(deleteFrame(1, 'O', []string{"CUST001", "Alice Johnson", "5000", "f"}))
	require.NoError(t, err)
	require.Empty(t, noEvents)

	events, err := d.Parse(commitFrame(20))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, pgoutput.EventDelete, events[0].Kind)
	require.Nil(t, events[0].After)
	require.NotNil(t, events[0].Before)
	require.Equal(t, "CUST001", events[0].Before.Slots[0].Value.Text)
}

func TestUnknownRelationIsRecoverable(t *testing.T) {
	d := pgoutput.New()
	_, err := d.Parse(beginFrame(1, 10))
	require.NoError(t, err)

	_, err = d.Parse(insertFrame(99, []string{"x"}))
	require.Error(t, err)
	var ur *relation.UnknownRelation
	require.ErrorAs(t, err, &ur)

	d.Abort()
	_, err = d.Parse(beginFrame(2, 30))
	require.NoError(t, err)
}

func TestMultipleEventsPreserveOrderWithinTransaction(t *testing.T) {
	d := pgoutput.New()
	_, err := d.Parse(beginFrame(1, 10))
	require.NoError(t, err)
	require.NoError(t, mustParseNoEvents(t, d, relationFrame(1, "public", "customers", 'f', customersCols())))

	_, err = d.Parse(insertFrame(1, []string{"A", "n1", "1", "f"}))
	require.NoError(t, err)
	_, err = d.Parse(insertFrame(1, []string{"B", "n2", "2", "f"}))
	require.NoError(t, err)
	_, err = d.Parse(insertFrame(1, []string{"C", "n3", "3", "f"}))
	require.NoError(t, err)

	events, err := d.Parse(commitFrame(99))
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "A", events[0].After.Slots[0].Value.Text)
	require.Equal(t, "B", events[1].After.Slots[0].Value.Text)
	require.Equal(t, "C", events[2].After.Slots[0].Value.Text)
}

func TestCommitWithoutBeginIsRecoverable(t *testing.T) {
	d := pgoutput.New()
	_, err := d.Parse(commitFrame(1))
	require.ErrorIs(t, err, pgoutput.ErrCommitWithoutBegin)
}

func mustParseNoEvents(t *testing.T, d *pgoutput.Decoder, raw []byte) error {
	t.Helper()
	events, err := d.Parse(raw)
	require.Empty(t, events)
	return err
}
