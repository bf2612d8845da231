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
	"strconv"

	pgxtype "github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
)

// Format distinguishes the column-format byte pgoutput attaches to a
// value: the replication protocol always uses text format for tuple
// columns, but the registry also decodes the binary forms pgx exposes
// when OID-typed binary payloads originate elsewhere (tests, future
// protocol versions).
type Format byte

// The two formats pgoutput and the wire protocol distinguish.
const (
	FormatText   Format = 't'
	FormatBinary Format = 'b'
)

// ConversionFailed is returned when a converter cannot interpret a
// column's payload. The enclosing event is dropped by the caller; the
// session continues (spec: recoverable, not fatal).
type ConversionFailed struct {
	OID    uint32
	Reason string
}

func (e *ConversionFailed) Error() string {
	return "pgtype: conversion failed for OID " + strconv.FormatUint(uint64(e.OID), 10) + ": " + e.Reason
}

// Converter decodes one column's raw payload into a Value.
type Converter func(format Format, raw []byte) (Value, error)

// Registry maps a type OID to a Converter. The zero Registry is usable
// but has no converters, so it decodes every non-null payload as KindRaw;
// NewRegistry returns one with the default set installed.
type Registry struct {
	converters map[uint32]Converter
}

// NewRegistry returns a Registry pre-populated with the default
// converter set, which covers every OID observed at runtime by falling
// back to KindRaw for anything not explicitly registered.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[uint32]Converter, 32)}
	r.registerDefaults()
	return r
}

// Register installs or replaces the converter for oid.
func (r *Registry) Register(oid uint32, c Converter) {
	if r.converters == nil {
		r.converters = make(map[uint32]Converter, 32)
	}
	r.converters[oid] = c
}

// Decode converts raw according to the converter registered for oid,
// falling back to the raw-preserving converter for unregistered OIDs.
// The returned error, if non-nil, is always a *ConversionFailed.
func (r *Registry) Decode(oid uint32, format Format, raw []byte) (Value, error) {
	if raw == nil {
		return Null, nil
	}
	c, ok := r.converters[oid]
	if !ok {
		c = decodeRaw
	}
	v, err := c(format, raw)
	if err != nil {
		var cf *ConversionFailed
		if errors.As(err, &cf) {
			return Value{}, cf
		}
		return Value{}, &ConversionFailed{OID: oid, Reason: err.Error()}
	}
	if v.Kind == KindRaw {
		v.OID = oid
	}
	return v, nil
}

func decodeRaw(_ Format, raw []byte) (Value, error) {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Value{Kind: KindRaw, Raw: cp}, nil
}

func (r *Registry) registerDefaults() {
	ints := []uint32{
		pgxtype.Int2OID, pgxtype.Int4OID, pgxtype.Int8OID,
		pgxtype.OIDOID, pgxtype.XIDOID, pgxtype.CIDOID,
	}
	for _, oid := range ints {
		r.Register(oid, decodeInt)
	}

	numerics := []uint32{pgxtype.NumericOID, pgxtype.Float4OID, pgxtype.Float8OID}
	for _, oid := range numerics {
		r.Register(oid, decodeNumeric)
	}

	r.Register(pgxtype.BoolOID, decodeBool)

	texts := []uint32{
		pgxtype.TextOID, pgxtype.VarcharOID, pgxtype.BPCharOID,
		pgxtype.NameOID, pgxtype.UUIDOID,
	}
	for _, oid := range texts {
		r.Register(oid, decodeText)
	}

	r.Register(pgxtype.ByteaOID, decodeBytea)

	times := []uint32{
		pgxtype.DateOID, pgxtype.TimeOID, pgxtype.TimestampOID, pgxtype.TimestamptzOID,
	}
	for _, oid := range times {
		r.Register(oid, decodeTime)
	}

	docs := []uint32{pgxtype.JSONOID, pgxtype.JSONBOID}
	for _, oid := range docs {
		r.Register(oid, decodeDocument)
	}
}

func decodeInt(format Format, raw []byte) (Value, error) {
	if format == FormatText {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return Value{}, errors.Wrap(err, "invalid integer text")
		}
		return Value{Kind: KindInt, Int: n}, nil
	}
	return decodeIntBinary(raw)
}

func decodeBool(format Format, raw []byte) (Value, error) {
	if format == FormatText {
		switch string(raw) {
		case "t":
			return Value{Kind: KindBool, Bool: true}, nil
		case "f":
			return Value{Kind: KindBool, Bool: false}, nil
		default:
			return Value{}, errors.Errorf("invalid boolean text %q", raw)
		}
	}
	if len(raw) != 1 {
		return Value{}, errors.Errorf("invalid boolean binary length %d", len(raw))
	}
	return Value{Kind: KindBool, Bool: raw[0] != 0}, nil
}

func decodeText(_ Format, raw []byte) (Value, error) {
	return Value{Kind: KindText, Text: string(raw)}, nil
}

func decodeBytea(format Format, raw []byte) (Value, error) {
	if format == FormatText {
		b, err := decodeByteaHexText(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBytes, Bytes: b}, nil
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Value{Kind: KindBytes, Bytes: cp}, nil
}

func decodeNumeric(format Format, raw []byte) (Value, error) {
	if format == FormatText {
		d, err := decodeNumericText(string(raw))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindDecimal, Decimal: d}, nil
	}
	d, err := decodeNumericBinary(raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindDecimal, Decimal: d}, nil
}

func decodeTime(format Format, raw []byte) (Value, error) {
	if format == FormatText {
		t, err := decodeTimeText(string(raw))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindTime, Time: t}, nil
	}
	// Binary format: date columns are 4 bytes, timestamp(tz) are 8.
	if len(raw) == 4 {
		t, err := decodeDateBinary(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindTime, Time: t}, nil
	}
	t, err := decodeTimestampBinary(raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindTime, Time: t}, nil
}

func decodeDocument(format Format, raw []byte) (Value, error) {
	// jsonb's binary form is a version byte (1) followed by the JSON text.
	if format == FormatBinary && len(raw) > 0 && raw[0] == 1 {
		raw = raw[1:]
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindDocument, Document: doc}, nil
}
