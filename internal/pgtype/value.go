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

// Package pgtype maps PostgreSQL column type OIDs to language-neutral
// values, covering every OID the default registry declares and falling
// back to a raw, loss-free representation for everything else.
package pgtype

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the variants of Value.
type Kind int

// The Value variants. Null is the zero Kind so a zero-value Value is
// Null, matching the protocol's "n" tuple-column default.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindText
	KindBytes
	KindTime
	KindDocument
	KindRaw
)

// Document is the recursively-decoded shape of a json/jsonb column:
// nil, bool, json.Number, string, []Document, or map[string]Document.
type Document = any

// Value is the language-neutral result of converting one column's raw
// bytes. Exactly one of the typed fields is meaningful, selected by Kind.
// A converter must populate Value even on data it cannot fully interpret
// (KindRaw) rather than drop it.
type Value struct {
	Kind Kind

	Bool     bool
	Int      int64
	Decimal  decimal.Decimal
	Text     string
	Bytes    []byte
	Time     time.Time
	Document Document

	// Raw and OID are populated for KindRaw: the payload as received,
	// with its type OID recorded so a caller can apply its own decoding.
	Raw []byte
	OID uint32
}

// IsNull reports whether the value represents SQL NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Null is the canonical null Value.
var Null = Value{Kind: KindNull}
