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

package wire

import "encoding/binary"

// Writer builds outbound protocol frames, symmetric with Reader.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with cap pre-sized for a
// StandbyStatusUpdate-sized frame.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 34)}
}

// Bytes returns the accumulated frame.
func (w *Writer) Bytes() []byte { return w.buf }

// Uint8 appends a single byte.
func (w *Writer) Uint8(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// Uint64 appends a big-endian uint64.
func (w *Writer) Uint64(v uint64) *Writer {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// LSN appends a 64-bit log sequence number.
func (w *Writer) LSN(v uint64) *Writer {
	return w.Uint64(v)
}

// Timestamp appends a microsecond wall-clock value, converting from Unix
// microseconds to microseconds since the PostgreSQL epoch.
func (w *Writer) Timestamp(unixMicros int64) *Writer {
	return w.Uint64(uint64(unixMicros - PGEpochMicros))
}
