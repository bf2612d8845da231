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

// PGEpochMicros is the number of microseconds between the Unix epoch and
// midnight 2000-01-01 UTC, the epoch used by every wall-clock timestamp
// in the replication protocol.
const PGEpochMicros int64 = 946684800000000

// Reader is a forward-only cursor over a byte slice. Only CopyBytes and
// CString copy out of the buffer; Bytes and Remaining alias it.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding. The slice is not copied;
// the caller must not mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread tail of the buffer without advancing the
// cursor. The returned slice aliases the Reader's backing array.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

func (r *Reader) need(n int, field string) error {
	if r.Len() < n {
		return Truncated(field)
	}
	return nil
}

// Uint8 reads one unsigned byte.
func (r *Reader) Uint8() (byte, error) {
	if err := r.need(1, "uint8"); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2, "uint16"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// Int32 reads a big-endian signed int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4, "uint32"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Int64 reads a big-endian signed int64.
func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Uint64 reads a big-endian uint64. LSNs and wall-clock timestamps are
// both transmitted in this form.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8, "uint64"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// CString reads a null-terminated string. The returned string is a copy,
// so callers may retain it (e.g. in the relation cache) after the buffer
// is reused.
func (r *Reader) CString() (string, error) {
	rest := r.buf[r.pos:]
	i := indexByte(rest, 0)
	if i < 0 {
		return "", Truncated("cstring")
	}
	s := rest[:i]
	r.pos += i + 1
	return string(s), nil
}

// Bytes reads exactly n bytes. The returned slice aliases the Reader's
// backing array; call CopyBytes instead to retain it.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n, "bytes"); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// CopyBytes reads exactly n bytes into a freshly allocated slice.
func (r *Reader) CopyBytes(n int) ([]byte, error) {
	v, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, v)
	return out, nil
}

// LSN reads a 64-bit log sequence number.
func (r *Reader) LSN() (uint64, error) {
	return r.Uint64()
}

// Timestamp reads a microsecond-resolution wall-clock timestamp measured
// from the PostgreSQL epoch (2000-01-01 UTC) and returns it as
// microseconds since the Unix epoch.
func (r *Reader) Timestamp() (int64, error) {
	micros, err := r.Int64()
	if err != nil {
		return 0, err
	}
	return micros + PGEpochMicros, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
