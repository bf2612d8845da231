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

package wire_test

import (
	"testing"

	"github.com/grove/pgoutput-decoder/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestReaderPrimitives(t *testing.T) {
	w := wire.NewWriter()
	w.Uint8('R').Uint32(42).Uint64(0x0102030405060708).LSN(12345)
	r := wire.NewReader(w.Bytes())

	tag, err := r.Uint8()
	require.NoError(t, err)
	require.Equal(t, byte('R'), tag)

	u32, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(42), u32)

	u64, err := r.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	lsn, err := r.LSN()
	require.NoError(t, err)
	require.Equal(t, uint64(12345), lsn)

	require.Equal(t, 0, r.Len())
}

func TestReaderCString(t *testing.T) {
	r := wire.NewReader([]byte("customers\x00rest"))
	s, err := r.CString()
	require.NoError(t, err)
	require.Equal(t, "customers", s)
	require.Equal(t, "rest", string(r.Remaining()))
}

func TestReaderCStringUnterminated(t *testing.T) {
	r := wire.NewReader([]byte("no-terminator"))
	_, err := r.CString()
	require.ErrorIs(t, err, wire.ErrTruncated)
}

func TestReaderTruncated(t *testing.T) {
	r := wire.NewReader([]byte{1, 2})
	_, err := r.Uint32()
	require.ErrorIs(t, err, wire.ErrTruncated)
}

func TestTimestampRoundTrip(t *testing.T) {
	const unixMicros = int64(1700000000123456)
	w := wire.NewWriter()
	w.Timestamp(unixMicros)
	r := wire.NewReader(w.Bytes())
	got, err := r.Timestamp()
	require.NoError(t, err)
	require.Equal(t, unixMicros, got)
}
