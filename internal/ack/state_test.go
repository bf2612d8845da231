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

package ack_test

import (
	"testing"

	"github.com/grove/pgoutput-decoder/internal/ack"
	"github.com/stretchr/testify/require"
)

func TestAutoAckAdvancesImmediately(t *testing.T) {
	s := ack.New(ack.Auto)
	s.Received(100)
	s.Delivered(100)

	snap := s.Current()
	require.EqualValues(t, 100, snap.LastApplied)
	require.EqualValues(t, 100, snap.LastFlushed)
}

func TestAutoAckExplicitAcknowledgeFails(t *testing.T) {
	s := ack.New(ack.Auto)
	s.Delivered(100)
	_, err := s.Acknowledge()
	require.ErrorIs(t, err, ack.ErrNoPendingLsn)
}

func TestManualAckHoldsUntilAcknowledge(t *testing.T) {
	s := ack.New(ack.Manual)
	s.Delivered(100)

	snap := s.Current()
	require.Zero(t, snap.LastApplied)
	require.Zero(t, snap.LastFlushed)

	lsn, err := s.Acknowledge()
	require.NoError(t, err)
	require.EqualValues(t, 100, lsn)

	snap = s.Current()
	require.EqualValues(t, 100, snap.LastApplied)
	require.EqualValues(t, 100, snap.LastFlushed)
}

func TestManualAckWithoutDeliveryFails(t *testing.T) {
	s := ack.New(ack.Manual)
	_, err := s.Acknowledge()
	require.ErrorIs(t, err, ack.ErrNoPendingLsn)
}

func TestManualAckDoubleAcknowledgeFails(t *testing.T) {
	s := ack.New(ack.Manual)
	s.Delivered(100)
	_, err := s.Acknowledge()
	require.NoError(t, err)
	_, err = s.Acknowledge()
	require.ErrorIs(t, err, ack.ErrNoPendingLsn)
}

func TestMonotonicityAcrossDeliveries(t *testing.T) {
	s := ack.New(ack.Auto)
	s.Delivered(50)
	s.Delivered(100)
	s.Delivered(30) // out of order commit LSN should never move state backwards

	snap := s.Current()
	require.EqualValues(t, 100, snap.LastApplied)
}

func TestStoppingAdvancesAppliedToReceived(t *testing.T) {
	s := ack.New(ack.Manual)
	s.Received(500)
	snap := s.Stopping()
	require.EqualValues(t, 500, snap.LastApplied)
	require.Zero(t, snap.LastFlushed)
}
