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

// Package ack implements the LSN-acknowledgement state machine (spec
// §4.7): the policy deciding which LSN to report back to the server, in
// either auto or manual mode.
package ack

import (
	"sync"

	"github.com/pkg/errors"
)

// Mode selects how State.Delivered advances the flushed/applied
// positions.
type Mode int

// The two acknowledgement modes a State can run in.
const (
	// Auto advances last_applied/last_flushed immediately on delivery.
	Auto Mode = iota
	// Manual holds a pending LSN until Acknowledge is called explicitly.
	Manual
)

// ErrNoPendingLsn is returned by Acknowledge when there is nothing to
// acknowledge: either the State is in Auto mode, or Manual mode but no
// event has been delivered since the last Acknowledge. Per spec §9's
// Open Question resolution, Auto mode does not silently succeed.
var ErrNoPendingLsn = errors.New("ack: no pending lsn to acknowledge")

// State tracks the four LSN fields of spec §3 (L) and the tagged-variant
// acknowledgement mode of spec §9's DESIGN NOTES. It is shared by exactly
// two roles — the session's receive side and whichever side calls
// Acknowledge — guarded by a single short-held mutex.
type State struct {
	mode Mode

	mu           sync.Mutex
	lastReceived uint64
	lastFlushed  uint64
	lastApplied  uint64
	pending      uint64
	pendingSet   bool
}

// New returns a State in the given mode, all LSN fields initialised to
// zero per spec §3.
func New(mode Mode) *State {
	return &State{mode: mode}
}

// Mode reports the acknowledgement mode the State was constructed with.
func (s *State) Mode() Mode { return s.mode }

// Received records the highest LSN seen in any frame so far. Called only
// by the session's receive side. Monotonic: a lower value is ignored.
func (s *State) Received(lsn uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lsn > s.lastReceived {
		s.lastReceived = lsn
	}
}

// Delivered records that an event with the given commit LSN was handed
// to the consumer. In Auto mode this immediately advances last_applied
// and last_flushed; in Manual mode it sets the pending LSN for a later
// Acknowledge call.
func (s *State) Delivered(lsn uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.mode {
	case Auto:
		if lsn > s.lastApplied {
			s.lastApplied = lsn
		}
		if lsn > s.lastFlushed {
			s.lastFlushed = lsn
		}
	case Manual:
		s.pending = lsn
		s.pendingSet = true
	}
}

// Acknowledge promotes the pending LSN (Manual mode) to last_applied and
// last_flushed, and reports whether a feedback frame should now be sent
// along with the LSN to report. It fails with ErrNoPendingLsn in Auto
// mode, or in Manual mode when no event has been delivered since the
// last Acknowledge.
func (s *State) Acknowledge() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Manual || !s.pendingSet {
		return 0, ErrNoPendingLsn
	}
	lsn := s.pending
	if lsn > s.lastApplied {
		s.lastApplied = lsn
	}
	if lsn > s.lastFlushed {
		s.lastFlushed = lsn
	}
	s.pendingSet = false
	return lsn, nil
}

// Snapshot is an immutable read of the four LSN fields, suitable for
// building an outbound StandbyStatusUpdate.
type Snapshot struct {
	LastReceived uint64
	LastFlushed  uint64
	LastApplied  uint64
}

// Current returns a Snapshot of the LSN state.
func (s *State) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		LastReceived: s.lastReceived,
		LastFlushed:  s.lastFlushed,
		LastApplied:  s.lastApplied,
	}
}

// Stopping advances last_applied to last_received, as required when the
// session's stop() sends its final StandbyStatusUpdate (spec §5): the
// caller is telling the server it has processed everything it received.
// last_flushed is left as it is, so in Manual mode a stop without
// Acknowledge does not confirm unacknowledged events to the server.
func (s *State) Stopping() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReceived > s.lastApplied {
		s.lastApplied = s.lastReceived
	}
	return Snapshot{
		LastReceived: s.lastReceived,
		LastFlushed:  s.lastFlushed,
		LastApplied:  s.lastApplied,
	}
}
