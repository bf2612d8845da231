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

package replication

import "fmt"

// ConnectionFailed is returned when the initial network or authentication
// handshake fails. Fatal: the session never started.
type ConnectionFailed struct {
	Cause error
}

func (e *ConnectionFailed) Error() string {
	return fmt.Sprintf("replication: connection failed: %v", e.Cause)
}

func (e *ConnectionFailed) Unwrap() error { return e.Cause }

// Disconnected is returned when a started session loses its socket.
// Fatal to the session; the caller may construct a new one to reconnect.
type Disconnected struct {
	LastReceived uint64
	Cause        error
}

func (e *Disconnected) Error() string {
	return fmt.Sprintf("replication: disconnected after last_received=%d: %v", e.LastReceived, e.Cause)
}

func (e *Disconnected) Unwrap() error { return e.Cause }

// SlotNotFound is returned when the server rejects START_REPLICATION
// because the named slot does not exist or is the wrong kind. Fatal.
type SlotNotFound struct {
	Slot  string
	Cause error
}

func (e *SlotNotFound) Error() string {
	return fmt.Sprintf("replication: slot %q not found: %v", e.Slot, e.Cause)
}

func (e *SlotNotFound) Unwrap() error { return e.Cause }

// StoppedRead names normal end-of-stream after Stop. Session.Err and
// stream.Reader.Err do not return it: after Stop they report nil.
var StoppedRead = fmt.Errorf("replication: stopped")
