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

package stream

import (
	"context"
	"sync"
	"time"

	"github.com/grove/pgoutput-decoder/internal/ack"
	"github.com/grove/pgoutput-decoder/internal/envelope"
	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/grove/pgoutput-decoder/internal/replication"
)

// translate converts a decoded row-change event into its envelope, or
// nil if ev has no envelope representation (Truncate, bookkeeping, or an
// advisory message — see envelope.FromEvent).
func translate(ev pgoutput.Event, opts envelope.MarshalOptions) *envelope.Envelope {
	env, ok := envelope.FromEvent(ev, opts)
	if !ok {
		return nil
	}
	return &env
}

// Reader is the Consumer API's handle on a running replication stream:
// Events() for iteration, Acknowledge() for manual-ack mode, Stop() to
// terminate cleanly (spec §6).
type Reader struct {
	session *replication.Session
	ack     *ack.State
	opts    Options

	out      chan *envelope.Envelope
	stopOnce sync.Once
	done     chan struct{}
}

// Open starts a replication session per opts and begins translating
// decoded row changes into envelopes. The returned Reader must
// eventually be Stopped. Wiring of the ack.State/replication.Session
// graph is done by ProvideReader, in wire_gen.go.
func Open(ctx context.Context, opts Options) (*Reader, error) {
	r, err := ProvideReader(ctx, opts)
	if err != nil {
		return nil, err
	}
	go r.pump(ctx)
	return r, nil
}

// Events returns the channel of envelopes. A nil value is a keepalive
// tick, not a row change; the channel closes at end-of-stream, after
// which Err reports whether that was due to Stop or a fatal error.
func (r *Reader) Events() <-chan *envelope.Envelope {
	return r.out
}

// Acknowledge promotes the most recently delivered event's LSN to
// last_applied/last_flushed and forces a feedback frame. Valid only when
// the Reader was opened with AutoAcknowledge=false; otherwise it fails
// with ack.ErrNoPendingLsn, per spec §9's resolved Open Question.
func (r *Reader) Acknowledge() (uint64, error) {
	lsn, err := r.ack.Acknowledge()
	if err != nil {
		return 0, err
	}
	r.session.Flush(context.Background())
	return lsn, nil
}

// Err reports the fatal error that ended the stream, if any.
func (r *Reader) Err() error {
	return r.session.Err()
}

// Stop terminates iteration cleanly; idempotent, matching the
// idempotence testable property in spec §8.
func (r *Reader) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		r.session.Stop(ctx)
	})
	<-r.done
}

func (r *Reader) pump(ctx context.Context) {
	defer close(r.out)
	defer close(r.done)

	interval := 10 * time.Second
	if ms := r.opts.FeedbackIntervalMs; ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	marshalOpts := r.opts.marshalOptions()

	for {
		select {
		case ev, ok := <-r.session.Events():
			if !ok {
				return
			}
			env := translate(ev, marshalOpts)
			if env == nil {
				continue
			}
			select {
			case r.out <- env:
			case <-ctx.Done():
				return
			}
		case <-ticker.C:
			select {
			case r.out <- nil:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
