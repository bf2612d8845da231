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

// Package replication drives a single PostgreSQL logical replication
// session: connect, IDENTIFY_SYSTEM, START_REPLICATION, and the
// CopyData/XLogData/PrimaryKeepalive frame loop, decoding row changes
// with internal/pgoutput and reporting LSN feedback through internal/ack.
package replication

import (
	"context"
	"sync"
	"time"

	"github.com/grove/pgoutput-decoder/internal/ack"
	"github.com/grove/pgoutput-decoder/internal/diag"
	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Session owns one replication connection and the frame loop feeding
// decoded events to Events(). Construct with Start; terminate with Stop.
type Session struct {
	cfg     *Config
	conn    *pgconn.PgConn
	decoder messageDecoder
	ack     *ack.State

	events chan pgoutput.Event

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	loopErr error

	sendMu sync.Mutex
}

// Option customises a Session at construction time.
type Option func(*Session)

// Start connects, issues IDENTIFY_SYSTEM and START_REPLICATION, and
// spawns the frame loop. The returned Session must eventually be Stopped.
func Start(ctx context.Context, cfg *Config, ackState *ack.State, opts ...Option) (*Session, error) {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if _, err := pglogrepl.IdentifySystem(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, &ConnectionFailed{Cause: errors.Wrap(err, "IDENTIFY_SYSTEM")}
	}

	err = pglogrepl.StartReplication(ctx, conn, cfg.SlotName, 0, pglogrepl.StartReplicationOptions{
		PluginArgs: []string{
			"proto_version '1'",
			"publication_names '" + cfg.PublicationName + "'",
		},
	})
	if err != nil {
		conn.Close(ctx)
		return nil, &SlotNotFound{Slot: cfg.SlotName, Cause: err}
	}

	s := &Session{
		cfg:     cfg,
		conn:    conn,
		decoder: pgoutput.New(),
		ack:     ackState,
		events:  make(chan pgoutput.Event, cfg.QueueSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.loop(ctx)
	return s, nil
}

// Events returns the channel of decoded row-change events. It is closed
// when the session stops, whether by Stop or by a fatal error (check Err
// after the channel closes).
func (s *Session) Events() <-chan pgoutput.Event {
	return s.events
}

// Err returns the fatal error that ended the frame loop, if any. Safe to
// call once Events() has been drained and closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopErr
}

// Stop is idempotent: it signals the loop to finish its current frame,
// send a final StandbyStatusUpdate, close the event channel, and close
// the socket. It blocks until the loop has exited.
func (s *Session) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.loopErr = err
	s.mu.Unlock()
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.events)
	defer close(s.done)
	defer s.conn.Close(context.Background())

	feedbackInterval := s.cfg.FeedbackInterval()
	lastFeedback := time.Now()
	lastActivity := time.Now()

	for {
		select {
		case <-s.stopCh:
			s.sendFeedback(ctx, s.ack.Stopping())
			return
		default:
		}

		if time.Since(lastActivity) > 2*feedbackInterval {
			s.setErr(&Disconnected{LastReceived: s.ack.Current().LastReceived, Cause: errors.New("no keepalive within 2x feedback interval")})
			return
		}

		recvCtx, cancel := context.WithTimeout(ctx, feedbackInterval)
		msg, err := s.conn.ReceiveMessage(recvCtx)
		cancel()
		if err != nil {
			if pgconn.Timeout(err) {
				if time.Since(lastFeedback) >= feedbackInterval {
					s.sendFeedback(ctx, s.ack.Current())
					lastFeedback = time.Now()
				}
				continue
			}
			select {
			case <-s.stopCh:
				s.sendFeedback(ctx, s.ack.Stopping())
				return
			default:
			}
			s.setErr(&Disconnected{LastReceived: s.ack.Current().LastReceived, Cause: err})
			return
		}

		lastActivity = time.Now()

		cd, ok := msg.(*pgproto3.CopyData)
		if !ok {
			continue
		}
		if len(cd.Data) == 0 {
			continue
		}

		switch cd.Data[0] {
		case pglogrepl.PrimaryKeepaliveMessageByteID:
			pkm, err := pglogrepl.ParsePrimaryKeepaliveMessage(cd.Data[1:])
			if err != nil {
				log.WithError(err).Warn("replication: malformed keepalive, ignoring")
				continue
			}
			s.ack.Received(uint64(pkm.ServerWALEnd))
			if pkm.ReplyRequested || time.Since(lastFeedback) >= feedbackInterval {
				s.sendFeedback(ctx, s.ack.Current())
				lastFeedback = time.Now()
			}

		case pglogrepl.XLogDataByteID:
			xld, err := pglogrepl.ParseXLogData(cd.Data[1:])
			if err != nil {
				log.WithError(err).Warn("replication: malformed XLogData, ignoring")
				continue
			}
			s.ack.Received(uint64(xld.ServerWALEnd))
			s.handleWALData(xld.WALData)
		}
	}
}

func (s *Session) handleWALData(raw []byte) {
	start := time.Now()
	evs, err := s.decoder.Parse(raw)
	tag := "?"
	if len(raw) > 0 {
		tag = string(rune(raw[0]))
	}
	diag.ObserveDecodeDuration(tag, time.Since(start).Seconds())
	if err != nil {
		diag.DecodeError(tag)
		log.WithError(err).Warn("replication: dropping malformed pgoutput message, aborting in-flight transaction")
		s.decoder.Abort()
		return
	}
	for _, ev := range evs {
		if ev.Relation != nil {
			diag.EventDecoded(ev.Relation.Namespace, ev.Relation.Name)
		}
		select {
		case s.events <- ev:
			s.ack.Delivered(ev.Txn.CommitLSN)
		case <-s.stopCh:
			return
		}
	}
}

// Flush forces an immediate StandbyStatusUpdate reflecting the current
// LSN state, rather than waiting for the next keepalive or periodic
// interval. Used by the manual-ack path (spec §4.7: acknowledge() "forces
// a feedback frame"). Safe to call concurrently with the frame loop.
func (s *Session) Flush(ctx context.Context) {
	s.sendFeedback(ctx, s.ack.Current())
}

func (s *Session) sendFeedback(ctx context.Context, snap ack.Snapshot) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	err := pglogrepl.SendStandbyStatusUpdate(ctx, s.conn, pglogrepl.StandbyStatusUpdate{
		WALWritePosition: pglogrepl.LSN(snap.LastReceived),
		WALFlushPosition: pglogrepl.LSN(snap.LastFlushed),
		WALApplyPosition: pglogrepl.LSN(snap.LastApplied),
		ReplyRequested:   false,
	})
	if err != nil {
		log.WithError(err).Warn("replication: failed to send standby status update")
		return
	}
	diag.FeedbackSent()
}
