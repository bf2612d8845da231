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
	"testing"
	"time"

	"github.com/grove/pgoutput-decoder/internal/ack"
	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/grove/pgoutput-decoder/internal/relation"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsMatchConsumerAPIDefaults(t *testing.T) {
	o := DefaultOptions()
	require.EqualValues(t, 5432, o.Port)
	require.True(t, o.AutoAcknowledge)
	require.Equal(t, 1024, o.QueueSize)
	require.Equal(t, 10000, o.FeedbackIntervalMs)
}

func TestAckModeReflectsAutoAcknowledge(t *testing.T) {
	require.Equal(t, ack.Auto, Options{AutoAcknowledge: true}.ackMode())
	require.Equal(t, ack.Manual, Options{AutoAcknowledge: false}.ackMode())
}

func TestReplicationConfigCarriesAllFields(t *testing.T) {
	o := Options{
		Host: "h", Port: 1, Database: "d", User: "u", Password: "p",
		PublicationName: "pub", SlotName: "slot",
		AutoAcknowledge: true, QueueSize: 7, FeedbackIntervalMs: 250,
		ApplicationName: "app", Indent: 2, IncludeUs: true, IncludeNs: true,
	}
	cfg := o.replicationConfig()
	require.Equal(t, "h", cfg.Host)
	require.Equal(t, "pub", cfg.PublicationName)
	require.Equal(t, 7, cfg.QueueSize)
	require.Equal(t, 2, cfg.Indent)
	require.True(t, cfg.IncludeUs)
}

func TestMarshalOptionsMirrorsFormattingFields(t *testing.T) {
	o := Options{Indent: 4, IncludeUs: true}
	m := o.marshalOptions()
	require.Equal(t, 4, m.Indent)
	require.True(t, m.IncludeUs)
	require.False(t, m.IncludeNs)
}

func TestTranslateSkipsNonRowEvents(t *testing.T) {
	env := translate(pgoutput.Event{Kind: pgoutput.EventTruncate}, DefaultOptions().marshalOptions())
	require.Nil(t, env)
}

func TestTranslateProducesEnvelopeForInsert(t *testing.T) {
	ev := pgoutput.Event{
		Kind: pgoutput.EventInsert,
		Txn:  pgoutput.Txn{XID: 1, CommitAt: time.Now()},
		Relation: &relation.Relation{
			Namespace: "public",
			Name:      "customers",
			Columns:   []relation.Column{{Name: "id"}},
		},
		After: &pgoutput.Tuple{Slots: []pgoutput.Slot{
			{State: pgoutput.SlotPresent},
		}},
	}
	env := translate(ev, DefaultOptions().marshalOptions())
	require.NotNil(t, env)
	require.Equal(t, "c", string(env.Op))
	require.Equal(t, "customers", env.Source.Table)
}
