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

// Package stream implements the Consumer API (spec §6): a bounded,
// ordered channel of Debezium-shaped envelopes backed by a replication
// session, plus the acknowledgement and stop() lifecycle around it.
package stream

import (
	"github.com/grove/pgoutput-decoder/internal/ack"
	"github.com/grove/pgoutput-decoder/internal/envelope"
	"github.com/grove/pgoutput-decoder/internal/replication"
)

// Options is the Consumer API's construction-time surface.
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	PublicationName string
	SlotName        string

	AutoAcknowledge    bool
	QueueSize          int
	FeedbackIntervalMs int
	ApplicationName    string

	Indent    int
	IncludeUs bool
	IncludeNs bool
}

// DefaultOptions returns the documented Consumer API defaults (spec §6).
func DefaultOptions() Options {
	return Options{
		Port:               5432,
		AutoAcknowledge:    true,
		QueueSize:          1024,
		FeedbackIntervalMs: 10000,
		ApplicationName:    "pgoutput-decoder",
	}
}

func (o Options) replicationConfig() *replication.Config {
	return &replication.Config{
		Host:               o.Host,
		Port:               o.Port,
		Database:           o.Database,
		User:               o.User,
		Password:           o.Password,
		PublicationName:    o.PublicationName,
		SlotName:           o.SlotName,
		AutoAcknowledge:    o.AutoAcknowledge,
		QueueSize:          o.QueueSize,
		FeedbackIntervalMs: o.FeedbackIntervalMs,
		ApplicationName:    o.ApplicationName,
		Indent:             o.Indent,
		IncludeUs:          o.IncludeUs,
		IncludeNs:          o.IncludeNs,
	}
}

func (o Options) ackMode() ack.Mode {
	if o.AutoAcknowledge {
		return ack.Auto
	}
	return ack.Manual
}

func (o Options) marshalOptions() envelope.MarshalOptions {
	return envelope.MarshalOptions{
		Indent:    o.Indent,
		IncludeUs: o.IncludeUs,
		IncludeNs: o.IncludeNs,
	}
}
