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

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config is the user-visible configuration for a replication session,
// covering the Consumer API surface (spec §6): connection parameters,
// the publication/slot to stream from, and the acknowledgement and
// buffering policy.
type Config struct {
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

	// ApplicationName identifies this client in pg_stat_activity.
	ApplicationName string

	// Indent/IncludeUs/IncludeNs flow straight through to
	// envelope.MarshalOptions for whatever writes the stream out.
	Indent    int
	IncludeUs bool
	IncludeNs bool
}

// Bind registers flags for every Config field.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.Host, "host", "localhost",
		"the postgres server to connect to")
	flags.IntVar(&c.Port, "port", 5432,
		"the postgres server port")
	flags.StringVar(&c.Database, "database", "",
		"the database to replicate from")
	flags.StringVar(&c.User, "user", "",
		"the replication role to authenticate as")
	flags.StringVar(&c.Password, "password", "",
		"the password for the replication role")

	flags.StringVar(&c.PublicationName, "publicationName", "",
		"the publication to stream changes for")
	flags.StringVar(&c.SlotName, "slotName", "",
		"the logical replication slot to stream from")

	flags.BoolVar(&c.AutoAcknowledge, "autoAcknowledge", true,
		"advance the flushed LSN automatically as events are delivered; "+
			"if false, the caller must call Acknowledge explicitly")
	flags.IntVar(&c.QueueSize, "queueSize", 1024,
		"the capacity of the bounded event channel")
	flags.IntVar(&c.FeedbackIntervalMs, "feedbackIntervalMs", 10000,
		"how often, in milliseconds, to send a StandbyStatusUpdate absent a reply request")
	flags.StringVar(&c.ApplicationName, "applicationName", "pgoutput-decoder",
		"the application_name reported to the server")

	flags.IntVar(&c.Indent, "indent", 0,
		"pretty-print envelopes with this many spaces of indent; 0 for compact output")
	flags.BoolVar(&c.IncludeUs, "includeMicros", false,
		"include the optional ts_us field in envelopes")
	flags.BoolVar(&c.IncludeNs, "includeNanos", false,
		"include the optional ts_ns field in envelopes")
}

// Preflight validates the configuration and fills in any values that
// cannot be expressed as flag defaults.
func (c *Config) Preflight() error {
	if c.Host == "" {
		return errors.New("host unset")
	}
	if c.Database == "" {
		return errors.New("database unset")
	}
	if c.User == "" {
		return errors.New("user unset")
	}
	if c.PublicationName == "" {
		return errors.New("publicationName unset")
	}
	if c.SlotName == "" {
		return errors.New("slotName unset")
	}
	if c.QueueSize <= 0 {
		return errors.New("queueSize must be positive")
	}
	if c.FeedbackIntervalMs <= 0 {
		return errors.New("feedbackIntervalMs must be positive")
	}
	switch c.Indent {
	case 0, 2, 4:
	default:
		return errors.Errorf("indent must be 0, 2, or 4, got %d", c.Indent)
	}
	return nil
}

// FeedbackInterval returns FeedbackIntervalMs as a time.Duration.
func (c *Config) FeedbackInterval() time.Duration {
	return time.Duration(c.FeedbackIntervalMs) * time.Millisecond
}
