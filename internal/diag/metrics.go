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

// Package diag holds the replication client's Prometheus instrumentation:
// counters and histograms for decoded events, decode failures, connection
// attempts, and outbound feedback frames.
package diag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets are the histogram buckets used for all duration metrics
// in this package, tuned for sub-second replication feedback intervals
// rather than the multi-second buckets appropriate to batch sink writes.
var LatencyBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// TableLabels is the label set shared by all per-relation counters.
var TableLabels = []string{"schema", "table"}

var (
	eventsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgoutput_events_decoded_total",
		Help: "the number of row-change events decoded, by relation",
	}, TableLabels)

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgoutput_events_dropped_total",
		Help: "the number of decoded events dropped because the consumer channel was full and the drop policy applied",
	}, TableLabels)

	decodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgoutput_decode_errors_total",
		Help: "the number of times a message failed to decode, by message tag",
	}, []string{"tag"})

	reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgoutput_reconnects_total",
		Help: "the number of times the replication session reconnected, by reason",
	}, []string{"reason"})

	feedbackSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgoutput_feedback_frames_total",
		Help: "the number of StandbyStatusUpdate feedback frames sent",
	}, []string{})

	streamLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pgoutput_replication_lag_bytes",
		Help: "the gap in bytes between the server's current WAL position and the last LSN acknowledged",
	})

	decodeDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pgoutput_decode_duration_seconds",
		Help:    "the length of time it took to decode a single XLogData message",
		Buckets: LatencyBuckets,
	}, []string{"tag"})
)

// EventDecoded records one decoded row-change event for schema.table.
func EventDecoded(schema, table string) {
	eventsDecoded.WithLabelValues(schema, table).Inc()
}

// EventDropped records one event dropped under backpressure for schema.table.
func EventDropped(schema, table string) {
	eventsDropped.WithLabelValues(schema, table).Inc()
}

// DecodeError records one decode failure for the given message tag.
func DecodeError(tag string) {
	decodeErrors.WithLabelValues(tag).Inc()
}

// Reconnected records one session reconnect attributed to reason.
func Reconnected(reason string) {
	reconnects.WithLabelValues(reason).Inc()
}

// FeedbackSent records one outbound StandbyStatusUpdate.
func FeedbackSent() {
	feedbackSent.WithLabelValues().Inc()
}

// SetReplicationLag reports the current gap, in bytes, between the
// server's WAL write position and the last acknowledged LSN.
func SetReplicationLag(bytes float64) {
	streamLag.Set(bytes)
}

// ObserveDecodeDuration records how long decoding a single message tagged
// tag took.
func ObserveDecodeDuration(tag string, seconds float64) {
	decodeDurations.WithLabelValues(tag).Observe(seconds)
}
