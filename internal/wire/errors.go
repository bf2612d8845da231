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

// Package wire provides zero-allocation primitive decoding and encoding
// over the big-endian byte layout used by the streaming replication and
// pgoutput protocols.
package wire

import "github.com/pkg/errors"

// ErrTruncated is returned when a buffer is shorter than a field it is
// declared to hold.
var ErrTruncated = errors.New("wire: truncated buffer")

// ErrMalformed is returned when a tag byte falls outside its documented
// set of values.
var ErrMalformed = errors.New("wire: malformed frame")

// Truncated wraps ErrTruncated with the field that could not be read.
func Truncated(field string) error {
	return errors.Wrapf(ErrTruncated, "reading %s", field)
}

// Malformed wraps ErrMalformed with the unexpected value encountered.
func Malformed(what string, got byte) error {
	return errors.Wrapf(ErrMalformed, "%s: unexpected tag %q", what, got)
}
