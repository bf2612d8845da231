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
	"math/rand"

	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/pkg/errors"
)

// ErrChaos is the error injected by WithChaosProbability.
var ErrChaos = errors.New("replication: chaos")

// messageDecoder is the subset of *pgoutput.Decoder's surface the session
// loop depends on, narrow enough that a chaos wrapper can sit in front of
// the real decoder without the session knowing the difference.
type messageDecoder interface {
	Parse(raw []byte) ([]pgoutput.Event, error)
	Abort()
}

// chaosDecoder wraps a messageDecoder and randomly fails Parse calls,
// exercising the session's "drop event, continue" recoverable-error path
// (spec §7) without needing a misbehaving server.
type chaosDecoder struct {
	delegate messageDecoder
	prob     float32
}

var _ messageDecoder = (*chaosDecoder)(nil)

func (d *chaosDecoder) Parse(raw []byte) ([]pgoutput.Event, error) {
	if rand.Float32() < d.prob {
		return nil, ErrChaos
	}
	return d.delegate.Parse(raw)
}

func (d *chaosDecoder) Abort() {
	d.delegate.Abort()
}

// WithChaosProbability makes the session's decoder fail a Parse call with
// probability prob, for tests of the recoverable-decode-error path. A
// prob of zero or less disables the wrapper entirely.
func WithChaosProbability(prob float32) Option {
	return func(s *Session) {
		if prob <= 0 {
			return
		}
		s.decoder = &chaosDecoder{delegate: s.decoder, prob: prob}
	}
}
