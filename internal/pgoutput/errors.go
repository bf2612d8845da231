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

package pgoutput

import "github.com/pkg/errors"

// ErrOutsideTransaction is returned when a row-change or transactional
// Message arrives without an open Begin. Recoverable: the offending
// message is dropped and decoding resumes at the next Begin.
var ErrOutsideTransaction = errors.New("pgoutput: row event outside of a transaction")

// ErrUnexpectedBegin names the case of a Begin arriving while a
// transaction is already open. Decoder.Parse does not return it: it logs a
// warning, discards the prior transaction's buffered events and resumes
// with the new transaction.
var ErrUnexpectedBegin = errors.New("pgoutput: nested BEGIN")

// ErrCommitWithoutBegin is returned when Commit arrives with no open
// transaction. Recoverable.
var ErrCommitWithoutBegin = errors.New("pgoutput: COMMIT without BEGIN")
