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

// Command pgcdc-tail connects to a PostgreSQL logical replication slot
// and prints decoded row changes as Debezium-shaped JSON envelopes.
package main

import (
	"os"

	"github.com/grove/pgoutput-decoder/cmd/pgcdc-tail/commands"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.WithError(err).Error("pgcdc-tail exited with an error")
		os.Exit(1)
	}
}
