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
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// connectStartupTimeout bounds a single dial+authenticate attempt.
const connectStartupTimeout = 10 * time.Second

// dial opens a logical replication connection (replication=database, the
// mode pgoutput streaming requires) and retries while the server reports
// it is still starting up, mirroring the wait-for-startup behaviour the
// teacher's MySQL connector applies to its own target pool.
func dial(ctx context.Context, cfg *Config) (*pgconn.PgConn, error) {
	connString := connString(cfg)

	for {
		dialCtx, cancel := context.WithTimeout(ctx, connectStartupTimeout)
		conn, err := pgconn.Connect(dialCtx, connString)
		cancel()
		if err == nil {
			log.WithFields(log.Fields{
				"host":     cfg.Host,
				"database": cfg.Database,
			}).Info("replication connection established")
			return conn, nil
		}
		if !isStartupError(err) {
			return nil, &ConnectionFailed{Cause: err}
		}

		log.WithError(err).Info("waiting for database to become ready")
		select {
		case <-ctx.Done():
			return nil, &ConnectionFailed{Cause: ctx.Err()}
		case <-time.After(2 * time.Second):
		}
	}
}

func connString(cfg *Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	q := u.Query()
	q.Set("replication", "database")
	if cfg.ApplicationName != "" {
		q.Set("application_name", cfg.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isStartupError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57P03 = cannot_connect_now (server still starting/recovering).
		return pgErr.Code == "57P03"
	}
	return false
}
