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

//go:build integration

package replication_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/grove/pgoutput-decoder/internal/ack"
	"github.com/grove/pgoutput-decoder/internal/pgoutput"
	"github.com/grove/pgoutput-decoder/internal/replication"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a disposable postgres configured for logical
// replication (wal_level=logical, per spec §6's server-side preconditions)
// and returns a replication.Config pointed at it.
func startPostgres(t *testing.T) *replication.Config {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("cdctest"),
		postgres.WithUsername("cdctest"),
		postgres.WithPassword("cdctest"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		testcontainers.WithCmd(
			"postgres",
			"-c", "wal_level=logical",
			"-c", "max_replication_slots=4",
			"-c", "max_wal_senders=4",
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return &replication.Config{
		Host:               host,
		Port:               port.Int(),
		Database:           "cdctest",
		User:               "cdctest",
		Password:           "cdctest",
		PublicationName:    "cdctest_pub",
		SlotName:           "cdctest_slot",
		AutoAcknowledge:    true,
		QueueSize:          64,
		FeedbackIntervalMs: 500,
		ApplicationName:    "pgoutput-decoder-test",
	}
}

func adminConnString(cfg *replication.Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func setupReplication(t *testing.T, cfg *replication.Config) {
	t.Helper()
	db, err := sql.Open("pgx", adminConnString(cfg))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE customers (
		id TEXT PRIMARY KEY,
		name TEXT,
		credit_limit NUMERIC,
		deleted BOOLEAN
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE customers REPLICA IDENTITY FULL`)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf(`CREATE PUBLICATION %s FOR TABLE customers`, cfg.PublicationName))
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf(
		`SELECT pg_create_logical_replication_slot('%s', 'pgoutput')`, cfg.SlotName))
	require.NoError(t, err)
}

// TestEndToEndScenarios exercises spec §8's literal insert/update/delete
// scenarios against a real replication slot.
func TestEndToEndScenarios(t *testing.T) {
	cfg := startPostgres(t)
	setupReplication(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ackState := ack.New(ack.Auto)
	session, err := replication.Start(ctx, cfg, ackState)
	require.NoError(t, err)
	defer session.Stop(ctx)

	db, err := sql.Open("pgx", adminConnString(cfg))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO customers(id, name, credit_limit, deleted) VALUES ('CUST001', 'Alice Johnson', 5000, false)`)
	require.NoError(t, err)

	ev := requireNextEvent(t, session)
	require.Equal(t, pgoutput.EventInsert, ev.Kind)
	require.Nil(t, ev.Before)
	require.NotNil(t, ev.After)

	_, err = db.Exec(`UPDATE customers SET credit_limit = 7500 WHERE id = 'CUST001'`)
	require.NoError(t, err)

	ev = requireNextEvent(t, session)
	require.Equal(t, pgoutput.EventUpdate, ev.Kind)
	require.NotNil(t, ev.Before)
	require.NotNil(t, ev.After)

	_, err = db.Exec(`DELETE FROM customers WHERE id = 'CUST001'`)
	require.NoError(t, err)

	ev = requireNextEvent(t, session)
	require.Equal(t, pgoutput.EventDelete, ev.Kind)
	require.NotNil(t, ev.Before)
	require.Nil(t, ev.After)
}

// TestManualAckReplay exercises scenario 4 of spec §8: a manual-ack
// consumer that exits without acknowledging redelivers the same event to
// the next consumer on the same slot. The auto-ack case is not covered here.
func TestManualAckReplay(t *testing.T) {
	cfg := startPostgres(t)
	cfg.AutoAcknowledge = false
	setupReplication(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", adminConnString(cfg))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO customers(id, name, credit_limit, deleted) VALUES ('CUST002', 'Bob', 1, false)`)
	require.NoError(t, err)

	firstAck := ack.New(ack.Manual)
	first, err := replication.Start(ctx, cfg, firstAck)
	require.NoError(t, err)
	firstEvent := requireNextEvent(t, first)
	first.Stop(ctx) // exits without Acknowledge()

	secondAck := ack.New(ack.Manual)
	second, err := replication.Start(ctx, cfg, secondAck)
	require.NoError(t, err)
	defer second.Stop(ctx)
	secondEvent := requireNextEvent(t, second)

	require.Equal(t, firstEvent.Txn.CommitLSN, secondEvent.Txn.CommitLSN)
}

func requireNextEvent(t *testing.T, session *replication.Session) pgoutput.Event {
	t.Helper()
	select {
	case ev, ok := <-session.Events():
		require.True(t, ok, "session ended: %v", session.Err())
		return ev
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for event")
		return pgoutput.Event{}
	}
}
