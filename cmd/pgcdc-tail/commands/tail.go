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

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grove/pgoutput-decoder/internal/envelope"
	"github.com/grove/pgoutput-decoder/internal/replication"
	"github.com/grove/pgoutput-decoder/internal/stream"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tailReplCfg = &replication.Config{}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream row changes from a replication slot and print them as JSON",
	RunE:  runTail,
}

func init() {
	tailReplCfg.Bind(tailCmd.Flags())
}

func runTail(cmd *cobra.Command, _ []string) error {
	v, err := bindViper(cmd)
	if err != nil {
		return errors.Wrap(err, "binding configuration")
	}
	applyViperOverrides(v, tailReplCfg)

	if err := tailReplCfg.Preflight(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	replCfg := tailReplCfg

	opts := stream.Options{
		Host:               replCfg.Host,
		Port:               replCfg.Port,
		Database:           replCfg.Database,
		User:               replCfg.User,
		Password:           replCfg.Password,
		PublicationName:    replCfg.PublicationName,
		SlotName:           replCfg.SlotName,
		AutoAcknowledge:    replCfg.AutoAcknowledge,
		QueueSize:          replCfg.QueueSize,
		FeedbackIntervalMs: replCfg.FeedbackIntervalMs,
		ApplicationName:    replCfg.ApplicationName,
		Indent:             replCfg.Indent,
		IncludeUs:          replCfg.IncludeUs,
		IncludeNs:          replCfg.IncludeNs,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader, err := stream.Open(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "opening replication stream")
	}
	defer reader.Stop(ctx)

	if !opts.AutoAcknowledge {
		go acknowledgeOnSignal(reader)
	}

	return printEnvelopes(ctx, reader, opts)
}

func acknowledgeOnSignal(reader *stream.Reader) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	for range sigCh {
		if lsn, err := reader.Acknowledge(); err != nil {
			log.WithError(err).Warn("acknowledge failed")
		} else {
			log.WithField("lsn", lsn).Info("acknowledged")
		}
	}
}

func printEnvelopes(ctx context.Context, reader *stream.Reader, opts stream.Options) error {
	marshalOpts := envelope.MarshalOptions{
		Indent:    opts.Indent,
		IncludeUs: opts.IncludeUs,
		IncludeNs: opts.IncludeNs,
	}
	for {
		select {
		case env, ok := <-reader.Events():
			if !ok {
				return reader.Err()
			}
			if env == nil {
				continue // keepalive tick
			}
			raw, err := envelope.Marshal(*env, marshalOpts)
			if err != nil {
				log.WithError(err).Warn("failed to marshal envelope")
				continue
			}
			fmt.Println(string(raw))
		case <-ctx.Done():
			return nil
		}
	}
}

func applyViperOverrides(v *viper.Viper, cfg *replication.Config) {
	if v.IsSet("host") {
		cfg.Host = v.GetString("host")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("database") {
		cfg.Database = v.GetString("database")
	}
	if v.IsSet("user") {
		cfg.User = v.GetString("user")
	}
	if v.IsSet("password") {
		cfg.Password = v.GetString("password")
	}
	if v.IsSet("publicationName") {
		cfg.PublicationName = v.GetString("publicationName")
	}
	if v.IsSet("slotName") {
		cfg.SlotName = v.GetString("slotName")
	}
	if v.IsSet("autoAcknowledge") {
		cfg.AutoAcknowledge = v.GetBool("autoAcknowledge")
	}
	if v.IsSet("queueSize") {
		cfg.QueueSize = v.GetInt("queueSize")
	}
	if v.IsSet("feedbackIntervalMs") {
		cfg.FeedbackIntervalMs = v.GetInt("feedbackIntervalMs")
	}
	if v.IsSet("applicationName") {
		cfg.ApplicationName = v.GetString("applicationName")
	}
	if v.IsSet("indent") {
		cfg.Indent = v.GetInt("indent")
	}
	if v.IsSet("includeMicros") {
		cfg.IncludeUs = v.GetBool("includeMicros")
	}
	if v.IsSet("includeNanos") {
		cfg.IncludeNs = v.GetBool("includeNanos")
	}
}
