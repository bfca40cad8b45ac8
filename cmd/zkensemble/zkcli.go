/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package main

import (
	"fmt"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/quorum"
	"github.com/couchbase/zkensemble/common/zkconfig"
	"github.com/spf13/cobra"
)

var zkcliCmd = &cobra.Command{
	Use:   "zkcli",
	Short: "Print the zkCli command line that connects to the ensemble",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger := setupLogger()
		defer func() { _ = logger.Sync() }()

		config, err := readConfig(logger)
		if err != nil {
			return err
		}

		provider, closeProvider, err := newHostProvider(config, logger)
		if err != nil {
			return err
		}
		defer closeProvider()

		hosts, err := provider.Get(cmd.Context())
		if err != nil {
			return err
		}

		if config.selectQuorum {
			hosts, err = quorum.SelectQuorum(hosts)
			if err != nil {
				return err
			}
		}

		members, err := ensemble.BuildEnsemble(hosts, config.tuning())
		if err != nil {
			return err
		}

		line, err := zkconfig.ClientCommandLine(members)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
		return err
	},
}
