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
	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	registerAddress string
	registerDomain  string
	registerName    string
	registerPorts   map[string]int
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Publish a candidate host to etcd",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger := setupLogger()
		defer func() { _ = logger.Sync() }()

		config, err := readConfig(logger)
		if err != nil {
			return err
		}

		provider, closeProvider, err := newEtcdProvider(config, logger)
		if err != nil {
			return err
		}
		defer closeProvider()

		host := ensemble.Host{
			Address: registerAddress,
			Domain:  registerDomain,
			Name:    registerName,
			Ports:   registerPorts,
		}

		err = provider.Register(cmd.Context(), host)
		if err != nil {
			return err
		}

		logger.Info("registered host",
			zap.String("address", host.Address),
			zap.String("domain", host.Domain))
		return nil
	},
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister <address>",
	Short: "Remove a candidate host from etcd",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger := setupLogger()
		defer func() { _ = logger.Sync() }()

		config, err := readConfig(logger)
		if err != nil {
			return err
		}

		provider, closeProvider, err := newEtcdProvider(config, logger)
		if err != nil {
			return err
		}
		defer closeProvider()

		err = provider.Deregister(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		logger.Info("deregistered host", zap.String("address", args[0]))
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerAddress, "address", "", "address other members reach the host on")
	registerCmd.Flags().StringVar(&registerDomain, "domain", "", "failure domain of the host")
	registerCmd.Flags().StringVar(&registerName, "name", "", "display name of the host")
	registerCmd.Flags().StringToIntVar(&registerPorts, "port", nil, "published port per endpoint, e.g. client=12181")
	_ = registerCmd.MarkFlagRequired("address")
	_ = registerCmd.MarkFlagRequired("domain")
}
