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
	"context"
	"fmt"
	"path/filepath"

	"github.com/couchbase/zkensemble/generator"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Generate the member bundles once and write them to the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger := setupLogger()
		defer func() { _ = logger.Sync() }()

		config, err := readConfig(logger)
		if err != nil {
			return err
		}

		result, err := generateOnce(cmd.Context(), config, logger)
		if err != nil {
			return err
		}

		err = generator.WriteBundles(afero.NewOsFs(), config.output, result)
		if err != nil {
			logger.Error("failed to write bundles", zap.Error(err))
			return err
		}

		out := cmd.OutOrStdout()
		for _, bundle := range result.Bundles {
			_, _ = fmt.Fprintln(out, filepath.Join(config.output, bundle.Dir()))
		}

		return nil
	},
}

func generateOnce(ctx context.Context, config *config, logger *zap.Logger) (*generator.Result, error) {
	provider, closeProvider, err := newHostProvider(config, logger)
	if err != nil {
		return nil, err
	}
	defer closeProvider()

	hosts, err := provider.Get(ctx)
	if err != nil {
		return nil, err
	}

	g, err := config.newGenerator(logger.Named("generator"))
	if err != nil {
		return nil, err
	}

	return g.Generate(ctx, hosts)
}
