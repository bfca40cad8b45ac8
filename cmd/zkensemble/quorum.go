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
	"io"
	"sort"
	"strconv"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/quorum"
	"github.com/fvbommel/sortorder"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var quorumCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Show which candidate hosts are selected for the quorum",
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

		selected, err := quorum.SelectQuorum(hosts)
		if err != nil {
			return err
		}

		renderQuorumTable(cmd.OutOrStdout(), hosts, selected)
		return nil
	},
}

// quorumRows lists every candidate grouped by domain, with the member id the
// host would receive when it is part of the selection.
func quorumRows(candidates []ensemble.Host, selected []ensemble.Host) [][]string {
	memberIDs := make(map[string]int, len(selected))
	for idx, host := range selected {
		memberIDs[host.Domain+"\x00"+host.Address+"\x00"+host.Name] = idx + 1
	}

	sorted := make([]ensemble.Host, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Domain != sorted[j].Domain {
			return sortorder.NaturalLess(sorted[i].Domain, sorted[j].Domain)
		}
		return sortorder.NaturalLess(sorted[i].DisplayName(), sorted[j].DisplayName())
	})

	rows := make([][]string, 0, len(sorted))
	for _, host := range sorted {
		memberID := ""
		if id, ok := memberIDs[host.Domain+"\x00"+host.Address+"\x00"+host.Name]; ok {
			memberID = strconv.Itoa(id)
		}

		rows = append(rows, []string{
			host.Domain,
			host.DisplayName(),
			host.Address,
			memberID,
		})
	}

	return rows
}

func renderQuorumTable(w io.Writer, candidates []ensemble.Host, selected []ensemble.Host) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"DOMAIN", "HOST", "ADDRESS", "MEMBER ID"})
	table.AppendBulk(quorumRows(candidates, selected))
	table.Render()
}
