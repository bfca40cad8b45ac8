/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package zkconfig

import (
	"strings"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/kballard/go-shellquote"
)

const ClientBinary = "/opt/zookeeper/bin/zkCli.sh"

// ConnectString lists the client endpoints of every member, in member order.
func ConnectString(members []*ensemble.Member) (string, error) {
	if len(members) == 0 {
		return "", ensemble.ErrEmptyEnsemble
	}

	hostPorts := make([]string, 0, len(members))
	for _, member := range members {
		hostPorts = append(hostPorts, member.Endpoints[ensemble.EndpointClient].HostPort())
	}
	return strings.Join(hostPorts, ","), nil
}

// ClientCommand returns the argv of a zkCli session against the ensemble.
func ClientCommand(members []*ensemble.Member) ([]string, error) {
	connStr, err := ConnectString(members)
	if err != nil {
		return nil, err
	}

	return []string{ClientBinary, "-server", connStr}, nil
}

// ClientCommandLine is ClientCommand quoted for a shell.
func ClientCommandLine(members []*ensemble.Member) (string, error) {
	argv, err := ClientCommand(members)
	if err != nil {
		return "", err
	}
	return shellquote.Join(argv...), nil
}
