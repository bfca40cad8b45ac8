/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package ensemble

import (
	"fmt"

	"github.com/couchbase/zkensemble/utils/netutils"
)

const (
	EndpointClient     = "client"
	EndpointPeer       = "peer"
	EndpointElection   = "election"
	EndpointManagement = "management"
)

// WellKnownPorts are the internal container ports of every member.
var WellKnownPorts = map[string]int{
	EndpointClient:     2181,
	EndpointPeer:       2888,
	EndpointElection:   3888,
	EndpointManagement: 4888,
}

// EndpointNames lists the endpoints of a member in a stable order.
var EndpointNames = []string{
	EndpointClient,
	EndpointPeer,
	EndpointElection,
	EndpointManagement,
}

// Endpoint is one named network endpoint of a member.  InternalPort is what
// the process binds inside its container, Host and Port are what the rest
// of the world dials.
type Endpoint struct {
	Name         string
	InternalPort int
	Host         string
	Port         int

	// Owner is the ID of the member this endpoint belongs to.
	Owner int
}

// HostPort returns the externally reachable host:port of the endpoint.
func (e Endpoint) HostPort() string {
	return netutils.JoinHostPort(e.Host, e.Port)
}

// Member is a single node of the ensemble.
type Member struct {
	ID     int
	Name   string
	Host   Host
	Memory int64

	Endpoints map[string]Endpoint
}

// FullName identifies the member across hosts.
func (m *Member) FullName() string {
	return fmt.Sprintf("%s/%s", m.Host.DisplayName(), m.Name)
}

// HeapSize is the JVM heap handed to the member, three quarters of its
// memory budget.
func (m *Member) HeapSize() int64 {
	return m.Memory * 3 / 4
}

// Endpoint returns the named endpoint of the member.
func (m *Member) Endpoint(name string) (Endpoint, bool) {
	ep, ok := m.Endpoints[name]
	return ep, ok
}
