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
	"github.com/pkg/errors"
)

const memberName = "zookeeper"

// BuildEnsemble creates one member per host.  Member IDs are assigned from
// the position of the host in the list, starting at 1, so reordering the
// hosts changes the identity of every member after the first move.
func BuildEnsemble(hosts []Host, tuning Tuning) ([]*Member, error) {
	if len(hosts) == 0 {
		return nil, ErrEmptyEnsemble
	}

	err := tuning.Validate()
	if err != nil {
		return nil, err
	}

	members := make([]*Member, 0, len(hosts))
	for hostIdx, host := range hosts {
		err = host.Validate()
		if err != nil {
			return nil, errors.Wrapf(err, "host %d", hostIdx)
		}

		memberID := hostIdx + 1

		endpoints := make(map[string]Endpoint, len(EndpointNames))
		for _, name := range EndpointNames {
			internalPort := WellKnownPorts[name]
			externalPort := resolveExternalPort(name, internalPort, host, tuning)

			// remote management tooling hands out its own port to the
			// client, so the port must be the same on both sides.
			if name == EndpointManagement {
				internalPort = externalPort
			}

			endpoints[name] = Endpoint{
				Name:         name,
				InternalPort: internalPort,
				Host:         host.Address,
				Port:         externalPort,
				Owner:        memberID,
			}
		}

		members = append(members, &Member{
			ID:        memberID,
			Name:      memberName,
			Host:      host,
			Memory:    tuning.Memory,
			Endpoints: endpoints,
		})
	}

	return members, nil
}

func resolveExternalPort(name string, internalPort int, host Host, tuning Tuning) int {
	if port, ok := host.Ports[name]; ok {
		return port
	}
	if port, ok := tuning.ExternalPorts[name]; ok {
		return port
	}
	return internalPort
}
