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
	"strings"
	"unicode"

	"github.com/couchbase/zkensemble/utils/netutils"
	"github.com/pkg/errors"
)

// Host is a machine that can carry one ensemble member.
type Host struct {
	// Address is the fully-qualified address other members use to reach
	// this host.
	Address string `json:"address" yaml:"address" mapstructure:"address"`

	// Domain is the failure-domain label, usually the datacenter.
	Domain string `json:"domain" yaml:"domain" mapstructure:"domain"`

	// Name is a human readable name used for aliases and display.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Ports optionally maps endpoint names to the port published on this
	// host, for hosts sitting behind NAT or a port-mapping layer.
	Ports map[string]int `json:"ports,omitempty" yaml:"ports,omitempty" mapstructure:"ports"`
}

// DisplayName returns the name of the host, falling back to its address.
func (h Host) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Address
}

// Validate checks that the host is addressable from other hosts.
func (h Host) Validate() error {
	if netutils.IsInAddrAny(h.Address) {
		return errors.Wrapf(ErrInvalidHost, "host %q has no routable address", h.Name)
	}

	// both end up unquoted in the JVM flags
	if strings.ContainsFunc(h.Address, unicode.IsSpace) || strings.ContainsFunc(h.Name, unicode.IsSpace) {
		return errors.Wrapf(ErrInvalidHost, "host %q contains whitespace", h.DisplayName())
	}

	for name, port := range h.Ports {
		err := checkPortOverride(name, port)
		if err != nil {
			return errors.Wrapf(ErrInvalidHost, "host %q: %v", h.DisplayName(), err)
		}
	}

	return nil
}
