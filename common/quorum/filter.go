/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package quorum picks the hosts that an ensemble is built from.
package quorum

import (
	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/utils/sliceutils"
	"golang.org/x/exp/slices"
)

// SelectQuorum returns at most one host per failure domain, keeping an odd
// number of hosts so that a majority always exists.
//
// Domains are visited in lexicographic order of their label.  Within a domain
// the host with the smallest address wins, with the name breaking ties, so
// the result does not depend on the order of the candidates.  When the number
// of domains is even, the representative of the last domain is dropped.
func SelectQuorum(hosts []ensemble.Host) ([]ensemble.Host, error) {
	domains := Domains(hosts)
	if len(domains) == 0 {
		return nil, ensemble.ErrInsufficientDomains
	}

	representatives := make(map[string]ensemble.Host, len(domains))
	for _, host := range hosts {
		current, ok := representatives[host.Domain]
		if !ok || hostLess(host, current) {
			representatives[host.Domain] = host
		}
	}

	selected := make([]ensemble.Host, 0, len(domains))
	for _, domain := range domains {
		selected = append(selected, representatives[domain])
	}

	if len(selected)%2 == 0 {
		selected = selected[:len(selected)-1]
	}

	return selected, nil
}

// Domains returns the distinct failure-domain labels of hosts in sorted
// order.
func Domains(hosts []ensemble.Host) []string {
	labels := make([]string, 0, len(hosts))
	for _, host := range hosts {
		labels = append(labels, host.Domain)
	}

	labels = sliceutils.RemoveDuplicates(labels)
	slices.Sort(labels)
	return labels
}

func hostLess(a, b ensemble.Host) bool {
	if a.Address != b.Address {
		return a.Address < b.Address
	}
	return a.Name < b.Name
}
