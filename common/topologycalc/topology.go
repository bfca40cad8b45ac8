/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package topologycalc

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/utils/netutils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ServerAddress is how one member reaches the quorum ports of another.
type ServerAddress struct {
	Host         string
	PeerPort     int
	ElectionPort int
}

// String renders the address in the host:peer:election form used by
// server.N entries.
func (a ServerAddress) String() string {
	return netutils.JoinHostPort(a.Host, a.PeerPort) + ":" + strconv.Itoa(a.ElectionPort)
}

// Entry is a single resolved server address within a member's view.
type Entry struct {
	MemberID int
	Address  ServerAddress
}

// Topology holds every member's view of every member, itself included.
type Topology struct {
	memberIDs []int
	views     map[int][]Entry
}

// MemberIDs returns the ids of all members in ascending order.
func (t *Topology) MemberIDs() []int {
	return slices.Clone(t.memberIDs)
}

// Len returns the number of members.
func (t *Topology) Len() int {
	return len(t.memberIDs)
}

// View returns the addresses member self has to be configured with, one per
// member and ordered by member id.
func (t *Topology) View(self int) ([]Entry, error) {
	view, ok := t.views[self]
	if !ok {
		return nil, errors.Wrapf(ensemble.ErrInconsistentLink, "member %d is not part of the topology", self)
	}

	return slices.Clone(view), nil
}

// Resolve returns the address of other as seen by self.
func (t *Topology) Resolve(self, other int) (ServerAddress, bool) {
	view, ok := t.views[self]
	if !ok {
		return ServerAddress{}, false
	}

	idx, found := slices.BinarySearchFunc(view, other, func(e Entry, id int) int {
		return e.MemberID - id
	})
	if !found {
		return ServerAddress{}, false
	}

	return view[idx].Address, true
}

// Fingerprint hashes the full address matrix.  Two topologies with the same
// fingerprint render the same server entries for every member.
func (t *Topology) Fingerprint() uint64 {
	digest := xxhash.New()
	for _, self := range t.memberIDs {
		for _, entry := range t.views[self] {
			_, _ = digest.WriteString(strconv.Itoa(self))
			_, _ = digest.WriteString(">")
			_, _ = digest.WriteString(strconv.Itoa(entry.MemberID))
			_, _ = digest.WriteString("=")
			_, _ = digest.WriteString(entry.Address.String())
			_, _ = digest.WriteString("\n")
		}
	}
	return digest.Sum64()
}
