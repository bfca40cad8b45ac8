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
	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/utils/netutils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type quorumLink struct {
	peer     ensemble.Endpoint
	election ensemble.Endpoint
}

// ComputeTopology derives the address matrix of an ensemble.  Every member
// sees its peers through their external addresses, and itself through the
// wildcard address on its internal ports.
func ComputeTopology(members []*ensemble.Member) (*Topology, error) {
	if len(members) == 0 {
		return nil, ensemble.ErrEmptyEnsemble
	}

	links := make(map[int]quorumLink, len(members))
	memberIDs := make([]int, 0, len(members))
	for memberIdx, member := range members {
		if member == nil {
			return nil, errors.Wrapf(ensemble.ErrInconsistentLink, "member %d is missing", memberIdx)
		}
		if member.ID <= 0 {
			return nil, errors.Wrapf(ensemble.ErrInconsistentLink, "member %s has invalid id %d", member.FullName(), member.ID)
		}
		if _, ok := links[member.ID]; ok {
			return nil, errors.Wrapf(ensemble.ErrInconsistentLink, "duplicate member id %d", member.ID)
		}

		link, err := linkMember(member)
		if err != nil {
			return nil, err
		}

		links[member.ID] = link
		memberIDs = append(memberIDs, member.ID)
	}

	slices.Sort(memberIDs)

	views := make(map[int][]Entry, len(memberIDs))
	for _, self := range memberIDs {
		view := make([]Entry, 0, len(memberIDs))
		for _, other := range memberIDs {
			link := links[other]

			var addr ServerAddress
			if other == self {
				// binding the external address of ourselves fails on some
				// setups (ZOOKEEPER-1711), so the self entry listens on all
				// interfaces using the container side ports.
				addr = ServerAddress{
					Host:         netutils.WildcardAddress,
					PeerPort:     link.peer.InternalPort,
					ElectionPort: link.election.InternalPort,
				}
			} else {
				addr = ServerAddress{
					Host:         link.peer.Host,
					PeerPort:     link.peer.Port,
					ElectionPort: link.election.Port,
				}
			}

			view = append(view, Entry{
				MemberID: other,
				Address:  addr,
			})
		}
		views[self] = view
	}

	return &Topology{
		memberIDs: memberIDs,
		views:     views,
	}, nil
}

func linkMember(member *ensemble.Member) (quorumLink, error) {
	peer, ok := member.Endpoint(ensemble.EndpointPeer)
	if !ok {
		return quorumLink{}, errors.Wrapf(ensemble.ErrInconsistentLink, "member %d has no peer endpoint", member.ID)
	}

	election, ok := member.Endpoint(ensemble.EndpointElection)
	if !ok {
		return quorumLink{}, errors.Wrapf(ensemble.ErrInconsistentLink, "member %d has no election endpoint", member.ID)
	}

	if peer.Owner != election.Owner || peer.Owner != member.ID {
		return quorumLink{}, errors.Wrapf(ensemble.ErrInconsistentLink,
			"member %d links peer endpoint of member %d with election endpoint of member %d",
			member.ID, peer.Owner, election.Owner)
	}

	if peer.Host != election.Host {
		return quorumLink{}, errors.Wrapf(ensemble.ErrInconsistentLink,
			"member %d has peer endpoint on %s but election endpoint on %s",
			member.ID, peer.Host, election.Host)
	}

	return quorumLink{
		peer:     peer,
		election: election,
	}, nil
}
