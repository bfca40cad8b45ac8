/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package zkconfig renders the files a single ensemble member is started
// with: zoo.cfg, myid, env.sh and log4j.properties.
package zkconfig

import (
	"strconv"
	"time"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/topologycalc"
	"github.com/couchbase/zkensemble/utils/netutils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// NodeConfig is everything rendered for one member.
type NodeConfig struct {
	MemberID int
	Config   *Document
	Runtime  *RuntimeOptions
}

// MyID renders the member identity file.
func (c *NodeConfig) MyID() []byte {
	return []byte(strconv.Itoa(c.MemberID))
}

// RenderNodeConfig renders the configuration of member against the given
// topology.  Nothing is returned unless the whole configuration could be
// rendered.
func RenderNodeConfig(
	member *ensemble.Member,
	topology *topologycalc.Topology,
	tuning ensemble.Tuning,
) (*NodeConfig, error) {
	view, err := topology.View(member.ID)
	if err != nil {
		return nil, err
	}

	err = checkSelfEntry(member, view)
	if err != nil {
		return nil, err
	}

	client, ok := member.Endpoint(ensemble.EndpointClient)
	if !ok {
		return nil, errors.Errorf("member %d has no client endpoint", member.ID)
	}

	settings := map[string]string{
		"tickTime":                strconv.FormatInt(int64(tuning.TickTime/time.Millisecond), 10),
		"initLimit":               strconv.Itoa(tuning.InitLimit),
		"syncLimit":               strconv.Itoa(tuning.SyncLimit),
		"dataDir":                 tuning.DataDir,
		"clientPort":              strconv.Itoa(client.InternalPort),
		"autopurge.purgeInterval": strconv.Itoa(tuning.PurgeInterval),
		"snapCount":               strconv.Itoa(tuning.SnapCount),
		"globalOutstandingLimit":  strconv.Itoa(tuning.GlobalOutstandingLimit),
	}
	if tuning.MaxClientConnections != nil {
		settings["maxClientCnxns"] = strconv.Itoa(*tuning.MaxClientConnections)
	}

	doc := newDocument()

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		doc.set(key, settings[key])
	}

	// the view is already ordered by member id
	for _, entry := range view {
		doc.set("server."+strconv.Itoa(entry.MemberID), entry.Address.String())
	}

	err = doc.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "member %d", member.ID)
	}

	return &NodeConfig{
		MemberID: member.ID,
		Config:   doc,
		Runtime:  renderRuntimeOptions(member),
	}, nil
}

// checkSelfEntry makes sure the topology was computed from this member and
// not from a member that merely shares its id.
func checkSelfEntry(member *ensemble.Member, view []topologycalc.Entry) error {
	peer := member.Endpoints[ensemble.EndpointPeer]
	election := member.Endpoints[ensemble.EndpointElection]

	for _, entry := range view {
		if entry.MemberID != member.ID {
			continue
		}

		if entry.Address.Host != netutils.WildcardAddress ||
			entry.Address.PeerPort != peer.InternalPort ||
			entry.Address.ElectionPort != election.InternalPort {
			return errors.Wrapf(ensemble.ErrInconsistentLink,
				"topology entry %s does not belong to member %d", entry.Address, member.ID)
		}
		return nil
	}

	return errors.Wrapf(ensemble.ErrInconsistentLink, "member %d is missing from its own view", member.ID)
}
