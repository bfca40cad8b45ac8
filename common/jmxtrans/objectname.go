/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package jmxtrans

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	objectDomain = "org.apache.ZooKeeperService"

	replicatedServerPrefix = "ReplicatedServer_id"
	replicaPrefix          = "replica."
	dataTreeBean           = "InMemoryDataTree"
)

// ObjectName builds the JMX object name of a replicated server bean.  The
// member id appears twice and both come from the single id argument.
func ObjectName(memberID int, role string, extra ...string) string {
	id := strconv.Itoa(memberID)

	var sb strings.Builder
	sb.WriteString(objectDomain)
	sb.WriteString(":name0=")
	sb.WriteString(replicatedServerPrefix)
	sb.WriteString(id)
	sb.WriteString(",name1=")
	sb.WriteString(replicaPrefix)
	sb.WriteString(id)
	sb.WriteString(",name2=")
	sb.WriteString(role)
	for extraIdx, name := range extra {
		sb.WriteString(",name")
		sb.WriteString(strconv.Itoa(3 + extraIdx))
		sb.WriteString("=")
		sb.WriteString(name)
	}
	return sb.String()
}

// MemberIDFromObjectName extracts the member id from an object name built by
// ObjectName, failing if the two embedded ids disagree.
func MemberIDFromObjectName(name string) (int, error) {
	domain, props, ok := strings.Cut(name, ":")
	if !ok || domain != objectDomain {
		return 0, errors.Errorf("%q is not a replicated server object name", name)
	}

	var serverID, replicaID string
	for _, prop := range strings.Split(props, ",") {
		key, value, _ := strings.Cut(prop, "=")
		switch key {
		case "name0":
			serverID = strings.TrimPrefix(value, replicatedServerPrefix)
		case "name1":
			replicaID = strings.TrimPrefix(value, replicaPrefix)
		}
	}

	if serverID == "" || replicaID == "" {
		return 0, errors.Errorf("%q is missing the server or replica name", name)
	}
	if serverID != replicaID {
		return 0, errors.Errorf("%q names server %s but replica %s", name, serverID, replicaID)
	}

	memberID, err := strconv.Atoi(serverID)
	if err != nil {
		return 0, errors.Wrapf(err, "%q has a non-numeric member id", name)
	}
	return memberID, nil
}
