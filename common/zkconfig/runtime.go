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
	"fmt"
	"strconv"
	"strings"

	"github.com/couchbase/zkensemble/common/ensemble"
	"golang.org/x/exp/slices"
)

// RuntimeOptions are the JVM flags a member is launched with.
type RuntimeOptions struct {
	Flags []string
}

// EnvFile renders the flags as a sourceable shell file.
func (r *RuntimeOptions) EnvFile() []byte {
	return []byte(fmt.Sprintf("export JVMFLAGS=\"%s\"\n", strings.Join(r.Flags, " ")))
}

func renderRuntimeOptions(member *ensemble.Member) *RuntimeOptions {
	mgmtPort := strconv.Itoa(member.Endpoints[ensemble.EndpointManagement].InternalPort)

	properties := map[string]string{
		"com.sun.management.jmxremote.authenticate": "false",
		"com.sun.management.jmxremote.ssl":          "false",
		"com.sun.management.jmxremote.local.only":   "false",
		"com.sun.management.jmxremote.port":         mgmtPort,
		"com.sun.management.jmxremote.rmi.port":     mgmtPort,
		"java.rmi.server.hostname":                  member.Host.Address,
		"visualvm.display.name":                     member.FullName(),
	}

	flags := []string{
		"-server",
		"-showversion",
		"-Xmx" + strconv.FormatInt(member.HeapSize(), 10),
	}
	for key, value := range properties {
		flags = append(flags, "-D"+key+"="+value)
	}

	// map iteration is random, the sort is what makes this reproducible
	slices.Sort(flags)

	return &RuntimeOptions{
		Flags: flags,
	}
}
