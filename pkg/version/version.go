/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package version reports the build version of the binary.
package version

import (
	"runtime/debug"
	"sync"
)

const ModulePath = "github.com/couchbase/zkensemble"

// Version can be overridden at link time with
// -ldflags "-X github.com/couchbase/zkensemble/pkg/version.Version=v1.2.3".
var Version string

var (
	resolveOnce sync.Once
	resolved    string
)

// Get returns the link-time version if set, otherwise the module version
// recorded in the build info, otherwise "dev".
func Get() string {
	resolveOnce.Do(func() {
		resolved = resolve(Version)
	})
	return resolved
}

func resolve(override string) string {
	if override != "" {
		return override
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	if info.Main.Path == ModulePath && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	for _, dep := range info.Deps {
		if dep.Path == ModulePath && dep.Version != "" {
			return dep.Version
		}
	}

	return "dev"
}
