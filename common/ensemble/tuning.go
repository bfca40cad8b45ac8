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
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultMemory                 = 1024 * 1024 * 1024
	DefaultTickTime               = 2000 * time.Millisecond
	DefaultInitLimit              = 100
	DefaultSyncLimit              = 50
	DefaultSnapCount              = 10000
	DefaultGlobalOutstandingLimit = 1000
	DefaultPurgeInterval          = 1
	DefaultDataDir                = "/var/lib/zookeeper"
)

// Tuning carries the knobs that are shared by every member of an ensemble.
type Tuning struct {
	// Memory is the memory budget of a member in bytes.
	Memory int64

	TickTime time.Duration

	// InitLimit and SyncLimit are expressed in ticks.
	InitLimit int
	SyncLimit int

	SnapCount              int
	GlobalOutstandingLimit int

	// MaxClientConnections is left out of the rendered configuration when
	// nil.
	MaxClientConnections *int

	// PurgeInterval is the auto-purge interval in hours.
	PurgeInterval int

	DataDir string

	// ExternalPorts overrides the published port of an endpoint for every
	// member.  Per-host port maps take precedence over these.
	ExternalPorts map[string]int
}

// DefaultTuning returns the tuning used when nothing is configured.
func DefaultTuning() Tuning {
	return Tuning{
		Memory:                 DefaultMemory,
		TickTime:               DefaultTickTime,
		InitLimit:              DefaultInitLimit,
		SyncLimit:              DefaultSyncLimit,
		SnapCount:              DefaultSnapCount,
		GlobalOutstandingLimit: DefaultGlobalOutstandingLimit,
		PurgeInterval:          DefaultPurgeInterval,
		DataDir:                DefaultDataDir,
	}
}

// Validate checks the port overrides.  Everything else is rendered as given.
func (t Tuning) Validate() error {
	for name, port := range t.ExternalPorts {
		err := checkPortOverride(name, port)
		if err != nil {
			return errors.Wrapf(ErrInvalidTuning, "external ports: %v", err)
		}
	}
	return nil
}

func checkPortOverride(name string, port int) error {
	if _, ok := WellKnownPorts[name]; !ok {
		return errors.Errorf("unknown endpoint %q", name)
	}
	if port <= 0 || port > 65535 {
		return errors.Errorf("invalid port %d for %s", port, name)
	}
	return nil
}
