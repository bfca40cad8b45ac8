/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package hostsource provides the pool of candidate hosts an ensemble is
// built from.
package hostsource

import (
	"context"

	"github.com/couchbase/zkensemble/common/ensemble"
)

/*
Provider yields the full host pool.  Watch emits the current pool first and
then the full pool again every time it changes, so a consumer never has to
apply deltas.  The channel is closed once ctx is cancelled.
*/
type Provider interface {
	Get(ctx context.Context) ([]ensemble.Host, error)
	Watch(ctx context.Context) (<-chan []ensemble.Host, error)
}

// sendLatest replaces whatever is still queued in ch with hosts.  ch must
// have a buffer of one and only one goroutine may send on it.
func sendLatest(ch chan []ensemble.Host, hosts []ensemble.Host) {
	select {
	case ch <- hosts:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	ch <- hosts
}

func copyHosts(hosts []ensemble.Host) []ensemble.Host {
	if hosts == nil {
		return nil
	}
	out := make([]ensemble.Host, len(hosts))
	copy(out, hosts)
	return out
}
