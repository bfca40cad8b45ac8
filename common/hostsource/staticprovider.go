/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package hostsource

import (
	"context"

	"github.com/couchbase/zkensemble/common/ensemble"
)

type StaticProviderOptions struct {
	Hosts []ensemble.Host
}

// StaticProvider serves a fixed host pool.
type StaticProvider struct {
	hosts []ensemble.Host
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(opts StaticProviderOptions) (*StaticProvider, error) {
	return &StaticProvider{
		hosts: copyHosts(opts.Hosts),
	}, nil
}

func (p *StaticProvider) Get(ctx context.Context) ([]ensemble.Host, error) {
	return copyHosts(p.hosts), nil
}

func (p *StaticProvider) Watch(ctx context.Context) (<-chan []ensemble.Host, error) {
	outputCh := make(chan []ensemble.Host, 1)
	outputCh <- copyHosts(p.hosts)

	go func() {
		<-ctx.Done()
		close(outputCh)
	}()

	return outputCh, nil
}
