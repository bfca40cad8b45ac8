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
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const DefaultEtcdKeyPrefix = "/zkensemble/hosts"

type jsonEtcdHost struct {
	Address string         `json:"address"`
	Domain  string         `json:"domain"`
	Name    string         `json:"name,omitempty"`
	Ports   map[string]int `json:"ports,omitempty"`
}

func encodeEtcdHost(host ensemble.Host) ([]byte, error) {
	return json.Marshal(jsonEtcdHost{
		Address: host.Address,
		Domain:  host.Domain,
		Name:    host.Name,
		Ports:   host.Ports,
	})
}

func decodeEtcdHost(data []byte) (ensemble.Host, error) {
	var record jsonEtcdHost
	err := json.Unmarshal(data, &record)
	if err != nil {
		return ensemble.Host{}, err
	}

	return ensemble.Host{
		Address: record.Address,
		Domain:  record.Domain,
		Name:    record.Name,
		Ports:   record.Ports,
	}, nil
}

type EtcdProviderOptions struct {
	EtcdClient *clientv3.Client
	KeyPrefix  string
	Logger     *zap.Logger

	// MaxRetryTime bounds how long Get keeps retrying a failing etcd read.
	MaxRetryTime time.Duration
}

// EtcdProvider reads one JSON host record per key below a prefix.  Hosts are
// returned ordered by key.
type EtcdProvider struct {
	etcdClient   *clientv3.Client
	keyPrefix    string
	logger       *zap.Logger
	maxRetryTime time.Duration
}

var _ Provider = (*EtcdProvider)(nil)

func NewEtcdProvider(opts EtcdProviderOptions) (*EtcdProvider, error) {
	if opts.EtcdClient == nil {
		return nil, errors.New("etcd client must be specified")
	}

	keyPrefix := strings.TrimSuffix(opts.KeyPrefix, "/")
	if keyPrefix == "" {
		keyPrefix = DefaultEtcdKeyPrefix
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxRetryTime := opts.MaxRetryTime
	if maxRetryTime <= 0 {
		maxRetryTime = 30 * time.Second
	}

	return &EtcdProvider{
		etcdClient:   opts.EtcdClient,
		keyPrefix:    keyPrefix,
		logger:       logger,
		maxRetryTime: maxRetryTime,
	}, nil
}

func (p *EtcdProvider) hostKey(address string) string {
	return p.keyPrefix + "/" + address
}

// Register stores host under its address, replacing any previous record.
func (p *EtcdProvider) Register(ctx context.Context, host ensemble.Host) error {
	err := host.Validate()
	if err != nil {
		return err
	}

	data, err := encodeEtcdHost(host)
	if err != nil {
		return errors.Wrap(err, "failed to encode host record")
	}

	_, err = p.etcdClient.Put(ctx, p.hostKey(host.Address), string(data))
	if err != nil {
		return errors.Wrap(err, "failed to store host record")
	}

	return nil
}

// Deregister removes the record for address.
func (p *EtcdProvider) Deregister(ctx context.Context, address string) error {
	_, err := p.etcdClient.Delete(ctx, p.hostKey(address))
	if err != nil {
		return errors.Wrap(err, "failed to remove host record")
	}

	return nil
}

func (p *EtcdProvider) fetch(ctx context.Context) ([]ensemble.Host, int64, error) {
	var hosts []ensemble.Host
	var revision int64

	b := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(p.maxRetryTime)), ctx)

	err := backoff.Retry(func() error {
		resp, err := p.etcdClient.Get(ctx, p.keyPrefix+"/",
			clientv3.WithPrefix(),
			clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
		if err != nil {
			p.logger.Debug("etcd host fetch failed, retrying", zap.Error(err))
			return err
		}

		parsed := make([]ensemble.Host, 0, len(resp.Kvs))
		for _, kv := range resp.Kvs {
			host, err := decodeEtcdHost(kv.Value)
			if err != nil {
				return backoff.Permanent(
					errors.Wrapf(err, "failed to decode host record %s", kv.Key))
			}
			parsed = append(parsed, host)
		}

		hosts = parsed
		revision = resp.Header.Revision
		return nil
	}, b)
	if err != nil {
		return nil, 0, err
	}

	return hosts, revision, nil
}

func (p *EtcdProvider) Get(ctx context.Context) ([]ensemble.Host, error) {
	hosts, _, err := p.fetch(ctx)
	return hosts, err
}

func (p *EtcdProvider) Watch(ctx context.Context) (<-chan []ensemble.Host, error) {
	// the first fetch is done synchronously so errors reach the caller
	hosts, revision, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	outputCh := make(chan []ensemble.Host, 1)
	outputCh <- hosts

	go func() {
		defer close(outputCh)

		for ctx.Err() == nil {
			watchCtx, watchCancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
			watchCh := p.etcdClient.Watch(watchCtx, p.keyPrefix+"/",
				clientv3.WithPrefix(),
				clientv3.WithRev(revision+1))

			for resp := range watchCh {
				if err := resp.Err(); err != nil {
					p.logger.Warn("etcd host watch failed", zap.Error(err))
					break
				}
				if len(resp.Events) == 0 {
					continue
				}

				newHosts, newRevision, err := p.fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						watchCancel()
						return
					}
					// keep the previous pool, the next change triggers another fetch
					p.logger.Warn("failed to refresh hosts from etcd", zap.Error(err))
					revision = resp.Header.Revision
					continue
				}

				revision = newRevision
				sendLatest(outputCh, newHosts)
			}
			watchCancel()

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}

			// the watched revision may have been compacted away, so resync
			// from a fresh read before watching again
			newHosts, newRevision, err := p.fetch(ctx)
			if err != nil {
				p.logger.Warn("failed to resync hosts from etcd", zap.Error(err))
				continue
			}
			revision = newRevision
			sendLatest(outputCh, newHosts)
		}
	}()

	return outputCh, nil
}
