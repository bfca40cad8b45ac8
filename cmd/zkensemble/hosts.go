/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package main

import (
	"github.com/couchbase/zkensemble/common/hostsource"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

func newEtcdClient(config *config, logger *zap.Logger) (*clientv3.Client, error) {
	if len(config.etcdEndpoints) == 0 {
		return nil, errors.New("no etcd endpoints configured")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.etcdEndpoints,
		DialTimeout: config.etcdDialTimeout,
		Logger:      logger.Named("etcd-client"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to etcd")
	}

	return client, nil
}

func newEtcdProvider(config *config, logger *zap.Logger) (*hostsource.EtcdProvider, func(), error) {
	client, err := newEtcdClient(config, logger)
	if err != nil {
		return nil, nil, err
	}

	provider, err := hostsource.NewEtcdProvider(hostsource.EtcdProviderOptions{
		EtcdClient: client,
		KeyPrefix:  config.etcdPrefix,
		Logger:     logger.Named("etcd-hosts"),
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return provider, func() { _ = client.Close() }, nil
}

// newHostProvider picks the host source: etcd when endpoints are configured,
// then the hosts file, then the hosts listed in the config file.
func newHostProvider(config *config, logger *zap.Logger) (hostsource.Provider, func(), error) {
	if len(config.etcdEndpoints) > 0 {
		logger.Info("reading hosts from etcd",
			zap.Strings("endpoints", config.etcdEndpoints),
			zap.String("prefix", config.etcdPrefix))

		provider, closeProvider, err := newEtcdProvider(config, logger)
		if err != nil {
			return nil, nil, err
		}

		return provider, closeProvider, nil
	}

	if config.hostsFile != "" {
		logger.Info("reading hosts from file", zap.String("path", config.hostsFile))

		provider, err := hostsource.NewFileProvider(hostsource.FileProviderOptions{
			Path:   config.hostsFile,
			Logger: logger.Named("file-hosts"),
		})
		if err != nil {
			return nil, nil, err
		}

		return provider, func() { _ = provider.Close() }, nil
	}

	if len(config.hosts) > 0 {
		logger.Info("using hosts from configuration", zap.Int("hosts", len(config.hosts)))

		provider, err := hostsource.NewStaticProvider(hostsource.StaticProviderOptions{
			Hosts: config.hosts,
		})
		if err != nil {
			return nil, nil, err
		}

		return provider, func() {}, nil
	}

	return nil, nil, errors.New("no host source configured, specify hosts, hosts-file or etcd-endpoints")
}
