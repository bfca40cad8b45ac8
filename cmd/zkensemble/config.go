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
	"net"
	"strconv"
	"time"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/jmxtrans"
	"github.com/couchbase/zkensemble/generator"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type config struct {
	logLevelStr string

	hostsFile       string
	etcdEndpoints   []string
	etcdPrefix      string
	etcdDialTimeout time.Duration
	hosts           []ensemble.Host

	selectQuorum           bool
	memory                 int64
	tickTime               time.Duration
	initLimit              int
	syncLimit              int
	snapCount              int
	globalOutstandingLimit int
	maxClientCnxns         int
	purgeInterval          int
	dataDir                string
	externalPorts          map[string]int

	collectors     []jmxtrans.Collector
	monitoringRole string
	queryThreads   int

	output string
}

func readConfig(logger *zap.Logger) (*config, error) {
	config := &config{
		logLevelStr:            viper.GetString("log-level"),
		hostsFile:              viper.GetString("hosts-file"),
		etcdEndpoints:          viper.GetStringSlice("etcd-endpoints"),
		etcdPrefix:             viper.GetString("etcd-prefix"),
		etcdDialTimeout:        viper.GetDuration("etcd-dial-timeout"),
		selectQuorum:           viper.GetBool("select-quorum"),
		memory:                 viper.GetInt64("memory"),
		tickTime:               viper.GetDuration("tick-time"),
		initLimit:              viper.GetInt("init-limit"),
		syncLimit:              viper.GetInt("sync-limit"),
		snapCount:              viper.GetInt("snap-count"),
		globalOutstandingLimit: viper.GetInt("global-outstanding-limit"),
		maxClientCnxns:         viper.GetInt("max-client-cnxns"),
		purgeInterval:          viper.GetInt("purge-interval"),
		dataDir:                viper.GetString("data-dir"),
		monitoringRole:         viper.GetString("monitoring-role"),
		queryThreads:           viper.GetInt("query-threads"),
		output:                 viper.GetString("output"),
	}

	// structured keys only come from the config file
	err := viper.UnmarshalKey("hosts", &config.hosts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse hosts")
	}

	err = viper.UnmarshalKey("external-ports", &config.externalPorts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse external-ports")
	}

	err = viper.UnmarshalKey("collectors", &config.collectors)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse collectors")
	}

	for _, graphite := range viper.GetStringSlice("graphite") {
		collector, err := parseCollector(graphite)
		if err != nil {
			return nil, err
		}
		config.collectors = append(config.collectors, collector)
	}

	logger.Info("parsed ensemble configuration",
		zap.String("logLevelStr", config.logLevelStr),
		zap.String("hostsFile", config.hostsFile),
		zap.Strings("etcdEndpoints", config.etcdEndpoints),
		zap.String("etcdPrefix", config.etcdPrefix),
		zap.Duration("etcdDialTimeout", config.etcdDialTimeout),
		zap.Int("staticHosts", len(config.hosts)),
		zap.Bool("selectQuorum", config.selectQuorum),
		zap.Int64("memory", config.memory),
		zap.Duration("tickTime", config.tickTime),
		zap.Int("initLimit", config.initLimit),
		zap.Int("syncLimit", config.syncLimit),
		zap.Int("snapCount", config.snapCount),
		zap.Int("globalOutstandingLimit", config.globalOutstandingLimit),
		zap.Int("maxClientCnxns", config.maxClientCnxns),
		zap.Int("purgeInterval", config.purgeInterval),
		zap.String("dataDir", config.dataDir),
		zap.Any("externalPorts", config.externalPorts),
		zap.Any("collectors", config.collectors),
		zap.String("monitoringRole", config.monitoringRole),
		zap.Int("queryThreads", config.queryThreads),
		zap.String("output", config.output))

	return config, nil
}

func parseCollector(hostPort string) (jmxtrans.Collector, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return jmxtrans.Collector{}, errors.Wrapf(err, "invalid graphite collector %q", hostPort)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return jmxtrans.Collector{}, errors.Wrapf(err, "invalid graphite collector port %q", hostPort)
	}

	collector := jmxtrans.Collector{Host: host, Port: port}
	return collector, collector.Validate()
}

func (c *config) tuning() ensemble.Tuning {
	tuning := ensemble.Tuning{
		Memory:                 c.memory,
		TickTime:               c.tickTime,
		InitLimit:              c.initLimit,
		SyncLimit:              c.syncLimit,
		SnapCount:              c.snapCount,
		GlobalOutstandingLimit: c.globalOutstandingLimit,
		PurgeInterval:          c.purgeInterval,
		DataDir:                c.dataDir,
		ExternalPorts:          c.externalPorts,
	}

	if c.maxClientCnxns >= 0 {
		maxClientCnxns := c.maxClientCnxns
		tuning.MaxClientConnections = &maxClientCnxns
	}

	return tuning
}

func (c *config) newGenerator(logger *zap.Logger) (*generator.Generator, error) {
	return generator.NewGenerator(&generator.Config{
		Logger:     logger,
		Tuning:     c.tuning(),
		Collectors: c.collectors,
		Monitoring: jmxtrans.Options{
			Role:         c.monitoringRole,
			QueryThreads: c.queryThreads,
		},
		SelectQuorum: c.selectQuorum,
	})
}
