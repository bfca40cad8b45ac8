/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package generator turns a host pool into the per-member configuration
// bundles of a ZooKeeper ensemble.
package generator

import (
	"context"
	"time"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/jmxtrans"
	"github.com/couchbase/zkensemble/common/quorum"
	"github.com/couchbase/zkensemble/common/topologycalc"
	"github.com/couchbase/zkensemble/common/zkconfig"
	"github.com/couchbase/zkensemble/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Logger *zap.Logger

	Tuning     ensemble.Tuning
	Collectors []jmxtrans.Collector
	Monitoring jmxtrans.Options

	// SelectQuorum reduces the host pool to one host per failure domain
	// before building the ensemble.
	SelectQuorum bool

	Metrics *metrics.GeneratorMetrics
}

type Generator struct {
	logger       *zap.Logger
	tuning       ensemble.Tuning
	collectors   []jmxtrans.Collector
	monitoring   jmxtrans.Options
	selectQuorum bool
	metrics      *metrics.GeneratorMetrics
}

// Result is a complete generation.  Bundles are ordered by member id.
type Result struct {
	Hosts       []ensemble.Host
	Members     []*ensemble.Member
	Topology    *topologycalc.Topology
	Bundles     []*Bundle
	Fingerprint string
}

func NewGenerator(config *Config) (*Generator, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := config.Metrics
	if m == nil {
		m = metrics.GetGeneratorMetrics()
	}

	for i, collector := range config.Collectors {
		if err := collector.Validate(); err != nil {
			return nil, errors.Wrapf(err, "collector %d", i)
		}
	}

	return &Generator{
		logger:       logger,
		tuning:       config.Tuning,
		collectors:   config.Collectors,
		monitoring:   config.Monitoring,
		selectQuorum: config.SelectQuorum,
		metrics:      m,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, hosts []ensemble.Host) (*Result, error) {
	startTime := time.Now()
	g.metrics.Generations.Add(ctx, 1)

	result, err := g.generate(ctx, hosts)
	g.metrics.GenerationDuration.Record(ctx, time.Since(startTime).Seconds())
	if err != nil {
		g.metrics.GenerationFailures.Add(ctx, 1)
		g.logger.Warn("ensemble generation failed",
			zap.Int("hosts", len(hosts)),
			zap.Error(err))
		return nil, err
	}

	g.metrics.EnsembleMembers.Record(ctx, int64(len(result.Members)))

	g.logger.Info("generated ensemble configuration",
		zap.Int("hosts", len(hosts)),
		zap.Int("members", len(result.Members)),
		zap.String("fingerprint", result.Fingerprint),
		zap.Duration("took", time.Since(startTime)))

	return result, nil
}

func (g *Generator) generate(ctx context.Context, hosts []ensemble.Host) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected := hosts
	if g.selectQuorum {
		var err error
		selected, err = quorum.SelectQuorum(hosts)
		if err != nil {
			return nil, err
		}

		g.logger.Debug("selected quorum hosts",
			zap.Int("candidates", len(hosts)),
			zap.Strings("domains", quorum.Domains(selected)))
	}

	members, err := ensemble.BuildEnsemble(selected, g.tuning)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build ensemble")
	}

	topology, err := topologycalc.ComputeTopology(members)
	if err != nil {
		return nil, errors.Wrap(err, "failed to link ensemble")
	}

	g.logger.Debug("computed topology",
		zap.Ints("memberIds", topology.MemberIDs()),
		zap.Uint64("topologyFingerprint", topology.Fingerprint()))

	log4j := zkconfig.Log4jProperties()

	bundles := make([]*Bundle, 0, len(members))
	for _, member := range members {
		bundle, err := g.renderBundle(member, topology, log4j)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to render member %d", member.ID)
		}
		bundles = append(bundles, bundle)
	}

	return &Result{
		Hosts:       selected,
		Members:     members,
		Topology:    topology,
		Bundles:     bundles,
		Fingerprint: fingerprintBundles(bundles),
	}, nil
}

func (g *Generator) renderBundle(
	member *ensemble.Member,
	topology *topologycalc.Topology,
	log4j []byte,
) (*Bundle, error) {
	nodeConfig, err := zkconfig.RenderNodeConfig(member, topology, g.tuning)
	if err != nil {
		return nil, err
	}

	zooCfg, err := nodeConfig.Config.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode zoo.cfg")
	}

	descriptor, err := jmxtrans.RenderMonitoring(member, g.collectors, g.monitoring)
	if err != nil {
		return nil, err
	}

	monitoring, err := descriptor.MarshalIndent()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode monitoring descriptor")
	}

	return &Bundle{
		MemberID: member.ID,
		HostName: member.Host.DisplayName(),
		Files: []File{
			{Path: ZooCfgPath, Data: zooCfg, Mode: 0o644},
			{Path: MyIDPath, Data: nodeConfig.MyID(), Mode: 0o644},
			{Path: EnvPath, Data: nodeConfig.Runtime.EnvFile(), Mode: 0o644},
			{Path: Log4jPath, Data: log4j, Mode: 0o644},
			{Path: MonitoringPath, Data: monitoring, Mode: 0o644},
		},
	}, nil
}
