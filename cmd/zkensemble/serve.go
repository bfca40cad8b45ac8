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
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/generator"
	"github.com/couchbase/zkensemble/pkg/metrics"
	"github.com/couchbase/zkensemble/pkg/version"
	"github.com/couchbase/zkensemble/pkg/webapi"
	"github.com/couchbase/zkensemble/utils/latestonlychannel"
	"github.com/couchbase/zkensemble/utils/netutils"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

var (
	watchCfgFile bool
	bindAddress  string
	webPort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Regenerate the member bundles whenever the host pool changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&watchCfgFile, "watch-config", false, "indicates whether to watch the config file for changes")
	serveCmd.Flags().StringVar(&bindAddress, "bind-address", "0.0.0.0", "the local address the web api binds to")
	serveCmd.Flags().IntVar(&webPort, "web-port", 9091, "the web metrics/health port")
}

// server owns the serve loop state.  The generator is swapped on config
// reloads, hosts are kept so a reload can regenerate without waiting for the
// host source.
type server struct {
	logger   *zap.Logger
	logLevel zap.AtomicLevel
	web      *webapi.WebServer
	fs       afero.Fs
	metrics  *metrics.GeneratorMetrics

	lock            sync.Mutex
	config          *config
	generator       *generator.Generator
	lastFingerprint string
}

func runServe(parentCtx context.Context) error {
	logLevel, logger := setupLogger()
	defer func() { _ = logger.Sync() }()

	logger.Info("starting zkensemble", zap.String("version", version.Get()))

	logger.Info("parsed launch configuration",
		zap.String("config", cfgFile),
		zap.Bool("watch-config", watchCfgFile))

	config, err := readConfig(logger)
	if err != nil {
		logger.Error("failed to read configuration", zap.Error(err))
		return err
	}

	meterProvider, err := initTelemetry(parentCtx, logger)
	if err != nil {
		logger.Error("failed to initialize opentelemetry metrics", zap.Error(err))
		return err
	}
	otel.SetMeterProvider(meterProvider)

	g, err := config.newGenerator(logger.Named("generator"))
	if err != nil {
		logger.Error("failed to initialize the generator", zap.Error(err))
		return err
	}

	web := webapi.NewWebServer(webapi.WebServerOptions{
		Logger:        logger.Named("webapi"),
		LogLevel:      &logLevel,
		ListenAddress: netutils.JoinHostPort(bindAddress, webPort),
	})
	web.Start()

	s := &server{
		logger:    logger,
		logLevel:  logLevel,
		web:       web,
		fs:        afero.NewOsFs(),
		metrics:   metrics.GetGeneratorMetrics(),
		config:    config,
		generator: g,
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	provider, closeProvider, err := newHostProvider(config, logger)
	if err != nil {
		logger.Error("failed to initialize the host source", zap.Error(err))
		return err
	}
	defer closeProvider()

	hostsCh, err := provider.Watch(ctx)
	if err != nil {
		logger.Error("failed to watch the host source", zap.Error(err))
		return err
	}

	reloadCh := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reloadCh <- struct{}{}:
		default:
		}
	}

	if watchCfgFile && cfgFile != "" {
		viper.OnConfigChange(func(in fsnotify.Event) {
			logger.Info("configuration file change detected")
			requestReload()
		})

		go viper.WatchConfig()
	}

	go func() {
		sigCh := make(chan os.Signal, 10)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

		hasReceivedSigInt := false
		for sig := range sigCh {
			if sig == syscall.SIGINT {
				if hasReceivedSigInt {
					logger.Info("received SIGINT a second time, terminating...")
					os.Exit(1)
				}

				logger.Info("received SIGINT, attempting graceful shutdown...")
				hasReceivedSigInt = true
				cancel()
			} else if sig == syscall.SIGTERM {
				logger.Info("received SIGTERM, attempting graceful shutdown...")
				cancel()
			} else if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading configuration...")
				requestReload()
			}
		}
	}()

	s.run(ctx, latestonlychannel.Wrap(ctx, hostsCh), reloadCh)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = web.Shutdown(shutdownCtx)
	_ = meterProvider.Shutdown(shutdownCtx)

	logger.Info("zkensemble shutdown gracefully")
	return nil
}

func (s *server) run(ctx context.Context, hostsCh <-chan []ensemble.Host, reloadCh <-chan struct{}) {
	var hosts []ensemble.Host
	haveHosts := false

	for {
		select {
		case <-ctx.Done():
			return
		case newHosts, ok := <-hostsCh:
			if !ok {
				if ctx.Err() == nil {
					s.logger.Warn("host source stopped delivering updates")
				}
				return
			}

			s.metrics.HostUpdates.Add(ctx, 1)
			hosts = newHosts
			haveHosts = true
			s.regenerate(ctx, hosts)
		case <-reloadCh:
			s.reloadConfiguration()
			if haveHosts {
				s.regenerate(ctx, hosts)
			}
		}
	}
}

func (s *server) regenerate(ctx context.Context, hosts []ensemble.Host) {
	s.lock.Lock()
	defer s.lock.Unlock()

	result, err := s.generator.Generate(ctx, hosts)
	if err != nil {
		// the previous bundles stay on disk untouched
		s.web.MarkUnhealthy(err)
		return
	}

	if result.Fingerprint == s.lastFingerprint {
		s.logger.Debug("ensemble unchanged, skipping write",
			zap.String("fingerprint", result.Fingerprint))
		s.web.MarkHealthy(result.Fingerprint, len(result.Members))
		return
	}

	err = generator.WriteBundles(s.fs, s.config.output, result)
	if err != nil {
		s.logger.Error("failed to write bundles",
			zap.String("output", s.config.output),
			zap.Error(err))
		s.web.MarkUnhealthy(err)
		return
	}

	s.metrics.BundlesWritten.Add(ctx, int64(len(result.Bundles)))
	s.lastFingerprint = result.Fingerprint
	s.web.MarkHealthy(result.Fingerprint, len(result.Members))

	s.logger.Info("wrote ensemble bundles",
		zap.String("output", s.config.output),
		zap.Int("members", len(result.Members)),
		zap.String("fingerprint", result.Fingerprint))
}

func (s *server) reloadConfiguration() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if cfgFile != "" {
		err := viper.ReadInConfig()
		if err != nil {
			s.logger.Warn("failed to parse configuration file", zap.Error(err))
			return
		}
	}

	newConfig, err := readConfig(s.logger)
	if err != nil {
		s.logger.Warn("failed to read configuration, keeping the previous one", zap.Error(err))
		return
	}

	if newConfig.hostsFile != s.config.hostsFile ||
		newConfig.etcdPrefix != s.config.etcdPrefix ||
		!slices.Equal(newConfig.etcdEndpoints, s.config.etcdEndpoints) {
		s.logger.Warn("config changes for hostsFile, etcdEndpoints, or etcdPrefix require a restart")
	}

	if newConfig.logLevelStr != s.config.logLevelStr {
		applyLogLevel(s.logger, s.logLevel, newConfig.logLevelStr)
		s.logger.Info("updated log level",
			zap.String("newLevel", s.logLevel.Level().String()))
	}

	g, err := newConfig.newGenerator(s.logger.Named("generator"))
	if err != nil {
		s.logger.Warn("failed to apply configuration, keeping the previous one", zap.Error(err))
		return
	}

	// keep the running host source but take every other setting
	newConfig.hostsFile = s.config.hostsFile
	newConfig.etcdEndpoints = s.config.etcdEndpoints
	newConfig.etcdPrefix = s.config.etcdPrefix

	s.config = newConfig
	s.generator = g
}
