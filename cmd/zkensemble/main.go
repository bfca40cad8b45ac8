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
	"strings"
	"syscall"
	"time"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/jmxtrans"
	"github.com/couchbase/zkensemble/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Version: version.Get(),

	Use:   "zkensemble",
	Short: "Derives the configuration of a ZooKeeper ensemble and its monitoring",

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfigFile()
	},
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "specifies a config file to load")

	configFlags := pflag.NewFlagSet("", pflag.ContinueOnError)
	configFlags.String("log-level", "info", "the log level to run at")

	configFlags.String("hosts-file", "", "yaml file listing the candidate hosts")
	configFlags.StringSlice("etcd-endpoints", nil, "etcd endpoints to read the candidate hosts from")
	configFlags.String("etcd-prefix", "/zkensemble/hosts", "etcd key prefix holding the host records")
	configFlags.Duration("etcd-dial-timeout", 5*time.Second, "timeout for connecting to etcd")

	configFlags.Bool("select-quorum", false, "reduce the hosts to one per failure domain")
	configFlags.Int64("memory", ensemble.DefaultMemory, "memory budget of each member in bytes")
	configFlags.Duration("tick-time", ensemble.DefaultTickTime, "zookeeper tick time")
	configFlags.Int("init-limit", ensemble.DefaultInitLimit, "ticks a follower may take to connect to the leader")
	configFlags.Int("sync-limit", ensemble.DefaultSyncLimit, "ticks a follower may lag behind the leader")
	configFlags.Int("snap-count", ensemble.DefaultSnapCount, "transactions between snapshots")
	configFlags.Int("global-outstanding-limit", ensemble.DefaultGlobalOutstandingLimit, "maximum queued requests")
	configFlags.Int("max-client-cnxns", -1, "connections allowed per client address, -1 leaves it unset")
	configFlags.Int("purge-interval", ensemble.DefaultPurgeInterval, "auto purge interval in hours")
	configFlags.String("data-dir", ensemble.DefaultDataDir, "zookeeper data directory")

	configFlags.StringSlice("graphite", nil, "graphite collectors as host:port")
	configFlags.String("monitoring-role", jmxtrans.DefaultRole, "replicated server role queried by jmxtrans")
	configFlags.Int("query-threads", jmxtrans.DefaultQueryThreads, "jmxtrans query threads per server")

	configFlags.String("output", "./ensemble", "directory the member bundles are written to")
	rootCmd.PersistentFlags().AddFlagSet(configFlags)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("zke")
	viper.AutomaticEnv()

	_ = viper.BindPFlags(configFlags)

	rootCmd.AddCommand(renderCmd, quorumCmd, zkcliCmd, serveCmd, registerCmd, deregisterCmd)
}

func loadConfigFile() error {
	if cfgFile == "" {
		return nil
	}

	viper.SetConfigFile(cfgFile)
	return viper.ReadInConfig()
}

func getLogger() (zap.AtomicLevel, *zap.Logger) {
	logLevel := zap.NewAtomicLevel()
	logConfig := zap.NewProductionEncoderConfig()
	logConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEncoder := zapcore.NewJSONEncoder(logConfig)
	core := zapcore.NewTee(
		// stdout is reserved for command output
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(os.Stderr), logLevel),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logLevel, logger
}

// setupLogger builds the logger and applies the configured level.
func setupLogger() (zap.AtomicLevel, *zap.Logger) {
	logLevel, logger := getLogger()
	applyLogLevel(logger, logLevel, viper.GetString("log-level"))
	return logLevel, logger
}

func applyLogLevel(logger *zap.Logger, logLevel zap.AtomicLevel, levelStr string) {
	parsedLogLevel, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		logger.Warn("invalid log level specified, using INFO instead",
			zap.String("logLevel", levelStr))
		parsedLogLevel = zapcore.InfoLevel
	}
	logLevel.SetLevel(parsedLogLevel)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
