package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/couchbase/zkensemble/common/jmxtrans"
	"github.com/couchbase/zkensemble/common/quorum"
	"github.com/couchbase/zkensemble/generator"
	"github.com/couchbase/zkensemble/pkg/metrics"
	"github.com/couchbase/zkensemble/pkg/webapi"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const testConfigYAML = `
hosts:
  - address: 10.0.0.1
    domain: dc1
    name: alpha
    ports:
      client: 12181
  - address: 10.0.0.2
    domain: dc2
    name: beta
external-ports:
  management: 14888
collectors:
  - host: graphite.example.com
    port: 2003
graphite:
  - metrics.example.com:2004
max-client-cnxns: 60
select-quorum: true
`

func TestReadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zkensemble.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o644))

	cfgFile = path
	defer func() { cfgFile = "" }()
	require.NoError(t, loadConfigFile())

	config, err := readConfig(zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []ensemble.Host{
		{Address: "10.0.0.1", Domain: "dc1", Name: "alpha", Ports: map[string]int{"client": 12181}},
		{Address: "10.0.0.2", Domain: "dc2", Name: "beta"},
	}, config.hosts)
	assert.Equal(t, map[string]int{"management": 14888}, config.externalPorts)
	assert.Equal(t, []jmxtrans.Collector{
		{Host: "graphite.example.com", Port: 2003},
		{Host: "metrics.example.com", Port: 2004},
	}, config.collectors)
	assert.True(t, config.selectQuorum)

	tuning := config.tuning()
	require.NotNil(t, tuning.MaxClientConnections)
	assert.Equal(t, 60, *tuning.MaxClientConnections)
	assert.Equal(t, ensemble.DefaultTickTime, tuning.TickTime)
	assert.Equal(t, int64(ensemble.DefaultMemory), tuning.Memory)
	assert.Equal(t, ensemble.DefaultDataDir, tuning.DataDir)
}

func TestTuningLeavesMaxClientCnxnsUnset(t *testing.T) {
	config := &config{maxClientCnxns: -1}
	assert.Nil(t, config.tuning().MaxClientConnections)

	config.maxClientCnxns = 0
	require.NotNil(t, config.tuning().MaxClientConnections)
	assert.Equal(t, 0, *config.tuning().MaxClientConnections)
}

func TestParseCollector(t *testing.T) {
	collector, err := parseCollector("graphite.example.com:2003")
	require.NoError(t, err)
	assert.Equal(t, jmxtrans.Collector{Host: "graphite.example.com", Port: 2003}, collector)

	_, err = parseCollector("graphite.example.com")
	assert.Error(t, err)

	_, err = parseCollector("graphite.example.com:http")
	assert.Error(t, err)

	_, err = parseCollector(":2003")
	assert.ErrorIs(t, err, jmxtrans.ErrInvalidCollector)
}

func TestNewHostProviderRequiresSource(t *testing.T) {
	_, _, err := newHostProvider(&config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewHostProviderStatic(t *testing.T) {
	hosts := []ensemble.Host{{Address: "10.0.0.1", Domain: "dc1"}}
	provider, closeProvider, err := newHostProvider(&config{hosts: hosts}, zap.NewNop())
	require.NoError(t, err)
	defer closeProvider()

	got, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hosts, got)
}

func TestQuorumRows(t *testing.T) {
	candidates := []ensemble.Host{
		{Address: "10.0.0.10", Domain: "dc10", Name: "host10"},
		{Address: "10.0.0.3", Domain: "dc2", Name: "host3"},
		{Address: "10.0.0.2", Domain: "dc2", Name: "host2"},
		{Address: "10.0.0.1", Domain: "dc1", Name: "host1"},
	}

	selected, err := quorum.SelectQuorum(candidates)
	require.NoError(t, err)

	rows := quorumRows(candidates, selected)
	assert.Equal(t, [][]string{
		{"dc1", "host1", "10.0.0.1", "1"},
		{"dc2", "host2", "10.0.0.2", "3"},
		{"dc2", "host3", "10.0.0.3", ""},
		{"dc10", "host10", "10.0.0.10", "2"},
	}, rows)

	var buf bytes.Buffer
	renderQuorumTable(&buf, candidates, selected)
	assert.Contains(t, buf.String(), "MEMBER ID")
	assert.Contains(t, buf.String(), "host10")
}

func newTestServer(t *testing.T, hosts []ensemble.Host) *server {
	config := &config{
		hosts:          hosts,
		memory:         ensemble.DefaultMemory,
		tickTime:       ensemble.DefaultTickTime,
		initLimit:      ensemble.DefaultInitLimit,
		syncLimit:      ensemble.DefaultSyncLimit,
		snapCount:      ensemble.DefaultSnapCount,
		maxClientCnxns: -1,
		purgeInterval:  ensemble.DefaultPurgeInterval,
		dataDir:        ensemble.DefaultDataDir,
		output:         "/out",
	}

	logger := zaptest.NewLogger(t)
	g, err := config.newGenerator(logger)
	require.NoError(t, err)

	return &server{
		logger:    logger,
		logLevel:  zap.NewAtomicLevel(),
		web:       webapi.NewWebServer(webapi.WebServerOptions{Logger: logger}),
		fs:        afero.NewBasePathFs(afero.NewOsFs(), t.TempDir()),
		metrics:   metrics.NewGeneratorMetrics(sdkmetric.NewMeterProvider()),
		config:    config,
		generator: g,
	}
}

func TestServerRegenerate(t *testing.T) {
	hosts := []ensemble.Host{
		{Address: "10.0.0.1", Domain: "dc1", Name: "alpha"},
		{Address: "10.0.0.2", Domain: "dc2", Name: "beta"},
		{Address: "10.0.0.3", Domain: "dc3", Name: "gamma"},
	}
	s := newTestServer(t, hosts)
	ctx := context.Background()

	s.regenerate(ctx, hosts)
	status := s.web.Status()
	require.True(t, status.Healthy)
	assert.Equal(t, 3, status.Members)
	assert.Equal(t, status.Fingerprint, s.lastFingerprint)

	myid, err := afero.ReadFile(s.fs, "/out/2-beta/"+generator.MyIDPath)
	require.NoError(t, err)
	assert.Equal(t, "2", string(myid))

	// a failing generation keeps the previous bundles
	broken := append([]ensemble.Host{}, hosts...)
	broken[0].Address = "0.0.0.0"
	s.regenerate(ctx, broken)
	status = s.web.Status()
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.LastError)

	exists, err := afero.Exists(s.fs, "/out/1-alpha/"+generator.ZooCfgPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestServerRunFollowsHostUpdates(t *testing.T) {
	s := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	hostsCh := make(chan []ensemble.Host)
	reloadCh := make(chan struct{})

	done := make(chan struct{})
	go func() {
		s.run(ctx, hostsCh, reloadCh)
		close(done)
	}()

	hostsCh <- []ensemble.Host{{Address: "10.0.0.1", Domain: "dc1", Name: "alpha"}}
	hostsCh <- []ensemble.Host{
		{Address: "10.0.0.1", Domain: "dc1", Name: "alpha"},
		{Address: "10.0.0.2", Domain: "dc2", Name: "beta"},
	}

	require.Eventually(t, func() bool {
		return s.web.Status().Members == 2
	}, 10*time.Second, 10*time.Millisecond)

	manifest, err := afero.ReadFile(s.fs, "/out/"+generator.ManifestName)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-alpha", "2-beta"}, strings.Fields(string(manifest)))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "serve loop did not stop")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"render", "quorum", "zkcli", "serve", "register", "deregister"})
}
