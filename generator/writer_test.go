package generator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestGenerator(t *testing.T) *Generator {
	g, err := NewGenerator(&Config{
		Logger: zaptest.NewLogger(t),
		Tuning: ensemble.DefaultTuning(),
	})
	require.NoError(t, err)
	return g
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()

	entries, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestWriteBundlesLayout(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())
	g := newTestGenerator(t)

	result, err := g.Generate(context.Background(), threeDomainHosts())
	require.NoError(t, err)

	require.NoError(t, WriteBundles(fs, "/out", result))

	assert.Equal(t, []string{ManifestName, "1-alpha", "2-beta", "3-gamma"}, listDir(t, fs, "/out"))

	for _, bundle := range result.Bundles {
		for _, file := range bundle.Files {
			data, err := afero.ReadFile(fs, filepath.Join("/out", bundle.Dir(), file.Path))
			require.NoError(t, err)
			assert.Equal(t, file.Data, data)
		}
	}

	manifest, err := afero.ReadFile(fs, filepath.Join("/out", ManifestName))
	require.NoError(t, err)
	assert.Equal(t, "1-alpha\n2-beta\n3-gamma\n", string(manifest))
}

func TestWriteBundlesReplacesPreviousRun(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())
	g := newTestGenerator(t)

	first, err := g.Generate(context.Background(), threeDomainHosts())
	require.NoError(t, err)
	require.NoError(t, WriteBundles(fs, "/out", first))

	// a file placed next to the bundles by someone else must survive
	require.NoError(t, afero.WriteFile(fs, "/out/README", []byte("hands off"), 0o644))

	second, err := g.Generate(context.Background(), threeDomainHosts()[:1])
	require.NoError(t, err)
	require.NoError(t, WriteBundles(fs, "/out", second))

	assert.Equal(t, []string{ManifestName, "1-alpha", "README"}, listDir(t, fs, "/out"))

	cfg, err := afero.ReadFile(fs, "/out/1-alpha/"+ZooCfgPath)
	require.NoError(t, err)
	assert.NotContains(t, string(cfg), "server.2")
}

func TestWriteBundlesRejectsEscapingPaths(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())

	result := &Result{
		Bundles: []*Bundle{{
			MemberID: 1,
			HostName: "alpha",
			Files:    []File{{Path: "../../etc/passwd", Data: []byte("x")}},
		}},
	}

	err := WriteBundles(fs, "/out", result)
	assert.Error(t, err)
	assert.Equal(t, []string(nil), listDir(t, fs, "/out"))
}

func TestReadManifestSkipsUnsafeEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/out/"+ManifestName,
		[]byte("1-alpha\n../escape\n\n..\n2-beta\n"), 0o644))

	dirs, err := readManifest(fs, "/out")
	require.NoError(t, err)
	assert.Equal(t, []string{"1-alpha", "2-beta"}, dirs)
}

func TestBundleDirSanitizesHostName(t *testing.T) {
	bundle := &Bundle{MemberID: 4, HostName: "rack/a"}
	assert.Equal(t, "4-rack_a", bundle.Dir())
}
