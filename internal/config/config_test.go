package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "symlink_path: /ifx/links\nchunk_decimals: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/ifx/links", cfg.SymlinkPath)
	assert.Equal(t, 4, cfg.ChunkDecimals)
	assert.Equal(t, 5, cfg.RawDecimals)
	assert.Equal(t, "/opt/dbspaces/primary", cfg.PrimaryPath)
	assert.Equal(t, 2, cfg.DataPageSize)
}

func TestLoadMalformedFileFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symlink_path: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEffectiveDirs(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "/opt/dbspaces/links", cfg.SymlinkDir())
	assert.Equal(t, "/opt/dbspaces/primary/files", cfg.PrimaryDir())
	assert.Equal(t, "/opt/dbspaces/mirror/files", cfg.MirrorDir())

	cfg.SymlinkSubPath = "chunks"
	assert.Equal(t, "/opt/dbspaces/links/chunks", cfg.SymlinkDir())
}

func TestNormalizeServer(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "js_server", NormalizeServer("js_server"))
	assert.Equal(t, "js_server", NormalizeServer("js_server_shm"))
}

func TestConfigDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DBSPACES_CONFIG_DIR", dir)

	assert.Equal(t, dir, ConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), FilePath())
	assert.Equal(t, filepath.Join(dir, "journal.db"), JournalPath())
}
