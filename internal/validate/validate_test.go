package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/naming"
)

func testValidator(t *testing.T) (*Validator, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.SymlinkPath = filepath.Join(root, "links")
	cfg.SymlinkSubPath = ""
	cfg.PrimaryPath = filepath.Join(root, "primary")
	cfg.MirrorPath = filepath.Join(root, "mirror")
	require.NoError(t, os.MkdirAll(cfg.SymlinkDir(), 0755))
	require.NoError(t, os.MkdirAll(cfg.PrimaryDir(), 0755))
	require.NoError(t, os.MkdirAll(cfg.MirrorDir(), 0755))
	return New(cfg, "js_server"), cfg
}

func hasViolation(errs []error, sentinel error) bool {
	for _, err := range errs {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func TestRawFileValid(t *testing.T) {
	t.Parallel()

	v, cfg := testValidator(t)
	path := filepath.Join(cfg.PrimaryDir(), "file.00007")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0660))
	require.NoError(t, os.Chmod(path, 0660))

	assert.Empty(t, v.RawFile(path))
}

func TestRawFileViolations(t *testing.T) {
	t.Parallel()

	t.Run("outside raw-file directories", func(t *testing.T) {
		t.Parallel()
		v, _ := testValidator(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "file.00007")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0660))
		require.NoError(t, os.Chmod(path, 0660))
		errs := v.RawFile(path)
		assert.True(t, hasViolation(errs, common.ErrInvalidName))
	})

	t.Run("bad basename", func(t *testing.T) {
		t.Parallel()
		v, cfg := testValidator(t)
		path := filepath.Join(cfg.PrimaryDir(), "chunk.00007")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0660))
		require.NoError(t, os.Chmod(path, 0660))
		errs := v.RawFile(path)
		assert.True(t, hasViolation(errs, common.ErrInvalidName))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		v, cfg := testValidator(t)
		errs := v.RawFile(filepath.Join(cfg.PrimaryDir(), "file.00007"))
		assert.True(t, hasViolation(errs, common.ErrNotFound))
	})

	t.Run("wrong mode", func(t *testing.T) {
		t.Parallel()
		v, cfg := testValidator(t)
		path := filepath.Join(cfg.PrimaryDir(), "file.00007")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chmod(path, 0644))
		errs := v.RawFile(path)
		assert.True(t, hasViolation(errs, common.ErrPermission))
	})

	t.Run("violations accumulate", func(t *testing.T) {
		t.Parallel()
		v, _ := testValidator(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "wrongname")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chmod(path, 0644))
		errs := v.RawFile(path)
		assert.GreaterOrEqual(t, len(errs), 3, "directory, basename and mode must all be reported")
	})
}

func TestSymlinkValid(t *testing.T) {
	t.Parallel()

	v, cfg := testValidator(t)
	path := filepath.Join(cfg.SymlinkDir(), "js_server.data_dbs.P.003")
	assert.Empty(t, v.Symlink(path, "data_dbs", naming.RolePrimary))

	mirror := filepath.Join(cfg.SymlinkDir(), "js_server.data_dbs.m.003")
	assert.Empty(t, v.Symlink(mirror, "data_dbs", naming.RoleMirror))
}

func TestSymlinkSharedMemoryAliasAccepted(t *testing.T) {
	t.Parallel()

	v, cfg := testValidator(t)
	path := filepath.Join(cfg.SymlinkDir(), "js_server_shm.data_dbs.P.001")
	assert.Empty(t, v.Symlink(path, "data_dbs", naming.RolePrimary))
}

func TestSymlinkViolations(t *testing.T) {
	t.Parallel()

	v, cfg := testValidator(t)

	tests := []struct {
		name string
		path string
	}{
		{"wrong server", filepath.Join(cfg.SymlinkDir(), "other_srv.data_dbs.P.001")},
		{"wrong dbspace", filepath.Join(cfg.SymlinkDir(), "js_server.other_dbs.P.001")},
		{"wrong role", filepath.Join(cfg.SymlinkDir(), "js_server.data_dbs.m.001")},
		{"index zero", filepath.Join(cfg.SymlinkDir(), "js_server.data_dbs.P.000")},
		{"index too wide", filepath.Join(cfg.SymlinkDir(), "js_server.data_dbs.P.0001")},
		{"outside symlink dir", filepath.Join(t.TempDir(), "js_server.data_dbs.P.001")},
		{"not the convention at all", filepath.Join(cfg.SymlinkDir(), "whatever")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := v.Symlink(tt.path, "data_dbs", naming.RolePrimary)
			assert.True(t, hasViolation(errs, common.ErrInvalidName), "want a naming violation")
		})
	}
}

func TestSymlinkViolationsAccumulate(t *testing.T) {
	t.Parallel()

	v, _ := testValidator(t)
	path := filepath.Join(t.TempDir(), "other_srv.other_dbs.m.000")
	errs := v.Symlink(path, "data_dbs", naming.RolePrimary)
	assert.GreaterOrEqual(t, len(errs), 4,
		"directory, server, dbspace, role and index must all be reported")
}

func TestDBspaceName(t *testing.T) {
	t.Parallel()

	for _, good := range []string{"data_dbs", "a", "log2_dbs", "tempDbs"} {
		assert.NoError(t, DBspaceName(good), good)
	}
	for _, bad := range []string{"", "2data", "_dbs", "Data", "data-dbs", "data dbs"} {
		err := DBspaceName(bad)
		assert.ErrorIs(t, err, common.ErrInvalidName, bad)
	}
}
