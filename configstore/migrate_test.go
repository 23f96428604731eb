package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPathUsesVendorAppFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "bigtree", "zedis", "redis-servers.toml"), path)
}

func TestMigrateLegacyDirCopiesAndRemoves(t *testing.T) {
	home := t.TempDir()
	legacyDir := filepath.Join(home, legacyDirName)
	require.NoError(t, os.MkdirAll(legacyDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(legacyDir, configFile), []byte("legacy contents"), 0o600))

	newDir := t.TempDir()
	newPath := filepath.Join(newDir, "fresh", configFile)

	t.Setenv("HOME", home)
	require.NoError(t, migrateLegacyDir(newPath))

	migrated, err := os.ReadFile(newPath)
	require.NoError(t, err)
	assert.Equal(t, "legacy contents", string(migrated))

	_, err = os.Stat(legacyDir)
	assert.True(t, os.IsNotExist(err))
}

func TestMigrateLegacyDirIsNoopWhenNewPathExists(t *testing.T) {
	home := t.TempDir()
	legacyDir := filepath.Join(home, legacyDirName)
	require.NoError(t, os.MkdirAll(legacyDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(legacyDir, configFile), []byte("legacy"), 0o600))

	newDir := t.TempDir()
	newPath := filepath.Join(newDir, configFile)
	require.NoError(t, os.WriteFile(newPath, []byte("already there"), 0o600))

	t.Setenv("HOME", home)
	require.NoError(t, migrateLegacyDir(newPath))

	_, err := os.Stat(legacyDir)
	require.NoError(t, err, "legacy dir must be left alone when the new path is already populated")
}

func TestMigrateLegacyDirIsNoopWhenNoLegacyDir(t *testing.T) {
	home := t.TempDir()
	newDir := t.TempDir()
	newPath := filepath.Join(newDir, configFile)

	t.Setenv("HOME", home)
	require.NoError(t, migrateLegacyDir(newPath))

	_, err := os.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}
