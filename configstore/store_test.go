package configstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/configstore"
	"github.com/bigtree-zedis/zedis-core/model"
)

func TestOpenCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redis-servers.toml")

	s, err := configstore.Open(path)
	require.NoError(t, err)
	require.Empty(t, s.List())
}

func TestSaveLoadRoundTripsSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redis-servers.toml")

	s, err := configstore.Open(path)
	require.NoError(t, err)

	cfg := model.ServerConfig{
		ID:       "srv-1",
		Name:     "prod",
		Host:     "10.0.0.1",
		Port:     6379,
		Username: "admin",
		Password: "hunter2",
		SSH: model.SSHTunnelConfig{
			Enabled:       true,
			Address:       "bastion:22",
			Username:      "ubuntu",
			PrivateKeyPEM: "-----BEGIN KEY-----\nabc\n-----END KEY-----",
		},
	}
	require.NoError(t, s.Save([]model.ServerConfig{cfg}))

	reloaded, err := configstore.Open(path)
	require.NoError(t, err)
	got, err := reloaded.Get("srv-1")
	require.NoError(t, err)
	require.Equal(t, cfg.Password, got.Password)
	require.Equal(t, cfg.SSH.PrivateKeyPEM, got.SSH.PrivateKeyPEM)
	require.Equal(t, cfg.Host, got.Host)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "hunter2")
}

func TestGetNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := configstore.Open(filepath.Join(dir, "redis-servers.toml"))
	require.NoError(t, err)

	_, err = s.Get("nope")
	require.Error(t, err)
}
