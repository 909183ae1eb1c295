package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imzeyn/mockhost/internal/config"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "mockhost dev\n", out.String())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mockhost.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  listen_address: 127.0.0.1:7000
  max_connections: 2
projects:
  dir: from-file
`), 0o644))

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", file, "--workers", "16"}))

	f := serveFlags{configFile: file, maxConnections: 16}
	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.ListenAddress)
	assert.Equal(t, 16, cfg.Server.MaxConnections)
	assert.Equal(t, "from-file", cfg.Projects.Dir)
}

func TestLoadConfig_ZeroWorkersRejected(t *testing.T) {
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "0"}))

	_, err := loadConfig(cmd, serveFlags{maxConnections: 0})
	assert.ErrorIs(t, err, config.ErrNoWorkers)
}
