package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLedgerConfig(t *testing.T) {
	path := writeFile(t, "ledger.yml", `
ledger:
  store:
    type: bbolt
    directory: /var/lib/ledger
  secondary: true
  metrics_addr: 127.0.0.1:9300
`)
	cfg, err := LoadLedgerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bbolt", cfg.Store.Type)
	assert.Equal(t, "/var/lib/ledger", cfg.Store.Directory)
	assert.True(t, cfg.Secondary)
	assert.Equal(t, "127.0.0.1:9300", cfg.MetricsAddr)

	p, err := cfg.Provider()
	require.NoError(t, err)
	assert.Equal(t, "bbolt", p.Name())
}

func TestLoadLedgerConfig_Defaults(t *testing.T) {
	path := writeFile(t, "ledger.yml", "ledger:\n  secondary: false\n")
	cfg, err := LoadLedgerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLedgerConfig(), cfg)
}

func TestLoadLedgerConfig_Invalid(t *testing.T) {
	path := writeFile(t, "ledger.yml", "ledger:\n  store:\n    type: redis\n")
	_, err := LoadLedgerConfig(path)
	assert.Error(t, err)

	_, err = LoadLedgerConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path = writeFile(t, "broken.yml", "ledger: [")
	_, err = LoadLedgerConfig(path)
	assert.Error(t, err)
}

func TestLedgerConfig_Validate(t *testing.T) {
	cfg := DefaultLedgerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Store.Directory = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultLedgerConfig()
	cfg.Store.Type = ""
	assert.Error(t, cfg.Validate())
}

func TestLedgerConfig_ValidateSecondaryBackend(t *testing.T) {
	cfg := DefaultLedgerConfig()
	cfg.Secondary = true
	assert.Error(t, cfg.Validate())

	cfg.Store.Type = "bbolt"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Type = "rocksdb"
	assert.NoError(t, cfg.Validate())
}

func TestLoadTreeConfig(t *testing.T) {
	path := writeFile(t, "ledger.ini", "[merkle]\ndepth = 20\n")
	cfg, err := LoadTreeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Depth)

	params, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, 20, params.Depth())
}

func TestLoadTreeConfig_MissingSectionUsesDefault(t *testing.T) {
	path := writeFile(t, "ledger.ini", "[other]\nkey = value\n")
	cfg, err := LoadTreeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, merkle.DefaultDepth, cfg.Depth)
}

func TestTreeConfig_MaxDepth(t *testing.T) {
	cfg := &TreeConfig{Depth: MaxTreeDepth}
	require.NoError(t, cfg.Validate())
	params, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, MaxTreeDepth, params.Depth())
}

func TestLoadTreeConfig_DepthOutOfRange(t *testing.T) {
	for _, depth := range []string{"0", "33", "64"} {
		path := writeFile(t, "ledger.ini", "[merkle]\ndepth = "+depth+"\n")
		_, err := LoadTreeConfig(path)
		assert.Error(t, err, depth)
	}
}
