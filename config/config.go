package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/mezonai/ledgerstore/db"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
)

// DefaultLedgerConfig returns a primary LevelDB ledger under DefaultDirectory
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		Store: StoreConfig{
			Type:      string(DefaultStoreType),
			Directory: DefaultDirectory,
		},
		MetricsAddr: DefaultMetricsAddr,
	}
}

// LoadLedgerConfig reads and parses ledger.yml. Missing fields keep their defaults.
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	logx.Info("CONFIG", "Loading ledger config from ", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfgFile := ConfigFile{Ledger: *DefaultLedgerConfig()}
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := cfgFile.Ledger.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfgFile.Ledger, nil
}

// Validate validates the ledger configuration
func (c *LedgerConfig) Validate() error {
	if c.Store.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}
	if c.Store.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	storeType := db.ProviderType(c.Store.Type)
	if err := storeType.Validate(); err != nil {
		return err
	}
	if c.Secondary && !storeType.SupportsExternalSecondary() {
		return fmt.Errorf("store type %s cannot serve a secondary alongside a running primary, use %s or %s",
			storeType, db.BoltProviderType, db.RocksDBProviderType)
	}
	return nil
}

// Provider creates the storage provider named by the config
func (c *LedgerConfig) Provider() (db.Provider, error) {
	return db.NewProvider(db.ProviderType(c.Store.Type))
}

// DefaultTreeConfig uses the default tree depth
func DefaultTreeConfig() *TreeConfig {
	return &TreeConfig{Depth: merkle.DefaultDepth}
}

// LoadTreeConfig reads the [merkle] section from an .ini file
func LoadTreeConfig(path string) (*TreeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	treeSection := cfg.Section("merkle")
	treeCfg := DefaultTreeConfig()
	err = treeSection.MapTo(treeCfg)
	if err != nil {
		return nil, err
	}
	if err := treeCfg.Validate(); err != nil {
		return nil, err
	}
	return treeCfg, nil
}

func (c *TreeConfig) Validate() error {
	if c.Depth < 1 || c.Depth > MaxTreeDepth {
		return fmt.Errorf("tree depth must be between 1 and %d, got %d", MaxTreeDepth, c.Depth)
	}
	return nil
}

// Parameters returns the commitment tree parameters for the configured depth
func (c *TreeConfig) Parameters() (merkle.Parameters, error) {
	return merkle.NewBlake2sParameters(c.Depth)
}
