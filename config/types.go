package config

// StoreConfig selects the storage backend and where it lives
type StoreConfig struct {
	Type      string `yaml:"type"`
	Directory string `yaml:"directory"`
}

// LedgerConfig holds the configuration from ledger.yml
type LedgerConfig struct {
	Store       StoreConfig `yaml:"store"`
	Secondary   bool        `yaml:"secondary"`
	MetricsAddr string      `yaml:"metrics_addr"`
}

// ConfigFile is the top-level structure for ledger.yml
type ConfigFile struct {
	Ledger LedgerConfig `yaml:"ledger"`
}

// TreeConfig is the [merkle] section of the ini file
type TreeConfig struct {
	Depth int `ini:"depth"`
}
