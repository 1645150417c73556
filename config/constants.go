package config

import "github.com/mezonai/ledgerstore/db"

const (
	DefaultStoreType   = db.LevelDBProviderType
	DefaultDirectory   = "./data/ledger"
	DefaultMetricsAddr = ":9100"

	// MaxTreeDepth keeps the leaf capacity within the uint32 commitment index
	MaxTreeDepth = 32
)
