package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mezonai/ledgerstore/config"
	"github.com/mezonai/ledgerstore/db"
	"github.com/mezonai/ledgerstore/ledger"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
)

var (
	configPath     string
	treeConfigPath string
	dataDir        string
	storeType      string
	secondary      bool
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "ledgerstore",
	Short: "Ledger state store CLI",
	Long:  "Command line interface for creating, inspecting and serving a ledger state store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logx.SetOutput(io.MultiWriter(os.Stderr, logx.FileWriter()))
		}
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to ledger.yml (optional)")
	flags.StringVar(&treeConfigPath, "tree-config", "", "Path to an .ini file with a [merkle] section (optional)")
	flags.StringVar(&dataDir, "data-dir", "", "Ledger directory, overrides the config file")
	flags.StringVar(&storeType, "store", "", "Storage backend (leveldb, bbolt or rocksdb), overrides the config file")
	flags.BoolVar(&secondary, "secondary", false, "Open the ledger as a read-only secondary of a running primary (bbolt or rocksdb)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Mirror logs to stderr")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed: ", err)
		os.Exit(1)
	}
}

// settings is what every command needs to open a ledger
type settings struct {
	cfg      *config.LedgerConfig
	provider db.Provider
	params   merkle.Parameters
}

func loadSettings() (*settings, error) {
	cfg := config.DefaultLedgerConfig()
	if configPath != "" {
		loaded, err := config.LoadLedgerConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.Store.Directory = dataDir
	}
	if storeType != "" {
		cfg.Store.Type = storeType
	}
	if secondary {
		cfg.Secondary = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	treeCfg := config.DefaultTreeConfig()
	if treeConfigPath != "" {
		loaded, err := config.LoadTreeConfig(treeConfigPath)
		if err != nil {
			return nil, err
		}
		treeCfg = loaded
	}
	params, err := treeCfg.Parameters()
	if err != nil {
		return nil, err
	}

	provider, err := cfg.Provider()
	if err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, provider: provider, params: params}, nil
}

// openLedger opens the configured ledger as a primary or a secondary
func (s *settings) openLedger() (*ledger.Ledger, error) {
	path := s.cfg.Store.Directory
	if s.cfg.Secondary {
		return ledger.OpenSecondaryAtPath(s.provider, s.params, path)
	}
	return ledger.OpenAtPath(s.provider, s.params, path)
}

func withLedger(fn func(l *ledger.Ledger) error) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	l, err := s.openLedger()
	if err != nil {
		return fmt.Errorf("failed to open ledger at %s: %w", s.cfg.Store.Directory, err)
	}
	defer func() {
		if err := l.Close(); err != nil {
			logx.Warn("CMD", "Failed to close ledger: ", err)
		}
	}()
	return fn(l)
}
