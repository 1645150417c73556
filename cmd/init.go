package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/ledgerstore/common"
	"github.com/mezonai/ledgerstore/ledger"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/monitoring"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a fresh ledger holding only the genesis block",
	Long: `Create a fresh ledger at the data directory:
- Removes anything already stored at the directory
- Installs the embedded genesis block
- Prints the genesis hash and the commitment tree digest`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initializeLedger(cmd)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Confirm that existing data at the directory may be destroyed")
}

func initializeLedger(cmd *cobra.Command) error {
	monitoring.InitMetrics()

	s, err := loadSettings()
	if err != nil {
		return err
	}
	if s.cfg.Secondary {
		return fmt.Errorf("init creates a primary ledger, drop --secondary")
	}

	path := s.cfg.Store.Directory
	if !initForce {
		// refuse to wipe an existing chain without --force
		if existing, err := ledger.OpenAtPath(s.provider, s.params, path); err == nil {
			height := existing.BlockHeight()
			_ = existing.Close()
			if height > 0 {
				return fmt.Errorf("ledger at %s is at height %d, rerun with --force to destroy it", path, height)
			}
		}
	}

	l, err := ledger.NewEmpty(s.provider, s.params, &path)
	if err != nil {
		return err
	}
	defer l.Close()

	genesisBlock, err := l.LatestBlock()
	if err != nil {
		return err
	}
	logx.Info("INIT", "Initialized ", s.provider.Name(), " ledger at ", path)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ledger:  %s (%s)\n", path, s.provider.Name())
	fmt.Fprintf(out, "genesis: %s\n", common.EncodeHash32(genesisBlock.Hash()))
	fmt.Fprintf(out, "digest:  %s\n", common.EncodeHash32(l.Digest()))
	return nil
}
