package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mezonai/ledgerstore/common"
	"github.com/mezonai/ledgerstore/jsonx"
	"github.com/mezonai/ledgerstore/ledger"
)

// LedgerStatus is printed by the status command and served on /status
type LedgerStatus struct {
	Secondary       bool   `json:"secondary"`
	BlockHeight     uint32 `json:"block_height"`
	BestBlockNumber uint32 `json:"best_block_number"`
	LatestBlock     string `json:"latest_block,omitempty"`
	Commitments     int    `json:"commitments"`
	Digest          string `json:"digest"`
	Empty           bool   `json:"empty"`
}

func collectStatus(l *ledger.Ledger) (*LedgerStatus, error) {
	tree := l.MerkleTree()
	status := &LedgerStatus{
		Secondary:   l.IsSecondary(),
		BlockHeight: l.BlockHeight(),
		Commitments: tree.Len(),
		Digest:      common.EncodeHash32(tree.Root()),
		Empty:       l.IsEmpty(),
	}
	if status.Empty {
		return status, nil
	}

	best, err := l.GetBestBlockNumber()
	if err != nil {
		return nil, err
	}
	status.BestBlockNumber = best

	latest, err := l.LatestBlock()
	if err != nil {
		return nil, err
	}
	status.LatestBlock = common.EncodeHash32(latest.Hash())
	return status, nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print height, latest block and commitment tree digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *ledger.Ledger) error {
			status, err := collectStatus(l)
			if err != nil {
				return err
			}
			out, err := jsonx.MarshalIndent(status)
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
