package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/ledgerstore/ledger"
)

var (
	catchUpHeight      uint32
	catchUpSkipRebuild bool
)

var catchUpCmd = &cobra.Command{
	Use:   "catchup",
	Short: "Open a secondary and move it up to the given primary height",
	RunE: func(cmd *cobra.Command, args []string) error {
		secondary = true
		return withLedger(func(l *ledger.Ledger) error {
			before := l.BlockHeight()
			if err := l.CatchUpSecondary(!catchUpSkipRebuild, catchUpHeight); err != nil {
				return err
			}
			cmd.Println(fmt.Sprintf("height %d -> %d", before, l.BlockHeight()))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catchUpCmd)
	catchUpCmd.Flags().Uint32Var(&catchUpHeight, "height", 0, "Height the primary is at")
	catchUpCmd.Flags().BoolVar(&catchUpSkipRebuild, "skip-rebuild", false, "Advance the height without rebuilding the commitment tree")
	_ = catchUpCmd.MarkFlagRequired("height")
}
