package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mezonai/ledgerstore/ledger"
	"github.com/mezonai/ledgerstore/logx"
)

var peersFile string

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Read or replace the stored peer book",
}

var peersGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Write the stored peer book to stdout, or to --file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *ledger.Ledger) error {
			peers, err := l.GetPeerBook()
			if err != nil {
				return err
			}
			if peers == nil {
				return fmt.Errorf("no peer book stored")
			}
			if peersFile != "" {
				return os.WriteFile(peersFile, peers, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(peers)
			return err
		})
	},
}

var peersSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the stored peer book with the contents of --file, or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			peers []byte
			err   error
		)
		if peersFile != "" {
			peers, err = os.ReadFile(peersFile)
		} else {
			peers, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read peer book: %w", err)
		}

		return withLedger(func(l *ledger.Ledger) error {
			if err := l.SavePeerBookToStorage(peers); err != nil {
				return err
			}
			logx.Info("PEERS", "Saved peer book of ", len(peers), " bytes")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
	peersCmd.AddCommand(peersGetCmd, peersSetCmd)
	peersCmd.PersistentFlags().StringVar(&peersFile, "file", "", "Peer book file")
}
