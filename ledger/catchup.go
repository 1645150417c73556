package ledger

import (
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/monitoring"
)

// CatchUpSecondary moves a secondary up to primaryHeight, as reported by the
// caller. Nothing happens when the ledger is already at or above it.
//
// A failed storage sync is logged and leaves the ledger stale without an error.
// After a successful sync the height becomes primaryHeight and, when
// updateMerkleTree is set, the commitment tree is rebuilt from storage.
func (l *Ledger) CatchUpSecondary(updateMerkleTree bool, primaryHeight uint32) error {
	secondaryHeight := l.BlockHeight()
	if primaryHeight <= secondaryHeight {
		monitoring.RecordCatchUp(monitoring.CatchUpNoop)
		return nil
	}

	if err := l.storage.TryCatchUpWithPrimary(); err != nil {
		logx.Warn("LEDGER", "Secondary catch-up to ", primaryHeight, " failed, staying at ", secondaryHeight, ": ", err)
		monitoring.RecordCatchUp(monitoring.CatchUpFailed)
		return nil
	}

	l.currentBlockHeight.Store(primaryHeight)
	monitoring.SetBlockHeight(l.role, primaryHeight)
	monitoring.RecordCatchUp(monitoring.CatchUpSynced)
	logx.Debug("LEDGER", "Secondary caught up from ", secondaryHeight, " to ", primaryHeight)

	if updateMerkleTree {
		return l.rebuildMerkleTree(nil)
	}
	return nil
}
