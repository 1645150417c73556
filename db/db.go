package db

import "fmt"

// Column is a named partition of the key space. LevelDB stores it as a single
// key prefix byte, bbolt as a bucket and RocksDB as a column family.
type Column uint8

const (
	ColMeta Column = iota
	ColBlockHeader
	ColBlockTransactions
	ColBlockLocator
	ColTransactionLocation
	ColCommitment

	NumColumns = int(ColCommitment) + 1
)

const CfDefault = "default"

var columnNames = [NumColumns]string{
	ColMeta:                "meta",
	ColBlockHeader:         "block_header",
	ColBlockTransactions:   "block_transactions",
	ColBlockLocator:        "block_locator",
	ColTransactionLocation: "transaction_location",
	ColCommitment:          "commitment",
}

// Columns lists every column in declaration order
func Columns() []Column {
	cols := make([]Column, NumColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

// Valid reports whether c is one of the declared columns
func (c Column) Valid() bool {
	return int(c) < NumColumns
}

func (c Column) String() string {
	if !c.Valid() {
		return fmt.Sprintf("column(%d)", uint8(c))
	}
	return columnNames[c]
}
