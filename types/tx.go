package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTx is a row of the bank_txs table.
type BankTx struct {
	Id             string
	BankKey        string `db:"bank_key"`
	AccountNumber  string `db:"account_number"`
	Month          string
	Date           time.Time
	EntryReference string `db:"entry_reference"`
	Description    string
	Currency       string
	Amount         decimal.Decimal
	CreatedAt      time.Time `db:"created_at"`
}
