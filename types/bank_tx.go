package types

type BankAccountWithTransactions struct {
	BankKey string
	Account struct {
		Number string
	}
	Transactions []BankTx
}
