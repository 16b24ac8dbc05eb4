package banks

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"bank-bots/enable-banking-auth/enablebanking"
	"bank-bots/enable-banking-auth/types"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const schema = `
	create table if not exists bank_txs (
		id text primary key,
		bank_key text not null,
		account_number text not null,
		month text not null,
		date date not null,
		entry_reference text not null,
		description text not null,
		currency text not null,
		amount numeric not null,
		created_at timestamptz not null default now(),
		unique (bank_key, account_number, entry_reference)
	)`

const upsert = `
	insert into bank_txs
		(id, bank_key, account_number, month, date, entry_reference, description, currency, amount)
	values
		(:id, :bank_key, :account_number, :month, :date, :entry_reference, :description, :currency, :amount)
	on conflict (bank_key, account_number, entry_reference) do update set
		description = excluded.description,
		amount = excluded.amount`

func BankKey(bank enablebanking.ASPSP) string {
	return fmt.Sprintf("%s_%s", bank.Country, bank.Name)
}

// PrepareBankTxs turns API transactions into bank_txs rows sorted by date.
// Transactions without an entry reference get one built from the booking date
// and the remittance text, with a "(n)" suffix when that repeats.
func PrepareBankTxs(bank enablebanking.ASPSP, accountID string, txs []enablebanking.Transaction) (types.BankAccountWithTransactions, error) {
	bankAccount := types.BankAccountWithTransactions{BankKey: BankKey(bank)}
	bankAccount.Account.Number = accountID

	seen := map[string]int{}
	for _, tx := range txs {
		date, err := txDate(tx)
		if err != nil {
			return bankAccount, err
		}
		amount, err := tx.SignedAmount()
		if err != nil {
			return bankAccount, err
		}
		description := strings.Join(tx.RemittanceInformation, " ")

		ref := tx.EntryReference
		if ref == "" {
			ref = fmt.Sprintf("%s_%s", date.Format("20060102"), description)
			seen[ref] += 1
			if seen[ref] > 1 {
				ref = fmt.Sprintf("%s(%d)", ref, seen[ref])
				slog.Info("found duplicate reference", "new ref", ref)
			}
		}

		bankAccount.Transactions = append(bankAccount.Transactions, types.BankTx{
			Id:             uuid.NewString(),
			BankKey:        bankAccount.BankKey,
			AccountNumber:  accountID,
			Month:          date.Format("2006-01"),
			Date:           date,
			EntryReference: ref,
			Description:    description,
			Currency:       tx.TransactionAmount.Currency,
			Amount:         amount,
		})
	}

	slices.SortStableFunc(bankAccount.Transactions, func(a, b types.BankTx) int {
		return a.Date.Compare(b.Date)
	})
	return bankAccount, nil
}

func txDate(tx enablebanking.Transaction) (time.Time, error) {
	for _, s := range []string{tx.BookingDate, tx.ValueDate, tx.TransactionDate} {
		if s == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date '%s': %w", s, err)
		}
		return d, nil
	}
	return time.Time{}, fmt.Errorf("transaction %q has no date", tx.EntryReference)
}

type Exporter struct {
	db *sqlx.DB
}

func Connect(ctx context.Context, databaseURL string) (*Exporter, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Exporter{db: db}, nil
}

func (e *Exporter) Close() error {
	return e.db.Close()
}

// Export upserts the transactions of one account in a single database
// transaction.
func (e *Exporter) Export(ctx context.Context, bank enablebanking.ASPSP, accountID string, txs []enablebanking.Transaction) error {
	bankAccount, err := PrepareBankTxs(bank, accountID, txs)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, bankTx := range bankAccount.Transactions {
		if _, err := tx.NamedExecContext(ctx, upsert, bankTx); err != nil {
			return fmt.Errorf("upsert %s: %w", bankTx.EntryReference, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("exported %d bank txs", len(bankAccount.Transactions)), "bankKey", bankAccount.BankKey, "account", accountID)
	return nil
}
