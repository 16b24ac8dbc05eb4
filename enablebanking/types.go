package enablebanking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ASPSP struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type Access struct {
	ValidUntil string `json:"valid_until"`
}

type StartAuthorizationRequest struct {
	Access      Access `json:"access"`
	ASPSP       ASPSP  `json:"aspsp"`
	State       string `json:"state"`
	RedirectURL string `json:"redirect_url"`
	PSUType     string `json:"psu_type"`
}

type StartAuthorizationResponse struct {
	URL             string `json:"url"`
	AuthorizationID string `json:"authorization_id"`
	PSUIDHash       string `json:"psu_id_hash"`
}

type CreateSessionRequest struct {
	Code string `json:"code,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// Session is the GET /sessions/{id} body. Accounts holds account ids in the
// order the bank returned them.
type Session struct {
	Status   string   `json:"status"`
	Accounts []string `json:"accounts"`
	ASPSP    ASPSP    `json:"aspsp"`
	PSUType  string   `json:"psu_type"`
	Access   Access   `json:"access"`
}

type ASPSPsResponse struct {
	ASPSPs []ASPSP `json:"aspsps"`
}

type Amount struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// Decimal parses the amount. The API sends amounts as strings.
func (a Amount) Decimal() (decimal.Decimal, error) {
	if a.Amount == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", a.Amount, err)
	}
	return d, nil
}

type Balance struct {
	Name          string `json:"name"`
	BalanceAmount Amount `json:"balance_amount"`
	BalanceType   string `json:"balance_type"`
	ReferenceDate string `json:"reference_date"`
}

type BalancesResponse struct {
	Balances []Balance `json:"balances"`
}

type Transaction struct {
	EntryReference        string   `json:"entry_reference"`
	TransactionAmount     Amount   `json:"transaction_amount"`
	CreditDebitIndicator  string   `json:"credit_debit_indicator"`
	Status                string   `json:"status"`
	BookingDate           string   `json:"booking_date"`
	ValueDate             string   `json:"value_date"`
	TransactionDate       string   `json:"transaction_date"`
	RemittanceInformation []string `json:"remittance_information"`
}

// SignedAmount returns the amount negated for debits.
func (t Transaction) SignedAmount() (decimal.Decimal, error) {
	d, err := t.TransactionAmount.Decimal()
	if err != nil {
		return d, err
	}
	if t.CreditDebitIndicator == "DBIT" {
		return d.Neg(), nil
	}
	return d, nil
}

type TransactionsResponse struct {
	Transactions    []Transaction `json:"transactions"`
	ContinuationKey string        `json:"continuation_key"`
}
