// Package flow drives one PSU authorization against the Enable Banking API,
// from listing banks to reading the first account's balances and
// transactions. Every step waits for the previous one.
package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bank-bots/enable-banking-auth/enablebanking"
	"bank-bots/enable-banking-auth/types"
	"bank-bots/enable-banking-auth/utils"

	"github.com/shopspring/decimal"
)

// ValidityWindow is how long the requested access stays valid.
const ValidityWindow = 10 * 24 * time.Hour

// API is the subset of the Enable Banking client the flow calls.
type API interface {
	GetApplication(ctx context.Context) (*enablebanking.Response, error)
	GetASPSPs(ctx context.Context) (*enablebanking.Response, error)
	StartAuthorization(ctx context.Context, psu enablebanking.PSUHeaders, body enablebanking.StartAuthorizationRequest) (*enablebanking.Response, error)
	CreateSession(ctx context.Context, psu enablebanking.PSUHeaders, body enablebanking.CreateSessionRequest) (*enablebanking.Response, error)
	GetSession(ctx context.Context, sessionID string) (*enablebanking.Response, error)
	GetAccountBalances(ctx context.Context, psu enablebanking.PSUHeaders, accountID string) (*enablebanking.Response, error)
	GetAccountTransactions(ctx context.Context, psu enablebanking.PSUHeaders, accountID string) (*enablebanking.Response, error)
}

// ExportFunc receives the decoded transactions of the selected account.
type ExportFunc func(ctx context.Context, bank enablebanking.ASPSP, accountID string, txs []enablebanking.Transaction) error

type Deps struct {
	API API
	In  io.Reader
	Out io.Writer
	Now func() time.Time
	// Export is optional.
	Export ExportFunc
}

type ApplicationResult struct {
	Raw string
}

type ASPSPsResult struct {
	Raw string
}

type AuthorizationResult struct {
	Raw     string
	Request enablebanking.StartAuthorizationRequest
	URL     string
}

type SessionResult struct {
	Raw       string
	SessionID string
}

type SessionDetailResult struct {
	Raw      string
	Accounts []string
}

type AccountDataResult struct {
	Raw string
}

type runner struct {
	cfg  *types.Config
	deps Deps
	psu  enablebanking.PSUHeaders
}

func Run(ctx context.Context, cfg *types.Config, deps Deps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := &runner{
		cfg:  cfg,
		deps: deps,
		psu: enablebanking.PSUHeaders{
			IPAddress: cfg.PSU.IPAddress,
			UserAgent: cfg.PSU.UserAgent,
		},
	}

	if _, err := r.FetchApplication(ctx); err != nil {
		return err
	}
	aspsps, err := r.FetchASPSPs(ctx)
	if err != nil {
		return err
	}
	bank, err := SelectBank(cfg.Bank, aspsps)
	if err != nil {
		return err
	}
	authz, err := r.StartAuthorization(ctx, bank)
	if err != nil {
		return err
	}
	redirected, err := r.PromptRedirect(authz.URL)
	if err != nil {
		return err
	}
	session, err := r.CreateSession(ctx, utils.GetCode(redirected))
	if err != nil {
		return err
	}
	detail, err := r.FetchSession(ctx, session.SessionID)
	if err != nil {
		return err
	}
	accountID := detail.Accounts[0]
	slog.Debug("selected account", "account", accountID, "of", len(detail.Accounts))

	balances, err := r.FetchBalances(ctx, accountID)
	if err != nil {
		return err
	}
	SummarizeBalances(balances.Raw)

	transactions, err := r.FetchTransactions(ctx, accountID)
	if err != nil {
		return err
	}
	if deps.Export != nil {
		return r.export(ctx, bank, accountID, transactions)
	}
	return nil
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.deps.Out, format, args...)
}

func (r *runner) FetchApplication(ctx context.Context) (*ApplicationResult, error) {
	resp, err := r.deps.API.GetApplication(ctx)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	r.printf("Application data: %s\n", resp.Body)
	return &ApplicationResult{Raw: resp.Body}, nil
}

func (r *runner) FetchASPSPs(ctx context.Context) (*ASPSPsResult, error) {
	resp, err := r.deps.API.GetASPSPs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get aspsps: %w", err)
	}
	r.printf("ASPSPS data: %s\n", resp.Body)
	return &ASPSPsResult{Raw: resp.Body}, nil
}

// SelectBank returns the configured bank, or the first listed one when the
// configuration asks for it.
func SelectBank(cfg types.Bank, aspsps *ASPSPsResult) (enablebanking.ASPSP, error) {
	if !cfg.PickFirst {
		return enablebanking.ASPSP{Name: cfg.Name, Country: cfg.Country}, nil
	}
	resp := enablebanking.Response{Body: aspsps.Raw}
	var list enablebanking.ASPSPsResponse
	if err := resp.Decode(&list); err != nil {
		return enablebanking.ASPSP{}, fmt.Errorf("aspsps: %w", err)
	}
	if len(list.ASPSPs) == 0 {
		return enablebanking.ASPSP{}, fmt.Errorf("aspsps: list is empty")
	}
	slog.Info("picked first bank", "name", list.ASPSPs[0].Name, "country", list.ASPSPs[0].Country)
	return list.ASPSPs[0], nil
}

// BuildAuthorizationRequest sets valid_until to exactly now + ValidityWindow.
func BuildAuthorizationRequest(cfg *types.Config, bank enablebanking.ASPSP, now time.Time) enablebanking.StartAuthorizationRequest {
	return enablebanking.StartAuthorizationRequest{
		Access: enablebanking.Access{
			ValidUntil: now.Add(ValidityWindow).UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
		ASPSP:       bank,
		State:       cfg.State,
		RedirectURL: cfg.RedirectURL,
		PSUType:     cfg.PSU.Type,
	}
}

func (r *runner) StartAuthorization(ctx context.Context, bank enablebanking.ASPSP) (*AuthorizationResult, error) {
	body := BuildAuthorizationRequest(r.cfg, bank, r.deps.Now())
	resp, err := r.deps.API.StartAuthorization(ctx, r.psu, body)
	if err != nil {
		return nil, fmt.Errorf("start authorization: %w", err)
	}
	r.printf("Start authorization data: %s\n", resp.Body)

	var data enablebanking.StartAuthorizationResponse
	if err := resp.Decode(&data); err != nil {
		return nil, fmt.Errorf("start authorization: %w", err)
	}
	return &AuthorizationResult{Raw: resp.Body, Request: body, URL: data.URL}, nil
}

func (r *runner) PromptRedirect(authURL string) (string, error) {
	prompt := fmt.Sprintf("Please go to %s, authorize consent and paste here the url you have been redirected to: ", authURL)
	return utils.Input(r.deps.In, r.deps.Out, prompt)
}

func (r *runner) CreateSession(ctx context.Context, code string) (*SessionResult, error) {
	if code == "" {
		slog.Warn("redirect url has no code parameter")
	}
	resp, err := r.deps.API.CreateSession(ctx, r.psu, enablebanking.CreateSessionRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	r.printf("Create session data: %s\n", resp.Body)

	var data enablebanking.CreateSessionResponse
	if err := resp.Decode(&data); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if data.SessionID == "" {
		return nil, fmt.Errorf("create session: response has no session_id")
	}
	return &SessionResult{Raw: resp.Body, SessionID: data.SessionID}, nil
}

func (r *runner) FetchSession(ctx context.Context, sessionID string) (*SessionDetailResult, error) {
	resp, err := r.deps.API.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	r.printf("Session data %s\n", resp.Body)

	var data enablebanking.Session
	if err := resp.Decode(&data); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(data.Accounts) == 0 {
		return nil, fmt.Errorf("get session %s: no accounts", sessionID)
	}
	return &SessionDetailResult{Raw: resp.Body, Accounts: data.Accounts}, nil
}

func (r *runner) FetchBalances(ctx context.Context, accountID string) (*AccountDataResult, error) {
	resp, err := r.deps.API.GetAccountBalances(ctx, r.psu, accountID)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	r.printf("Account balances data: %s\n", resp.Body)
	return &AccountDataResult{Raw: resp.Body}, nil
}

func (r *runner) FetchTransactions(ctx context.Context, accountID string) (*AccountDataResult, error) {
	resp, err := r.deps.API.GetAccountTransactions(ctx, r.psu, accountID)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	r.printf("Account transactions data: %s\n", resp.Body)
	return &AccountDataResult{Raw: resp.Body}, nil
}

func (r *runner) export(ctx context.Context, bank enablebanking.ASPSP, accountID string, transactions *AccountDataResult) error {
	resp := enablebanking.Response{Body: transactions.Raw}
	var data enablebanking.TransactionsResponse
	if err := resp.Decode(&data); err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}
	if data.ContinuationKey != "" {
		slog.Warn("transactions are paginated, only the first page is exported")
	}
	if err := r.deps.Export(ctx, bank, accountID, data.Transactions); err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}
	return nil
}

// SummarizeBalances decodes the balances body and totals the amounts per
// currency. It only logs; the raw body has already been printed.
func SummarizeBalances(raw string) map[string]decimal.Decimal {
	resp := enablebanking.Response{Body: raw}
	var data enablebanking.BalancesResponse
	if err := resp.Decode(&data); err != nil {
		slog.Debug("balances are not decodable", "error", err)
		return nil
	}
	totals := map[string]decimal.Decimal{}
	for _, b := range data.Balances {
		amount, err := b.BalanceAmount.Decimal()
		if err != nil {
			slog.Warn("skipping balance", "name", b.Name, "error", err)
			continue
		}
		if amount.IsNegative() {
			slog.Warn("negative balance", "name", b.Name, "type", b.BalanceType, "amount", amount.StringFixed(2), "currency", b.BalanceAmount.Currency)
		} else {
			slog.Info("balance", "name", b.Name, "type", b.BalanceType, "amount", amount.StringFixed(2), "currency", b.BalanceAmount.Currency)
		}
		totals[b.BalanceAmount.Currency] = totals[b.BalanceAmount.Currency].Add(amount)
	}
	for currency, total := range totals {
		slog.Info("balance total", "currency", currency, "amount", total.StringFixed(2))
	}
	return totals
}
