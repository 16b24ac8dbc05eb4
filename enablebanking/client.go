package enablebanking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.enablebanking.com"

type DefaultHeadersTransport struct {
	AccessToken string
	T           http.RoundTripper
}

func (adt *DefaultHeadersTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", fmt.Sprintf("Bearer %s", adt.AccessToken))
	return adt.T.RoundTrip(r)
}

// PSUHeaders identify the end user on calls made on their behalf.
type PSUHeaders struct {
	IPAddress string
	UserAgent string
}

func (p PSUHeaders) apply(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("psu-ip-address", p.IPAddress)
	h.Set("psu-user-agent", p.UserAgent)
}

// Response is an API reply kept as raw text. The status code is recorded but
// never checked: callers print the body and decode it as it is.
type Response struct {
	StatusCode int
	Body       string
}

func (r *Response) Decode(out any) error {
	if err := json.Unmarshal([]byte(r.Body), out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", r.StatusCode, err)
	}
	return nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client authenticated with the given bearer token. A zero
// timeout means requests wait for the server indefinitely.
func NewClient(baseURL string, accessToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &DefaultHeadersTransport{
			AccessToken: accessToken,
			T:           http.DefaultTransport,
		},
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) DoReq(ctx context.Context, method string, path string, psu *PSUHeaders, payload any) (*Response, error) {
	var body io.Reader
	if payload != nil {
		jsonStr, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(jsonStr)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if psu != nil {
		psu.apply(req.Header)
	}

	slog.Debug("api request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	slog.Debug("api response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(b))
	return &Response{StatusCode: resp.StatusCode, Body: string(b)}, nil
}

func (c *Client) GetApplication(ctx context.Context) (*Response, error) {
	return c.DoReq(ctx, http.MethodGet, "/application", nil, nil)
}

func (c *Client) GetASPSPs(ctx context.Context) (*Response, error) {
	return c.DoReq(ctx, http.MethodGet, "/aspsps", nil, nil)
}

func (c *Client) StartAuthorization(ctx context.Context, psu PSUHeaders, body StartAuthorizationRequest) (*Response, error) {
	return c.DoReq(ctx, http.MethodPost, "/auth", &psu, body)
}

func (c *Client) CreateSession(ctx context.Context, psu PSUHeaders, body CreateSessionRequest) (*Response, error) {
	return c.DoReq(ctx, http.MethodPost, "/sessions", &psu, body)
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*Response, error) {
	return c.DoReq(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, nil)
}

func (c *Client) GetAccountBalances(ctx context.Context, psu PSUHeaders, accountID string) (*Response, error) {
	path := fmt.Sprintf("/accounts/%s/balances", url.PathEscape(accountID))
	return c.DoReq(ctx, http.MethodGet, path, &psu, nil)
}

func (c *Client) GetAccountTransactions(ctx context.Context, psu PSUHeaders, accountID string) (*Response, error) {
	path := fmt.Sprintf("/accounts/%s/transactions", url.PathEscape(accountID))
	return c.DoReq(ctx, http.MethodGet, path, &psu, nil)
}
