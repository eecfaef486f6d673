// Package ebclient implements the authenticated client for the
// open-banking aggregator API: authorization, session creation and the
// paginated transaction listing with bounded self-correction.
package ebclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/feederror"
	"fjacquet/bankfeed/internal/identity"
	"fjacquet/bankfeed/internal/models"
)

// Use the centralized logger from config package
var log = config.Logger

// SetLogger allows setting a custom logger
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

const (
	// DefaultBaseURL is the production aggregator endpoint.
	DefaultBaseURL = "https://api.enablebanking.com"

	// DefaultTimeout bounds every individual request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages is the pagination safety ceiling per account fetch.
	DefaultMaxPages = 100

	// SessionValidity is how long a newly created session is usable.
	SessionValidity = 180 * 24 * time.Hour
)

// correctedFromRe pulls the corrected minimum date_from out of an error
// payload, wherever the API nests it.
var correctedFromRe = regexp.MustCompile(`"date_from"\s*:\s*"(\d{4}-\d{2}-\d{2})"`)

// Client talks to the aggregator API. Bank credentials are passed per
// call, so one client serves all configured banks.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxPages   int
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the aggregator endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxPages overrides the pagination safety ceiling.
func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = n }
}

// New creates a Client with the default endpoint, timeout and page ceiling.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxPages:   DefaultMaxPages,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// send performs one authenticated request. Every call signs a fresh
// token for the bank's credentials. Non-2xx responses become an
// *feederror.APIError, or a *feederror.DateRangeError when the payload
// embeds a corrected date_from.
func (c *Client) send(ctx context.Context, method, path string, bank *config.BankConfig, body, out any) error {
	token, err := signToken(bank.AppID, bank.PrivateKey, c.now())
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Warn("Failed to close response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &feederror.APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   string(data),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// AuthResponse is the reply to an authorization start request.
type AuthResponse struct {
	URL string `json:"url"`
}

// StartAuth begins the delegated authorization flow for a bank and
// returns the URL the user must open.
func (c *Client) StartAuth(ctx context.Context, bank *config.BankConfig) (*AuthResponse, error) {
	body := map[string]any{
		"access": map[string]any{
			"valid_until": c.now().Add(SessionValidity).UTC().Format(time.RFC3339),
		},
		"aspsp": map[string]any{
			"name":    bank.Name,
			"country": bank.Country,
		},
		"state":        "auth",
		"redirect_url": bank.RedirectURL,
		"psu_type":     "personal",
	}

	var resp AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth", bank, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionResponse is the reply to a session creation request.
type SessionResponse struct {
	SessionID string                  `json:"session_id"`
	Accounts  []models.SessionAccount `json:"accounts"`
}

// CreateSession exchanges an authorization code for a session.
func (c *Client) CreateSession(ctx context.Context, bank *config.BankConfig, code string) (*SessionResponse, error) {
	var resp SessionResponse
	body := map[string]string{"code": code}
	if err := c.send(ctx, http.MethodPost, "/sessions", bank, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// transactionsResponse is one page of the transaction listing.
type transactionsResponse struct {
	Transactions    []models.RawTransactionRecord `json:"transactions"`
	ContinuationKey string                        `json:"continuation_key"`
}

// FetchTransactions retrieves and normalizes all transactions of one
// account in [dateFrom, dateTo]. When the API rejects the range as too
// far in the past and supplies a corrected minimum date_from, the fetch
// is retried exactly once from the corrected start; a retry that fails
// again propagates its error.
func (c *Client) FetchTransactions(ctx context.Context, bank *config.BankConfig, accountUID, dateFrom, dateTo string) ([]models.Transaction, error) {
	txs, err := c.fetchPages(ctx, bank, accountUID, dateFrom, dateTo)

	var rangeErr *feederror.DateRangeError
	if errors.As(err, &rangeErr) {
		log.WithFields(logrus.Fields{
			"bank":      bank.ID,
			"requested": rangeErr.RequestedFrom,
			"corrected": rangeErr.CorrectedFrom,
		}).Warn("Date range rejected, retrying once with corrected start date")
		return c.fetchPages(ctx, bank, accountUID, rangeErr.CorrectedFrom, dateTo)
	}
	return txs, err
}

// fetchPages walks the cursor-based listing. A page carrying a
// continuation key is always followed, even when it holds zero records:
// the API signals "keep polling" that way and it must not be mistaken
// for end-of-stream.
func (c *Client) fetchPages(ctx context.Context, bank *config.BankConfig, accountUID, dateFrom, dateTo string) ([]models.Transaction, error) {
	var all []models.Transaction
	continuationKey := ""

	for page := 0; ; page++ {
		if page >= c.maxPages {
			log.WithFields(logrus.Fields{
				"bank":     bank.ID,
				"account":  accountUID,
				"maxPages": c.maxPages,
			}).Warn("Pagination ceiling reached, returning accumulated transactions")
			return all, nil
		}

		params := url.Values{}
		params.Set("date_from", dateFrom)
		params.Set("date_to", dateTo)
		if continuationKey != "" {
			params.Set("continuation_key", continuationKey)
		}
		path := fmt.Sprintf("/accounts/%s/transactions?%s", accountUID, params.Encode())

		var resp transactionsResponse
		if err := c.send(ctx, http.MethodGet, path, bank, nil, &resp); err != nil {
			return nil, c.classifyFetchError(err, dateFrom)
		}

		for i := range resp.Transactions {
			tx, err := identity.Normalize(&resp.Transactions[i], bank.ID)
			if err != nil {
				log.WithError(err).WithField("bank", bank.ID).Warn("Dropping invalid transaction record")
				continue
			}
			all = append(all, tx)
		}

		if resp.ContinuationKey == "" {
			return all, nil
		}
		continuationKey = resp.ContinuationKey
	}
}

// classifyFetchError upgrades a 422 response embedding a corrected
// date_from into a DateRangeError. Everything else passes through.
func (c *Client) classifyFetchError(err error, requestedFrom string) error {
	var apiErr *feederror.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		return err
	}
	m := correctedFromRe.FindStringSubmatch(apiErr.Body)
	if m == nil {
		return err
	}
	return &feederror.DateRangeError{
		RequestedFrom: requestedFrom,
		CorrectedFrom: m[1],
		Status:        apiErr.Status,
	}
}
