package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/pkg/retrier"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultRetryInterval  = 200 * time.Millisecond
	defaultRetryMax       = 2 * time.Second
	defaultGetMaxRetries  = 2
	requestFailedFallback = "Request failed"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// BankClient talks to the banking simulator REST backend.
// Reads are retried on transient failures; mutations are sent exactly once.
type BankClient struct {
	baseURL        string
	tokens         TokenSource
	httpClient     *http.Client
	retrier        *retrier.Retrier
	onUnauthorized func()
	now            func() time.Time
	logger         *zap.Logger
}

// Option configures a BankClient.
type Option func(*BankClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *BankClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *BankClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetrier replaces the retrier used for GET requests.
func WithRetrier(r *retrier.Retrier) Option {
	return func(c *BankClient) {
		c.retrier = r
	}
}

// WithUnauthorizedHandler registers fn to run whenever the backend answers 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *BankClient) {
		c.onUnauthorized = fn
	}
}

// WithClock overrides the wall clock used to stamp bank snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *BankClient) {
		c.now = now
	}
}

// NewBankClient creates a client for the backend rooted at baseURL (e.g. http://host/api).
func NewBankClient(baseURL string, tokens TokenSource, logger *zap.Logger, opts ...Option) *BankClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &BankClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
		logger:     logger,
	}

	c.retrier = retrier.New(
		retrier.WithMaxRetries(defaultGetMaxRetries),
		retrier.WithInitialInterval(defaultRetryInterval),
		retrier.WithMaxInterval(defaultRetryMax),
		retrier.WithRetryIf(isTransient),
		retrier.WithOnRetry(func(attempt int, err error) {
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Error(err))
		}),
	)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListSlots returns the save-game slots of the current user.
func (c *BankClient) ListSlots(ctx context.Context) ([]domain.SlotSummary, error) {
	var out []domain.SlotSummary
	if err := c.get(ctx, "/slots", &out); err != nil {
		return nil, errors.Wrap(err, "list slots")
	}
	return out, nil
}

// GetBank returns the bank snapshot of a slot stamped with the local receive time.
func (c *BankClient) GetBank(ctx context.Context, slot int) (*domain.BankSnapshot, error) {
	var out domain.BankSnapshot
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/bank", slot), &out); err != nil {
		return nil, errors.Wrapf(err, "get bank for slot %d", slot)
	}
	out.SlotID = slot
	out.ObservedAt = c.now()
	return &out, nil
}

// ListClients returns all clients of a slot.
func (c *BankClient) ListClients(ctx context.Context, slot int) ([]domain.ClientAccount, error) {
	var out []domain.ClientAccount
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/clients", slot), &out); err != nil {
		return nil, errors.Wrapf(err, "list clients for slot %d", slot)
	}
	return out, nil
}

// ListTransactions returns a client's ledger.
func (c *BankClient) ListTransactions(ctx context.Context, slot int, clientID int64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	path := fmt.Sprintf("/slots/%d/clients/%d/transactions", slot, clientID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, errors.Wrapf(err, "list transactions for client %d", clientID)
	}
	return out, nil
}

// ListClientProperties returns the properties owned by a client.
func (c *BankClient) ListClientProperties(ctx context.Context, slot int, clientID int64) ([]domain.PropertyProduct, error) {
	var out []domain.PropertyProduct
	path := fmt.Sprintf("/slots/%d/clients/%d/properties", slot, clientID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, errors.Wrapf(err, "list properties for client %d", clientID)
	}
	return out, nil
}

// ListProducts returns the property market of a slot.
func (c *BankClient) ListProducts(ctx context.Context, slot int) ([]domain.PropertyProduct, error) {
	var out []domain.PropertyProduct
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/products", slot), &out); err != nil {
		return nil, errors.Wrapf(err, "list products for slot %d", slot)
	}
	return out, nil
}

// ListLoans returns every loan application of a slot.
func (c *BankClient) ListLoans(ctx context.Context, slot int) ([]domain.LoanApplication, error) {
	var out []domain.LoanApplication
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/loans", slot), &out); err != nil {
		return nil, errors.Wrapf(err, "list loans for slot %d", slot)
	}
	return out, nil
}

// ListMortgages returns every mortgage application of a slot.
func (c *BankClient) ListMortgages(ctx context.Context, slot int) ([]domain.MortgageApplication, error) {
	var out []domain.MortgageApplication
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/mortgages", slot), &out); err != nil {
		return nil, errors.Wrapf(err, "list mortgages for slot %d", slot)
	}
	return out, nil
}

type amountRequest struct {
	Amount json.Number `json:"amount"`
}

type loanRequest struct {
	Amount    json.Number `json:"amount"`
	TermYears int         `json:"termYears"`
}

type mortgageRequest struct {
	ProductID   int64       `json:"productId"`
	TermYears   int         `json:"termYears"`
	DownPayment json.Number `json:"downPayment"`
}

type rateRequest struct {
	MortgageRate float64 `json:"mortgageRate"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(domain.FormatMoney(d))
}

// Deposit credits a client's checking account.
func (c *BankClient) Deposit(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/deposit", slot, clientID)
	return errors.Wrap(c.send(ctx, http.MethodPost, path, amountRequest{Amount: money(amount)}), "deposit")
}

// Withdraw debits a client's checking account.
func (c *BankClient) Withdraw(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/withdraw", slot, clientID)
	return errors.Wrap(c.send(ctx, http.MethodPost, path, amountRequest{Amount: money(amount)}), "withdraw")
}

// ApplyLoan submits a loan application for a client.
func (c *BankClient) ApplyLoan(ctx context.Context, slot int, clientID int64, amount decimal.Decimal, termYears int) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/loans", slot, clientID)
	body := loanRequest{Amount: money(amount), TermYears: termYears}
	return errors.Wrap(c.send(ctx, http.MethodPost, path, body), "apply for loan")
}

// ApplyMortgage submits a mortgage application for a listed property.
func (c *BankClient) ApplyMortgage(ctx context.Context, slot int, clientID, productID int64, termYears int, downPayment decimal.Decimal) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/mortgages", slot, clientID)
	body := mortgageRequest{ProductID: productID, TermYears: termYears, DownPayment: money(downPayment)}
	return errors.Wrap(c.send(ctx, http.MethodPost, path, body), "apply for mortgage")
}

// ApproveLoan approves a pending loan.
func (c *BankClient) ApproveLoan(ctx context.Context, slot int, loanID int64) error {
	path := fmt.Sprintf("/slots/%d/loans/%d/approve", slot, loanID)
	return errors.Wrapf(c.send(ctx, http.MethodPost, path, nil), "approve loan %d", loanID)
}

// RejectLoan rejects a pending loan.
func (c *BankClient) RejectLoan(ctx context.Context, slot int, loanID int64) error {
	path := fmt.Sprintf("/slots/%d/loans/%d/reject", slot, loanID)
	return errors.Wrapf(c.send(ctx, http.MethodPost, path, nil), "reject loan %d", loanID)
}

// ApproveMortgage approves a pending mortgage. When the client cannot cover the
// down payment the returned error matches domain.ErrInsufficientFunds.
func (c *BankClient) ApproveMortgage(ctx context.Context, slot int, mortgageID int64) error {
	path := fmt.Sprintf("/slots/%d/mortgages/%d/approve", slot, mortgageID)
	return errors.Wrapf(c.send(ctx, http.MethodPost, path, nil), "approve mortgage %d", mortgageID)
}

// RejectMortgage rejects a pending mortgage.
func (c *BankClient) RejectMortgage(ctx context.Context, slot int, mortgageID int64) error {
	path := fmt.Sprintf("/slots/%d/mortgages/%d/reject", slot, mortgageID)
	return errors.Wrapf(c.send(ctx, http.MethodPost, path, nil), "reject mortgage %d", mortgageID)
}

// FundDownPayment credits a client with down payment funding.
func (c *BankClient) FundDownPayment(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/mortgage-funding", slot, clientID)
	return errors.Wrap(c.send(ctx, http.MethodPost, path, amountRequest{Amount: money(amount)}), "fund down payment")
}

// SellProperty sells a property owned by a client.
func (c *BankClient) SellProperty(ctx context.Context, slot int, clientID, productID int64) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/properties/%d/sell", slot, clientID, productID)
	return errors.Wrapf(c.send(ctx, http.MethodPost, path, nil), "sell property %d", productID)
}

// SetMortgageRate updates the slot's mortgage rate.
func (c *BankClient) SetMortgageRate(ctx context.Context, slot int, rate float64) error {
	path := fmt.Sprintf("/slots/%d/mortgage-rate", slot)
	return errors.Wrap(c.send(ctx, http.MethodPut, path, rateRequest{MortgageRate: rate}), "set mortgage rate")
}

func (c *BankClient) get(ctx context.Context, path string, out any) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

func (c *BankClient) send(ctx context.Context, method, path string, body any) error {
	return c.do(ctx, method, path, body, nil)
}

func (c *BankClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create HTTP request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		c.logger.Debug("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", apiErr.Status),
			zap.String("message", apiErr.Message),
		)
		if apiErr.Status == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal response")
	}

	return nil
}
