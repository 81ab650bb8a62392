package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/pkg/retrier"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *BankClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRetrier(retrier.New(
		retrier.WithMaxRetries(2),
		retrier.WithInitialInterval(time.Millisecond),
		retrier.WithRetryIf(isTransient),
	))}, opts...)

	return NewBankClient(srv.URL+"/api/", staticToken("secret"), zap.NewNop(), opts...)
}

func TestBankClient_GetBank(t *testing.T) {
	observed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/slots/2/bank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"gameDay":14.25,"liquidCash":"1000.50","investedSp500":2500,"mortgageRate":4.5}`)
	}, WithClock(func() time.Time { return observed }))

	bank, err := client.GetBank(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, bank.SlotID)
	assert.Equal(t, 14.25, bank.GameDay)
	assert.Equal(t, "1000.50", domain.FormatMoney(bank.LiquidCash))
	assert.Equal(t, "2500.00", domain.FormatMoney(bank.InvestedSp500))
	assert.InDelta(t, 0.045, bank.Rate(), 1e-12)
	assert.Equal(t, observed, bank.ObservedAt)
}

func TestBankClient_NullMortgageRate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"gameDay":1,"liquidCash":0,"investedSp500":0,"mortgageRate":null}`)
	})

	bank, err := client.GetBank(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, bank.MortgageRate)
	assert.Equal(t, 0.0, bank.Rate())
}

func TestBankClient_Unauthorized(t *testing.T) {
	var fired atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithUnauthorizedHandler(func() { fired.Add(1) }))

	_, err := client.ListClients(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, int32(1), fired.Load(), "4xx must not be retried")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Request failed", apiErr.Message)
}

func TestBankClient_InsufficientFunds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/slots/1/mortgages/9/approve", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"Not enough funds to purchase property."}`)
	})

	err := client.ApproveMortgage(context.Background(), 1, 9)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestBankClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "json message", body: `{"message":"Loan term out of range"}`, want: "Loan term out of range"},
		{name: "plain text", body: "  Client is bankrupt \n", want: "Client is bankrupt"},
		{name: "empty body", body: "", want: "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.Deposit(context.Background(), 1, 3, decimal.NewFromInt(10))
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.NotErrorIs(t, err, domain.ErrInsufficientFunds)
		})
	}
}

func TestBankClient_RetriesReadsOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ann","checkingBalance":100}]`)
	})

	clients, err := client.ListClients(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Ann", clients[0].Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBankClient_DoesNotRetryMutations(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.Withdraw(context.Background(), 1, 2, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBankClient_MutationBodies(t *testing.T) {
	type seen struct {
		method string
		path   string
		body   map[string]any
	}
	var (
		mu  sync.Mutex
		got []seen
	)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s := seen{method: r.Method, path: r.URL.Path}
		if r.ContentLength > 0 {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&s.body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()
	require.NoError(t, client.FundDownPayment(ctx, 4, 7, decimal.RequireFromString("3000")))
	require.NoError(t, client.ApplyMortgage(ctx, 4, 7, 12, 25, decimal.RequireFromString("60000.5")))
	require.NoError(t, client.SetMortgageRate(ctx, 4, 0.055))
	require.NoError(t, client.SellProperty(ctx, 4, 7, 12))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 4)
	assert.Equal(t, "/api/slots/4/clients/7/mortgage-funding", got[0].path)
	assert.Equal(t, 3000.0, got[0].body["amount"])
	assert.Equal(t, "/api/slots/4/clients/7/mortgages", got[1].path)
	assert.Equal(t, 60000.5, got[1].body["downPayment"])
	assert.Equal(t, 12.0, got[1].body["productId"])
	assert.Equal(t, 25.0, got[1].body["termYears"])
	assert.Equal(t, http.MethodPut, got[2].method)
	assert.Equal(t, 0.055, got[2].body["mortgageRate"])
	assert.Equal(t, "/api/slots/4/clients/7/properties/12/sell", got[3].path)
	assert.Nil(t, got[3].body)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("connection refused")))
	assert.True(t, isTransient(&APIError{Status: 502}))
	assert.False(t, isTransient(&APIError{Status: 404}))
	assert.False(t, isTransient(errors.Wrap(context.Canceled, "HTTP request failed")))
}
