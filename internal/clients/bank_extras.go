package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/banksim/internal/domain"
)

type createClientRequest struct {
	Name string `json:"name"`
}

type productRequest struct {
	Name        string                `json:"name"`
	Price       json.Number           `json:"price"`
	Description string                `json:"description"`
	Rooms       int                   `json:"rooms"`
	Sqft2       int                   `json:"sqft2"`
	ImageURL    string                `json:"imageUrl,omitempty"`
	Status      domain.PropertyStatus `json:"status,omitempty"`
}

func newProductRequest(d domain.ProductDraft) productRequest {
	return productRequest{
		Name:        d.Name,
		Price:       money(d.Price),
		Description: d.Description,
		Rooms:       d.Rooms,
		Sqft2:       d.Sqft2,
		ImageURL:    d.ImageURL,
		Status:      d.Status,
	}
}

// StartSlot initializes (or resumes) a slot and returns its bank state.
func (c *BankClient) StartSlot(ctx context.Context, slot int) (*domain.BankSnapshot, error) {
	var out domain.BankSnapshot
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/slots/%d/start", slot), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "start slot %d", slot)
	}
	out.SlotID = slot
	out.ObservedAt = c.now()
	return &out, nil
}

// CreateClient opens an account for a new client.
func (c *BankClient) CreateClient(ctx context.Context, slot int, name string) (domain.ClientAccount, error) {
	var out domain.ClientAccount
	path := fmt.Sprintf("/slots/%d/clients", slot)
	if err := c.do(ctx, http.MethodPost, path, createClientRequest{Name: name}, &out); err != nil {
		return domain.ClientAccount{}, errors.Wrap(err, "create client")
	}
	return out, nil
}

// SavingsDeposit moves money from checking into savings.
func (c *BankClient) SavingsDeposit(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/savings/deposit", slot, clientID)
	return errors.Wrap(c.send(ctx, http.MethodPost, path, amountRequest{Amount: money(amount)}), "savings deposit")
}

// SavingsWithdraw moves money from savings back into checking.
func (c *BankClient) SavingsWithdraw(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	path := fmt.Sprintf("/slots/%d/clients/%d/savings/withdraw", slot, clientID)
	return errors.Wrap(c.send(ctx, http.MethodPost, path, amountRequest{Amount: money(amount)}), "savings withdraw")
}

// MonthlyCashflow returns a client's income and spending for one game month.
func (c *BankClient) MonthlyCashflow(ctx context.Context, slot int, clientID int64, year, month int) (domain.MonthlyCashflow, error) {
	var out domain.MonthlyCashflow
	query := url.Values{}
	query.Set("year", strconv.Itoa(year))
	query.Set("month", strconv.Itoa(month))
	path := fmt.Sprintf("/slots/%d/clients/%d/monthly-cashflow?%s", slot, clientID, query.Encode())
	if err := c.get(ctx, path, &out); err != nil {
		return domain.MonthlyCashflow{}, errors.Wrapf(err, "monthly cashflow for client %d", clientID)
	}
	return out, nil
}

// GetInvestments returns the bank's S&P 500 position and history.
func (c *BankClient) GetInvestments(ctx context.Context, slot int) (domain.InvestmentState, error) {
	var out domain.InvestmentState
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/investments/sp500", slot), &out); err != nil {
		return domain.InvestmentState{}, errors.Wrapf(err, "get investments for slot %d", slot)
	}
	return out, nil
}

// Invest buys S&P 500 with the bank's liquid cash.
func (c *BankClient) Invest(ctx context.Context, slot int, amount decimal.Decimal) (domain.InvestmentState, error) {
	return c.trade(ctx, slot, "invest", amount)
}

// Divest sells S&P 500 back into liquid cash.
func (c *BankClient) Divest(ctx context.Context, slot int, amount decimal.Decimal) (domain.InvestmentState, error) {
	return c.trade(ctx, slot, "divest", amount)
}

func (c *BankClient) trade(ctx context.Context, slot int, action string, amount decimal.Decimal) (domain.InvestmentState, error) {
	var out domain.InvestmentState
	path := fmt.Sprintf("/slots/%d/investments/sp500/%s", slot, action)
	if err := c.do(ctx, http.MethodPost, path, amountRequest{Amount: money(amount)}, &out); err != nil {
		return domain.InvestmentState{}, errors.Wrap(err, action)
	}
	return out, nil
}

// ListAllProducts returns every property of a slot, owned ones included.
func (c *BankClient) ListAllProducts(ctx context.Context, slot int) ([]domain.PropertyProduct, error) {
	var out []domain.PropertyProduct
	if err := c.get(ctx, fmt.Sprintf("/slots/%d/products/all", slot), &out); err != nil {
		return nil, errors.Wrapf(err, "list all products for slot %d", slot)
	}
	return out, nil
}

// CreateProduct lists a new property on the market.
func (c *BankClient) CreateProduct(ctx context.Context, slot int, draft domain.ProductDraft) (domain.PropertyProduct, error) {
	var out domain.PropertyProduct
	req := newProductRequest(draft)
	req.Status = ""
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/slots/%d/products", slot), req, &out); err != nil {
		return domain.PropertyProduct{}, errors.Wrap(err, "create product")
	}
	return out, nil
}

// UpdateProduct replaces a property's details.
func (c *BankClient) UpdateProduct(ctx context.Context, slot int, productID int64, draft domain.ProductDraft) (domain.PropertyProduct, error) {
	var out domain.PropertyProduct
	path := fmt.Sprintf("/slots/%d/products/%d", slot, productID)
	if err := c.do(ctx, http.MethodPut, path, newProductRequest(draft), &out); err != nil {
		return domain.PropertyProduct{}, errors.Wrapf(err, "update product %d", productID)
	}
	return out, nil
}

// DeleteProduct removes a property from the market.
func (c *BankClient) DeleteProduct(ctx context.Context, slot int, productID int64) error {
	path := fmt.Sprintf("/slots/%d/products/%d", slot, productID)
	return errors.Wrapf(c.send(ctx, http.MethodDelete, path, nil), "delete product %d", productID)
}
