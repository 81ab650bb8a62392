package mutation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/cache"
)

// MaxClientNameLength bounds the name of a new client.
const MaxClientNameLength = 80

// StartSlot initializes a slot, or resumes it if it already has data.
func (s *Service) StartSlot(ctx context.Context, slot int) (*domain.BankSnapshot, error) {
	if slot <= 0 {
		return nil, domain.NewValidationError("Slot", "must be greater than 0")
	}

	var bank *domain.BankSnapshot
	err := s.run(ctx, StartSlotKey(slot), func(ctx context.Context) error {
		var err error
		bank, err = s.backend.StartSlot(ctx, slot)
		return err
	}, cache.SlotsKey(), cache.BankKey(slot))
	return bank, err
}

// CreateClient opens an account with zero balances.
func (s *Service) CreateClient(ctx context.Context, slot int, name string) (domain.ClientAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ClientAccount{}, domain.NewValidationError("Name", "please enter the client's name")
	}
	if utf8.RuneCountInString(name) > MaxClientNameLength {
		return domain.ClientAccount{}, domain.NewValidationError("Name", "must be at most 80 characters")
	}

	var created domain.ClientAccount
	err := s.run(ctx, CreateClientKey(slot), func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreateClient(ctx, slot, name)
		return err
	}, cache.ClientsKey(slot), cache.SlotsKey())
	return created, err
}

type savingsRequest struct {
	ClientID int64           `validate:"gt=0"`
	Amount   decimal.Decimal `validate:"gt=0"`
}

// SavingsDeposit moves money from the client's checking into savings.
func (s *Service) SavingsDeposit(ctx context.Context, slot int, client domain.ClientAccount, amount decimal.Decimal) error {
	req := savingsRequest{ClientID: client.ID, Amount: domain.Round2(amount)}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	if req.Amount.GreaterThan(client.CheckingBalance) {
		return domain.NewValidationError("Amount", "insufficient checking balance")
	}

	return s.run(ctx, SavingsKey(slot, client.ID), func(ctx context.Context) error {
		return s.backend.SavingsDeposit(ctx, slot, client.ID, req.Amount)
	}, cache.ClientKeys(slot, client.ID)...)
}

// SavingsWithdraw moves money from the client's savings back into checking.
// It does not count against the daily withdrawal limit.
func (s *Service) SavingsWithdraw(ctx context.Context, slot int, client domain.ClientAccount, amount decimal.Decimal) error {
	req := savingsRequest{ClientID: client.ID, Amount: domain.Round2(amount)}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	if req.Amount.GreaterThan(client.SavingsBalance) {
		return domain.NewValidationError("Amount", "insufficient savings balance")
	}

	return s.run(ctx, SavingsKey(slot, client.ID), func(ctx context.Context) error {
		return s.backend.SavingsWithdraw(ctx, slot, client.ID, req.Amount)
	}, cache.ClientKeys(slot, client.ID)...)
}

type tradeRequest struct {
	Amount decimal.Decimal `validate:"gt=0"`
}

// Invest buys S&P 500 with at most the bank's liquid cash.
func (s *Service) Invest(ctx context.Context, slot int, pos domain.InvestmentPosition, amount decimal.Decimal) (domain.InvestmentState, error) {
	req := tradeRequest{Amount: domain.Round2(amount)}
	if err := validateRequest(s.validate, req); err != nil {
		return domain.InvestmentState{}, err
	}
	if req.Amount.GreaterThan(pos.LiquidCash) {
		return domain.InvestmentState{}, domain.NewValidationError("Amount", "insufficient liquid cash")
	}

	return s.trade(ctx, slot, func(ctx context.Context) (domain.InvestmentState, error) {
		return s.backend.Invest(ctx, slot, req.Amount)
	})
}

// Divest sells at most the bank's invested S&P 500 position.
func (s *Service) Divest(ctx context.Context, slot int, pos domain.InvestmentPosition, amount decimal.Decimal) (domain.InvestmentState, error) {
	req := tradeRequest{Amount: domain.Round2(amount)}
	if err := validateRequest(s.validate, req); err != nil {
		return domain.InvestmentState{}, err
	}
	if req.Amount.GreaterThan(pos.InvestedSp500) {
		return domain.InvestmentState{}, domain.NewValidationError("Amount", "cannot divest more than invested")
	}

	return s.trade(ctx, slot, func(ctx context.Context) (domain.InvestmentState, error) {
		return s.backend.Divest(ctx, slot, req.Amount)
	})
}

func (s *Service) trade(ctx context.Context, slot int, fn func(ctx context.Context) (domain.InvestmentState, error)) (domain.InvestmentState, error) {
	var state domain.InvestmentState
	err := s.run(ctx, InvestmentKey(slot), func(ctx context.Context) error {
		var err error
		state, err = fn(ctx)
		return err
	}, cache.BankKey(slot), cache.InvestmentsKey(slot))
	return state, err
}

// CreateProduct lists a new property. The draft's status is ignored.
func (s *Service) CreateProduct(ctx context.Context, slot int, draft domain.ProductDraft) (domain.PropertyProduct, error) {
	draft = cleanDraft(draft)
	draft.Status = ""
	if err := validateRequest(s.validate, draft); err != nil {
		return domain.PropertyProduct{}, err
	}

	var created domain.PropertyProduct
	err := s.run(ctx, ProductKey(slot, 0), func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreateProduct(ctx, slot, draft)
		return err
	}, cache.ProductsKey(slot))
	return created, err
}

// UpdateProduct replaces a property's details. An empty status keeps the current one.
func (s *Service) UpdateProduct(ctx context.Context, slot int, productID int64, draft domain.ProductDraft) (domain.PropertyProduct, error) {
	if productID <= 0 {
		return domain.PropertyProduct{}, domain.NewValidationError("ProductID", "must be greater than 0")
	}
	draft = cleanDraft(draft)
	if err := validateRequest(s.validate, draft); err != nil {
		return domain.PropertyProduct{}, err
	}

	var updated domain.PropertyProduct
	err := s.run(ctx, ProductKey(slot, productID), func(ctx context.Context) error {
		var err error
		updated, err = s.backend.UpdateProduct(ctx, slot, productID, draft)
		return err
	}, cache.ProductsKey(slot))
	return updated, err
}

// DeleteProduct removes a property from the market.
func (s *Service) DeleteProduct(ctx context.Context, slot int, productID int64) error {
	if productID <= 0 {
		return domain.NewValidationError("ProductID", "must be greater than 0")
	}

	return s.run(ctx, ProductKey(slot, productID), func(ctx context.Context) error {
		return s.backend.DeleteProduct(ctx, slot, productID)
	}, cache.ProductsKey(slot))
}

func cleanDraft(d domain.ProductDraft) domain.ProductDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	d.Status = domain.PropertyStatus(strings.ToUpper(strings.TrimSpace(string(d.Status))))
	d.Price = domain.Round2(d.Price)
	return d
}
