package mutation

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/cache"
)

// Backend is the set of REST writes the service issues.
type Backend interface {
	Deposit(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error
	Withdraw(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error
	ApplyLoan(ctx context.Context, slot int, clientID int64, amount decimal.Decimal, termYears int) error
	ApplyMortgage(ctx context.Context, slot int, clientID, productID int64, termYears int, downPayment decimal.Decimal) error
	ApproveLoan(ctx context.Context, slot int, loanID int64) error
	RejectLoan(ctx context.Context, slot int, loanID int64) error
	RejectMortgage(ctx context.Context, slot int, mortgageID int64) error
	SellProperty(ctx context.Context, slot int, clientID, productID int64) error
	SetMortgageRate(ctx context.Context, slot int, rate float64) error

	StartSlot(ctx context.Context, slot int) (*domain.BankSnapshot, error)
	CreateClient(ctx context.Context, slot int, name string) (domain.ClientAccount, error)
	SavingsDeposit(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error
	SavingsWithdraw(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error
	Invest(ctx context.Context, slot int, amount decimal.Decimal) (domain.InvestmentState, error)
	Divest(ctx context.Context, slot int, amount decimal.Decimal) (domain.InvestmentState, error)
	CreateProduct(ctx context.Context, slot int, draft domain.ProductDraft) (domain.PropertyProduct, error)
	UpdateProduct(ctx context.Context, slot int, productID int64, draft domain.ProductDraft) (domain.PropertyProduct, error)
	DeleteProduct(ctx context.Context, slot int, productID int64) error
}

// Invalidator forces cached reads to refresh.
type Invalidator interface {
	Invalidate(keys ...cache.Key)
}

// Service validates user writes, sends them one at a time per control and
// invalidates every affected read before reporting success.
type Service struct {
	backend  Backend
	cache    Invalidator
	guard    *Guard
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService creates a mutation service.
func NewService(backend Backend, inv Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:  backend,
		cache:    inv,
		guard:    NewGuard(),
		validate: newValidator(),
		logger:   logger,
	}
}

// Busy reports whether the control identified by key has a request outstanding.
func (s *Service) Busy(key string) bool {
	return s.guard.InFlight(key)
}

type depositRequest struct {
	ClientID int64           `validate:"gt=0"`
	Amount   decimal.Decimal `validate:"gt=0,lte=1000000"`
}

// Deposit credits amount to the client's checking account.
func (s *Service) Deposit(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	req := depositRequest{ClientID: clientID, Amount: domain.Round2(amount)}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}

	return s.run(ctx, DepositKey(slot, clientID), func(ctx context.Context) error {
		return s.backend.Deposit(ctx, slot, clientID, req.Amount)
	}, cache.ClientKeys(slot, clientID)...)
}

type withdrawRequest struct {
	ClientID int64           `validate:"gt=0"`
	Amount   decimal.Decimal `validate:"gt=0"`
}

// Withdraw debits amount from the client's checking account. The amount may
// not exceed what is left of the client's daily withdrawal limit.
func (s *Service) Withdraw(ctx context.Context, slot int, client domain.ClientAccount, amount decimal.Decimal) error {
	req := withdrawRequest{ClientID: client.ID, Amount: domain.Round2(amount)}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}

	remaining := client.RemainingDailyWithdrawal()
	if req.Amount.GreaterThan(remaining) {
		return domain.NewValidationError("Amount",
			fmt.Sprintf("exceeds remaining daily withdrawal limit of %s", domain.FormatMoney(remaining)))
	}

	return s.run(ctx, WithdrawKey(slot, client.ID), func(ctx context.Context) error {
		return s.backend.Withdraw(ctx, slot, client.ID, req.Amount)
	}, cache.ClientKeys(slot, client.ID)...)
}

type loanRequest struct {
	ClientID  int64           `validate:"gt=0"`
	Amount    decimal.Decimal `validate:"gt=0"`
	TermYears int             `validate:"min=3,max=15"`
}

// ApplyLoan submits a loan application.
func (s *Service) ApplyLoan(ctx context.Context, slot int, clientID int64, amount decimal.Decimal, termYears int) error {
	req := loanRequest{ClientID: clientID, Amount: domain.Round2(amount), TermYears: termYears}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}

	return s.run(ctx, ApplyLoanKey(slot, clientID), func(ctx context.Context) error {
		return s.backend.ApplyLoan(ctx, slot, clientID, req.Amount, termYears)
	}, cache.LoansKey(slot))
}

type mortgageRequest struct {
	ClientID    int64           `validate:"gt=0"`
	ProductID   int64           `validate:"gt=0"`
	TermYears   int             `validate:"min=5,max=30"`
	DownPayment decimal.Decimal `validate:"gte=0"`
}

// ApplyMortgage submits a mortgage application for a listed property.
func (s *Service) ApplyMortgage(ctx context.Context, slot int, clientID int64, product domain.PropertyProduct, termYears int, downPayment decimal.Decimal) error {
	req := mortgageRequest{ClientID: clientID, ProductID: product.ID, TermYears: termYears, DownPayment: domain.Round2(downPayment)}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	if !product.IsListed() {
		return domain.NewValidationError("ProductID", "property is no longer available")
	}
	if req.DownPayment.GreaterThan(product.Price) {
		return domain.NewValidationError("DownPayment", "must not exceed the property price")
	}

	return s.run(ctx, ApplyMortgageKey(slot, clientID), func(ctx context.Context) error {
		return s.backend.ApplyMortgage(ctx, slot, clientID, product.ID, termYears, req.DownPayment)
	}, cache.MortgagesKey(slot))
}

// ApproveLoan approves a pending loan, disbursing it to the client.
func (s *Service) ApproveLoan(ctx context.Context, slot int, loan domain.LoanApplication) error {
	if !loan.Status.IsPending() {
		return domain.NewValidationError("Status", "only pending loans can be approved")
	}

	keys := append([]cache.Key{cache.LoansKey(slot)}, cache.ClientKeys(slot, loan.ClientID)...)
	return s.run(ctx, LoanDecisionKey(slot, loan.ID), func(ctx context.Context) error {
		return s.backend.ApproveLoan(ctx, slot, loan.ID)
	}, keys...)
}

// RejectLoan rejects a pending loan.
func (s *Service) RejectLoan(ctx context.Context, slot int, loan domain.LoanApplication) error {
	if !loan.Status.IsPending() {
		return domain.NewValidationError("Status", "only pending loans can be rejected")
	}

	return s.run(ctx, LoanDecisionKey(slot, loan.ID), func(ctx context.Context) error {
		return s.backend.RejectLoan(ctx, slot, loan.ID)
	}, cache.LoansKey(slot))
}

// RejectMortgage rejects a pending mortgage. Approval goes through the
// funding workflow instead.
func (s *Service) RejectMortgage(ctx context.Context, slot int, mortgage domain.MortgageApplication) error {
	if !mortgage.Status.IsPending() {
		return domain.NewValidationError("Status", "only pending mortgages can be rejected")
	}

	return s.run(ctx, MortgageDecisionKey(slot, mortgage.ID), func(ctx context.Context) error {
		return s.backend.RejectMortgage(ctx, slot, mortgage.ID)
	}, cache.MortgagesKey(slot))
}

// SellProperty sells a client's property if its mortgage allows it.
func (s *Service) SellProperty(ctx context.Context, slot int, clientID int64, property domain.PropertyProduct, mortgages []domain.MortgageApplication) error {
	if !domain.CanSellProperty(property, domain.MortgagesByProduct(mortgages, clientID)) {
		return domain.NewValidationError("Property", "mortgage must be paid off before selling")
	}

	keys := append(cache.ClientKeys(slot, clientID),
		cache.PropertiesKey(slot, clientID),
		cache.ProductsKey(slot),
		cache.MortgagesKey(slot),
	)
	return s.run(ctx, SellPropertyKey(slot, clientID, property.ID), func(ctx context.Context) error {
		return s.backend.SellProperty(ctx, slot, clientID, property.ID)
	}, keys...)
}

type rateRequest struct {
	Rate float64 `validate:"gte=0,lte=100"`
}

// SetMortgageRate updates the slot's mortgage rate. Both 0.055 and 5.5 mean 5.5%.
func (s *Service) SetMortgageRate(ctx context.Context, slot int, rate float64) error {
	if err := validateRequest(s.validate, rateRequest{Rate: rate}); err != nil {
		return err
	}

	normalized := domain.NormalizeRate(rate)
	return s.run(ctx, MortgageRateKey(slot), func(ctx context.Context) error {
		return s.backend.SetMortgageRate(ctx, slot, normalized)
	}, cache.BankKey(slot))
}

func (s *Service) run(ctx context.Context, control string, fn func(ctx context.Context) error, affected ...cache.Key) error {
	err := s.guard.Do(ctx, control, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		s.cache.Invalidate(affected...)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInFlight) {
			s.logger.Warn("mutation failed", zap.String("control", control), zap.Error(err))
		}
		return err
	}

	s.logger.Info("mutation applied", zap.String("control", control))
	return nil
}
