package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ClientFundsPolicy selects which balances count toward total client funds.
type ClientFundsPolicy string

const (
	// FundsChecking counts checking balances only.
	FundsChecking ClientFundsPolicy = "checking"
	// FundsCheckingAndSavings counts checking and savings balances.
	FundsCheckingAndSavings ClientFundsPolicy = "checking_and_savings"
)

// ParseClientFundsPolicy validates a policy name. Empty means the default.
func ParseClientFundsPolicy(s string) (ClientFundsPolicy, error) {
	switch ClientFundsPolicy(s) {
	case "":
		return FundsCheckingAndSavings, nil
	case FundsChecking, FundsCheckingAndSavings:
		return ClientFundsPolicy(s), nil
	}
	return "", errors.Errorf("unknown client funds policy %q", s)
}

// Aggregator derives dashboard totals from fetched collections.
// All methods are pure; nothing is cached between calls.
type Aggregator struct {
	Policy ClientFundsPolicy
}

// NewAggregator creates an Aggregator with the given policy.
func NewAggregator(policy ClientFundsPolicy) Aggregator {
	if policy == "" {
		policy = FundsCheckingAndSavings
	}
	return Aggregator{Policy: policy}
}

// TotalClientFunds sums client balances according to the policy.
func (a Aggregator) TotalClientFunds(clients []ClientAccount) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range clients {
		sum = sum.Add(c.CheckingBalance)
		if a.Policy == FundsCheckingAndSavings {
			sum = sum.Add(c.SavingsBalance)
		}
	}
	return sum
}

// CombinedLiquidCash is the bank's liquid cash plus total client funds.
func (a Aggregator) CombinedLiquidCash(bank *BankSnapshot, clients []ClientAccount) decimal.Decimal {
	return bankLiquid(bank).Add(a.TotalClientFunds(clients))
}

// AvailablePropertyValue sums the prices of properties still listed.
func (a Aggregator) AvailablePropertyValue(products []PropertyProduct) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range products {
		if p.IsListed() {
			sum = sum.Add(p.Price)
		}
	}
	return sum
}

// TotalAssets is listed property value plus the bank's S&P 500 holdings.
func (a Aggregator) TotalAssets(bank *BankSnapshot, products []PropertyProduct) decimal.Decimal {
	invested := decimal.Zero
	if bank != nil {
		invested = bank.InvestedSp500
	}
	return a.AvailablePropertyValue(products).Add(invested)
}

// DownPaymentPercent is downPayment/propertyPrice*100; false when the price is zero.
func (a Aggregator) DownPaymentPercent(m MortgageApplication) (decimal.Decimal, bool) {
	if m.PropertyPrice.IsZero() {
		return decimal.Zero, false
	}
	return m.DownPayment.Div(m.PropertyPrice).Mul(hundred), true
}

// Totals holds every dashboard total computed from one set of inputs.
type Totals struct {
	TotalClientFunds       decimal.Decimal
	CombinedLiquidCash     decimal.Decimal
	AvailablePropertyValue decimal.Decimal
	InvestedSp500          decimal.Decimal
	TotalAssets            decimal.Decimal
}

// Summarize computes all totals together so callers never see a partial set.
func (a Aggregator) Summarize(bank *BankSnapshot, clients []ClientAccount, products []PropertyProduct) Totals {
	clientFunds := a.TotalClientFunds(clients)
	propertyValue := a.AvailablePropertyValue(products)
	invested := decimal.Zero
	if bank != nil {
		invested = bank.InvestedSp500
	}

	return Totals{
		TotalClientFunds:       clientFunds,
		CombinedLiquidCash:     bankLiquid(bank).Add(clientFunds),
		AvailablePropertyValue: propertyValue,
		InvestedSp500:          invested,
		TotalAssets:            propertyValue.Add(invested),
	}
}

func bankLiquid(bank *BankSnapshot) decimal.Decimal {
	if bank == nil {
		return decimal.Zero
	}
	return bank.LiquidCash
}
