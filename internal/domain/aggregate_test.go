package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAggregator_CombinedLiquidCash_RoundingEdge(t *testing.T) {
	bank := &BankSnapshot{LiquidCash: d("1000")}
	clients := []ClientAccount{
		{ID: 1, CheckingBalance: d("100.005")},
		{ID: 2, CheckingBalance: d("250")},
	}

	for _, policy := range []ClientFundsPolicy{FundsChecking, FundsCheckingAndSavings} {
		t.Run(string(policy), func(t *testing.T) {
			agg := NewAggregator(policy)
			assert.Equal(t, "1350.01", FormatMoney(agg.CombinedLiquidCash(bank, clients)))
		})
	}
}

func TestAggregator_TotalClientFunds_Policy(t *testing.T) {
	clients := []ClientAccount{
		{ID: 1, CheckingBalance: d("100"), SavingsBalance: d("50")},
		{ID: 2, CheckingBalance: d("200"), SavingsBalance: d("25.5")},
	}

	assert.Equal(t, "300.00", FormatMoney(NewAggregator(FundsChecking).TotalClientFunds(clients)))
	assert.Equal(t, "375.50", FormatMoney(NewAggregator(FundsCheckingAndSavings).TotalClientFunds(clients)))
	assert.Equal(t, FundsCheckingAndSavings, NewAggregator("").Policy)
}

func TestAggregator_Summarize(t *testing.T) {
	bank := &BankSnapshot{LiquidCash: d("5000"), InvestedSp500: d("12000.50")}
	clients := []ClientAccount{{ID: 1, CheckingBalance: d("1000"), SavingsBalance: d("500")}}
	products := []PropertyProduct{
		{ID: 1, Price: d("150000"), Status: PropertyAvailable},
		{ID: 2, Price: d("90000"), Status: PropertyOwned},
		{ID: 3, Price: d("10000")},
	}

	totals := NewAggregator(FundsChecking).Summarize(bank, clients, products)
	assert.Equal(t, "1000.00", FormatMoney(totals.TotalClientFunds))
	assert.Equal(t, "6000.00", FormatMoney(totals.CombinedLiquidCash))
	assert.Equal(t, "160000.00", FormatMoney(totals.AvailablePropertyValue))
	assert.Equal(t, "172000.50", FormatMoney(totals.TotalAssets))

	agg := NewAggregator(FundsChecking)
	assert.True(t, totals.TotalAssets.Equal(agg.TotalAssets(bank, products)))
	assert.True(t, totals.CombinedLiquidCash.Equal(agg.CombinedLiquidCash(bank, clients)))
}

func TestAggregator_NilBank(t *testing.T) {
	totals := NewAggregator(FundsChecking).Summarize(nil, nil, nil)
	assert.True(t, totals.CombinedLiquidCash.IsZero())
	assert.True(t, totals.TotalAssets.IsZero())
}

func TestAggregator_DownPaymentPercent(t *testing.T) {
	agg := NewAggregator(FundsChecking)

	pct, ok := agg.DownPaymentPercent(MortgageApplication{DownPayment: d("5000"), PropertyPrice: d("50000")})
	require.True(t, ok)
	assert.Equal(t, "10.00", FormatMoney(pct))

	_, ok = agg.DownPaymentPercent(MortgageApplication{DownPayment: d("5000")})
	assert.False(t, ok)
}

func TestParseClientFundsPolicy(t *testing.T) {
	p, err := ParseClientFundsPolicy("checking")
	require.NoError(t, err)
	assert.Equal(t, FundsChecking, p)

	p, err = ParseClientFundsPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FundsCheckingAndSavings, p)

	_, err = ParseClientFundsPolicy("everything")
	require.Error(t, err)
}
