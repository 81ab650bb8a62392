package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCashflowMonth(t *testing.T) {
	index, err := CashflowMonth(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 14, index)

	_, err = CashflowMonth(0, 1)
	assert.True(t, IsValidation(err))
	_, err = CashflowMonth(1, 13)
	assert.True(t, IsValidation(err))
	_, err = CashflowMonth(1, 0)
	assert.True(t, IsValidation(err))
}

func TestCashflowFromLedger(t *testing.T) {
	txs := []Transaction{
		{Type: TransactionPayrollDeposit, Amount: decimal.RequireFromString("400"), GameDay: 14.2},
		{Type: TransactionRentPayment, Amount: decimal.RequireFromString("100"), GameDay: 14.9},
		{Type: TransactionSavingsWithdrawal, Amount: decimal.RequireFromString("50"), GameDay: 14},
		{Type: TransactionDeposit, Amount: decimal.RequireFromString("999"), GameDay: 15},
	}

	cf, err := CashflowFromLedger(txs, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 14, cf.GameMonth)
	assert.Equal(t, "Y2 M3", cf.Label())
	assert.Equal(t, "400.00", FormatMoney(cf.Income))
	assert.Equal(t, "150.00", FormatMoney(cf.Spending))
	assert.Equal(t, "250.00", FormatMoney(cf.Net))
	assert.InDelta(t, 37.5, cf.SpendingVsIncomePct, 1e-9)
}

func TestCashflowFromLedger_NoIncome(t *testing.T) {
	txs := []Transaction{{Type: TransactionWithdrawal, Amount: decimal.RequireFromString("20"), GameDay: 0}}

	cf, err := CashflowFromLedger(txs, 1, 1)
	require.NoError(t, err)
	assert.Zero(t, cf.SpendingVsIncomePct)
	assert.Equal(t, "-20.00", FormatMoney(cf.Net))
}
