package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentEvent is one entry of the bank's S&P 500 history.
type InvestmentEvent struct {
	Type      string          `json:"type"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	GameDay   int             `json:"gameDay"`
	CreatedAt time.Time       `json:"createdAt"`
}

// RepaymentIncome is a loan or mortgage payment the bank received.
type RepaymentIncome struct {
	ClientName string          `json:"clientName"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	GameDay    int             `json:"gameDay"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// InvestmentState is the bank's S&P 500 position together with its history.
type InvestmentState struct {
	LiquidCash                  decimal.Decimal   `json:"liquidCash"`
	InvestedSp500               decimal.Decimal   `json:"investedSp500"`
	Sp500Price                  decimal.Decimal   `json:"sp500Price"`
	NextDividendDay             int               `json:"nextDividendDay"`
	NextGrowthDay               int               `json:"nextGrowthDay"`
	GameDay                     float64           `json:"gameDay"`
	History                     []InvestmentEvent `json:"history"`
	RepaymentIncome             []RepaymentIncome `json:"repaymentIncome"`
	RepaymentIncomeTotal        decimal.Decimal   `json:"repaymentIncomeTotal"`
	RepaymentIncomeCurrentMonth decimal.Decimal   `json:"repaymentIncomeCurrentMonth"`
}

// InvestmentPosition is the part of the bank state that bounds invest and divest.
type InvestmentPosition struct {
	LiquidCash    decimal.Decimal
	InvestedSp500 decimal.Decimal
}

// Position extracts the bounds of a bank snapshot.
func (b *BankSnapshot) Position() InvestmentPosition {
	if b == nil {
		return InvestmentPosition{}
	}
	return InvestmentPosition{LiquidCash: b.LiquidCash, InvestedSp500: b.InvestedSp500}
}

// Position extracts the bounds of an investment state.
func (s InvestmentState) Position() InvestmentPosition {
	return InvestmentPosition{LiquidCash: s.LiquidCash, InvestedSp500: s.InvestedSp500}
}
