package domain

import "github.com/shopspring/decimal"

// MonthlyCashflow is one client's income and spending over a game month.
type MonthlyCashflow struct {
	GameMonth           int             `json:"gameMonth"`
	Income              decimal.Decimal `json:"income"`
	Spending            decimal.Decimal `json:"spending"`
	Net                 decimal.Decimal `json:"net"`
	SpendingVsIncomePct float64         `json:"spendingVsIncomePct"`
}

// Label renders the month as "Y{year} M{month}".
func (m MonthlyCashflow) Label() string {
	return GameDateString(float64(m.GameMonth))
}

// CashflowMonth checks a year/month pair and returns its game month index.
func CashflowMonth(year, month int) (int, error) {
	if year < 1 {
		return 0, NewValidationError("Year", "must be at least 1")
	}
	if month < 1 || month > DaysPerYear {
		return 0, NewValidationError("Month", "must be between 1 and 12")
	}
	return GameMonthIndex(year, month), nil
}

// CashflowFromLedger totals the transactions recorded in one game month.
// It mirrors the backend report for ledgers already held in memory.
func CashflowFromLedger(txs []Transaction, year, month int) (MonthlyCashflow, error) {
	index, err := CashflowMonth(year, month)
	if err != nil {
		return MonthlyCashflow{}, err
	}

	var inMonth []Transaction
	for _, tx := range txs {
		y, m, ok := GameYearMonth(tx.GameDay)
		if ok && y == year && m == month {
			inMonth = append(inMonth, tx)
		}
	}

	totals := SumLedger(inMonth)
	out := MonthlyCashflow{
		GameMonth: index,
		Income:    Round2(totals.Credits),
		Spending:  Round2(totals.Debits),
		Net:       Round2(totals.Net()),
	}
	if totals.Credits.IsPositive() {
		out.SpendingVsIncomePct = totals.Debits.DivRound(totals.Credits, 6).Mul(hundred).InexactFloat64()
	}
	return out, nil
}
