package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// DailyWithdrawalLimit is the maximum a client may withdraw per game day.
var DailyWithdrawalLimit = decimal.NewFromInt(500)

// ClientAccount is a bank client as reported by the backend.
type ClientAccount struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	CheckingBalance  decimal.Decimal `json:"checkingBalance"`
	SavingsBalance   decimal.Decimal `json:"savingsBalance"`
	DailyWithdrawn   decimal.Decimal `json:"dailyWithdrawn"`
	MonthlyIncome    decimal.Decimal `json:"monthlyIncome"`
	MonthlyMandatory decimal.Decimal `json:"monthlyMandatory"`
	EmploymentStatus string          `json:"employmentStatus"`
	Bankrupt         bool            `json:"bankrupt"`
	GameDay          *float64        `json:"gameDay,omitempty"`
}

// RemainingDailyWithdrawal is how much more the client may withdraw today.
func (c ClientAccount) RemainingDailyWithdrawal() decimal.Decimal {
	return MaxZero(DailyWithdrawalLimit.Sub(c.DailyWithdrawn))
}

// FindClient returns the client with the given id.
func FindClient(clients []ClientAccount, id int64) (ClientAccount, bool) {
	for _, c := range clients {
		if c.ID == id {
			return c, true
		}
	}
	return ClientAccount{}, false
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
