package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStatus is the lifecycle state of a loan or mortgage application.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "PENDING"
	StatusApproved ApplicationStatus = "APPROVED"
	StatusAccepted ApplicationStatus = "ACCEPTED"
	StatusRejected ApplicationStatus = "REJECTED"
)

// IsPending reports whether the application still awaits a decision.
func (s ApplicationStatus) IsPending() bool {
	return s == StatusPending
}

const (
	MinLoanTermYears     = 3
	MaxLoanTermYears     = 15
	MinMortgageTermYears = 5
	MaxMortgageTermYears = 30
)

// LoanApplication is a client's request for an unsecured loan.
type LoanApplication struct {
	ID           int64             `json:"id"`
	SlotID       int               `json:"slotId"`
	ClientID     int64             `json:"clientId"`
	Amount       decimal.Decimal   `json:"amount"`
	TermYears    int               `json:"termYears"`
	InterestRate float64           `json:"interestRate"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// MonthlyPayment is the amortized payment for the loan.
func (l LoanApplication) MonthlyPayment() (decimal.Decimal, bool) {
	return MonthlyPayment(l.Amount, l.TermYears, l.InterestRate)
}

// PendingLoans filters applications awaiting a decision.
func PendingLoans(loans []LoanApplication) []LoanApplication {
	out := make([]LoanApplication, 0, len(loans))
	for _, l := range loans {
		if l.Status.IsPending() {
			out = append(out, l)
		}
	}
	return out
}
