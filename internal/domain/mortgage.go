package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MortgageApplication is a client's mortgage for a listed property.
type MortgageApplication struct {
	ID             int64             `json:"id"`
	SlotID         int               `json:"slotId"`
	ClientID       int64             `json:"clientId"`
	ProductID      int64             `json:"productId"`
	PropertyPrice  decimal.Decimal   `json:"propertyPrice"`
	DownPayment    decimal.Decimal   `json:"downPayment"`
	LoanAmount     decimal.Decimal   `json:"loanAmount"`
	TermYears      int               `json:"termYears"`
	InterestRate   float64           `json:"interestRate"`
	PaymentsMade   int               `json:"paymentsMade"`
	TotalPaid      decimal.Decimal   `json:"totalPaid"`
	MonthlyPayment decimal.Decimal   `json:"monthlyPayment"`
	NextPaymentDay *int              `json:"nextPaymentDay,omitempty"`
	Status         ApplicationStatus `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// TotalMonths is the full term in months.
func (m MortgageApplication) TotalMonths() int {
	if m.TermYears <= 0 {
		return 0
	}
	return m.TermYears * monthsPerYear
}

// ScheduledPayment recomputes the monthly payment from the stored rate, loan
// amount and term, exactly as the pre-submission preview does.
func (m MortgageApplication) ScheduledPayment() (decimal.Decimal, bool) {
	return MonthlyPayment(m.LoanAmount, m.TermYears, m.InterestRate)
}

// CanSell reports whether the property backing the mortgage may be sold:
// either every scheduled payment was made or the full price has been paid.
func (m MortgageApplication) CanSell() bool {
	total := m.TotalMonths()
	if total > 0 && m.PaymentsMade >= total {
		return true
	}
	return m.PropertyPrice.IsPositive() && m.TotalPaid.GreaterThanOrEqual(m.PropertyPrice)
}

// EquityPercent is totalPaid as a percentage of the property price, capped at 100.
func (m MortgageApplication) EquityPercent() decimal.Decimal {
	if !m.PropertyPrice.IsPositive() {
		return decimal.Zero
	}
	pct := m.TotalPaid.Div(m.PropertyPrice).Mul(hundred)
	return decimal.Min(pct, hundred)
}

// RemainingTerm splits the months still to be paid into years and months.
func (m MortgageApplication) RemainingTerm() (years, months int) {
	paid := m.PaymentsMade
	if paid < 0 {
		paid = 0
	}
	remaining := m.TotalMonths() - paid
	if remaining < 0 {
		remaining = 0
	}
	return remaining / monthsPerYear, remaining % monthsPerYear
}

// RemainingTermLabel renders RemainingTerm as "Y{years} M{months}".
func (m MortgageApplication) RemainingTermLabel() string {
	y, mo := m.RemainingTerm()
	return fmt.Sprintf("Y%d M%d", y, mo)
}

// MortgagesByProduct indexes a client's accepted mortgages by property id.
func MortgagesByProduct(mortgages []MortgageApplication, clientID int64) map[int64]MortgageApplication {
	out := make(map[int64]MortgageApplication)
	for _, m := range mortgages {
		if m.ClientID != clientID || m.Status != StatusAccepted {
			continue
		}
		out[m.ProductID] = m
	}
	return out
}

// CanSellProperty applies the sale rule to an owned property. A property
// without a mortgage is always sellable.
func CanSellProperty(property PropertyProduct, mortgages map[int64]MortgageApplication) bool {
	m, ok := mortgages[property.ID]
	if !ok {
		return true
	}
	if m.PropertyPrice.IsZero() {
		m.PropertyPrice = property.Price
	}
	return m.CanSell()
}

// MortgageWithClient finds a mortgage and the client who applied for it.
// Both must be present; the returned error wraps ErrNotFound otherwise.
func MortgageWithClient(mortgages []MortgageApplication, clients []ClientAccount, id int64) (MortgageApplication, ClientAccount, error) {
	for _, m := range mortgages {
		if m.ID != id {
			continue
		}
		client, ok := FindClient(clients, m.ClientID)
		if !ok {
			return m, ClientAccount{}, errors.Wrapf(ErrNotFound, "client %d of mortgage %d", m.ClientID, id)
		}
		return m, client, nil
	}
	return MortgageApplication{}, ClientAccount{}, errors.Wrapf(ErrNotFound, "mortgage %d", id)
}
