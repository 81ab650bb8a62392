package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const monthsPerYear = 12

// MonthlyPayment returns the fixed monthly payment that amortizes principal
// over termYears at annualRate. annualRate may be a fraction or a percentage.
// It returns false when there is nothing to amortize.
func MonthlyPayment(principal decimal.Decimal, termYears int, annualRate float64) (decimal.Decimal, bool) {
	if !principal.IsPositive() || termYears <= 0 {
		return decimal.Zero, false
	}

	months := termYears * monthsPerYear
	monthlyRate := NormalizeRate(annualRate) / monthsPerYear

	if monthlyRate == 0 {
		return principal.Div(decimal.NewFromInt(int64(months))), true
	}

	p, _ := principal.Float64()
	factor := math.Pow(1+monthlyRate, float64(months))
	payment := p * monthlyRate * factor / (factor - 1)
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return decimal.Zero, false
	}

	return decimal.NewFromFloat(payment), true
}

// MortgageQuote is a pre-submission preview of a mortgage.
type MortgageQuote struct {
	LoanAmount         decimal.Decimal
	MonthlyPayment     decimal.Decimal
	HasPayment         bool
	DownPaymentPercent decimal.Decimal
	TotalOfPayments    decimal.Decimal
}

// MortgagePreview computes the figures shown before a mortgage is submitted.
// It uses MonthlyPayment, the same function used to redisplay an accepted
// mortgage, so preview and confirmed figures agree for equal inputs.
func MortgagePreview(price, downPayment decimal.Decimal, termYears int, annualRate float64) MortgageQuote {
	loan := MaxZero(price.Sub(downPayment))
	quote := MortgageQuote{LoanAmount: loan}

	if price.IsPositive() {
		quote.DownPaymentPercent = downPayment.Div(price).Mul(decimal.NewFromInt(100))
	}

	payment, ok := MonthlyPayment(loan, termYears, annualRate)
	if ok {
		quote.MonthlyPayment = payment
		quote.HasPayment = true
		quote.TotalOfPayments = payment.Mul(decimal.NewFromInt(int64(termYears * monthsPerYear)))
	}

	return quote
}
