package mutation

import "fmt"

// Control keys identify the UI control a request was issued from.

func DepositKey(slot int, clientID int64) string {
	return fmt.Sprintf("deposit/%d/%d", slot, clientID)
}

func WithdrawKey(slot int, clientID int64) string {
	return fmt.Sprintf("withdraw/%d/%d", slot, clientID)
}

func ApplyLoanKey(slot int, clientID int64) string {
	return fmt.Sprintf("loan-application/%d/%d", slot, clientID)
}

func ApplyMortgageKey(slot int, clientID int64) string {
	return fmt.Sprintf("mortgage-application/%d/%d", slot, clientID)
}

func LoanDecisionKey(slot int, loanID int64) string {
	return fmt.Sprintf("loan-decision/%d/%d", slot, loanID)
}

func MortgageDecisionKey(slot int, mortgageID int64) string {
	return fmt.Sprintf("mortgage-decision/%d/%d", slot, mortgageID)
}

func SellPropertyKey(slot int, clientID, productID int64) string {
	return fmt.Sprintf("sell-property/%d/%d/%d", slot, clientID, productID)
}

func MortgageRateKey(slot int) string {
	return fmt.Sprintf("mortgage-rate/%d", slot)
}

func StartSlotKey(slot int) string {
	return fmt.Sprintf("start-slot/%d", slot)
}

func CreateClientKey(slot int) string {
	return fmt.Sprintf("create-client/%d", slot)
}

func SavingsKey(slot int, clientID int64) string {
	return fmt.Sprintf("savings/%d/%d", slot, clientID)
}

// InvestmentKey is shared by invest and divest so the two never overlap.
func InvestmentKey(slot int) string {
	return fmt.Sprintf("sp500/%d", slot)
}

func ProductKey(slot int, productID int64) string {
	return fmt.Sprintf("product/%d/%d", slot, productID)
}
