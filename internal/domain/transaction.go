package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry. Unknown backend values are kept verbatim.
type TransactionType string

const (
	TransactionDeposit                    TransactionType = "DEPOSIT"
	TransactionWithdrawal                 TransactionType = "WITHDRAWAL"
	TransactionLoanDisbursement           TransactionType = "LOAN_DISBURSEMENT"
	TransactionMortgageDownPayment        TransactionType = "MORTGAGE_DOWN_PAYMENT"
	TransactionMortgageDownPaymentFunding TransactionType = "MORTGAGE_DOWN_PAYMENT_FUNDING"
	TransactionMortgagePayment            TransactionType = "MORTGAGE_PAYMENT"
	TransactionRentPayment                TransactionType = "RENT_PAYMENT"
	TransactionPropertySale               TransactionType = "PROPERTY_SALE"
	TransactionPayrollDeposit             TransactionType = "PAYROLL_DEPOSIT"
	TransactionSavingsDeposit             TransactionType = "SAVINGS_DEPOSIT"
	TransactionSavingsWithdrawal          TransactionType = "SAVINGS_WITHDRAWAL"
)

var creditTypes = map[TransactionType]struct{}{
	TransactionDeposit:                    {},
	TransactionLoanDisbursement:           {},
	TransactionMortgageDownPaymentFunding: {},
	TransactionPayrollDeposit:             {},
	TransactionSavingsDeposit:             {},
	TransactionPropertySale:               {},
}

var transactionLabels = map[TransactionType]string{
	TransactionLoanDisbursement:           "Loan Disbursement",
	TransactionMortgageDownPayment:        "Mortgage Down Deposit",
	TransactionMortgageDownPaymentFunding: "Mortgage Down Deposit Funding",
	TransactionMortgagePayment:            "Mortgage Payment",
	TransactionRentPayment:                "Rental Payment",
	TransactionPropertySale:               "Property Sale",
	TransactionPayrollDeposit:             "Payroll Deposit",
	TransactionSavingsDeposit:             "Savings Deposit",
	TransactionSavingsWithdrawal:          "Savings Withdrawal",
}

// IsCredit reports whether money flows into the client's account.
func (t TransactionType) IsCredit() bool {
	_, ok := creditTypes[t]
	return ok
}

// Label returns a human-readable name, e.g. "Mortgage Payment" or "Deposit".
func (t TransactionType) Label() string {
	if label, ok := transactionLabels[t]; ok {
		return label
	}
	s := string(t)
	if s == "" {
		return ""
	}
	return s[:1] + strings.ToLower(s[1:])
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID        int64           `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	GameDay   float64         `json:"gameDay"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SignedAmount is positive for credits and negative for debits.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// SortOrder is the createdAt ordering of a ledger view.
type SortOrder int

const (
	Descending SortOrder = iota
	Ascending
)

// LedgerFilter selects and orders transactions. An empty Type matches all.
type LedgerFilter struct {
	Type  TransactionType
	Order SortOrder
}

// Apply returns a new, filtered and sorted slice; the input is not modified.
func (f LedgerFilter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.Order == Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// LedgerTotals sums credits and debits of a transaction list.
type LedgerTotals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

// Net is credits minus debits.
func (l LedgerTotals) Net() decimal.Decimal {
	return l.Credits.Sub(l.Debits)
}

// SumLedger computes credit and debit totals.
func SumLedger(txs []Transaction) LedgerTotals {
	totals := LedgerTotals{Credits: decimal.Zero, Debits: decimal.Zero}
	for _, tx := range txs {
		if tx.Type.IsCredit() {
			totals.Credits = totals.Credits.Add(tx.Amount)
		} else {
			totals.Debits = totals.Debits.Add(tx.Amount)
		}
	}
	return totals
}

// WithdrawnOnDay sums withdrawals recorded on the given game day.
func WithdrawnOnDay(txs []Transaction, gameDay float64) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Type == TransactionWithdrawal && tx.GameDay == gameDay {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// TransactionTypes lists the distinct types present, sorted.
func TransactionTypes(txs []Transaction) []TransactionType {
	seen := make(map[TransactionType]struct{})
	for _, tx := range txs {
		seen[tx.Type] = struct{}{}
	}
	out := make([]TransactionType, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MonthsByYear groups the game months that have activity by game year.
// Months within a year are sorted ascending.
func MonthsByYear(txs []Transaction) map[int][]int {
	sets := make(map[int]map[int]struct{})
	for _, tx := range txs {
		year, month, ok := GameYearMonth(tx.GameDay)
		if !ok {
			continue
		}
		if sets[year] == nil {
			sets[year] = make(map[int]struct{})
		}
		sets[year][month] = struct{}{}
	}

	out := make(map[int][]int, len(sets))
	for year, months := range sets {
		list := make([]int, 0, len(months))
		for m := range months {
			list = append(list, m)
		}
		sort.Ints(list)
		out[year] = list
	}
	return out
}
