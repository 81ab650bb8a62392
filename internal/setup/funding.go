package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/funding"
)

// FundingSummary renders the shortfall that blocked a mortgage approval.
func FundingSummary(fc funding.Context) string {
	return fmt.Sprintf(
		"Mortgage #%d for %s\nProperty value:   %s\nDown payment:     %s\nAvailable funds:  %s\nAmount needed:    %s\n",
		fc.Mortgage.ID,
		fc.Client.Name,
		domain.FormatMoney(fc.PropertyValue),
		domain.FormatMoney(fc.DownPaymentAmount),
		domain.FormatMoney(fc.AvailableFunds),
		lipgloss.NewStyle().Foreground(warning).Bold(true).Render(domain.FormatMoney(fc.AmountNeeded)),
	)
}

// PromptFunding asks the operator whether to top up the client's account so
// the down payment can be covered. It returns the chosen amount, or false
// when the operator declines.
func PromptFunding(fc funding.Context, limit decimal.Decimal) (decimal.Decimal, bool, error) {
	amountStr := domain.FormatMoney(fc.AmountNeeded)
	var confirm bool

	header("DOWN PAYMENT FUNDING")
	fmt.Println(boxStyle.Render(FundingSummary(fc)))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Funding amount").
				Description(fmt.Sprintf("At most %s", domain.FormatMoney(limit))).
				Value(&amountStr).
				Validate(fundingAmountValidator(limit)),
			huh.NewConfirm().
				Title("Fund the down payment and retry approval?").
				Affirmative("Fund").
				Negative("Cancel").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return decimal.Zero, false, err
	}
	if !confirm {
		return decimal.Zero, false, nil
	}

	amount, err := domain.ParseMoney(amountStr)
	if err != nil {
		return decimal.Zero, false, err
	}
	return amount, true, nil
}

func fundingAmountValidator(limit decimal.Decimal) func(string) error {
	return func(s string) error {
		d, err := domain.ParseMoney(s)
		if err != nil {
			return fmt.Errorf("must be a valid amount")
		}
		if !d.IsPositive() {
			return fmt.Errorf("must be greater than zero")
		}
		if d.GreaterThan(limit) {
			return fmt.Errorf("must not exceed %s", domain.FormatMoney(limit))
		}
		return nil
	}
}
