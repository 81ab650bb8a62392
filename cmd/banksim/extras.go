package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/banksim/internal/domain"
)

func (a *app) savings(ctx context.Context, deposit bool, args []string) error {
	client, err := a.loadClient(ctx)
	if err != nil {
		return err
	}
	amount, err := parseMoney(args, 0)
	if err != nil {
		return err
	}
	if deposit {
		return a.mutations.SavingsDeposit(ctx, a.slot, client, amount)
	}
	return a.mutations.SavingsWithdraw(ctx, a.slot, client, amount)
}

// cashflow reports one game month; without arguments it uses the bank's current month.
func (a *app) cashflow(ctx context.Context, args []string) error {
	clientID, err := a.selectedClient()
	if err != nil {
		return err
	}

	var year, month int
	if len(args) == 0 {
		bank, err := a.bank.GetBank(ctx, a.slot)
		if err != nil {
			return err
		}
		var ok bool
		if year, month, ok = domain.GameYearMonth(bank.GameDay); !ok {
			return errors.New("bank has no valid game day")
		}
	} else {
		if year, err = parseInt(args, 0); err != nil {
			return err
		}
		if month, err = parseInt(args, 1); err != nil {
			return err
		}
	}
	if _, err := domain.CashflowMonth(year, month); err != nil {
		return err
	}

	cf, err := a.bank.MonthlyCashflow(ctx, a.slot, clientID, year, month)
	if err != nil {
		return err
	}
	fmt.Printf("%s  income %s  spending %s  net %s  (%.1f%% of income spent)\n",
		cf.Label(), domain.FormatMoney(cf.Income), domain.FormatMoney(cf.Spending),
		domain.FormatMoney(cf.Net), cf.SpendingVsIncomePct)
	return nil
}

func (a *app) investments(ctx context.Context) error {
	state, err := a.bank.GetInvestments(ctx, a.slot)
	if err != nil {
		return err
	}

	fmt.Printf("liquid cash %s  invested %s  S&P 500 at %s\n",
		domain.FormatMoney(state.LiquidCash), domain.FormatMoney(state.InvestedSp500), domain.FormatMoney(state.Sp500Price))
	fmt.Printf("now %s  next dividend %s  next growth %s\n",
		domain.GameDateString(state.GameDay),
		domain.GameDateString(float64(state.NextDividendDay)),
		domain.GameDateString(float64(state.NextGrowthDay)))

	for _, ev := range state.History {
		fmt.Printf("%-8s %-10s %-8s %12s\n", domain.GameDateString(float64(ev.GameDay)), ev.Type, ev.Asset, domain.FormatMoney(ev.Amount))
	}
	fmt.Printf("repayment income %s (this month %s)\n",
		domain.FormatMoney(state.RepaymentIncomeTotal), domain.FormatMoney(state.RepaymentIncomeCurrentMonth))
	for _, r := range state.RepaymentIncome {
		fmt.Printf("%-8s %-20s %-18s %12s\n", domain.GameDateString(float64(r.GameDay)), r.ClientName, r.Type, domain.FormatMoney(r.Amount))
	}
	return nil
}

func (a *app) trade(ctx context.Context, invest bool, args []string) error {
	amount, err := parseMoney(args, 0)
	if err != nil {
		return err
	}
	bank, err := a.bank.GetBank(ctx, a.slot)
	if err != nil {
		return err
	}

	trade := a.mutations.Divest
	if invest {
		trade = a.mutations.Invest
	}
	state, err := trade(ctx, a.slot, bank.Position(), amount)
	if err != nil {
		return err
	}
	fmt.Printf("liquid cash %s  invested %s\n", domain.FormatMoney(state.LiquidCash), domain.FormatMoney(state.InvestedSp500))
	return nil
}

func (a *app) startSlot(ctx context.Context) error {
	bank, err := a.mutations.StartSlot(ctx, a.slot)
	if err != nil {
		return err
	}
	fmt.Printf("slot %d at %s, liquid cash %s\n", a.slot, domain.GameDateString(bank.GameDay), domain.FormatMoney(bank.LiquidCash))
	return nil
}

func (a *app) createClient(ctx context.Context, args []string) error {
	client, err := a.mutations.CreateClient(ctx, a.slot, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Printf("created client %d %s\n", client.ID, client.Name)
	return nil
}

func (a *app) listProducts(ctx context.Context, args []string) error {
	list := a.bank.ListProducts
	if len(args) > 0 && args[0] == "--all" {
		list = a.bank.ListAllProducts
	}
	products, err := list(ctx, a.slot)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Printf("%4d %-24s %14s %2d rooms %6d sqft  %s\n", p.ID, p.Name, domain.FormatMoney(p.Price), p.Rooms, p.Sqft2, p.Status)
	}
	return nil
}

func (a *app) createProduct(ctx context.Context, args []string) error {
	draft, err := parseProductDraft(args, false)
	if err != nil {
		return err
	}
	p, err := a.mutations.CreateProduct(ctx, a.slot, draft)
	if err != nil {
		return err
	}
	fmt.Printf("listed property %d %s\n", p.ID, p.Name)
	return nil
}

func (a *app) updateProduct(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	draft, err := parseProductDraft(args[1:], true)
	if err != nil {
		return err
	}
	_, err = a.mutations.UpdateProduct(ctx, a.slot, id, draft)
	return err
}

// parseProductDraft reads "<price> <rooms> <sqft> [status] <name...> -- <description...>".
func parseProductDraft(args []string, withStatus bool) (domain.ProductDraft, error) {
	fixed := 3
	if withStatus {
		fixed = 4
	}
	if err := need(args, fixed+1); err != nil {
		return domain.ProductDraft{}, err
	}

	var (
		draft domain.ProductDraft
		err   error
	)
	if draft.Price, err = parseMoney(args, 0); err != nil {
		return draft, err
	}
	if draft.Rooms, err = parseInt(args, 1); err != nil {
		return draft, err
	}
	if draft.Sqft2, err = parseInt(args, 2); err != nil {
		return draft, err
	}
	if withStatus {
		draft.Status = domain.PropertyStatus(strings.ToUpper(args[3]))
	}

	rest := args[fixed:]
	sep := len(rest)
	for i, arg := range rest {
		if arg == "--" {
			sep = i
			break
		}
	}
	draft.Name = strings.Join(rest[:sep], " ")
	if sep < len(rest) {
		draft.Description = strings.Join(rest[sep+1:], " ")
	}
	return draft, nil
}
