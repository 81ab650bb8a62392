package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/funding"
	"github.com/vadiminshakov/banksim/internal/setup"
)

const usage = `commands:
  dashboard                           live dashboard (default)
  slots                               list game slots
  login <token> | logout              manage the saved session
  use-client <id>                     select the client for client actions
  ledger [type]                       selected client's transactions
  deposit <amount>                    deposit into checking
  withdraw <amount>                   withdraw from checking
  apply-loan <amount> <years>         apply for a loan
  apply-mortgage <product> <years> <down-payment>
  sell <product>                      sell an owned property
  approve-loan <id> | reject-loan <id>
  approve-mortgage <id> | reject-mortgage <id>
  set-rate <rate>                     set the bank mortgage rate (percent or fraction)
  savings-deposit <amount>            move checking into savings
  savings-withdraw <amount>           move savings into checking
  cashflow [year month]               selected client's income and spending
  investments                         bank S&P 500 position and history
  invest <amount> | divest <amount>   trade S&P 500 with bank liquid cash
  start-slot                          initialize the current slot
  create-client <name...>             open an account for a new client
  products [--all]                    property market (--all includes owned)
  product-create <price> <rooms> <sqft> <name> -- <description...>
  product-update <id> <price> <rooms> <sqft> <status> <name> -- <description...>
  product-delete <id>
  journal [workflow-id]               funding workflow history`

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.runDashboard(ctx)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "dashboard":
		return a.runDashboard(ctx)
	case "slots":
		return a.listSlots(ctx)
	case "login":
		if err := need(rest, 1); err != nil {
			return err
		}
		return a.session.SetToken(rest[0])
	case "logout":
		return a.session.ClearToken()
	case "use-client":
		id, err := parseID(rest, 0)
		if err != nil {
			return err
		}
		return a.session.SetClient(id)
	case "ledger":
		return a.ledger(ctx, rest)
	case "deposit":
		return a.deposit(ctx, rest)
	case "withdraw":
		return a.withdraw(ctx, rest)
	case "apply-loan":
		return a.applyLoan(ctx, rest)
	case "apply-mortgage":
		return a.applyMortgage(ctx, rest)
	case "sell":
		return a.sell(ctx, rest)
	case "approve-loan", "reject-loan":
		return a.decideLoan(ctx, cmd == "approve-loan", rest)
	case "approve-mortgage":
		return a.approveMortgage(ctx, rest)
	case "reject-mortgage":
		return a.rejectMortgage(ctx, rest)
	case "set-rate":
		if err := need(rest, 1); err != nil {
			return err
		}
		rate, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return errors.Wrapf(err, "invalid rate %q", rest[0])
		}
		return a.mutations.SetMortgageRate(ctx, a.slot, rate)
	case "savings-deposit", "savings-withdraw":
		return a.savings(ctx, cmd == "savings-deposit", rest)
	case "cashflow":
		return a.cashflow(ctx, rest)
	case "investments":
		return a.investments(ctx)
	case "invest", "divest":
		return a.trade(ctx, cmd == "invest", rest)
	case "start-slot":
		return a.startSlot(ctx)
	case "create-client":
		return a.createClient(ctx, rest)
	case "products":
		return a.listProducts(ctx, rest)
	case "product-create":
		return a.createProduct(ctx, rest)
	case "product-update":
		return a.updateProduct(ctx, rest)
	case "product-delete":
		id, err := parseID(rest, 0)
		if err != nil {
			return err
		}
		return a.mutations.DeleteProduct(ctx, a.slot, id)
	case "journal":
		return a.showJournal(rest)
	case "help":
		fmt.Println(usage)
		return nil
	}

	return errors.Errorf("unknown command %q\n%s", cmd, usage)
}

func (a *app) listSlots(ctx context.Context) error {
	slots, err := a.bank.ListSlots(ctx)
	if err != nil {
		return err
	}
	for _, s := range slots {
		marker := " "
		if s.SlotID == a.slot {
			marker = "*"
		}
		fmt.Printf("%s slot %d  %s\n", marker, s.SlotID, s.Label())
	}
	return nil
}

func (a *app) ledger(ctx context.Context, args []string) error {
	clientID, err := a.selectedClient()
	if err != nil {
		return err
	}
	txs, err := a.bank.ListTransactions(ctx, a.slot, clientID)
	if err != nil {
		return err
	}

	filter := domain.LedgerFilter{Order: domain.Descending}
	if len(args) > 0 {
		filter.Type = domain.TransactionType(strings.ToUpper(args[0]))
	}
	view := filter.Apply(txs)

	for _, tx := range view {
		fmt.Printf("%-8s %-22s %12s\n", domain.GameDateString(tx.GameDay), tx.Type.Label(), domain.FormatMoney(tx.SignedAmount()))
	}
	totals := domain.SumLedger(view)
	fmt.Printf("credits %s  debits %s  net %s\n",
		domain.FormatMoney(totals.Credits), domain.FormatMoney(totals.Debits), domain.FormatMoney(totals.Net()))
	return nil
}

func (a *app) deposit(ctx context.Context, args []string) error {
	clientID, err := a.selectedClient()
	if err != nil {
		return err
	}
	amount, err := parseMoney(args, 0)
	if err != nil {
		return err
	}
	return a.mutations.Deposit(ctx, a.slot, clientID, amount)
}

func (a *app) withdraw(ctx context.Context, args []string) error {
	client, err := a.loadClient(ctx)
	if err != nil {
		return err
	}
	amount, err := parseMoney(args, 0)
	if err != nil {
		return err
	}
	return a.mutations.Withdraw(ctx, a.slot, client, amount)
}

func (a *app) applyLoan(ctx context.Context, args []string) error {
	clientID, err := a.selectedClient()
	if err != nil {
		return err
	}
	amount, err := parseMoney(args, 0)
	if err != nil {
		return err
	}
	term, err := parseInt(args, 1)
	if err != nil {
		return err
	}
	return a.mutations.ApplyLoan(ctx, a.slot, clientID, amount, term)
}

func (a *app) applyMortgage(ctx context.Context, args []string) error {
	clientID, err := a.selectedClient()
	if err != nil {
		return err
	}
	productID, err := parseID(args, 0)
	if err != nil {
		return err
	}
	term, err := parseInt(args, 1)
	if err != nil {
		return err
	}
	down, err := parseMoney(args, 2)
	if err != nil {
		return err
	}

	products, err := a.bank.ListProducts(ctx, a.slot)
	if err != nil {
		return err
	}
	product, ok := findProduct(products, productID)
	if !ok {
		return errors.Errorf("property %d not found", productID)
	}

	bank, err := a.bank.GetBank(ctx, a.slot)
	if err != nil {
		return err
	}
	if quote := domain.MortgagePreview(product.Price, down, term, bank.Rate()); quote.HasPayment {
		fmt.Printf("loan %s, estimated monthly payment %s\n",
			domain.FormatMoney(quote.LoanAmount), domain.FormatMoney(quote.MonthlyPayment))
	}

	return a.mutations.ApplyMortgage(ctx, a.slot, clientID, product, term, down)
}

func (a *app) sell(ctx context.Context, args []string) error {
	clientID, err := a.selectedClient()
	if err != nil {
		return err
	}
	productID, err := parseID(args, 0)
	if err != nil {
		return err
	}

	owned, err := a.bank.ListClientProperties(ctx, a.slot, clientID)
	if err != nil {
		return err
	}
	property, ok := findProduct(owned, productID)
	if !ok {
		return errors.Errorf("client %d does not own property %d", clientID, productID)
	}
	mortgages, err := a.bank.ListMortgages(ctx, a.slot)
	if err != nil {
		return err
	}

	return a.mutations.SellProperty(ctx, a.slot, clientID, property, mortgages)
}

func (a *app) decideLoan(ctx context.Context, approve bool, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	loans, err := a.bank.ListLoans(ctx, a.slot)
	if err != nil {
		return err
	}
	for _, l := range loans {
		if l.ID != id {
			continue
		}
		if approve {
			return a.mutations.ApproveLoan(ctx, a.slot, l)
		}
		return a.mutations.RejectLoan(ctx, a.slot, l)
	}
	return errors.Errorf("loan %d not found", id)
}

func (a *app) rejectMortgage(ctx context.Context, args []string) error {
	mortgage, _, err := a.loadMortgage(ctx, args)
	if err != nil {
		return err
	}
	return a.mutations.RejectMortgage(ctx, a.slot, mortgage)
}

// approveMortgage runs the funding workflow, prompting the operator for a
// top-up each time the client cannot cover the down payment.
func (a *app) approveMortgage(ctx context.Context, args []string) error {
	mortgage, client, err := a.loadMortgage(ctx, args)
	if err != nil {
		return err
	}

	st, err := a.funding.Approve(ctx, a.slot, mortgage, client)
	if err != nil {
		return err
	}

	st, err = resolveFunding(ctx, a.funding, st, func(fc funding.Context) (decimal.Decimal, bool, error) {
		return setup.PromptFunding(fc, a.cfg.MaxFunding)
	})
	if err != nil {
		return err
	}

	a.logger.Info("funding workflow finished",
		zap.String("workflow_id", st.WorkflowID),
		zap.String("phase", string(st.Phase)))
	return nil
}

type fundingDriver interface {
	ConfirmFunding(ctx context.Context, amount decimal.Decimal) (funding.State, error)
	Cancel() error
}

type fundingPrompt func(fc funding.Context) (decimal.Decimal, bool, error)

// resolveFunding drives a workflow from FUNDING_NEEDED to its end. A declined
// prompt cancels the workflow.
func resolveFunding(ctx context.Context, wf fundingDriver, st funding.State, prompt fundingPrompt) (funding.State, error) {
	for st.Phase == funding.PhaseFundingNeeded && st.Funding != nil {
		amount, ok, err := prompt(*st.Funding)
		if err != nil {
			return st, err
		}
		if !ok {
			if err := wf.Cancel(); err != nil {
				return st, err
			}
			st.Phase = funding.PhaseIdle
			st.Funding = nil
			return st, nil
		}

		if st, err = wf.ConfirmFunding(ctx, amount); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (a *app) showJournal(args []string) error {
	if len(args) > 0 {
		entries, err := a.journal.Workflow(args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			printEntry(e.Time.Format("15:04:05"), e.From, e.To, e.Event, e.Error)
		}
		return nil
	}

	records, err := a.journal.EntriesAfter(0)
	if err != nil {
		return err
	}
	for _, r := range records {
		printEntry(fmt.Sprintf("#%d %s", r.Index, shortID(r.Entry.WorkflowID)), r.Entry.From, r.Entry.To, r.Entry.Event, r.Entry.Error)
	}
	return nil
}

func printEntry(prefix, from, to, event, errText string) {
	line := fmt.Sprintf("%s  %s -> %s (%s)", prefix, from, to, event)
	if errText != "" {
		line += ": " + errText
	}
	fmt.Println(line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *app) selectedClient() (int64, error) {
	if a.clientID == 0 {
		return 0, errors.New("no client selected, use --client or use-client <id>")
	}
	return a.clientID, nil
}

func (a *app) loadClient(ctx context.Context) (domain.ClientAccount, error) {
	id, err := a.selectedClient()
	if err != nil {
		return domain.ClientAccount{}, err
	}
	accounts, err := a.bank.ListClients(ctx, a.slot)
	if err != nil {
		return domain.ClientAccount{}, err
	}
	client, ok := domain.FindClient(accounts, id)
	if !ok {
		return domain.ClientAccount{}, errors.Errorf("client %d not found in slot %d", id, a.slot)
	}
	return client, nil
}

func (a *app) loadMortgage(ctx context.Context, args []string) (domain.MortgageApplication, domain.ClientAccount, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return domain.MortgageApplication{}, domain.ClientAccount{}, err
	}
	mortgages, err := a.bank.ListMortgages(ctx, a.slot)
	if err != nil {
		return domain.MortgageApplication{}, domain.ClientAccount{}, err
	}
	accounts, err := a.bank.ListClients(ctx, a.slot)
	if err != nil {
		return domain.MortgageApplication{}, domain.ClientAccount{}, err
	}
	return domain.MortgageWithClient(mortgages, accounts, id)
}

func findProduct(products []domain.PropertyProduct, id int64) (domain.PropertyProduct, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.PropertyProduct{}, false
}

func need(args []string, n int) error {
	if len(args) < n {
		return errors.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func parseID(args []string, i int) (int64, error) {
	if err := need(args, i+1); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", args[i])
	}
	return id, nil
}

func parseInt(args []string, i int) (int, error) {
	if err := need(args, i+1); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number %q", args[i])
	}
	return n, nil
}

func parseMoney(args []string, i int) (decimal.Decimal, error) {
	if err := need(args, i+1); err != nil {
		return decimal.Zero, err
	}
	return domain.ParseMoney(args[i])
}
