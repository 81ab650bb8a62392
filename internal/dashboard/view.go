// Package dashboard assembles the bank dashboard from cached backend reads.
package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/cache"
	"github.com/vadiminshakov/banksim/internal/services/clock"
)

const placeholder = "--"

// Totals are the dashboard aggregates. Amounts are formatted strings so
// web and terminal consumers never round them differently.
type Totals struct {
	TotalClientFunds       string `json:"total_client_funds"`
	CombinedLiquidCash     string `json:"combined_liquid_cash"`
	BankLiquidCash         string `json:"bank_liquid_cash"`
	AvailablePropertyValue string `json:"available_property_value"`
	InvestedSp500          string `json:"invested_sp500"`
	TotalAssets            string `json:"total_assets"`
	MortgageRate           string `json:"mortgage_rate"`
}

// ClientRow is one client line.
type ClientRow struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Checking            string `json:"checking"`
	Savings             string `json:"savings"`
	RemainingWithdrawal string `json:"remaining_withdrawal"`
	Bankrupt            bool   `json:"bankrupt"`
}

// LoanRow is one loan application line.
type LoanRow struct {
	ID             int64  `json:"id"`
	ClientID       int64  `json:"client_id"`
	Amount         string `json:"amount"`
	TermYears      int    `json:"term_years"`
	MonthlyPayment string `json:"monthly_payment"`
	Status         string `json:"status"`
}

// MortgageRow is one mortgage line.
type MortgageRow struct {
	ID                 int64  `json:"id"`
	ClientID           int64  `json:"client_id"`
	ProductID          int64  `json:"product_id"`
	PropertyPrice      string `json:"property_price"`
	DownPayment        string `json:"down_payment"`
	DownPaymentPercent string `json:"down_payment_percent"`
	MonthlyPayment     string `json:"monthly_payment"`
	Equity             string `json:"equity"`
	RemainingTerm      string `json:"remaining_term"`
	Status             string `json:"status"`
	CanSell            bool   `json:"can_sell"`
}

// Investments summarizes the bank's S&P 500 report.
type Investments struct {
	Price                string `json:"price"`
	NextDividend         string `json:"next_dividend"`
	NextGrowth           string `json:"next_growth"`
	RepaymentIncome      string `json:"repayment_income"`
	RepaymentIncomeMonth string `json:"repayment_income_month"`
}

// TransactionRow is one ledger line of the selected client.
type TransactionRow struct {
	Date   string `json:"date"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// ClientDetail is the selected client's ledger and holdings.
type ClientDetail struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	AsOf       string           `json:"as_of"`
	Month      string           `json:"month"`
	Income     string           `json:"income"`
	Spending   string           `json:"spending"`
	Net        string           `json:"net"`
	Recent     []TransactionRow `json:"recent"`
	Properties []string         `json:"properties"`
}

// View is everything the dashboard shows at one instant.
type View struct {
	Slot      int           `json:"slot"`
	BuiltAt   time.Time     `json:"built_at"`
	Clock     clock.Reading `json:"clock"`
	Totals    Totals        `json:"totals"`
	Clients   []ClientRow   `json:"clients"`
	Loans     []LoanRow     `json:"loans"`
	Mortgages []MortgageRow `json:"mortgages"`
	// Investments is nil until the first investment report arrives.
	Investments *Investments  `json:"investments,omitempty"`
	Client      *ClientDetail `json:"client,omitempty"`
	// UpdatedAt is when the oldest core input was fetched.
	UpdatedAt time.Time `json:"updated_at"`
	// Stale is set when any input is missing, invalidated or older than the TTL.
	Stale bool `json:"stale"`
}

const recentTransactions = 5

// Builder derives views from the cache.
type Builder struct {
	store    *cache.Store
	agg      domain.Aggregator
	slot     int
	clientID int64
	ttl      time.Duration
	now      func() time.Time
}

// NewBuilder creates a builder for one slot. ttl bounds how old an input may
// be before the view is marked stale; zero disables the age check.
func NewBuilder(store *cache.Store, agg domain.Aggregator, slot int, ttl time.Duration) *Builder {
	return &Builder{store: store, agg: agg, slot: slot, ttl: ttl, now: time.Now}
}

// ForClient adds the given client's ledger and holdings to every view.
// Zero leaves the client panel out.
func (b *Builder) ForClient(id int64) *Builder {
	b.clientID = id
	return b
}

// Slot is the slot the builder reads.
func (b *Builder) Slot() int {
	return b.slot
}

// Mortgage looks up a cached mortgage and its applicant.
func (b *Builder) Mortgage(id int64) (domain.MortgageApplication, domain.ClientAccount, error) {
	clients, _ := cache.Get[[]domain.ClientAccount](b.store, cache.ClientsKey(b.slot))
	mortgages, _ := cache.Get[[]domain.MortgageApplication](b.store, cache.MortgagesKey(b.slot))
	return domain.MortgageWithClient(mortgages, clients, id)
}

// Bank returns the cached snapshot of the builder's slot.
func (b *Builder) Bank() *domain.BankSnapshot {
	bank, _ := cache.Get[*domain.BankSnapshot](b.store, cache.BankKey(b.slot))
	return bank
}

// Build computes a view from the current cache contents in one pass.
func (b *Builder) Build() View {
	now := b.now()

	bank := b.Bank()
	clients, _ := cache.Get[[]domain.ClientAccount](b.store, cache.ClientsKey(b.slot))
	products, _ := cache.Get[[]domain.PropertyProduct](b.store, cache.ProductsKey(b.slot))
	loans, _ := cache.Get[[]domain.LoanApplication](b.store, cache.LoansKey(b.slot))
	mortgages, _ := cache.Get[[]domain.MortgageApplication](b.store, cache.MortgagesKey(b.slot))

	v := View{
		Slot:    b.slot,
		BuiltAt: now,
		Clock:   clock.Project(bank, now),
		Totals:  b.totals(bank, clients, products),
	}

	for _, key := range []cache.Key{cache.BankKey(b.slot), cache.ClientsKey(b.slot), cache.ProductsKey(b.slot)} {
		if !b.store.Fresh(key, b.ttl) {
			v.Stale = true
		}
		if at, ok := b.store.FetchedAt(key); ok && (v.UpdatedAt.IsZero() || at.Before(v.UpdatedAt)) {
			v.UpdatedAt = at
		}
	}

	if inv, ok := cache.Get[domain.InvestmentState](b.store, cache.InvestmentsKey(b.slot)); ok {
		v.Investments = &Investments{
			Price:                domain.FormatMoney(inv.Sp500Price),
			NextDividend:         domain.GameDateString(float64(inv.NextDividendDay)),
			NextGrowth:           domain.GameDateString(float64(inv.NextGrowthDay)),
			RepaymentIncome:      domain.FormatMoney(inv.RepaymentIncomeTotal),
			RepaymentIncomeMonth: domain.FormatMoney(inv.RepaymentIncomeCurrentMonth),
		}
	}

	if b.clientID != 0 {
		v.Client = b.clientDetail(bank, clients)
	}

	for _, c := range clients {
		v.Clients = append(v.Clients, ClientRow{
			ID:                  c.ID,
			Name:                c.Name,
			Checking:            domain.FormatMoney(c.CheckingBalance),
			Savings:             domain.FormatMoney(c.SavingsBalance),
			RemainingWithdrawal: domain.FormatMoney(c.RemainingDailyWithdrawal()),
			Bankrupt:            c.Bankrupt,
		})
	}
	sort.Slice(v.Clients, func(i, j int) bool { return v.Clients[i].ID < v.Clients[j].ID })

	for _, l := range loans {
		v.Loans = append(v.Loans, LoanRow{
			ID:             l.ID,
			ClientID:       l.ClientID,
			Amount:         domain.FormatMoney(l.Amount),
			TermYears:      l.TermYears,
			MonthlyPayment: optionalMoney(l.MonthlyPayment()),
			Status:         string(l.Status),
		})
	}

	for _, m := range mortgages {
		v.Mortgages = append(v.Mortgages, b.mortgageRow(m, products))
	}

	return v
}

func (b *Builder) clientDetail(bank *domain.BankSnapshot, clients []domain.ClientAccount) *ClientDetail {
	client, ok := domain.FindClient(clients, b.clientID)
	if !ok {
		return nil
	}

	detail := &ClientDetail{
		ID:       client.ID,
		Name:     client.Name,
		AsOf:     domain.GameDateStringPtr(client.GameDay),
		Month:    placeholder,
		Income:   placeholder,
		Spending: placeholder,
		Net:      placeholder,
	}

	txs, _ := cache.Get[[]domain.Transaction](b.store, cache.TransactionsKey(b.slot, client.ID))
	if bank != nil {
		if year, month, ok := domain.GameYearMonth(bank.GameDay); ok {
			if cf, err := domain.CashflowFromLedger(txs, year, month); err == nil {
				detail.Month = cf.Label()
				detail.Income = domain.FormatMoney(cf.Income)
				detail.Spending = domain.FormatMoney(cf.Spending)
				detail.Net = domain.FormatMoney(cf.Net)
			}
		}
	}

	recent := domain.LedgerFilter{Order: domain.Descending}.Apply(txs)
	for _, tx := range recent[:min(len(recent), recentTransactions)] {
		detail.Recent = append(detail.Recent, TransactionRow{
			Date:   domain.GameDateString(tx.GameDay),
			Label:  tx.Type.Label(),
			Amount: domain.FormatMoney(tx.SignedAmount()),
		})
	}

	owned, _ := cache.Get[[]domain.PropertyProduct](b.store, cache.PropertiesKey(b.slot, client.ID))
	for _, p := range owned {
		detail.Properties = append(detail.Properties, p.Name+" ("+domain.FormatMoney(p.Price)+")")
	}

	return detail
}

func (b *Builder) totals(bank *domain.BankSnapshot, clients []domain.ClientAccount, products []domain.PropertyProduct) Totals {
	if bank == nil {
		return Totals{
			TotalClientFunds:       placeholder,
			CombinedLiquidCash:     placeholder,
			BankLiquidCash:         placeholder,
			AvailablePropertyValue: placeholder,
			InvestedSp500:          placeholder,
			TotalAssets:            placeholder,
			MortgageRate:           placeholder,
		}
	}

	sum := b.agg.Summarize(bank, clients, products)
	return Totals{
		TotalClientFunds:       domain.FormatMoney(sum.TotalClientFunds),
		CombinedLiquidCash:     domain.FormatMoney(sum.CombinedLiquidCash),
		BankLiquidCash:         domain.FormatMoney(bank.LiquidCash),
		AvailablePropertyValue: domain.FormatMoney(sum.AvailablePropertyValue),
		InvestedSp500:          domain.FormatMoney(sum.InvestedSp500),
		TotalAssets:            domain.FormatMoney(sum.TotalAssets),
		MortgageRate:           formatRate(bank.Rate()),
	}
}

func (b *Builder) mortgageRow(m domain.MortgageApplication, products []domain.PropertyProduct) MortgageRow {
	row := MortgageRow{
		ID:                 m.ID,
		ClientID:           m.ClientID,
		ProductID:          m.ProductID,
		PropertyPrice:      domain.FormatMoney(m.PropertyPrice),
		DownPayment:        domain.FormatMoney(m.DownPayment),
		DownPaymentPercent: placeholder,
		MonthlyPayment:     optionalMoney(m.ScheduledPayment()),
		Status:             string(m.Status),
	}

	if pct, ok := b.agg.DownPaymentPercent(m); ok {
		row.DownPaymentPercent = domain.FormatMoney(pct) + "%"
	}

	if m.Status == domain.StatusAccepted {
		row.Equity = domain.FormatMoney(m.EquityPercent()) + "%"
		row.RemainingTerm = m.RemainingTermLabel()
		for _, p := range products {
			if p.ID == m.ProductID {
				row.CanSell = domain.CanSellProperty(p, domain.MortgagesByProduct([]domain.MortgageApplication{m}, m.ClientID))
				break
			}
		}
	}

	return row
}

func optionalMoney(d decimal.Decimal, ok bool) string {
	if !ok {
		return placeholder
	}
	return domain.FormatMoney(d)
}

func formatRate(fraction float64) string {
	return domain.FormatMoney(decimal.NewFromFloat(fraction*100)) + "%"
}
