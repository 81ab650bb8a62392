package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#F25F5C"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().Foreground(subtle).Width(26)
	valueStyle = lipgloss.NewStyle().Bold(true)
	staleStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(highlight).Padding(0, 1)
)

// Render draws the view for a terminal.
func Render(v View) string {
	var b strings.Builder

	header := titleStyle.Render(fmt.Sprintf("BANKSIM  slot %d", v.Slot))
	clockLine := fmt.Sprintf("%s  next month in %s", v.Clock.Label, countdown(v))
	if !v.UpdatedAt.IsZero() {
		clockLine += "  updated " + v.UpdatedAt.Format("15:04:05")
	}
	if v.Stale {
		clockLine += "  " + staleStyle.Render("(refreshing)")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", clockLine))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("TOTALS"))
	b.WriteString("\n")
	totals := []string{
		line("Bank liquid cash", v.Totals.BankLiquidCash),
		line("Client funds", v.Totals.TotalClientFunds),
		line("Combined liquid cash", v.Totals.CombinedLiquidCash),
		line("Available property value", v.Totals.AvailablePropertyValue),
		line("Invested S&P 500", v.Totals.InvestedSp500),
		line("Total assets", v.Totals.TotalAssets),
		line("Mortgage rate", v.Totals.MortgageRate),
	}
	b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, totals...)))
	b.WriteString("\n")

	if inv := v.Investments; inv != nil {
		b.WriteString(sectionStyle.Render("S&P 500"))
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			line("Price", inv.Price),
			line("Next dividend", inv.NextDividend),
			line("Next growth", inv.NextGrowth),
			line("Repayment income", inv.RepaymentIncome),
			line("Repayments this month", inv.RepaymentIncomeMonth),
		)))
		b.WriteString("\n")
	}

	if c := v.Client; c != nil {
		b.WriteString(sectionStyle.Render(fmt.Sprintf("CLIENT %d %s (as of %s)", c.ID, c.Name, c.AsOf)))
		b.WriteString("\n")
		lines := []string{
			line("Month", c.Month),
			line("Income", c.Income),
			line("Spending", c.Spending),
			line("Net", c.Net),
		}
		for _, p := range c.Properties {
			lines = append(lines, line("Owns", p))
		}
		b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		b.WriteString("\n")
		if len(c.Recent) > 0 {
			rows := make([][]string, 0, len(c.Recent))
			for _, tx := range c.Recent {
				rows = append(rows, []string{tx.Date, tx.Label, tx.Amount})
			}
			b.WriteString(grid([]string{"Date", "Type", "Amount"}, rows))
			b.WriteString("\n")
		}
	}

	if len(v.Clients) > 0 {
		b.WriteString(sectionStyle.Render("CLIENTS"))
		b.WriteString("\n")
		rows := make([][]string, 0, len(v.Clients))
		for _, c := range v.Clients {
			name := c.Name
			if c.Bankrupt {
				name += " (bankrupt)"
			}
			rows = append(rows, []string{strconv.FormatInt(c.ID, 10), name, c.Checking, c.Savings, c.RemainingWithdrawal})
		}
		b.WriteString(grid([]string{"ID", "Name", "Checking", "Savings", "Can withdraw"}, rows))
		b.WriteString("\n")
	}

	if len(v.Loans) > 0 {
		b.WriteString(sectionStyle.Render("LOANS"))
		b.WriteString("\n")
		rows := make([][]string, 0, len(v.Loans))
		for _, l := range v.Loans {
			rows = append(rows, []string{
				strconv.FormatInt(l.ID, 10), strconv.FormatInt(l.ClientID, 10),
				l.Amount, strconv.Itoa(l.TermYears) + "y", l.MonthlyPayment, l.Status,
			})
		}
		b.WriteString(grid([]string{"ID", "Client", "Amount", "Term", "Monthly", "Status"}, rows))
		b.WriteString("\n")
	}

	if len(v.Mortgages) > 0 {
		b.WriteString(sectionStyle.Render("MORTGAGES"))
		b.WriteString("\n")
		rows := make([][]string, 0, len(v.Mortgages))
		for _, m := range v.Mortgages {
			sell := ""
			if m.CanSell {
				sell = "yes"
			}
			rows = append(rows, []string{
				strconv.FormatInt(m.ID, 10), strconv.FormatInt(m.ClientID, 10),
				m.PropertyPrice, m.DownPaymentPercent, m.MonthlyPayment,
				m.Equity, m.RemainingTerm, m.Status, sell,
			})
		}
		b.WriteString(grid([]string{"ID", "Client", "Price", "Down", "Monthly", "Equity", "Left", "Status", "Sellable"}, rows))
		b.WriteString("\n")
	}

	return b.String()
}

func line(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func grid(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(highlight)).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func countdown(v View) string {
	if !v.Clock.Known {
		return placeholder
	}
	return fmt.Sprintf("%ds", v.Clock.SecondsUntilNextMonth)
}
