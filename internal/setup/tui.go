package setup

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/banksim/config"
	"github.com/vadiminshakov/banksim/internal/domain"
)

const clearScreen = "\033[H\033[2J"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F87"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)

	boxStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1)
)

// ConfigFile is where the wizard writes its result.
const ConfigFile = "banksim.yaml"

func header(step string) {
	fmt.Print(clearScreen)
	fmt.Println(headerStyle.Render("BANKSIM SETUP"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and returns the path of
// the written config file.
func RunTUI(defaults config.Config) (string, error) {
	var (
		baseURL    = defaults.BaseURL
		slotStr    = strconv.Itoa(max(defaults.Slot, 1))
		token      = defaults.Token
		policy     = string(defaults.FundsPolicy)
		pollStr    = defaults.PollInterval.String()
		webAddr    = defaults.WebAddr
		maxFunding = defaults.MaxFunding.String()
		confirm    bool
	)

	fmt.Print(clearScreen)
	fmt.Println(headerStyle.Render("BANKSIM SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point the dashboard at your bank.\n"))

	fmt.Println(stepStyle.Render("STEP 1: BACKEND"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Description("e.g. http://localhost:8080/api").
				Value(&baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Access token").
				Description("Leave empty to use the saved session").
				Value(&token).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return "", err
	}

	header("STEP 2: GAME")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Game slot").
				Value(&slotStr).
				Validate(validateSlot),
			huh.NewSelect[string]().
				Title("Client funds in totals").
				Options(
					huh.NewOption("Checking and savings", string(domain.FundsCheckingAndSavings)),
					huh.NewOption("Checking only", string(domain.FundsChecking)),
				).
				Value(&policy),
		),
	).Run()
	if err != nil {
		return "", err
	}

	header("STEP 3: RUNTIME")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll interval").
				Description("Duration string (e.g. 5s, 30s)").
				Value(&pollStr).
				Validate(validateInterval),
			huh.NewInput().
				Title("Max down payment top-up").
				Value(&maxFunding).
				Validate(validatePositiveMoney),
			huh.NewInput().
				Title("Web dashboard address").
				Description("Empty disables it (e.g. :8090)").
				Value(&webAddr),
		),
	).Run()
	if err != nil {
		return "", err
	}

	header("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Backend: %s\nSlot: %s\nFunds: %s\nPoll: %s\nWeb: %s\n",
		baseURL, slotStr, policy, pollStr, orDash(webAddr),
	)
	fmt.Println(boxStyle.Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	slot, _ := strconv.Atoi(slotStr)
	poll, _ := time.ParseDuration(pollStr)

	tmp := defaults.Tmp()
	tmp.BaseURL = baseURL
	tmp.Token = token
	tmp.Slot = slot
	tmp.FundsPolicy = policy
	tmp.PollInterval = poll
	tmp.WebAddr = webAddr
	tmp.MaxFunding = maxFunding

	if err := writeConfig(ConfigFile, tmp); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", ConfigFile)))
	time.Sleep(1500 * time.Millisecond)
	return ConfigFile, nil
}

func writeConfig(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	// the file may carry a token
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	return nil
}

func validateSlot(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 {
		return fmt.Errorf("must be 1 or greater")
	}
	return nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < time.Second {
		return fmt.Errorf("must be at least 1s")
	}
	return nil
}

func validatePositiveMoney(s string) error {
	d, err := domain.ParseMoney(s)
	if err != nil {
		return fmt.Errorf("must be a valid amount")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
