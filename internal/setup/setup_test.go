package setup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/banksim/config"
	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/funding"
)

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("http://localhost:8080/api"))
	assert.Error(t, validateURL("localhost:8080"))
	assert.Error(t, validateURL("ftp://bank/api"))

	assert.NoError(t, validateSlot("2"))
	assert.Error(t, validateSlot("0"))
	assert.Error(t, validateSlot("two"))

	assert.NoError(t, validateInterval("5s"))
	assert.Error(t, validateInterval("100ms"))
	assert.Error(t, validateInterval("soon"))

	assert.NoError(t, validatePositiveMoney("$1,000.50"))
	assert.Error(t, validatePositiveMoney("0"))
	assert.Error(t, validatePositiveMoney("abc"))
}

func TestFundingAmountValidator(t *testing.T) {
	validate := fundingAmountValidator(decimal.NewFromInt(5000))

	assert.NoError(t, validate("3000.00"))
	assert.NoError(t, validate("5000"))
	assert.Error(t, validate("5000.01"))
	assert.Error(t, validate("0"))
	assert.Error(t, validate("-10"))
	assert.Error(t, validate(""))
}

func TestFundingSummary(t *testing.T) {
	out := FundingSummary(funding.Context{
		Mortgage:          domain.MortgageApplication{ID: 7},
		Client:            domain.ClientAccount{Name: "Ada"},
		AvailableFunds:    decimal.NewFromInt(2000),
		DownPaymentAmount: decimal.NewFromInt(5000),
		PropertyValue:     decimal.NewFromInt(100000),
		AmountNeeded:      decimal.NewFromInt(3000),
	})

	assert.Contains(t, out, "Mortgage #7 for Ada")
	assert.Contains(t, out, "100000.00")
	assert.Contains(t, out, "5000.00")
	assert.Contains(t, out, "2000.00")
	assert.Contains(t, out, "3000.00")
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banksim.yaml")
	tmp := config.ConfigTmp{
		BaseURL:      "http://bank/api",
		Slot:         2,
		FundsPolicy:  string(domain.FundsChecking),
		PollInterval: 10 * time.Second,
		MaxFunding:   "2500",
	}

	require.NoError(t, writeConfig(path, tmp))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back config.ConfigTmp
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, tmp, back)
}
