package main

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/funding"
)

type fakeDriver struct {
	confirmed []decimal.Decimal
	next      []funding.State
	cancelled bool
	err       error
}

func (f *fakeDriver) ConfirmFunding(_ context.Context, amount decimal.Decimal) (funding.State, error) {
	f.confirmed = append(f.confirmed, amount)
	if f.err != nil {
		return funding.State{Phase: funding.PhaseFailed}, f.err
	}
	st := f.next[0]
	f.next = f.next[1:]
	return st, nil
}

func (f *fakeDriver) Cancel() error {
	f.cancelled = true
	return nil
}

func needed(amount string) funding.State {
	return funding.State{
		Phase:   funding.PhaseFundingNeeded,
		Funding: &funding.Context{AmountNeeded: decimal.RequireFromString(amount)},
	}
}

func acceptNeeded(fc funding.Context) (decimal.Decimal, bool, error) {
	return fc.AmountNeeded, true, nil
}

func TestResolveFunding_IdleIsUntouched(t *testing.T) {
	driver := &fakeDriver{}
	st, err := resolveFunding(context.Background(), driver, funding.State{Phase: funding.PhaseIdle}, acceptNeeded)
	require.NoError(t, err)
	assert.Equal(t, funding.PhaseIdle, st.Phase)
	assert.Empty(t, driver.confirmed)
}

func TestResolveFunding_ChainedShortfalls(t *testing.T) {
	driver := &fakeDriver{next: []funding.State{needed("0.01"), {Phase: funding.PhaseIdle}}}

	st, err := resolveFunding(context.Background(), driver, needed("3000"), acceptNeeded)
	require.NoError(t, err)

	assert.Equal(t, funding.PhaseIdle, st.Phase)
	require.Len(t, driver.confirmed, 2)
	assert.Equal(t, "3000", driver.confirmed[0].String())
	assert.Equal(t, "0.01", driver.confirmed[1].String())
	assert.False(t, driver.cancelled)
}

func TestResolveFunding_Declined(t *testing.T) {
	driver := &fakeDriver{}
	decline := func(funding.Context) (decimal.Decimal, bool, error) { return decimal.Zero, false, nil }

	st, err := resolveFunding(context.Background(), driver, needed("3000"), decline)
	require.NoError(t, err)

	assert.True(t, driver.cancelled)
	assert.Equal(t, funding.PhaseIdle, st.Phase)
	assert.Nil(t, st.Funding)
}

func TestResolveFunding_FundingError(t *testing.T) {
	driver := &fakeDriver{err: errors.New("backend down")}

	st, err := resolveFunding(context.Background(), driver, needed("3000"), acceptNeeded)
	require.Error(t, err)
	assert.Equal(t, funding.PhaseFailed, st.Phase)
}

func TestParseArgs(t *testing.T) {
	id, err := parseID([]string{"42"}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID([]string{"0"}, 0)
	assert.Error(t, err)
	_, err = parseID(nil, 0)
	assert.Error(t, err)

	amount, err := parseMoney([]string{"x", "$1,250.555"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "1250.56", amount.StringFixed(2))

	_, err = parseInt([]string{"ten"}, 0)
	assert.Error(t, err)

	assert.Equal(t, "abcdefgh", shortID("abcdefgh-1234"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestParseProductDraft(t *testing.T) {
	draft, err := parseProductDraft([]string{"$250,000", "3", "900", "Harbor", "Loft", "--", "Top", "floor"}, false)
	require.NoError(t, err)
	assert.Equal(t, "250000.00", draft.Price.StringFixed(2))
	assert.Equal(t, 3, draft.Rooms)
	assert.Equal(t, 900, draft.Sqft2)
	assert.Equal(t, "Harbor Loft", draft.Name)
	assert.Equal(t, "Top floor", draft.Description)
	assert.Empty(t, draft.Status)

	draft, err = parseProductDraft([]string{"100", "1", "40", "owned", "Shed"}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyOwned, draft.Status)
	assert.Equal(t, "Shed", draft.Name)
	assert.Empty(t, draft.Description)

	_, err = parseProductDraft([]string{"100", "1", "40"}, false)
	assert.Error(t, err)
	_, err = parseProductDraft([]string{"100", "many", "40", "Shed"}, false)
	assert.Error(t, err)
}
