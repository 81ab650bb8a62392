package funding

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/services/cache"
	"github.com/vadiminshakov/banksim/internal/storage/journal"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ApproveMortgage(ctx context.Context, slot int, mortgageID int64) error {
	args := m.Called(ctx, slot, mortgageID)
	return args.Error(0)
}

func (m *mockBackend) FundDownPayment(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, slot, clientID, amount)
	return args.Error(0)
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []cache.Key
}

func (r *recordingInvalidator) Invalidate(keys ...cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
}

func (r *recordingInvalidator) seen() []cache.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cache.Key(nil), r.keys...)
}

func decimalEq(v string) interface{} {
	want := decimal.RequireFromString(v)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

var errNoFunds = errors.Wrap(domain.ErrInsufficientFunds, "approve mortgage 9")

func fixture() (domain.MortgageApplication, domain.ClientAccount) {
	mortgage := domain.MortgageApplication{
		ID:            9,
		ClientID:      7,
		ProductID:     3,
		PropertyPrice: decimal.NewFromInt(50000),
		DownPayment:   decimal.NewFromInt(5000),
		LoanAmount:    decimal.NewFromInt(45000),
		TermYears:     10,
		Status:        domain.StatusPending,
	}
	client := domain.ClientAccount{ID: 7, Name: "Ann", CheckingBalance: decimal.NewFromInt(2000)}
	return mortgage, client
}

func TestOrchestrator_FundAndReapprove(t *testing.T) {
	backend := new(mockBackend)
	inv := &recordingInvalidator{}
	o := NewOrchestrator(backend, inv, nil, zap.NewNop())
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(errNoFunds).Once()
	backend.On("FundDownPayment", mock.Anything, 1, int64(7), decimalEq("3000")).Return(nil).Once()
	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(nil).Once()

	st, err := o.Approve(context.Background(), 1, mortgage, client)
	require.NoError(t, err)
	require.Equal(t, PhaseFundingNeeded, st.Phase)
	require.NotNil(t, st.Funding)
	assert.Equal(t, "3000.00", domain.FormatMoney(st.Funding.AmountNeeded))
	assert.Equal(t, "2000.00", domain.FormatMoney(st.Funding.AvailableFunds))
	assert.Equal(t, "5000.00", domain.FormatMoney(st.Funding.DownPaymentAmount))
	assert.Equal(t, "50000.00", domain.FormatMoney(st.Funding.PropertyValue))
	assert.Empty(t, inv.seen(), "nothing changed on the backend yet")

	st, err = o.ConfirmFunding(context.Background(), st.Funding.AmountNeeded)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Funding)
	assert.Equal(t, PhaseIdle, o.State().Phase)

	keys := inv.seen()
	for _, k := range []cache.Key{
		cache.ClientsKey(1), cache.TransactionsKey(1, 7), cache.PropertiesKey(1, 7),
		cache.MortgagesKey(1), cache.ProductsKey(1), cache.BankKey(1),
	} {
		assert.Contains(t, keys, k)
	}

	backend.AssertExpectations(t)
}

func TestOrchestrator_ShortfallAfterFundingAccumulates(t *testing.T) {
	backend := new(mockBackend)
	o := NewOrchestrator(backend, &recordingInvalidator{}, nil, zap.NewNop())
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(errNoFunds).Twice()
	backend.On("FundDownPayment", mock.Anything, 1, int64(7), decimalEq("2999.99")).Return(nil).Once()

	_, err := o.Approve(context.Background(), 1, mortgage, client)
	require.NoError(t, err)

	st, err := o.ConfirmFunding(context.Background(), decimal.RequireFromString("2999.99"))
	require.NoError(t, err)
	require.Equal(t, PhaseFundingNeeded, st.Phase)
	assert.Equal(t, "4999.99", domain.FormatMoney(st.Funding.AvailableFunds))
	assert.Equal(t, "0.01", domain.FormatMoney(st.Funding.AmountNeeded))

	backend.AssertExpectations(t)
}

func TestOrchestrator_ApprovedWithoutFunding(t *testing.T) {
	backend := new(mockBackend)
	inv := &recordingInvalidator{}
	o := NewOrchestrator(backend, inv, nil, zap.NewNop())
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 2, int64(9)).Return(nil).Once()

	st, err := o.Approve(context.Background(), 2, mortgage, client)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Contains(t, inv.seen(), cache.MortgagesKey(2))
}

func TestOrchestrator_OtherErrorFails(t *testing.T) {
	backend := new(mockBackend)
	o := NewOrchestrator(backend, &recordingInvalidator{}, nil, zap.NewNop())
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(errors.New("Client is bankrupt")).Once()

	st, err := o.Approve(context.Background(), 1, mortgage, client)
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "Client is bankrupt", st.Message)
	assert.Nil(t, st.Funding)

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(nil).Once()
	st, err = o.Approve(context.Background(), 1, mortgage, client)
	require.NoError(t, err, "a failed workflow does not block a new one")
	assert.Equal(t, PhaseIdle, st.Phase)

	backend.AssertExpectations(t)
}

func TestOrchestrator_FundingFailure(t *testing.T) {
	backend := new(mockBackend)
	o := NewOrchestrator(backend, &recordingInvalidator{}, nil, zap.NewNop())
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(errNoFunds).Once()
	backend.On("FundDownPayment", mock.Anything, 1, int64(7), mock.Anything).Return(errors.New("funding rejected")).Once()

	_, err := o.Approve(context.Background(), 1, mortgage, client)
	require.NoError(t, err)

	st, err := o.ConfirmFunding(context.Background(), decimal.NewFromInt(3000))
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "funding rejected", st.Message)

	backend.AssertExpectations(t)
}

func TestOrchestrator_CancelAndNoOpFunding(t *testing.T) {
	backend := new(mockBackend)
	o := NewOrchestrator(backend, &recordingInvalidator{}, nil, zap.NewNop())
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(errNoFunds).Once()

	_, err := o.Approve(context.Background(), 1, mortgage, client)
	require.NoError(t, err)

	st, err := o.ConfirmFunding(context.Background(), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, PhaseFundingNeeded, st.Phase)

	_, err = o.Approve(context.Background(), 1, mortgage, client)
	assert.ErrorIs(t, err, ErrWorkflowBusy)

	require.NoError(t, o.Cancel())
	assert.Equal(t, PhaseIdle, o.State().Phase)
	assert.Nil(t, o.State().Funding)

	assert.ErrorIs(t, o.Cancel(), ErrInvalidTransition)
	_, err = o.ConfirmFunding(context.Background(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	backend.AssertNotCalled(t, "FundDownPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_RejectsNonPending(t *testing.T) {
	o := NewOrchestrator(new(mockBackend), &recordingInvalidator{}, nil, zap.NewNop())
	mortgage, client := fixture()
	mortgage.Status = domain.StatusAccepted

	_, err := o.Approve(context.Background(), 1, mortgage, client)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestOrchestrator_JournalAndSubscribe(t *testing.T) {
	store, err := journal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	backend := new(mockBackend)
	o := NewOrchestrator(backend, &recordingInvalidator{}, store, zap.NewNop())
	sub := o.Subscribe()
	defer o.Unsubscribe(sub)
	mortgage, client := fixture()

	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(errNoFunds).Once()
	backend.On("FundDownPayment", mock.Anything, 1, int64(7), mock.Anything).Return(nil).Once()
	backend.On("ApproveMortgage", mock.Anything, 1, int64(9)).Return(nil).Once()

	st, err := o.Approve(context.Background(), 1, mortgage, client)
	require.NoError(t, err)
	workflowID := st.WorkflowID
	require.NotEmpty(t, workflowID)

	_, err = o.ConfirmFunding(context.Background(), decimal.NewFromInt(3000))
	require.NoError(t, err)

	var phases []Phase
	for range 5 {
		phases = append(phases, (<-sub).Phase)
	}
	assert.Equal(t, []Phase{PhaseApproving, PhaseFundingNeeded, PhaseFundingInProgress, PhaseApproving, PhaseIdle}, phases)

	entries, err := store.Workflow(workflowID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "IDLE", entries[0].From)
	assert.Equal(t, "FUNDING_NEEDED", entries[1].To)
	assert.Equal(t, "3000.00", entries[1].AmountNeeded)
	assert.Equal(t, "approved", entries[4].Event)
}

func TestTransition_IsPure(t *testing.T) {
	mortgage, client := fixture()
	s := State{Phase: PhaseApproving, Mortgage: mortgage, Client: client}

	next, err := transition(s, event{kind: eventInsufficientFunds})
	require.NoError(t, err)
	require.NotNil(t, next.Funding)
	assert.Nil(t, s.Funding)

	funding, err := transition(next, event{kind: eventConfirmFunding, amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.True(t, next.Funding.Funding.IsZero())
	assert.Equal(t, "10", funding.Funding.Funding.String())
}
