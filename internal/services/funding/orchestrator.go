package funding

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/events"
	"github.com/vadiminshakov/banksim/internal/services/cache"
	"github.com/vadiminshakov/banksim/internal/storage/journal"
)

// Backend is the part of the REST API the workflow drives.
type Backend interface {
	ApproveMortgage(ctx context.Context, slot int, mortgageID int64) error
	FundDownPayment(ctx context.Context, slot int, clientID int64, amount decimal.Decimal) error
}

// Invalidator forces cached reads to refresh.
type Invalidator interface {
	Invalidate(keys ...cache.Key)
}

// Journal records workflow transitions.
type Journal interface {
	Append(entry journal.Entry) error
}

// Orchestrator runs mortgage approvals that may need a down payment top-up.
// At most one workflow runs at a time; network calls are made without
// holding the state lock so State and Subscribe never block on I/O.
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	backend Backend
	cache   Invalidator
	journal Journal
	out     *events.Broadcaster[State]
	logger  *zap.Logger
}

// NewOrchestrator creates an idle orchestrator. journal may be nil.
func NewOrchestrator(backend Backend, inv Invalidator, j Journal, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		state:   State{Phase: PhaseIdle},
		backend: backend,
		cache:   inv,
		journal: j,
		out:     events.NewBroadcaster[State](16),
		logger:  logger,
	}
}

// State returns a copy of the current workflow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe returns a channel receiving every new state.
func (o *Orchestrator) Subscribe() chan State {
	return o.out.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (o *Orchestrator) Unsubscribe(ch chan State) {
	o.out.Unsubscribe(ch)
}

// Approve starts a workflow for a pending mortgage of client.
//
// On success the state returns to IDLE. When the client cannot cover the down
// payment the state becomes FUNDING_NEEDED and no error is returned; the
// funding context tells the operator how much is missing. Any other backend
// error moves the workflow to FAILED and is returned.
func (o *Orchestrator) Approve(ctx context.Context, slot int, mortgage domain.MortgageApplication, client domain.ClientAccount) (State, error) {
	_, err := o.apply(event{
		kind:       eventApprove,
		workflowID: uuid.NewString(),
		slot:       slot,
		mortgage:   mortgage,
		client:     client,
	})
	if err != nil {
		return o.State(), err
	}

	return o.approve(ctx)
}

// ConfirmFunding credits the client with amount and re-runs the approval.
// A non-positive amount is ignored.
func (o *Orchestrator) ConfirmFunding(ctx context.Context, amount decimal.Decimal) (State, error) {
	amount = domain.Round2(amount)

	st, err := o.apply(event{kind: eventConfirmFunding, amount: amount})
	if err != nil {
		return st, err
	}
	if st.Phase != PhaseFundingInProgress {
		return st, nil
	}

	clientID := st.Funding.Client.ID
	if err := o.backend.FundDownPayment(ctx, st.Slot, clientID, amount); err != nil {
		o.logger.Error("down payment funding failed",
			zap.Int("slot", st.Slot),
			zap.Int64("client_id", clientID),
			zap.String("amount", domain.FormatMoney(amount)),
			zap.Error(err),
		)
		st, _ = o.apply(event{kind: eventFundingFailed, err: err})
		return st, err
	}

	o.cache.Invalidate(cache.ClientKeys(st.Slot, clientID)...)

	if _, err := o.apply(event{kind: eventFunded}); err != nil {
		return o.State(), err
	}

	return o.approve(ctx)
}

// Cancel abandons a pending funding decision or dismisses a failure.
func (o *Orchestrator) Cancel() error {
	_, err := o.apply(event{kind: eventCancel})
	return err
}

func (o *Orchestrator) approve(ctx context.Context) (State, error) {
	st := o.State()

	err := o.backend.ApproveMortgage(ctx, st.Slot, st.Mortgage.ID)
	switch {
	case err == nil:
		o.cache.Invalidate(affectedKeys(st.Slot, st.Client.ID)...)
		o.logger.Info("mortgage approved",
			zap.Int("slot", st.Slot),
			zap.Int64("mortgage_id", st.Mortgage.ID),
			zap.Int64("client_id", st.Client.ID),
		)
		return o.apply(event{kind: eventApproved})

	case errors.Is(err, domain.ErrInsufficientFunds):
		next, applyErr := o.apply(event{kind: eventInsufficientFunds})
		if applyErr != nil {
			return next, applyErr
		}
		o.logger.Info("mortgage approval needs funding",
			zap.Int64("mortgage_id", st.Mortgage.ID),
			zap.String("amount_needed", domain.FormatMoney(next.Funding.AmountNeeded)),
		)
		return next, nil

	default:
		o.logger.Error("mortgage approval failed", zap.Int64("mortgage_id", st.Mortgage.ID), zap.Error(err))
		next, _ := o.apply(event{kind: eventApproveFailed, err: err})
		return next, err
	}
}

// apply runs one transition under the lock, then journals and publishes it.
func (o *Orchestrator) apply(e event) (State, error) {
	o.mu.Lock()
	prev := o.state
	next, err := transition(prev, e)
	if err != nil {
		o.mu.Unlock()
		return prev.clone(), err
	}
	o.state = next
	o.mu.Unlock()

	if next.Phase == prev.Phase && e.kind == eventConfirmFunding {
		// ignored funding amount
		return next.clone(), nil
	}

	o.record(prev, next, e)
	o.out.Publish(next.clone())

	return next.clone(), nil
}

func (o *Orchestrator) record(prev, next State, e event) {
	if o.journal == nil {
		return
	}

	ref := next
	if ref.WorkflowID == "" {
		ref = prev
	}

	entry := journal.Entry{
		WorkflowID: ref.WorkflowID,
		Slot:       ref.Slot,
		MortgageID: ref.Mortgage.ID,
		ClientID:   ref.Client.ID,
		From:       string(prev.Phase),
		To:         string(next.Phase),
		Event:      string(e.kind),
		Error:      next.Message,
	}
	if next.Funding != nil {
		entry.AmountNeeded = domain.FormatMoney(next.Funding.AmountNeeded)
	}

	if err := o.journal.Append(entry); err != nil {
		o.logger.Warn("failed to journal funding transition", zap.String("workflow_id", ref.WorkflowID), zap.Error(err))
	}
}

// affectedKeys lists the reads an approved mortgage can change.
func affectedKeys(slot int, clientID int64) []cache.Key {
	return []cache.Key{
		cache.ClientsKey(slot),
		cache.TransactionsKey(slot, clientID),
		cache.PropertiesKey(slot, clientID),
		cache.MortgagesKey(slot),
		cache.ProductsKey(slot),
		cache.BankKey(slot),
	}
}
