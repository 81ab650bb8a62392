package funding

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/banksim/internal/domain"
)

var (
	// ErrWorkflowBusy is returned by Approve while another workflow is in progress.
	ErrWorkflowBusy = errors.New("mortgage funding workflow already in progress")
	// ErrInvalidTransition is returned for an action the current phase does not accept.
	ErrInvalidTransition = errors.New("invalid funding workflow transition")
)

// Phase is the step a funding workflow is in.
type Phase string

const (
	PhaseIdle              Phase = "IDLE"
	PhaseApproving         Phase = "APPROVING"
	PhaseFundingNeeded     Phase = "FUNDING_NEEDED"
	PhaseFundingInProgress Phase = "FUNDING_IN_PROGRESS"
	PhaseFailed            Phase = "FAILED"
)

// Context describes the shortfall that blocked an approval.
// It exists only while the operator decides on funding.
type Context struct {
	Mortgage          domain.MortgageApplication `json:"mortgage"`
	Client            domain.ClientAccount       `json:"client"`
	AvailableFunds    decimal.Decimal            `json:"available_funds"`
	DownPaymentAmount decimal.Decimal            `json:"down_payment_amount"`
	PropertyValue     decimal.Decimal            `json:"property_value"`
	AmountNeeded      decimal.Decimal            `json:"amount_needed"`
	// Funding is the amount requested by the operator, set while the funding call runs.
	Funding decimal.Decimal `json:"funding"`
}

// State is the full workflow state. Only transition produces new states.
type State struct {
	Phase      Phase                      `json:"phase"`
	WorkflowID string                     `json:"workflow_id,omitempty"`
	Slot       int                        `json:"slot,omitempty"`
	Mortgage   domain.MortgageApplication `json:"mortgage"`
	Client     domain.ClientAccount       `json:"client"`
	// Funding is set from the first insufficient-funds rejection until the
	// workflow ends. During a chained re-approval it carries the funds
	// already added so a second shortfall is computed against them.
	Funding *Context `json:"funding,omitempty"`
	// Message is the error text of a failed workflow.
	Message string `json:"message,omitempty"`
}

// Busy reports whether a workflow is running and a new approval must wait.
func (s State) Busy() bool {
	return s.Phase != PhaseIdle && s.Phase != PhaseFailed && s.Phase != ""
}

func (s State) clone() State {
	if s.Funding != nil {
		fc := *s.Funding
		s.Funding = &fc
	}
	return s
}

type eventKind string

const (
	eventApprove           eventKind = "approve"
	eventApproved          eventKind = "approved"
	eventInsufficientFunds eventKind = "insufficient_funds"
	eventApproveFailed     eventKind = "approve_failed"
	eventConfirmFunding    eventKind = "confirm_funding"
	eventFunded            eventKind = "funded"
	eventFundingFailed     eventKind = "funding_failed"
	eventCancel            eventKind = "cancel"
)

type event struct {
	kind       eventKind
	workflowID string
	slot       int
	mortgage   domain.MortgageApplication
	client     domain.ClientAccount
	amount     decimal.Decimal
	err        error
}

// transition is the only place a workflow state changes. It has no side effects.
func transition(s State, e event) (State, error) {
	switch e.kind {
	case eventApprove:
		if s.Busy() {
			return s, ErrWorkflowBusy
		}
		if !e.mortgage.Status.IsPending() {
			return s, domain.NewValidationError("mortgage", "only pending mortgages can be approved")
		}
		return State{
			Phase:      PhaseApproving,
			WorkflowID: e.workflowID,
			Slot:       e.slot,
			Mortgage:   e.mortgage,
			Client:     e.client,
		}, nil

	case eventApproved:
		if s.Phase != PhaseApproving {
			return s, invalid(s, e)
		}
		return State{Phase: PhaseIdle}, nil

	case eventInsufficientFunds:
		if s.Phase != PhaseApproving {
			return s, invalid(s, e)
		}
		available := s.Client.CheckingBalance
		if s.Funding != nil {
			available = s.Funding.AvailableFunds
		}
		next := s.clone()
		next.Phase = PhaseFundingNeeded
		next.Funding = newContext(s.Mortgage, s.Client, available)
		return next, nil

	case eventApproveFailed:
		if s.Phase != PhaseApproving {
			return s, invalid(s, e)
		}
		return failed(s, e.err), nil

	case eventConfirmFunding:
		if s.Phase != PhaseFundingNeeded {
			return s, invalid(s, e)
		}
		if !e.amount.IsPositive() {
			return s, nil
		}
		next := s.clone()
		next.Phase = PhaseFundingInProgress
		next.Funding.Funding = e.amount
		return next, nil

	case eventFunded:
		if s.Phase != PhaseFundingInProgress {
			return s, invalid(s, e)
		}
		next := s.clone()
		next.Phase = PhaseApproving
		next.Funding.AvailableFunds = next.Funding.AvailableFunds.Add(next.Funding.Funding)
		next.Funding.Funding = decimal.Zero
		return next, nil

	case eventFundingFailed:
		if s.Phase != PhaseFundingInProgress {
			return s, invalid(s, e)
		}
		return failed(s, e.err), nil

	case eventCancel:
		if s.Phase != PhaseFundingNeeded && s.Phase != PhaseFailed {
			return s, invalid(s, e)
		}
		return State{Phase: PhaseIdle}, nil
	}

	return s, errors.Errorf("unknown funding event %q", e.kind)
}

func newContext(m domain.MortgageApplication, c domain.ClientAccount, available decimal.Decimal) *Context {
	return &Context{
		Mortgage:          m,
		Client:            c,
		AvailableFunds:    available,
		DownPaymentAmount: m.DownPayment,
		PropertyValue:     m.PropertyPrice,
		AmountNeeded:      domain.MaxZero(domain.Round2(m.DownPayment.Sub(available))),
		Funding:           decimal.Zero,
	}
}

// userMessager is implemented by errors that carry the backend's text.
type userMessager interface {
	UserMessage() string
}

// failureMessage prefers the backend's own message over the wrapped error text.
func failureMessage(err error) string {
	if err == nil {
		return "mortgage approval failed"
	}
	var um userMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return err.Error()
}

func failed(s State, err error) State {
	msg := failureMessage(err)
	return State{
		Phase:      PhaseFailed,
		WorkflowID: s.WorkflowID,
		Slot:       s.Slot,
		Mortgage:   s.Mortgage,
		Client:     s.Client,
		Message:    msg,
	}
}

func invalid(s State, e event) error {
	return errors.Wrapf(ErrInvalidTransition, "%s in phase %s", e.kind, s.Phase)
}
