package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion/settlement/internal/domain/shared"
)

// AttemptState is one step of the settlement attempt lifecycle.
type AttemptState string

const (
	StatePending           AttemptState = "PENDING"
	StateNormalized        AttemptState = "NORMALIZED"
	StateAccepted          AttemptState = "ACCEPTED"
	StateAcceptedException AttemptState = "ACCEPTED_EXCEPTION"
	StateRejected          AttemptState = "REJECTED"
	StateCommitting        AttemptState = "COMMITTING"
	StateCommitted         AttemptState = "COMMITTED"
	StateAborted           AttemptState = "ABORTED"
)

var attemptTransitions = map[AttemptState][]AttemptState{
	StatePending:           {StateNormalized, StateRejected},
	StateNormalized:        {StateAccepted, StateAcceptedException, StateRejected},
	StateAccepted:          {StateCommitting},
	StateAcceptedException: {StateCommitting},
	StateCommitting:        {StateCommitted, StateAborted},
}

// Attempt tracks one settlement attempt through its state machine.
// REJECTED and ABORTED are terminal failure states with no durable side
// effects; COMMITTED is terminal success.
type Attempt struct {
	ID        uuid.UUID
	OrderRefs []string
	State     AttemptState
	Reason    string
	StartedAt time.Time
}

// NewAttempt starts an attempt in PENDING for the given order refs.
func NewAttempt(refs []string) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		OrderRefs: refs,
		State:     StatePending,
		StartedAt: time.Now(),
	}
}

// Transition moves the attempt to next, validating the move against the
// lifecycle.
func (a *Attempt) Transition(next AttemptState) error {
	for _, allowed := range attemptTransitions[a.State] {
		if allowed == next {
			a.State = next
			return nil
		}
	}
	return shared.NewDomainError("INVALID_STATE",
		"settlement attempt cannot move from "+string(a.State)+" to "+string(next))
}

// Terminal reports whether the attempt reached a final state.
func (a *Attempt) Terminal() bool {
	return a.State == StateCommitted || a.State == StateRejected || a.State == StateAborted
}

// Fail moves the attempt to a terminal failure state with a reason,
// bypassing transition checks only for the legal failure edges.
func (a *Attempt) Fail(state AttemptState, reason string) {
	if state != StateRejected && state != StateAborted {
		state = StateRejected
	}
	a.State = state
	a.Reason = reason
}
