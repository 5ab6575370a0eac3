package lifecycle

import (
	"errors"
	"fmt"

	"ridehail/internal/domain/entities"
)

var (
	// ErrInvalidState means a ride's persisted status is empty or outside the
	// vocabulary. It is a data-integrity problem, not a business-rule one.
	ErrInvalidState = errors.New("invalid ride state")

	// ErrActionNotAllowed is matched by every *TransitionError.
	ErrActionNotAllowed = errors.New("action not allowed")

	// ErrWrongState is the cause when the ride's status does not permit the
	// action, including when it changed underneath a concurrent transition.
	ErrWrongState = errors.New("ride status does not permit this action")

	// ErrNotAuthorized is the cause when the status permits the action but
	// the actor does not (wrong driver, missing privilege).
	ErrNotAuthorized = errors.New("actor not authorized for this action")
)

// Action names one of the six lifecycle operations.
type Action string

const (
	ActionCreate   Action = "create"
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// TransitionError is the action-not-allowed error kind. errors.Is matches it
// against ErrActionNotAllowed and against its Cause, so callers can tell an
// authorization failure from a lifecycle failure:
//
//	errors.Is(err, lifecycle.ErrActionNotAllowed) // any rejected transition
//	errors.Is(err, lifecycle.ErrNotAuthorized)    // only actor failures
//
// Go Learning Note — Multi-Error Unwrap:
// Since Go 1.20 an error may implement Unwrap() []error. errors.Is and
// errors.As walk every branch, so one value can belong to two categories
// without inventing a hierarchy.
type TransitionError struct {
	Action Action
	Status entities.RideStatus
	Cause  error
	Detail string
}

// NewTransitionError builds a wrong-state rejection for action in status.
func NewTransitionError(action Action, status entities.RideStatus, detail string) *TransitionError {
	return &TransitionError{Action: action, Status: status, Cause: ErrWrongState, Detail: detail}
}

func (e *TransitionError) Error() string {
	status := string(e.Status)
	if status == "" {
		status = "initial"
	}
	msg := fmt.Sprintf("action %q not allowed for ride in status %q", e.Action, status)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrActionNotAllowed}
	}
	return []error{ErrActionNotAllowed, e.Cause}
}

func invalidState(token string) error {
	return fmt.Errorf("%w: %q", ErrInvalidState, token)
}

func notAuthorized(action Action, status entities.RideStatus, detail string) *TransitionError {
	return &TransitionError{Action: action, Status: status, Cause: ErrNotAuthorized, Detail: detail}
}
