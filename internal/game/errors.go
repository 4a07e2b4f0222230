package game

import "fmt"

// ActionError reports a rejected player action. It is surfaced through
// StateSink.OnActionError and never mutates state.
type ActionError struct {
	Code    string
	Message string
	Data    map[string]any
}

func (e *ActionError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Action error codes.
const (
	ErrWrongTurn     = "wrong_turn"
	ErrWrongPhase    = "wrong_phase"
	ErrWrongStatus   = "wrong_status"
	ErrEmptyPile     = "empty_pile"
	ErrCardNotInHand = "card_not_in_hand"
	ErrWindowClosed  = "window_closed"
	ErrRankMismatch  = "rank_mismatch"
	ErrAlreadyCalled = "already_called"
	ErrInvalidTarget = "invalid_target"
	ErrRoundState    = "round_state"
)

func actionErr(code, message string, data map[string]any) *ActionError {
	return &ActionError{Code: code, Message: message, Data: data}
}

// ValidationError reports a schema violation in a state delta. The
// offending delta is dropped; the field name identifies the violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid update field %q: %s", e.Field, e.Reason)
}
