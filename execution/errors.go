package execution

import "fmt"

// Error codes surfaced by the execution service.
const (
	CodeInvalidState    = "INVALID_STATE"
	CodeNoBroker        = "NO_BROKER"
	CodeBrokerError     = "BROKER_ERROR"
	CodeOrderRejected   = "ORDER_REJECTED"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
)

// Error is a typed execution failure. Message is safe to show directly to
// the user; Details carries broker codes and similar context.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errInvalidState(from, to State) *Error {
	return &Error{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("transition %s -> %s not permitted", from, to),
		Details: map[string]any{"from": string(from), "to": string(to)},
	}
}

func errSessionNotFound(id string) *Error {
	return &Error{
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("session %q not found", id),
	}
}
