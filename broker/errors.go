package broker

import "fmt"

// Error codes reported by broker adapters.
const (
	CodeAuth      = "AUTH"
	CodeTransport = "TRANSPORT"
	CodeRejected  = "REJECTED"
	CodeNotFound  = "NOT_FOUND"
)

// Error is a typed broker failure. It keeps the broker-supplied code and
// message so callers can show actionable feedback without exposing
// transport internals.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a broker Error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
