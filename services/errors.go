package services

import "fmt"

// Error kinds carried on the wire as {"error": <kind>, "message": ...}.
const (
	KindValidation = "validation_error"
	KindPermission = "permission_denied"
	KindConflict   = "conflict_error"
	KindNotFound   = "not_found"
	KindState      = "state_error"
)

// Error is a caller-facing failure with a stable kind.
type Error struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

func validationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func permissionErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func stateErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}
