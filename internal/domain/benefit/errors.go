package benefit

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes crossing the API boundary. Handlers serialize these as
// {code, message} objects instead of leaking raw errors.
const (
	CodeNotFound            = "not_found"
	CodeInvalidTransfer     = "invalid_transfer"
	CodeConcurrencyConflict = "concurrency_conflict"
	CodePersistenceFailure  = "persistence_failure"
)

// Error is a domain error with a stable wire code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransferf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidTransfer, Message: fmt.Sprintf(format, args...)}
}

// Conflictf marks a transaction aborted by a competing writer. Safe for the
// caller to retry with the same inputs; never retried internally.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConcurrencyConflict, Message: fmt.Sprintf(format, args...)}
}

func Persistencef(format string, args ...interface{}) *Error {
	return &Error{Code: CodePersistenceFailure, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a domain *Error from err, wrapping unknown errors as a
// persistence failure so nothing undomesticated crosses the boundary.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Persistencef("%v", err)
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransfer:
		return http.StatusUnprocessableEntity
	case CodeConcurrencyConflict:
		return http.StatusConflict
	case CodePersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
