package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; the message is for humans only.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrIllegalState      = errors.New("illegal state")
	ErrCapacity          = errors.New("no capacity")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Error pairs a kind with a reason that is safe to show to the caller.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Is(target error) bool { return target == e.Kind }

func newErr(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error     { return newErr(ErrNotFound, format, args...) }
func Invalidf(format string, args ...any) error      { return newErr(ErrValidation, format, args...) }
func Forbiddenf(format string, args ...any) error    { return newErr(ErrForbidden, format, args...) }
func IllegalStatef(format string, args ...any) error { return newErr(ErrIllegalState, format, args...) }
func Capacityf(format string, args ...any) error     { return newErr(ErrCapacity, format, args...) }
func InsufficientFundsf(format string, args ...any) error {
	return newErr(ErrInsufficientFunds, format, args...)
}

// Reason returns the human-readable part of err: the message of the innermost
// *Error if there is one, err.Error() otherwise.
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return err.Error()
}

// IsKind reports whether err carries one of the domain kinds above, as opposed
// to an infrastructure failure.
func IsKind(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
