package accumulator

import "errors"

var (
	// ErrDivisionByZero is returned by Submit("=") when the right-hand operand is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidOperation is returned when the pending operator is not one of + - * /.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrEntryNotFound is returned by ReplayAt for an index outside the history.
	ErrEntryNotFound = errors.New("history entry not found")
)
