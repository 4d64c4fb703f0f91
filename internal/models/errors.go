package models

import "errors"

var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// Recoverable per-row conditions. A row failing with one of these is
	// dropped from the output table, the batch keeps going.
	ErrInsufficientData      = errors.New("insufficient data in regression window")
	ErrEvaluationDateMissing = errors.New("evaluation date not present in series")
	ErrNoValidWindow         = errors.New("no candidate window has a defined correlation")
	ErrDegenerateFit         = errors.New("fit window has fewer than 2 distinct x values")

	// ErrInvalidConfig aborts a batch before any row is processed.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsRecoverable reports whether err is a per-row data condition rather than
// a contract violation.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrEvaluationDateMissing) ||
		errors.Is(err, ErrNoValidWindow) ||
		errors.Is(err, ErrDegenerateFit)
}
