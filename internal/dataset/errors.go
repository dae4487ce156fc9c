package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks any rejection of uploaded data. Callers classify with
// errors.Is; the concrete types below carry the detail.
var ErrValidation = errors.New("validation error")

// MissingColumnError reports every required column absent from the header,
// not just the first one found missing.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required columns: %s (required: %s)",
		strings.Join(e.Columns, ", "), strings.Join(RequiredColumns(), ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrValidation }

// NoChemistryColumnError reports a header with identity columns only.
type NoChemistryColumnError struct{}

func (e *NoChemistryColumnError) Error() string {
	return "no chemical concentration columns found; provide at least one chemistry column in addition to the required fields"
}

func (e *NoChemistryColumnError) Unwrap() error { return ErrValidation }

func rowErr(row int, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: row %d: %s", ErrValidation, row, detail)
}
