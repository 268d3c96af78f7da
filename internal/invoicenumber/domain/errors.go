package domain

import "errors"

const (
	ReasonEmpty     = "empty"
	ReasonDuplicate = "duplicate"
	ReasonTooLong   = "too_long"
)

// MaxNumberLength matches the invoice_numbers.number and invoices.invoice_number columns.
const MaxNumberLength = 64

// ValidationError reports a candidate number the caller must correct.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid_invoice_number: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

var (
	ErrEmpty     = &ValidationError{Reason: ReasonEmpty}
	ErrDuplicate = &ValidationError{Reason: ReasonDuplicate}
	ErrTooLong   = &ValidationError{Reason: ReasonTooLong}

	// ErrCollaboratorUnavailable wraps any persistence failure. No fallback number is produced.
	ErrCollaboratorUnavailable = errors.New("collaborator_unavailable")

	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTemplate     = errors.New("invalid_numbering_template")
	ErrAttemptsExhausted   = errors.New("numbering_attempts_exhausted")
)
