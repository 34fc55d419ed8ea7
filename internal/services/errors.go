package services

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAccountNotApproved = errors.New("account not approved")
	ErrAlreadyFinalized   = errors.New("transaction already finalized")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateRequest   = errors.New("duplicate client request")
	ErrBankNotAssigned    = errors.New("bank not assigned to user")
)

// ValidationError reports a rejected request field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrInvalidAmount  = &ValidationError{Field: "amount", Message: "must be a positive amount"}
	ErrAmountTooLarge = &ValidationError{Field: "amount", Message: "exceeds the maximum amount"}
)

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
