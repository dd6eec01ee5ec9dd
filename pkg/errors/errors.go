package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrPaymentCompleted = errors.New("payment already completed")
	ErrMissingIdentity  = errors.New("caller identity missing")
	ErrNotPermitted     = errors.New("caller not permitted")
	ErrStore            = errors.New("store operation failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodePaymentFailed    = "PAYMENT_FAILED"
	ErrCodePaymentCompleted = "PAYMENT_COMPLETED"
	ErrCodeMissingIdentity  = "MISSING_IDENTITY"
	ErrCodeNotPermitted     = "NOT_PERMITTED"
	ErrCodeStoreError       = "STORE_ERROR"
)

// WrapNotFound reports an unresolved entity id of the given kind.
func WrapNotFound(kind, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %s not found", kind, id),
		ErrNotFound,
	)
}

// WrapInvalidPayload reports a validation or state-precondition failure.
func WrapInvalidPayload(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPayload,
		fmt.Sprintf(format, args...),
		ErrInvalidPayload,
	)
}

func WrapPaymentFailed(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentFailed,
		"payment transfer failed",
		errors.Join(ErrPaymentFailed, err),
	)
}

func WrapPaymentCompleted(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentCompleted,
		fmt.Sprintf("Loan with ID %s is already settled", loanID),
		ErrPaymentCompleted,
	)
}

func WrapMissingIdentity() *BusinessError {
	return NewBusinessError(
		ErrCodeMissingIdentity,
		"caller identity is required",
		ErrMissingIdentity,
	)
}

// WrapNotPermitted reports a known caller acting on a record that is not theirs.
func WrapNotPermitted(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeNotPermitted,
		fmt.Sprintf(format, args...),
		ErrNotPermitted,
	)
}

func WrapStoreError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreError,
		"store operation failed",
		errors.Join(ErrStore, err),
	)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidPayload(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}

func IsPaymentFailed(err error) bool {
	return errors.Is(err, ErrPaymentFailed)
}

func IsMissingIdentity(err error) bool {
	return errors.Is(err, ErrMissingIdentity)
}

func IsNotPermitted(err error) bool {
	return errors.Is(err, ErrNotPermitted)
}

// Code extracts the business error code, or ErrCodeStoreError for foreign errors.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeStoreError
}
