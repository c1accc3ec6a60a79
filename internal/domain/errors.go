package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("missing customer identity")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidStep     = errors.New("operation not allowed in current checkout step")
	ErrConflict        = errors.New("conflicting state")
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PaymentError is returned alongside the order when the payment step fails.
// The order stays queryable and payment can be retried against it.
type PaymentError struct {
	OrderID string
	Reason  string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment for order %s failed: %s: %v", e.OrderID, e.Reason, e.Err)
	}
	return fmt.Sprintf("payment for order %s failed: %s", e.OrderID, e.Reason)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}
