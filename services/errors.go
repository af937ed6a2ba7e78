package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidQuantity      = errors.New("quantity must be between 1 and 99")
	ErrUnknownDrink         = errors.New("unknown drink")
	ErrUnknownCustomization = errors.New("unknown customization")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientPoints   = errors.New("not enough loyalty points")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrInvalidInput         = errors.New("invalid input")
	ErrThrottled            = errors.New("login throttled")
)

// ThrottledError is returned by Login while a cooldown is active.
type ThrottledError struct {
	WaitSeconds int
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %ds", e.WaitSeconds)
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
