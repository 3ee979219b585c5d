// Package domain defines error types for the storefront engine.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a product with the given ID is not in the catalog
type NotFoundError struct {
	ProductID int
}

// Error implements the error interface for NotFoundError
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%d", e.ProductID)
}

// Is allows proper error type checking with errors.Is()
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// InvariantViolationError is returned when a mutation would break a catalog or cart invariant
type InvariantViolationError struct {
	Invariant string
	Detail    string
}

// Error implements the error interface for InvariantViolationError
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s (%s)", e.Invariant, e.Detail)
}

// Is allows proper error type checking with errors.Is()
func (e *InvariantViolationError) Is(target error) bool {
	_, ok := target.(*InvariantViolationError)
	return ok
}

// ValidationError is returned when user input is incomplete or invalid
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

// Error implements the error interface for ValidationError
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: field=%s, reason=%s, value=%v", e.Field, e.Reason, e.Value)
}

// Is allows proper error type checking with errors.Is()
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// OutOfStockError is returned when the requested quantity exceeds stock on hand
type OutOfStockError struct {
	ProductID int
	Colour    string
	Size      string
	Available int
	Requested int
}

// Error implements the error interface for OutOfStockError
func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: id=%d, colour=%s, size=%s, available=%d, requested=%d",
		e.ProductID, e.Colour, e.Size, e.Available, e.Requested)
}

// Is allows proper error type checking with errors.Is()
func (e *OutOfStockError) Is(target error) bool {
	_, ok := target.(*OutOfStockError)
	return ok
}

// EmptyCartError is returned when checking out a cart with no lines
type EmptyCartError struct{}

// Error implements the error interface for EmptyCartError
func (e *EmptyCartError) Error() string {
	return "cart is empty"
}

// Is allows proper error type checking with errors.Is()
func (e *EmptyCartError) Is(target error) bool {
	_, ok := target.(*EmptyCartError)
	return ok
}

// IndexOutOfRangeError is returned when a cart line index does not exist
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

// Error implements the error interface for IndexOutOfRangeError
func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("cart index out of range: index=%d, len=%d", e.Index, e.Len)
}

// Is allows proper error type checking with errors.Is()
func (e *IndexOutOfRangeError) Is(target error) bool {
	_, ok := target.(*IndexOutOfRangeError)
	return ok
}

// Helper functions for creating errors with context

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(productID int) error {
	return &NotFoundError{ProductID: productID}
}

// NewInvariantViolationError creates a new InvariantViolationError
func NewInvariantViolationError(invariant, detail string) error {
	return &InvariantViolationError{Invariant: invariant, Detail: detail}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string, value interface{}) error {
	return &ValidationError{
		Field:  field,
		Reason: reason,
		Value:  value,
	}
}

// NewOutOfStockError creates a new OutOfStockError
func NewOutOfStockError(productID int, colour, size string, available, requested int) error {
	return &OutOfStockError{
		ProductID: productID,
		Colour:    colour,
		Size:      size,
		Available: available,
		Requested: requested,
	}
}

// NewEmptyCartError creates a new EmptyCartError
func NewEmptyCartError() error {
	return &EmptyCartError{}
}

// NewIndexOutOfRangeError creates a new IndexOutOfRangeError
func NewIndexOutOfRangeError(index, length int) error {
	return &IndexOutOfRangeError{Index: index, Len: length}
}

// Type assertion helpers for use with errors.As()

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvariantViolationError checks if an error is an InvariantViolationError
func IsInvariantViolationError(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsOutOfStockError checks if an error is an OutOfStockError
func IsOutOfStockError(err error) bool {
	var oos *OutOfStockError
	return errors.As(err, &oos)
}

// IsEmptyCartError checks if an error is an EmptyCartError
func IsEmptyCartError(err error) bool {
	var ec *EmptyCartError
	return errors.As(err, &ec)
}

// IsIndexOutOfRangeError checks if an error is an IndexOutOfRangeError
func IsIndexOutOfRangeError(err error) bool {
	var ior *IndexOutOfRangeError
	return errors.As(err, &ior)
}

// IsUserFacing reports whether err belongs to the recoverable, user-facing part of
// the taxonomy. NotFound, IndexOutOfRange and InvariantViolation are caller errors.
func IsUserFacing(err error) bool {
	return IsValidationError(err) || IsOutOfStockError(err) || IsEmptyCartError(err)
}
