package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no row
	ErrNotFound = errors.New("record not found")
	// ErrRequestNotPending is returned when a request or ticket was already processed
	ErrRequestNotPending = errors.New("request is not pending")
	// ErrNotArrived is returned when the warehouse tries to stock an order the gatehouse has not confirmed
	ErrNotArrived = errors.New("purchase order has not arrived")
	// ErrInvalidTransition is returned for status changes the workflow does not offer
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNoteRequired is returned when completing, failing or reopening without a note
	ErrNoteRequired = errors.New("a note is required for this transition")
	// ErrInvalidCredentials is returned by Login for unknown users and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrConflict is returned when a unique field is already taken
	ErrConflict = errors.New("record already exists")
	// ErrStorageDisabled is returned when object storage is not configured
	ErrStorageDisabled = errors.New("object storage is not configured")
)

// NotFoundError names the entity that could not be found
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", strings.ToLower(strings.ReplaceAll(e.Entity, "_", " ")), e.ID)
}

// Unwrap lets callers match with errors.Is(err, ErrNotFound)
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError aborts a material request approval
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ItemName, e.Requested, e.Available)
}

// ValidationError reports input the database would accept but the workflow must not
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// isUniqueViolation recognises duplicate key errors from postgres and sqlite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
