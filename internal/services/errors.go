package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports missing or invalid caller input. Not retryable;
// the caller must fix the request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports a state conflict: a movement record already billed
// on another invoice, or a generated number that collided under a race.
// Retryable conflicts can succeed after the caller re-fetches state.
type ConflictError struct {
	ManifestNo string
	InvoiceNo  string
	Message    string
	Retryable  bool
}

func (e *ConflictError) Error() string {
	return e.Message
}

func newLinkageConflict(manifestNo, invoiceNo string) *ConflictError {
	return &ConflictError{
		ManifestNo: manifestNo,
		InvoiceNo:  invoiceNo,
		Message:    fmt.Sprintf("manifest %s is already billed on invoice %s", manifestNo, invoiceNo),
	}
}

func newNumberConflict(number string) *ConflictError {
	return &ConflictError{
		InvoiceNo: number,
		Message:   fmt.Sprintf("number %s was taken by a concurrent request", number),
		Retryable: true,
	}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func newNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsRetryableConflict reports whether err is a conflict worth retrying
// inside a fresh transaction.
func IsRetryableConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Retryable
}

// isUniqueViolation detects a Postgres unique-constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
