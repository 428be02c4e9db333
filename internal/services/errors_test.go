package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestLinkageConflictMessage(t *testing.T) {
	err := newLinkageConflict("MF-9001", "INV-202608-0003")
	assert.Equal(t, "manifest MF-9001 is already billed on invoice INV-202608-0003", err.Error())
	assert.False(t, err.Retryable)
}

func TestIsRetryableConflict(t *testing.T) {
	assert.True(t, IsRetryableConflict(newNumberConflict("INV-202608-0007")))
	assert.False(t, IsRetryableConflict(newLinkageConflict("MF-1", "INV-1")))
	assert.False(t, IsRetryableConflict(newValidationError("date", "required")))
	assert.False(t, IsRetryableConflict(nil))

	// Wrapped conflicts are still recognised.
	wrapped := fmt.Errorf("create failed: %w", newNumberConflict("INV-202608-0007"))
	assert.True(t, IsRetryableConflict(wrapped))
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", unique)))

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.False(t, isUniqueViolation(nil))
}

func TestNotFoundError(t *testing.T) {
	err := newNotFoundError("invoice", "abc-123")
	assert.Equal(t, "invoice abc-123 not found", err.Error())

	var notFound *NotFoundError
	assert.True(t, errors.As(fmt.Errorf("load: %w", err), &notFound))
}
