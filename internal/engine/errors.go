package engine

import (
	"errors"
	"fmt"
)

// RecipeError reports why reconciliation of one recipe stopped.
//
// Recipe errors never abort a run; they are collected in the report's
// Failed list while the remaining recipes proceed.
type RecipeError struct {
	// Code identifies the error category.
	Code RecipeErrorCode

	// Slug identifies the affected recipe.
	Slug string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// RecipeErrorCode categorizes recipe errors.
type RecipeErrorCode string

const (
	// ErrCodeMembership indicates the membership source failed.
	ErrCodeMembership RecipeErrorCode = "MEMBERSHIP_FAILED"

	// ErrCodeStorage indicates a badge or award store operation failed.
	ErrCodeStorage RecipeErrorCode = "STORAGE_FAILED"

	// ErrCodeLock indicates the per-slug lock could not be acquired.
	ErrCodeLock RecipeErrorCode = "LOCK_FAILED"
)

// Error implements the error interface.
func (e *RecipeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (badge=%s): %v", e.Code, e.Message, e.Slug, e.Err)
	}
	return fmt.Sprintf("%s: %s (badge=%s)", e.Code, e.Message, e.Slug)
}

// Unwrap returns the underlying cause.
func (e *RecipeError) Unwrap() error {
	return e.Err
}

// IsStorageError returns true if err is a recipe storage failure.
// Uses errors.As to handle wrapped errors.
func IsStorageError(err error) bool {
	var re *RecipeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStorage
	}
	return false
}

// IsMembershipError returns true if err is a membership source failure.
func IsMembershipError(err error) bool {
	var re *RecipeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMembership
	}
	return false
}

func storageError(slug, msg string, err error) *RecipeError {
	return &RecipeError{Code: ErrCodeStorage, Slug: slug, Message: msg, Err: err}
}
