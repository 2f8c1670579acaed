package badge

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the registry and the engine.
// Callers classify failures with errors.Is against these sentinels.
var (
	// ErrNotFound: a badge or recipe slug is unknown. Non-fatal; callers skip.
	ErrNotFound = errors.New("not found")

	// ErrContractViolation: a recipe lacks a required capability. Fatal at registration.
	ErrContractViolation = errors.New("recipe contract violation")

	// ErrDuplicateKey: a unique constraint rejected the write (lost race). Caught and logged.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageUnavailable: connectivity or transient storage failure that outlived retries.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidConfiguration: a required recipe field is unimplemented or malformed.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ConfigError reports an invalid configuration detected on first access.
type ConfigError struct {
	// Slug identifies the recipe, when known.
	Slug string

	// Field names the offending field (e.g. "image").
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Slug != "" {
		return fmt.Sprintf("invalid configuration for %s.%s: %s", e.Slug, e.Field, msg)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, msg)
}

// Is makes every ConfigError match ErrInvalidConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsDuplicate returns true if err is (or wraps) a duplicate-key rejection.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsNotFound returns true if err is (or wraps) a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
