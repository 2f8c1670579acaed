package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/badgify/internal/badge"
)

// RetryPolicy controls how transient lock contention is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy retries SQLITE_BUSY/SQLITE_LOCKED up to 5 times within 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 50 * time.Millisecond,
		MaxElapsedTime:  10 * time.Second,
	}
}

// withRetry runs op, retrying only transient lock errors.
// Duplicate-key and every other failure stop immediately.
func (s *Store) withRetry(ctx context.Context, what string, op func() error) error {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(s.retry.InitialInterval),
		backoff.WithMaxElapsedTime(s.retry.MaxElapsedTime),
	)

	attempt := func() error {
		err := classify(op())
		if err == nil {
			return nil
		}
		if errors.Is(err, errBusy) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.RetryNotify(
		attempt,
		backoff.WithContext(backoff.WithMaxRetries(b, s.retry.MaxRetries), ctx),
		func(err error, d time.Duration) {
			s.log().Warn("storage busy, retrying", "op", what, "error", err, "backoff", d)
		},
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, errBusy) {
		return fmt.Errorf("%s: %w: %w", what, badge.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// log returns the store logger; stores built without Open use the default.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// errBusy marks lock contention that is worth retrying.
var errBusy = errors.New("database busy")

// classify maps driver errors onto the badge error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badge.ErrDuplicateKey) || errors.Is(err, errBusy) || errors.Is(err, badge.ErrStorageUnavailable) {
		return err
	}
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch {
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", badge.ErrDuplicateKey, err)
	case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %w", errBusy, err)
	case sqliteErr.Code == sqlite3.ErrCantOpen, sqliteErr.Code == sqlite3.ErrIoErr:
		return fmt.Errorf("%w: %w", badge.ErrStorageUnavailable, err)
	}
	return err
}
