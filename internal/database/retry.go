package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smsgate/internal/retry"
)

const (
	dbRetryAttempts = 3
	dbRetryDelay    = 50 * time.Millisecond
	dbRetryMaxDelay = 500 * time.Millisecond
)

// retryableDBOperation runs operation, retrying lock contention and transient
// I/O errors with exponential backoff.
func retryableDBOperation(ctx context.Context, operation func() error, operationName string) error {
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: dbRetryDelay,
		MaxDelay:     dbRetryMaxDelay,
		Multiplier:   2,
		MaxAttempts:  dbRetryAttempts,
		Jitter:       true,
	})

	if err := backoff.RetryWithPredicate(ctx, operation, isRetryableDBError); err != nil {
		return fmt.Errorf("%s failed: %w", operationName, err)
	}
	return nil
}

// isRetryableDBError determines if a database error is worth retrying
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	for _, transient := range []string{"database is locked", "database table is locked", "disk I/O error", "SQLITE_BUSY"} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}
