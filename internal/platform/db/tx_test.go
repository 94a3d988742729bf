package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 2 {
			return fmt.Errorf("insert sale: %w", &pgconn.PgError{Code: codeSerializationFailure})
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRetryGivesUpOnPlainErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), 5, func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: codeDeadlockDetected}
	})
	require.True(t, IsRetryable(err))
	require.Equal(t, 3, calls)
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("open register: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "cash_registers_single_open"})
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "cash_registers_single_open"))
	require.False(t, IsUniqueViolation(err, "other"))
	require.False(t, IsUniqueViolation(errors.New("x"), ""))
}
