package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnauthorizedErrorPredicate(t *testing.T) {
	err := NewUnauthorized("delete", "acme/Person")
	require.True(t, IsUnauthorized(err))
	require.Contains(t, err.Error(), "delete")
	require.Contains(t, err.Error(), "acme/Person")
	require.False(t, IsUnauthorized(errors.New("other")))
}

func TestPredicatesSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", &TransactionNotFoundError{ID: "t1"})
	require.True(t, IsTransactionNotFound(err))

	err = fmt.Errorf("outer: %w", &InvalidNullComparisonError{Op: "<"})
	require.True(t, IsInvalidNullComparison(err))

	err = fmt.Errorf("outer: %w", &MissingProjectionError{})
	require.True(t, IsMissingProjection(err))
}

func TestNotFoundPrefixErrors(t *testing.T) {
	err := NewErrNotFound("entity acme/Ghost")
	require.True(t, IsErrNotFound(err))
	require.True(t, IsErrNotFound(NewErrNotFound("")))
	require.False(t, IsErrNotFound(errors.New("something else")))
	require.False(t, IsErrNotFound(errors.New("outer: not found: x")))
	require.False(t, IsErrNotFound(nil))
}

func TestInvalidArgumentPrefixErrors(t *testing.T) {
	err := NewInvalidArgument("between requires an array value")
	require.True(t, IsInvalidArgument(err))
	require.True(t, IsInvalidArgument(NewInvalidArgument("")))
	require.False(t, IsInvalidArgument(NewErrNotFound("x")))
	require.False(t, IsInvalidArgument(nil))
}
