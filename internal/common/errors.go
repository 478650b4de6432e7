package common

import (
	"errors"
	"fmt"
	"strings"
)

// UnauthorizedError is returned when the auth gate denies an operation.
// Opr is the attempted operation (create/read/update/delete), Entity the
// fully qualified entity name.
type UnauthorizedError struct {
	Opr    string
	Entity string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s on %s", e.Opr, e.Entity)
}

func NewUnauthorized(opr, entity string) error {
	return &UnauthorizedError{Opr: opr, Entity: entity}
}

func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// TransactionNotFoundError is returned when a transaction id does not map
// to a live session.
type TransactionNotFoundError struct {
	ID string
}

func (e *TransactionNotFoundError) Error() string {
	return "transaction not found: " + e.ID
}

func IsTransactionNotFound(err error) bool {
	var target *TransactionNotFoundError
	return errors.As(err, &target)
}

// TransactionAlreadyActiveError is returned when StartTransaction is called
// on a resolver that already holds an open transaction.
type TransactionAlreadyActiveError struct{}

func (e *TransactionAlreadyActiveError) Error() string {
	return "a transaction is already active on this resolver"
}

func IsTransactionAlreadyActive(err error) bool {
	var target *TransactionAlreadyActiveError
	return errors.As(err, &target)
}

// InvalidJoinReferenceError is returned when a raw join's rhs does not
// reference the root entity of the query.
type InvalidJoinReferenceError struct {
	Text string
}

func (e *InvalidJoinReferenceError) Error() string {
	return "invalid join reference: " + e.Text
}

func IsInvalidJoinReference(err error) bool {
	var target *InvalidJoinReferenceError
	return errors.As(err, &target)
}

// UnsupportedRelationshipForJoinError is returned when join planning meets a
// relationship variant it cannot express.
type UnsupportedRelationshipForJoinError struct {
	Name string
}

func (e *UnsupportedRelationshipForJoinError) Error() string {
	return "relationship not supported for join: " + e.Name
}

func IsUnsupportedRelationshipForJoin(err error) bool {
	var target *UnsupportedRelationshipForJoinError
	return errors.As(err, &target)
}

// InvalidNullComparisonError is returned when a null query value is paired
// with an operator other than = / <> / != / is / is not.
type InvalidNullComparisonError struct {
	Op string
}

func (e *InvalidNullComparisonError) Error() string {
	return "operator " + e.Op + " cannot be applied to a null value"
}

func IsInvalidNullComparison(err error) bool {
	var target *InvalidNullComparisonError
	return errors.As(err, &target)
}

// MissingProjectionError is returned by QueryByJoin when no intoSpec is given.
type MissingProjectionError struct{}

func (e *MissingProjectionError) Error() string {
	return "join query requires a projection (intoSpec)"
}

func IsMissingProjection(err error) bool {
	var target *MissingProjectionError
	return errors.As(err, &target)
}

func NewErrNotFound(what string) error {
	return errors.New("not found: " + what)
}

func IsErrNotFound(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "not found: ")
}

func NewInvalidArgument(message string) error {
	return errors.New("invalid argument: " + message)
}

func IsInvalidArgument(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "invalid argument: ")
}
