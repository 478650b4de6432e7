package common

import (
	"context"
	"database/sql"
)

// DbContext is the explicit per-request context passed to every database
// call. It carries the caller's identity, the resolved tenant, the kernel
// flag and an optional transaction id. There is no ambient or goroutine-
// local state; everything the persistence layer needs travels in this
// struct.
type DbContext struct {
	// Ctx carries deadline and cancellation for all suspending calls.
	Ctx context.Context

	UserID string

	// KernelMode bypasses all per-row authorization. Set only by
	// privileged initialization paths (schema load, seed data).
	KernelMode bool

	// NeedAuthCheck, when false, skips the auth gate the same way kernel
	// mode does. Defaults to true.
	NeedAuthCheck bool

	// TxnID, when non-empty, routes all SQL through the session held by
	// the transaction manager under this id.
	TxnID string

	tenantID string
}

// NewDbContext builds a context for a regular caller. Auth checks are on.
func NewDbContext(ctx context.Context, userID string) *DbContext {
	return &DbContext{Ctx: ctx, UserID: userID, NeedAuthCheck: true}
}

// KernelContext builds a privileged context that bypasses authorization.
func KernelContext(ctx context.Context) *DbContext {
	return &DbContext{Ctx: ctx, UserID: "kernel", KernelMode: true}
}

// TenantID returns the cached tenant id, resolving it through the supplied
// lookup on first use. The cache lives on the DbContext, which is request
// scoped; it is never attached to a connection.
func (c *DbContext) TenantID(resolve func(ctx context.Context, userID string) (string, error)) (string, error) {
	if c.tenantID != "" {
		return c.tenantID, nil
	}
	t, err := resolve(c.Ctx, c.UserID)
	if err != nil {
		return "", err
	}
	c.tenantID = t
	return t, nil
}

// SetTenantID pre-seeds the tenant cache, used by tests and kernel flows.
func (c *DbContext) SetTenantID(t string) { c.tenantID = t }

// Querier is the common surface of *sql.DB and *sql.Tx. All persistence
// code is written against it so a statement runs identically on the pooled
// default session and on a transaction session.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
