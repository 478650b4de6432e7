// Package txn manages named transactions. A caller holds only an opaque
// string id; the manager owns the underlying session and guarantees it is
// released on every exit path.
package txn

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/entigraph/entigraph-go-core/internal/common"
)

// Manager maps opaque transaction ids to live sessions. Only Begin and the
// two closers touch the map; lookups during statement routing take the same
// mutex briefly.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sql.Tx
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*sql.Tx{}}
}

// Begin opens a transaction on a fresh session from the pool and returns
// its id. Cancellation of ctx rolls the transaction back through the
// driver.
func (m *Manager) Begin(ctx context.Context, db *sql.DB) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = tx
	m.mu.Unlock()
	return id, nil
}

// Session returns the live session for an id.
func (m *Manager) Session(id string) (*sql.Tx, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.sessions[id]
	return tx, ok
}

// Commit commits and removes the session. The session is removed from the
// map whether or not the commit succeeds; a failed commit leaves nothing
// held.
func (m *Manager) Commit(id string) error {
	tx, err := m.take(id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Rollback rolls back and removes the session.
func (m *Manager) Rollback(id string) error {
	tx, err := m.take(id)
	if err != nil {
		return err
	}
	return tx.Rollback()
}

func (m *Manager) take(id string) (*sql.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.sessions[id]
	if !ok {
		return nil, &common.TransactionNotFoundError{ID: id}
	}
	delete(m.sessions, id)
	return tx, nil
}
