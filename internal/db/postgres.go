// Package db provides database connection helpers.
//
// The Manager owns a single logical PostgreSQL connection and hands it
// out one caller at a time. Every checkout runs a liveness probe
// first; a handle that fails its probe is discarded and rebuilt once
// before the checkout fails.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConnection marks a failure to obtain or rebuild a live handle.
// Fatal for the current call, recoverable on the next one.
var ErrConnection = errors.New("database connection unavailable")

// Conn is the subset of *pgx.Conn the service uses.
type Conn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// DialFunc opens a new connection. Swappable in tests.
type DialFunc func(ctx context.Context, dsn string) (Conn, error)

func pgxDial(ctx context.Context, dsn string) (Conn, error) {
	return pgx.Connect(ctx, dsn)
}

// Manager owns one logical connection to PostgreSQL. The connection
// is created lazily on first use and must not be shared outside a
// WithConn scope: the probe-then-use sequence is only safe because
// the manager's lock is held for the whole scope.
type Manager struct {
	dsn  string
	dial DialFunc

	mu   sync.Mutex
	conn Conn
}

// NewManager returns a Manager that dials dsn with pgx.
func NewManager(dsn string) *Manager {
	return &Manager{dsn: dsn, dial: pgxDial}
}

// NewManagerWithDial returns a Manager with a custom dial function.
func NewManagerWithDial(dsn string, dial DialFunc) *Manager {
	return &Manager{dsn: dsn, dial: dial}
}

// WithConn runs fn with a live connection, releasing it on every exit
// path. The handle passed to fn has passed a liveness probe on this
// same call: an existing handle whose probe fails is closed and
// rebuilt exactly once, and ErrConnection is returned if the rebuild
// also fails.
func (m *Manager) WithConn(ctx context.Context, fn func(Conn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := m.ensureLive(ctx)
	if err != nil {
		return err
	}
	return fn(conn)
}

// ensureLive returns a probed connection, dialing or re-dialing as
// needed. Caller holds m.mu.
func (m *Manager) ensureLive(ctx context.Context) (Conn, error) {
	if m.conn == nil {
		conn, err := m.dial(ctx, m.dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		m.conn = conn
		return m.conn, nil
	}

	if err := m.conn.Ping(ctx); err != nil {
		log.Printf("[db] liveness probe failed, rebuilding connection: %v", err)
		_ = m.conn.Close(ctx)
		m.conn = nil

		conn, dialErr := m.dial(ctx, m.dsn)
		if dialErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnection, dialErr)
		}
		m.conn = conn
	}
	return m.conn, nil
}

// Close shuts down the held connection, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close(ctx)
	m.conn = nil
	return err
}
