package storage

import (
	"context"
	"database/sql"
	"fmt"

	"StorylineScanner/internal/ports"
)

// AdvisoryLock enforces the at-most-one-concurrent-invocation contract with
// a Postgres session advisory lock. The lock lives on a pinned connection
// and disappears with it, so a killed process can never leave it stuck.
type AdvisoryLock struct {
	db  *sql.DB
	key int64
}

var _ ports.RunLocker = (*AdvisoryLock)(nil)

// NewAdvisoryLock binds the lock to a fixed application-wide key.
func NewAdvisoryLock(db *sql.DB, key int64) *AdvisoryLock {
	return &AdvisoryLock{db: db, key: key}
}

// TryAcquire attempts to take the run lock without blocking.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		// Release must not inherit a canceled run context.
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", l.key)
		_ = conn.Close()
	}
	return release, true, nil
}

// NoopLocker satisfies ports.RunLocker for backends without advisory locks;
// serialization then falls entirely on the external scheduler.
type NoopLocker struct{}

var _ ports.RunLocker = NoopLocker{}

// TryAcquire always succeeds.
func (NoopLocker) TryAcquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}
