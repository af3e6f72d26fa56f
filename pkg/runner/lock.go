package runner

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
)

// Locker provides mutual exclusion for migration runs.
type Locker interface {
	// Acquire obtains the lock for key. The returned release function must
	// be called to release it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// PostgresLock implements Locker with a session level advisory lock. The
// lock is taken on a dedicated connection so that unlock runs in the same
// session.
type PostgresLock struct {
	db *sql.DB
}

// NewPostgresLock creates a new PostgresLock.
func NewPostgresLock(db *sql.DB) *PostgresLock {
	return &PostgresLock{db: db}
}

func (l *PostgresLock) Acquire(ctx context.Context, key string) (func(), error) {
	lockID := hashLockKey(key)
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pg_advisory_lock(%d): %w", lockID, err)
	}
	release := func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
		_ = conn.Close()
	}
	return release, nil
}

// sqliteLocks holds one mutex per key for the whole process, shared by every
// SQLiteLock.
var sqliteLocks sync.Map

// SQLiteLock implements Locker with a process-local mutex per key. Across
// processes SQLite's own file locking serializes writers.
type SQLiteLock struct{}

// NewSQLiteLock creates a new SQLiteLock. The db parameter is accepted for
// symmetry with NewPostgresLock.
func NewSQLiteLock(_ *sql.DB) *SQLiteLock {
	return &SQLiteLock{}
}

func (l *SQLiteLock) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire sqlite lock: %w", err)
	}
	v, _ := sqliteLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, nil
}

// hashLockKey produces a stable non-negative int64 from key for
// pg_advisory_lock.
func hashLockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}
