package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TryLockJob takes a session-level advisory lock for job on a dedicated connection.
// The connection goes back to the pool when release is called.
func (d *DB) TryLockJob(ctx context.Context, job string) (func(), bool, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection: %w", err)
	}

	var acquired bool
	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1, hashtext($2))`, lockNamespaceJob, job).Scan(&acquired)
	if err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("failed to try job lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock($1, hashtext($2))`, lockNamespaceJob, job); err != nil {
				// The session still holds the lock, so drop the connection instead of pooling it
				_ = conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}
	return release, true, nil
}
