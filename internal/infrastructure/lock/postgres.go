package lock

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// PostgresLocker takes transaction scoped advisory locks
// (pg_try_advisory_xact_lock). The lock is released by PostgreSQL when the
// import transaction commits or rolls back.
type PostgresLocker struct{}

// NewPostgresLocker creates a PostgresLocker
func NewPostgresLocker() *PostgresLocker {
	return &PostgresLocker{}
}

// TryLock implements Locker
func (l *PostgresLocker) TryLock(ctx context.Context, tx *gorm.DB, name string) (Release, error) {
	var acquired bool
	if err := tx.WithContext(ctx).Raw("SELECT pg_try_advisory_xact_lock(?)", Key(name)).Scan(&acquired).Error; err != nil {
		return nil, fmt.Errorf("lock: advisory lock %q: %w", name, err)
	}
	if !acquired {
		return nil, ErrNotAcquired
	}
	return noop, nil
}
