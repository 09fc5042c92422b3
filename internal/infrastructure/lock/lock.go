// Package lock provides the named locks taken by importers so that two
// workers never import the same PrestaShop record at the same time.
package lock

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"

	"gorm.io/gorm"
)

// ErrNotAcquired is returned when the lock is held by someone else
var ErrNotAcquired = errors.New("lock: not acquired")

// Release frees a lock. It is a no-op for transaction scoped locks.
type Release func()

// Locker acquires named locks without waiting.
// tx is the transaction of the running import; transaction scoped
// implementations tie the lock to it.
type Locker interface {
	TryLock(ctx context.Context, tx *gorm.DB, name string) (Release, error)
}

// Key converts a lock name to the int64 key of a PostgreSQL advisory lock:
// the first 14 hex digits of its SHA-1, so the value always fits a bigint.
func Key(name string) int64 {
	sum := sha1.Sum([]byte(name))
	key, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:14], 16, 64)
	return key
}

func noop() {}
