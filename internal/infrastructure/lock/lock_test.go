package lock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/tests/testutil"
)

const lockName = "import(prestashop.backend, 1, prestashop.res.partner, 42)"

func TestKey(t *testing.T) {
	assert.Equal(t, Key(lockName), Key(lockName))
	assert.NotEqual(t, Key(lockName), Key("import(prestashop.backend, 1, prestashop.res.partner, 43)"))
	assert.Positive(t, Key(lockName))
	assert.Less(t, Key(lockName), int64(1)<<56)
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mock := testutil.NewMockDB(t)
	return mock.DB, mock.Mock
}

func TestPostgresLocker(t *testing.T) {
	tests := []struct {
		name     string
		acquired bool
		wantErr  error
	}{
		{"acquired", true, nil},
		{"held by another transaction", false, ErrNotAcquired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockGorm(t)
			mock.ExpectQuery(`SELECT pg_try_advisory_xact_lock\(\$1\)`).
				WithArgs(Key(lockName)).
				WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_xact_lock"}).AddRow(tt.acquired))

			release, err := NewPostgresLocker().TryLock(context.Background(), db, lockName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, release)
			} else {
				require.NoError(t, err)
				release()
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("query error", func(t *testing.T) {
		db, mock := newMockGorm(t)
		mock.ExpectQuery(`SELECT pg_try_advisory_xact_lock`).WillReturnError(assert.AnError)

		_, err := NewPostgresLocker().TryLock(context.Background(), db, lockName)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, err := l.TryLock(ctx, nil, lockName)
	require.NoError(t, err)
	assert.True(t, l.IsHeld(lockName))

	_, err = l.TryLock(ctx, nil, lockName)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := l.TryLock(ctx, nil, "other")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, l.IsHeld(lockName))

	_, err = l.TryLock(ctx, nil, lockName)
	assert.NoError(t, err)
}

func TestRedisLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLocker(client, 0, zap.NewNop())
	assert.Equal(t, 10*time.Minute, l.ttl)
	assert.Contains(t, l.keyName(lockName), "prestashop:lock:")

	_, err := l.TryLock(context.Background(), nil, lockName)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}
