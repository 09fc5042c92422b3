package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/tests/testutil"
)

func TestDatabase_Stats(t *testing.T) {
	mock := testutil.NewMockDB(t)
	db := &Database{DB: mock.DB}

	stats, err := db.Stats()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestDatabase_Ping(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	// gorm.Open pings the connection once
	mock.ExpectPing()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	db := &Database{DB: gormDB}

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	assert.ErrorIs(t, db.Ping(context.Background()), assert.AnError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	mock := testutil.NewMockDB(t)
	db := &Database{DB: mock.DB}

	mock.Mock.ExpectClose()
	assert.NoError(t, db.Close())
	mock.ExpectationsWereMet(t)
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits", func(t *testing.T) {
		mock := testutil.NewMockDB(t)
		db := &Database{DB: mock.DB}

		mock.Mock.ExpectBegin()
		mock.Mock.ExpectExec(`UPDATE "jobs"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.Mock.ExpectCommit()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return tx.Exec(`UPDATE "jobs" SET status = ? WHERE status = ?`, "pending", "started").Error
		})
		assert.NoError(t, err)
		mock.ExpectationsWereMet(t)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock := testutil.NewMockDB(t)
		db := &Database{DB: mock.DB}

		mock.Mock.ExpectBegin()
		mock.Mock.ExpectRollback()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		mock.ExpectationsWereMet(t)
	})
}
