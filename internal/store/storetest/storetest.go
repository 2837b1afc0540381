// Package storetest provides an in-memory SQL store for tests.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shuweic/mp3/internal/store"
)

// NewSQLite opens a migrated SQLStore on an in-memory sqlite database that is
// closed when the test finishes.
func NewSQLite(t testing.TB) *store.SQLStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)

	s := store.NewSQL(db)
	require.NoError(t, s.Migrate())

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return s
}
