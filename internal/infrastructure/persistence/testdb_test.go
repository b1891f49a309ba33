package persistence

import (
	"testing"

	"github.com/store/backend/internal/domain/identity"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory sqlite database with every table migrated
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := Open(sqlite.Open("file::memory:?_foreign_keys=1"), Options{})
	require.NoError(t, err)

	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })

	models := append(StoreModels(), &SearchSyncTaskModel{}, &identity.User{})
	require.NoError(t, d.DB.AutoMigrate(models...))
	return d.DB
}
