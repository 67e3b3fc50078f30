package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/smith3v/memory-pairs/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// SetupTestDB opens a private in-memory sqlite database, migrates it and
// installs it as db.DB for the duration of the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:memtest%d?mode=memory&cache=shared", dbCounter.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	db.DB = gdb

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
		db.DB = nil
	})
	return gdb
}

// CreateUser seeds an account and returns its id.
func CreateUser(t *testing.T, gdb *gorm.DB, username string) int64 {
	t.Helper()
	user := db.User{Username: username}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %q: %v", username, err)
	}
	return user.ID
}
