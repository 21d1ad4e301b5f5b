// SPDX-License-Identifier: GPL-3.0-only

package services

import (
	"context"
	"devtrust-server/crypto"
	"devtrust-server/models"
	"devtrust-server/store"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*store.Store, *crypto.Crypto) {
	t.Helper()
	t.Setenv("HASHING_PEPPER", "test-pepper-for-hashing-operations")

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := conn.AutoMigrate(models.AllModels...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return store.New(conn), crypto.NewCrypto()
}

func newTestUser(t *testing.T, st *store.Store) *models.User {
	t.Helper()

	accountID, err := crypto.GenerateRandomString("acc_", 8, "hex")
	if err != nil {
		t.Fatalf("Failed to generate account id: %v", err)
	}
	user := &models.User{
		AccountID: accountID,
		Email:     accountID + "@example.com",
		Password:  "not-a-real-hash",
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}
