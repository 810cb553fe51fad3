package main

import (
	"bytes"
	"campusconnect/backend/internal/logging"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/storage"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, storage.Migrate(db))
	return storage.NewStorageService(db, nil, logging.Discard())
}

func TestDeactivateAndPrintMembers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	alice := &models.User{Email: "alice@campus.edu", Name: "Alice"}
	require.NoError(t, s.SaveUser(ctx, alice))

	now := time.Now().UTC()
	group := &models.ChatGroup{Name: "Study", CreatedBy: alice.ID, IsActive: true, LastActivityAt: now}
	require.NoError(t, s.CreateGroup(ctx, group, []models.GroupMember{
		{UserID: alice.ID, Role: models.GroupRoleAdmin, JoinedAt: now},
	}))

	require.NoError(t, deactivateGroup(ctx, s, group.ID))
	got, err := s.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	var out bytes.Buffer
	require.NoError(t, printMembers(ctx, s, group.ID, &out))
	assert.Contains(t, out.String(), "Alice")
	assert.Contains(t, out.String(), "admin")
}
