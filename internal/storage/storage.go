package storage

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GroupDirectory holds durable group metadata.
type GroupDirectory interface {
	CreateGroup(ctx context.Context, group *models.ChatGroup, members []models.GroupMember) error
	GetGroup(ctx context.Context, groupID string) (*models.ChatGroup, error)
	GetGroups(ctx context.Context, groupIDs []string) ([]models.ChatGroup, error)
	UpdateGroup(ctx context.Context, groupID string, updates map[string]any) (*models.ChatGroup, error)
}

// MembershipStore maps (group, user) to a role.
type MembershipStore interface {
	GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	AddMembers(ctx context.Context, groupID string, userIDs []string, role models.GroupRole, joinedAt time.Time) ([]string, error)
	RemoveMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	ListUserMemberships(ctx context.Context, userID string) ([]models.GroupMember, error)
	CountMembers(ctx context.Context, groupIDs []string) (map[string]int64, error)
	SetMemberRole(ctx context.Context, groupID, userID string, role models.GroupRole) error
}

// MessageLog is the append-only, ordered message sequence per group.
type MessageLog interface {
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, groupID string, before *time.Time, limit int) ([]models.ChatMessage, error)
	LatestMessage(ctx context.Context, groupID string) (*models.ChatMessage, error)
}

// UserDirectory resolves display attributes owned by the identity service.
type UserDirectory interface {
	GetUsers(ctx context.Context, userIDs []string) (map[string]models.User, error)
}

type Storage interface {
	GroupDirectory
	MembershipStore
	MessageLog
	UserDirectory
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	log   *slog.Logger
}

// NewStorageService Constructor. rdb may be nil when the relay is disabled.
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *slog.Logger) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		log:   log,
	}
}

// Migrate creates or updates the chat tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ChatGroup{},
		&models.GroupMember{},
		&models.ChatMessage{},
	)
}

// translate maps driver-level errors onto the application taxonomy.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound("%s", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, apperrors.ErrConflict)
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrConflict):
		return err
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
