package storage

import (
	"campusconnect/backend/internal/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendMessage persists msg and moves the group's last-activity timestamp
// to it. Appends to one group are serialized on the group row, and
// msg.CreatedAt is raised to the group's last activity when the caller's
// clock is behind, so (created_at, id) always follows commit order.
func (s *Service) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.ChatGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "last_activity_at").
			Where("id = ?", msg.GroupID).
			First(&group).Error; err != nil {
			return err
		}

		if last := group.LastActivityAt.UTC(); msg.CreatedAt.Before(last) {
			msg.CreatedAt = last
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatGroup{}).
			Where("id = ?", msg.GroupID).
			UpdateColumn("last_activity_at", msg.CreatedAt).Error
	})
	if err != nil {
		s.log.Error("failed to save message", "group_id", msg.GroupID, "user_id", msg.UserID, "error", err)
		return translate(err, "append message to group %s", msg.GroupID)
	}
	return nil
}

// ListMessages returns up to limit messages strictly older than before
// (all messages when before is nil), newest first.
func (s *Service) ListMessages(ctx context.Context, groupID string, before *time.Time, limit int) ([]models.ChatMessage, error) {
	q := s.DB.WithContext(ctx).Where("group_id = ?", groupID)
	if before != nil {
		q = q.Where("created_at < ?", before.UTC())
	}

	var messages []models.ChatMessage
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, translate(err, "list messages of group %s", groupID)
	}
	return messages, nil
}

// LatestMessage returns the newest message of the group, or nil if it has none.
func (s *Service) LatestMessage(ctx context.Context, groupID string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Order("id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "latest message of group %s", groupID)
	}
	return &msg, nil
}
