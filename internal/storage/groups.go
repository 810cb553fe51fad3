package storage

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/models"
	"context"

	"gorm.io/gorm"
)

// CreateGroup inserts the group and its initial memberships atomically.
func (s *Service) CreateGroup(ctx context.Context, group *models.ChatGroup, members []models.GroupMember) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].GroupID = group.ID
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		s.log.Error("failed to create group", "name", group.Name, "error", err)
		return translate(err, "create group")
	}
	return nil
}

func (s *Service) GetGroup(ctx context.Context, groupID string) (*models.ChatGroup, error) {
	var group models.ChatGroup
	if err := s.DB.WithContext(ctx).Where("id = ?", groupID).First(&group).Error; err != nil {
		return nil, translate(err, "group %s", groupID)
	}
	return &group, nil
}

// GetGroups returns the groups ordered by most recent activity first.
func (s *Service) GetGroups(ctx context.Context, groupIDs []string) ([]models.ChatGroup, error) {
	var groups []models.ChatGroup
	if len(groupIDs) == 0 {
		return groups, nil
	}
	err := s.DB.WithContext(ctx).
		Where("id IN ?", groupIDs).
		Order("last_activity_at DESC").
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, translate(err, "list groups")
	}
	return groups, nil
}

// UpdateGroup applies column updates and returns the fresh row.
func (s *Service) UpdateGroup(ctx context.Context, groupID string, updates map[string]any) (*models.ChatGroup, error) {
	var group models.ChatGroup
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatGroup{}).Where("id = ?", groupID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("group %s", groupID)
		}
		return tx.Where("id = ?", groupID).First(&group).Error
	})
	if err != nil {
		return nil, translate(err, "update group %s", groupID)
	}
	return &group, nil
}
