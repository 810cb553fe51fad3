package storage

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/models"
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	var member models.GroupMember
	err := s.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		return nil, translate(err, "membership of %s in group %s", userID, groupID)
	}
	return &member, nil
}

// AddMembers inserts missing memberships and returns the user ids that
// were actually added. Existing rows are left untouched, and a user added
// by a concurrent call is reported only by the call whose insert won.
func (s *Service) AddMembers(ctx context.Context, groupID string, userIDs []string, role models.GroupRole, joinedAt time.Time) ([]string, error) {
	var added []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id IN ?", groupID, userIDs).
			Pluck("user_id", &existing).Error; err != nil {
			return err
		}

		for _, userID := range lo.Without(lo.Uniq(userIDs), existing...) {
			row := models.GroupMember{GroupID: groupID, UserID: userID, Role: role, JoinedAt: joinedAt}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				added = append(added, userID)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to add members", "group_id", groupID, "error", err)
		return nil, translate(err, "add members to group %s", groupID)
	}
	return added, nil
}

// RemoveMember deletes the membership row. When the leaver was the last
// admin and members remain, the earliest-joined remaining member is
// promoted in the same transaction and returned; otherwise nil.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	var promoted *models.GroupMember
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes concurrent leaves of the same group.
		var group models.ChatGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", groupID).
			First(&group).Error; err != nil {
			return err
		}

		var member models.GroupMember
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
			return err
		}
		if err := tx.Delete(&member).Error; err != nil {
			return err
		}
		if !member.IsAdmin() {
			return nil
		}

		var admins int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND role = ?", groupID, models.GroupRoleAdmin).
			Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return nil
		}

		var next models.GroupMember
		err := tx.Where("group_id = ?", groupID).Order("joined_at ASC").Order("id ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&next).Update("role", models.GroupRoleAdmin).Error; err != nil {
			return err
		}
		next.Role = models.GroupRoleAdmin
		promoted = &next
		return nil
	})
	if err != nil {
		return nil, translate(err, "remove %s from group %s", userID, groupID)
	}
	if promoted != nil {
		s.log.Info("promoted member after last admin left", "group_id", groupID, "left", userID, "promoted", promoted.UserID)
	}
	return promoted, nil
}

// ListMembers returns memberships in join order.
func (s *Service) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := s.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, translate(err, "list members of group %s", groupID)
	}
	return members, nil
}

func (s *Service) ListUserMemberships(ctx context.Context, userID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&members).Error; err != nil {
		return nil, translate(err, "list memberships of %s", userID)
	}
	return members, nil
}

func (s *Service) CountMembers(ctx context.Context, groupIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		GroupID string
		Total   int64
	}
	err := s.DB.WithContext(ctx).
		Model(&models.GroupMember{}).
		Select("group_id, COUNT(*) AS total").
		Where("group_id IN ?", groupIDs).
		Group("group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "count members")
	}
	for _, row := range rows {
		counts[row.GroupID] = row.Total
	}
	return counts, nil
}

func (s *Service) SetMemberRole(ctx context.Context, groupID, userID string, role models.GroupRole) error {
	res := s.DB.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("role", role)
	if res.Error != nil {
		return translate(res.Error, "set role of %s in group %s", userID, groupID)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("membership of %s in group %s", userID, groupID)
	}
	return nil
}
