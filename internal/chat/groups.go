package chat

import (
	"campusconnect/backend/internal/models"
	"context"
	"strings"

	"github.com/samber/lo"
)

// CreateGroup makes creatorID the admin and adds each distinct initial
// member (the creator excluded) with the member role.
func (s *Service) CreateGroup(ctx context.Context, creatorID string, in CreateGroupInput) (*models.ChatGroup, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := s.checkText("name", in.Name, s.limits.MaxGroupNameLength); err != nil {
		return nil, err
	}
	if err := s.checkDescription(in.Description); err != nil {
		return nil, err
	}

	now := s.timestamp()
	group := &models.ChatGroup{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		CreatedBy:      creatorID,
		IsActive:       true,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	members := []models.GroupMember{{UserID: creatorID, Role: models.GroupRoleAdmin, JoinedAt: now}}
	for _, userID := range lo.Without(lo.Uniq(in.MemberIDs), creatorID) {
		members = append(members, models.GroupMember{UserID: userID, Role: models.GroupRoleMember, JoinedAt: now})
	}

	if err := s.store.CreateGroup(ctx, group, members); err != nil {
		return nil, err
	}
	s.log.Info("group created", "group_id", group.ID, "user_id", creatorID, "members", len(members))
	return group, nil
}

// AddMembers is admin-only and idempotent per user id. It returns the ids
// that were not members before the call.
func (s *Service) AddMembers(ctx context.Context, groupID, requesterID string, in AddMembersInput) ([]string, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	added, err := s.store.AddMembers(ctx, groupID, lo.Uniq(in.UserIDs), models.GroupRoleMember, s.timestamp())
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		s.log.Info("members added", "group_id", groupID, "user_id", requesterID, "added", added)
	}
	return added, nil
}

// LeaveGroup removes the caller's membership. Messages and the group row
// are kept. When the last admin leaves, the earliest-joined remaining
// member becomes admin.
func (s *Service) LeaveGroup(ctx context.Context, groupID, userID string) (*LeaveResult, error) {
	promoted, err := s.store.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	result := &LeaveResult{
		GroupID:  groupID,
		UserID:   userID,
		UserName: s.DisplayName(ctx, userID),
	}
	if promoted != nil {
		result.PromotedUserID = promoted.UserID
	}
	s.log.Info("member left group", "group_id", groupID, "user_id", userID, "promoted", result.PromotedUserID)
	return result, nil
}

// UpdateGroup is admin-only; it always bumps the update timestamp.
func (s *Service) UpdateGroup(ctx context.Context, groupID, requesterID string, in UpdateGroupInput) (*models.ChatGroup, error) {
	if _, err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": s.timestamp()}
	if in.Name != nil {
		if err := s.checkText("name", *in.Name, s.limits.MaxGroupNameLength); err != nil {
			return nil, err
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		if err := s.checkDescription(in.Description); err != nil {
			return nil, err
		}
		updates["description"] = *in.Description
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	return s.store.UpdateGroup(ctx, groupID, updates)
}

// ListUserGroups returns every group the user belongs to, most recently
// active first, with member counts and a last-message preview.
func (s *Service) ListUserGroups(ctx context.Context, userID string) ([]GroupSummary, error) {
	memberships, err := s.store.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []GroupSummary{}, nil
	}
	roles := lo.SliceToMap(memberships, func(m models.GroupMember) (string, models.GroupRole) {
		return m.GroupID, m.Role
	})

	groups, err := s.store.GetGroups(ctx, lo.Keys(roles))
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountMembers(ctx, lo.Map(groups, func(g models.ChatGroup, _ int) string { return g.ID }))
	if err != nil {
		return nil, err
	}

	summaries := make([]GroupSummary, 0, len(groups))
	for _, group := range groups {
		summary, err := s.summarize(ctx, group, counts[group.ID], roles[group.ID])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, group models.ChatGroup, memberCount int64, role models.GroupRole) (GroupSummary, error) {
	summary := GroupSummary{ChatGroup: group, MemberCount: memberCount, Role: role}
	last, err := s.store.LatestMessage(ctx, group.ID)
	if err != nil {
		return summary, err
	}
	if last != nil {
		summary.LastMessage = &last.Content
		summary.LastMessageAt = &last.CreatedAt
	}
	return summary, nil
}

// GetGroupDetail is membership-gated and resolves every member's
// display attributes.
func (s *Service) GetGroupDetail(ctx context.Context, groupID, requesterID string) (*GroupDetail, error) {
	self, err := s.requireMember(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	users := s.displayNames(ctx, lo.Map(members, func(m models.GroupMember, _ int) string { return m.UserID }))
	views := lo.Map(members, func(m models.GroupMember, _ int) MemberView {
		u := users[m.UserID]
		return MemberView{
			UserID:   m.UserID,
			Name:     u.Name,
			Email:    u.Email,
			Course:   u.Course,
			Year:     u.Year,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
	})

	summary, err := s.summarize(ctx, *group, int64(len(members)), self.Role)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{GroupSummary: summary, Members: views}, nil
}
