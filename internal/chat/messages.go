package chat

import (
	"campusconnect/backend/internal/models"
	"context"
	"slices"

	"github.com/samber/lo"
)

// SendMessage is the only way a message becomes visible. The sender must
// be a current member. The message is stamped with the server clock, or
// with the group's previous message time if the clock is behind it.
func (s *Service) SendMessage(ctx context.Context, groupID, senderID, content string) (*MessageView, error) {
	if _, err := s.requireMember(ctx, groupID, senderID); err != nil {
		return nil, err
	}
	if err := s.checkContent(content); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		GroupID:   groupID,
		UserID:    senderID,
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	view := newMessageView(*msg, s.DisplayName(ctx, senderID))
	s.log.Debug("message stored", "group_id", groupID, "user_id", senderID, "message_id", msg.ID)
	return &view, nil
}

// GetMessages returns a page of history oldest first. The limit is
// clamped to the configured maximum.
func (s *Service) GetMessages(ctx context.Context, groupID, requesterID string, q HistoryQuery) ([]MessageView, error) {
	if _, err := s.requireMember(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.limits.DefaultHistoryLimit
	}
	limit = min(limit, s.limits.MaxHistoryLimit)

	messages, err := s.store.ListMessages(ctx, groupID, q.Before, limit)
	if err != nil {
		return nil, err
	}

	users := s.displayNames(ctx, lo.Uniq(lo.Map(messages, func(m models.ChatMessage, _ int) string { return m.UserID })))
	views := lo.Map(messages, func(m models.ChatMessage, _ int) MessageView {
		return newMessageView(m, users[m.UserID].Name)
	})
	slices.Reverse(views)
	return views, nil
}
