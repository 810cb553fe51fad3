package chat

import (
	"campusconnect/backend/internal/models"
	"time"
)

type CreateGroupInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	MemberIDs   []string `json:"member_ids" validate:"omitempty,dive,required"`
}

type AddMembersInput struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

// UpdateGroupInput carries only the fields to change.
type UpdateGroupInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// HistoryQuery selects a page of history. Limit <= 0 means the default.
type HistoryQuery struct {
	Limit  int
	Before *time.Time
}

type MessageView struct {
	ID        uint      `json:"id"`
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func newMessageView(msg models.ChatMessage, userName string) MessageView {
	return MessageView{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		UserID:    msg.UserID,
		UserName:  userName,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

// Event converts the persisted message into its live "message" event.
func (v MessageView) Event() models.Event {
	return models.NewMessageEvent(models.ChatMessage{
		ID:        v.ID,
		GroupID:   v.GroupID,
		UserID:    v.UserID,
		Content:   v.Content,
		CreatedAt: v.CreatedAt,
	}, v.UserName)
}

type GroupSummary struct {
	models.ChatGroup
	MemberCount   int64            `json:"member_count"`
	LastMessage   *string          `json:"last_message"`
	LastMessageAt *time.Time       `json:"last_message_at"`
	Role          models.GroupRole `json:"role"`
}

type MemberView struct {
	UserID   string           `json:"user_id"`
	Name     string           `json:"name"`
	Email    string           `json:"email,omitempty"`
	Course   *string          `json:"course,omitempty"`
	Year     *string          `json:"year,omitempty"`
	Role     models.GroupRole `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

type GroupDetail struct {
	GroupSummary
	Members []MemberView `json:"members"`
}

// LeaveResult describes a completed leave. PromotedUserID is set when the
// leaver was the last admin and another member took over.
type LeaveResult struct {
	GroupID        string `json:"group_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	PromotedUserID string `json:"promoted_user_id,omitempty"`
}

// Event converts the result into the live "member_left" event.
func (r LeaveResult) Event() models.Event {
	return models.NewMemberLeftEvent(r.GroupID, r.UserID, r.UserName, r.PromotedUserID)
}
