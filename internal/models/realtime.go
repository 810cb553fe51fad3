package models

import "time"

// EventType tags every server→client event.
type EventType string

const (
	EventMessage      EventType = "message"
	EventTyping       EventType = "typing"
	EventUserJoined   EventType = "user_joined"
	EventUserLeft     EventType = "user_left"
	EventMembersAdded EventType = "members_added"
	EventMemberLeft   EventType = "member_left"
	EventError        EventType = "error"
)

// Event is the outbound payload pushed to live connections. Only the
// fields relevant to Type are populated; the rest are omitted on the wire.
type Event struct {
	Type           EventType  `json:"type"`
	ID             uint       `json:"id,omitempty"`
	GroupID        string     `json:"group_id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	UserName       *string    `json:"user_name,omitempty"`
	Content        string     `json:"content,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	IsTyping       *bool      `json:"is_typing,omitempty"`
	UserIDs        []string   `json:"user_ids,omitempty"`
	PromotedUserID string     `json:"promoted_user_id,omitempty"`
	Code           string     `json:"code,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// NewMessageEvent builds the "a message appeared" event from a persisted message.
func NewMessageEvent(msg ChatMessage, userName string) Event {
	createdAt := msg.CreatedAt
	return Event{
		Type:      EventMessage,
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		UserID:    msg.UserID,
		UserName:  &userName,
		Content:   msg.Content,
		CreatedAt: &createdAt,
	}
}

func NewTypingEvent(userID string, isTyping bool) Event {
	return Event{Type: EventTyping, UserID: userID, IsTyping: &isTyping}
}

func NewUserJoinedEvent(userID string) Event {
	return Event{Type: EventUserJoined, UserID: userID}
}

func NewUserLeftEvent(userID, userName string) Event {
	return Event{Type: EventUserLeft, UserID: userID, UserName: &userName}
}

func NewMembersAddedEvent(groupID string, userIDs []string) Event {
	return Event{Type: EventMembersAdded, GroupID: groupID, UserIDs: userIDs}
}

// NewMemberLeftEvent announces a durable membership removal; promotedUserID
// is empty unless the leaver was the last admin.
func NewMemberLeftEvent(groupID, userID, userName, promotedUserID string) Event {
	return Event{
		Type:           EventMemberLeft,
		GroupID:        groupID,
		UserID:         userID,
		UserName:       &userName,
		PromotedUserID: promotedUserID,
	}
}

// NewErrorEvent is sent only to the connection whose frame was rejected.
func NewErrorEvent(code, message string) Event {
	return Event{Type: EventError, Code: code, Message: message}
}
