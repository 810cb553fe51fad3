package models

import "time"

// ChatMessage is one immutable entry of a group's message log.
// Retrieval order is (CreatedAt, ID); the autoincrement ID reflects
// commit order and breaks timestamp ties.
type ChatMessage struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// GroupID is the owning group.
	GroupID string `gorm:"type:varchar(36);not null;index:idx_group_created,priority:1" json:"group_id"`
	// UserID is the sender.
	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	// Content is the message text, validated for length before insert.
	Content string `gorm:"type:text;not null" json:"content"`
	// CreatedAt is assigned by the server at append time.
	CreatedAt time.Time `gorm:"not null;index:idx_group_created,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
