package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupRole is a member's role inside a single chat group.
type GroupRole string

const (
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// ChatGroup is a named chat channel with a bounded membership set.
// LastActivityAt is touched on every persisted message and drives the
// ordering of a user's group list; UpdatedAt only moves on metadata edits.
type ChatGroup struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Description    *string   `gorm:"type:text" json:"description"`
	CreatedBy      string    `gorm:"type:varchar(36);not null;index" json:"created_by"`
	IsActive       bool      `gorm:"not null;default:true;index" json:"is_active"`
	LastActivityAt time.Time `gorm:"not null;index" json:"last_activity_at"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// TableName keeps the table name stable regardless of struct naming.
func (ChatGroup) TableName() string { return "chat_groups" }

// BeforeCreate assigns a UUID when the caller did not supply one.
func (g *ChatGroup) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return
}

// GroupMember is the durable record that a user belongs to a group.
// Exactly one row exists per (group, user); the autoincrement ID breaks
// JoinedAt ties when picking the earliest remaining member.
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	GroupID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_group_user;index" json:"user_id"`
	Role     GroupRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (GroupMember) TableName() string { return "chat_members" }

// IsAdmin reports whether the membership carries the admin role.
func (m GroupMember) IsAdmin() bool {
	return m.Role == GroupRoleAdmin
}
