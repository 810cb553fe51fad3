package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a read-only view of the identity service's users table.
// The chat core only resolves display attributes from it.
type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	Course    *string   `json:"course,omitempty"`
	Year      *string   `json:"year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate generates a UUID for rows seeded without one (tests, admin tooling).
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
