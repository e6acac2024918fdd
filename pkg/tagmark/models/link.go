package models

import "time"

// Link represents a saved bookmark owned by one user.
// ID, SavedAt and UserID never change after creation.
type Link struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	URL         string    `gorm:"not null" json:"url"`
	Title       string    `json:"title"`
	Description string    `gorm:"default:''" json:"description"`
	SavedAt     time.Time `gorm:"not null;index" json:"saved_at"`
	IsPublic    bool      `gorm:"default:false" json:"is_public"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`

	// Owner reference only; users never carry their links in memory.
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
