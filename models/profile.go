package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile holds user-editable display data. One row per user, upserted
// rather than duplicated.
type Profile struct {
	gorm.Model
	UserID   uint    `gorm:"not null;uniqueIndex" json:"user_id"`
	Name     string  `gorm:"not null" json:"name"`
	AvatarID *uint   `json:"avatar_id,omitempty"`

	// Relations
	User   User        `json:"-"`
	Avatar *FileUpload `gorm:"foreignKey:AvatarID" json:"-"`
}

// FileUpload is an upload grant plus, once claimed, the stored blob
// metadata. The Token is the capability handed to the client; StoredName
// is the uuid the bytes live under on disk.
type FileUpload struct {
	gorm.Model
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Token       string    `gorm:"not null;uniqueIndex" json:"-"`
	StoredName  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Claimed     bool      `gorm:"default:false" json:"claimed"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`

	// Relations
	User User `json:"-"`
}
