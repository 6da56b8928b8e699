package models

import "gorm.io/gorm"

// Workspace is the tenancy root: every channel and message belongs to
// exactly one workspace.
type Workspace struct {
	gorm.Model
	Name      string `gorm:"not null;index" json:"name"`
	CreatedBy uint   `gorm:"not null" json:"created_by"`

	// Relations
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Channels []Channel         `gorm:"foreignKey:WorkspaceID" json:"channels,omitempty"`
}

// WorkspaceMember links a user to their workspace. The unique index on
// UserID makes "at most one workspace per user" a storage-level
// guarantee, not just an application-level check.
type WorkspaceMember struct {
	gorm.Model
	WorkspaceID uint `gorm:"not null;index" json:"workspace_id"`
	UserID      uint `gorm:"not null;uniqueIndex" json:"user_id"`

	Role string `gorm:"default:'member'" json:"role"` // owner, member

	// Relations
	Workspace Workspace `json:"-"`
	User      User      `json:"-"`
}

// Workspace member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)
