package models

import "gorm.io/gorm"

// Channel is a named message stream inside a workspace. Names are
// unique per workspace, not globally.
type Channel struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;uniqueIndex:idx_channels_workspace_name" json:"workspace_id"`
	Name        string `gorm:"not null;uniqueIndex:idx_channels_workspace_name" json:"name"`
	CreatedBy   uint   `gorm:"not null" json:"created_by"`

	// Relations
	Workspace Workspace `json:"-"`
	Messages  []Message `gorm:"foreignKey:ChannelID" json:"-"`
}

// DefaultChannelName is created alongside every bootstrapped workspace.
const DefaultChannelName = "general"
